// Package recording implements the hold-to-record gesture: it owns the
// microphone for the duration of one gesture and produces at most one clip.
package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/medspa-booking-assistant/internal/chatlog"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// State of the gesture.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// PlaceholderText is shown in the log while audio is being captured.
const PlaceholderText = "Recording..."

var (
	ErrMicrophoneUnavailable = errors.New("recording: microphone access denied or not available")
	ErrNoAudio               = errors.New("recording: no audio recorded")
	// ErrTooShort is an accidental tap. It matches ErrNoAudio under errors.Is.
	ErrTooShort     = fmt.Errorf("%w: gesture too short", ErrNoAudio)
	ErrNotRecording = errors.New("recording: no gesture in progress")
	ErrBusy         = errors.New("recording: gesture already in progress")
	ErrCancelled    = errors.New("recording: gesture cancelled")
)

// Clip is the audio produced by one completed gesture.
type Clip struct {
	Data        []byte
	ContentType string
	Held        time.Duration
}

// Placeholder is the log surface the controller drives while capturing.
type Placeholder interface {
	SetPlaceholder(text string) chatlog.Message
	ClearPlaceholder()
}

// Controller runs Idle -> Armed -> Recording -> Finalizing -> Idle, with a
// jump back to Idle from any state on Cancel.
type Controller struct {
	mic         Microphone
	placeholder Placeholder
	minHold     time.Duration
	minBytes    int
	now         func() time.Time
	logger      *logging.Logger

	mu        sync.Mutex
	state     State
	gen       uint64
	capture   Capture
	startedAt time.Time
	buf       bytes.Buffer
	collected chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithMinHold sets the minimum hold duration.
func WithMinHold(d time.Duration) Option {
	return func(c *Controller) { c.minHold = d }
}

// WithMinBytes sets the minimum captured size.
func WithMinBytes(n int) Option {
	return func(c *Controller) { c.minBytes = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController builds a controller with a 200ms / 1000 byte accidental-tap gate.
func NewController(mic Microphone, placeholder Placeholder, opts ...Option) *Controller {
	if mic == nil {
		panic("recording: microphone cannot be nil")
	}
	if placeholder == nil {
		panic("recording: placeholder cannot be nil")
	}
	c := &Controller{
		mic:         mic,
		placeholder: placeholder,
		minHold:     200 * time.Millisecond,
		minBytes:    1000,
		now:         time.Now,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current gesture state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetMicrophone swaps the device used by the next gesture.
func (c *Controller) SetMicrophone(mic Microphone) error {
	if mic == nil {
		return errors.New("recording: microphone cannot be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrBusy
	}
	c.mic = mic
	return nil
}

// Press starts a gesture. It blocks while the microphone is acquired and
// returns once capture is running.
func (c *Controller) Press(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateArmed
	c.gen++
	gen := c.gen
	mic := c.mic
	c.mu.Unlock()

	capture, err := mic.Open(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.state != StateArmed {
		// Cancelled while waiting for the device.
		if capture != nil {
			c.release(capture)
		}
		return ErrCancelled
	}
	if err != nil {
		c.state = StateIdle
		c.placeholder.ClearPlaceholder()
		c.logger.Warn("recording: microphone unavailable", "error", err)
		return fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}

	c.state = StateRecording
	c.capture = capture
	c.startedAt = c.now()
	c.buf.Reset()
	done := make(chan struct{})
	c.collected = done
	go c.collect(capture, gen, done)

	c.placeholder.SetPlaceholder(PlaceholderText)
	c.logger.Debug("recording: capture started")
	return nil
}

// Release ends the gesture and returns the assembled clip. Accidental taps
// and empty captures return an error matching ErrNoAudio.
func (c *Controller) Release(ctx context.Context) (*Clip, error) {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return nil, ErrNotRecording
	case StateArmed:
		// Released before the device arrived; Press releases it.
		c.resetLocked()
		c.mu.Unlock()
		return nil, ErrCancelled
	case StateFinalizing:
		c.mu.Unlock()
		return nil, ErrBusy
	}

	c.state = StateFinalizing
	capture := c.capture
	done := c.collected
	gen := c.gen
	held := c.now().Sub(c.startedAt)
	c.mu.Unlock()

	if err := capture.Stop(); err != nil {
		c.logger.Warn("recording: stop failed", "error", err)
	}
	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}
	c.release(capture)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil, ErrCancelled
	}
	data := make([]byte, c.buf.Len())
	copy(data, c.buf.Bytes())
	c.resetLocked()
	c.mu.Unlock()

	if waitErr != nil {
		return nil, waitErr
	}
	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	if held < c.minHold && len(data) < c.minBytes {
		return nil, ErrTooShort
	}

	contentType := capture.ContentType()
	if contentType == "" {
		contentType = "audio/webm"
	}
	return &Clip{Data: data, ContentType: contentType, Held: held}, nil
}

// Cancel abandons the gesture from any state, e.g. when the pointer leaves
// the control. Captured audio is discarded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	capture := c.capture
	c.resetLocked()
	c.mu.Unlock()

	if capture != nil {
		c.release(capture)
	}
	c.logger.Debug("recording: gesture cancelled")
}

// resetLocked returns to Idle and invalidates the running gesture.
func (c *Controller) resetLocked() {
	c.gen++
	c.state = StateIdle
	c.capture = nil
	c.collected = nil
	c.buf.Reset()
	c.placeholder.ClearPlaceholder()
}

func (c *Controller) release(capture Capture) {
	capture.Stop()
	if err := capture.Close(); err != nil {
		c.logger.Warn("recording: release failed", "error", err)
	}
}

func (c *Controller) collect(capture Capture, gen uint64, done chan struct{}) {
	defer close(done)
	for chunk := range capture.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		c.mu.Lock()
		if c.gen == gen {
			c.buf.Write(chunk)
		}
		c.mu.Unlock()
	}
}
