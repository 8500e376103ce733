package recording

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-booking-assistant/internal/chatlog"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

type fakeCapture struct {
	chunks    chan []byte
	stopOnce  sync.Once
	mu        sync.Mutex
	stopped   bool
	closed    int
	pending   [][]byte
	mediaType string
}

func newFakeCapture(chunks ...[]byte) *fakeCapture {
	return &fakeCapture{chunks: make(chan []byte, 64), pending: chunks}
}

func (f *fakeCapture) Chunks() <-chan []byte { return f.chunks }
func (f *fakeCapture) ContentType() string  { return f.mediaType }

func (f *fakeCapture) Stop() error {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		for _, c := range f.pending {
			f.chunks <- c
		}
		f.stopped = true
		f.mu.Unlock()
		close(f.chunks)
	})
	return nil
}

func (f *fakeCapture) Close() error {
	f.Stop()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeCapture) released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed > 0
}

type fakeMic struct {
	capture *fakeCapture
	err     error
	gate    chan struct{}
	opens   int
}

func (m *fakeMic) Open(ctx context.Context) (Capture, error) {
	m.opens++
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.capture, nil
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newController(t *testing.T, mic Microphone) (*Controller, *chatlog.Log, *manualClock) {
	t.Helper()
	log := chatlog.New()
	clock := &manualClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := NewController(mic, log, WithClock(clock.Now), WithLogger(logging.Discard()))
	return c, log, clock
}

func bytesOf(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return b
}

func TestRecordingProducesSingleClip(t *testing.T) {
	capture := newFakeCapture(bytesOf(600), bytesOf(600))
	capture.mediaType = "audio/ogg"
	c, log, clock := newController(t, &fakeMic{capture: capture})

	require.NoError(t, c.Press(context.Background()))
	assert.Equal(t, StateRecording, c.State())
	assert.True(t, log.HasPlaceholder())

	clock.Advance(time.Second)
	clip, err := c.Release(context.Background())
	require.NoError(t, err)
	assert.Len(t, clip.Data, 1200)
	assert.Equal(t, "audio/ogg", clip.ContentType)
	assert.Equal(t, time.Second, clip.Held)

	assert.Equal(t, StateIdle, c.State())
	assert.False(t, log.HasPlaceholder())
	assert.True(t, capture.released())
}

func TestAccidentalTapIsDiscarded(t *testing.T) {
	capture := newFakeCapture(bytesOf(100))
	c, log, clock := newController(t, &fakeMic{capture: capture})

	require.NoError(t, c.Press(context.Background()))
	clock.Advance(50 * time.Millisecond)
	clip, err := c.Release(context.Background())

	assert.Nil(t, clip)
	assert.ErrorIs(t, err, ErrTooShort)
	assert.ErrorIs(t, err, ErrNoAudio)
	assert.False(t, log.HasPlaceholder())
	assert.True(t, capture.released())
}

func TestShortHoldWithEnoughBytesIsAccepted(t *testing.T) {
	capture := newFakeCapture(bytesOf(5000))
	c, _, clock := newController(t, &fakeMic{capture: capture})

	require.NoError(t, c.Press(context.Background()))
	clock.Advance(50 * time.Millisecond)
	clip, err := c.Release(context.Background())
	require.NoError(t, err)
	assert.Len(t, clip.Data, 5000)
	assert.Equal(t, "audio/webm", clip.ContentType)
}

func TestLongHoldWithFewBytesIsAccepted(t *testing.T) {
	capture := newFakeCapture(bytesOf(10))
	c, _, clock := newController(t, &fakeMic{capture: capture})

	require.NoError(t, c.Press(context.Background()))
	clock.Advance(500 * time.Millisecond)
	clip, err := c.Release(context.Background())
	require.NoError(t, err)
	assert.Len(t, clip.Data, 10)
}

func TestEmptyCaptureReportsNoAudio(t *testing.T) {
	capture := newFakeCapture()
	c, log, clock := newController(t, &fakeMic{capture: capture})

	require.NoError(t, c.Press(context.Background()))
	clock.Advance(2 * time.Second)
	_, err := c.Release(context.Background())
	assert.ErrorIs(t, err, ErrNoAudio)
	assert.NotErrorIs(t, err, ErrTooShort)
	assert.False(t, log.HasPlaceholder())
}

func TestMicrophoneFailureReturnsToIdle(t *testing.T) {
	c, log, _ := newController(t, &fakeMic{err: errors.New("permission denied")})

	err := c.Press(context.Background())
	assert.ErrorIs(t, err, ErrMicrophoneUnavailable)
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, log.HasPlaceholder())
}

func TestCancelWhileRecordingReleasesDevice(t *testing.T) {
	capture := newFakeCapture(bytesOf(4000))
	c, log, _ := newController(t, &fakeMic{capture: capture})

	require.NoError(t, c.Press(context.Background()))
	c.Cancel()

	assert.Equal(t, StateIdle, c.State())
	assert.False(t, log.HasPlaceholder())
	assert.True(t, capture.released())

	_, err := c.Release(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestCancelWhileArmedReleasesLateDevice(t *testing.T) {
	capture := newFakeCapture(bytesOf(10))
	mic := &fakeMic{capture: capture, gate: make(chan struct{})}
	c, log, _ := newController(t, mic)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Press(context.Background()) }()

	require.Eventually(t, func() bool { return c.State() == StateArmed }, time.Second, time.Millisecond)
	c.Cancel()
	close(mic.gate)

	assert.ErrorIs(t, <-errCh, ErrCancelled)
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, log.HasPlaceholder())
	assert.True(t, capture.released())
}

func TestPressWhileBusy(t *testing.T) {
	c, _, _ := newController(t, &fakeMic{capture: newFakeCapture(bytesOf(10))})
	require.NoError(t, c.Press(context.Background()))
	assert.ErrorIs(t, c.Press(context.Background()), ErrBusy)
	c.Cancel()
}

func TestSetMicrophoneOnlyWhenIdle(t *testing.T) {
	c, _, _ := newController(t, &fakeMic{capture: newFakeCapture(bytesOf(10))})
	require.NoError(t, c.Press(context.Background()))
	assert.ErrorIs(t, c.SetMicrophone(&fakeMic{}), ErrBusy)
	c.Cancel()
	assert.NoError(t, c.SetMicrophone(&fakeMic{}))
	assert.Error(t, c.SetMicrophone(nil))
}

func TestFileMicrophoneStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.webm")
	require.NoError(t, os.WriteFile(path, bytesOf(10000), 0o600))

	mic := &FileMicrophone{Path: path, ChunkSize: 1024, Interval: time.Hour}
	c, _, clock := newController(t, mic)

	require.NoError(t, c.Press(context.Background()))
	clock.Advance(time.Second)
	clip, err := c.Release(context.Background())
	require.NoError(t, err)
	assert.Len(t, clip.Data, 10000)
	assert.Equal(t, "audio/webm", clip.ContentType)
}

func TestFileMicrophoneMissingFile(t *testing.T) {
	c, _, _ := newController(t, &FileMicrophone{Path: filepath.Join(t.TempDir(), "nope.webm")})
	assert.ErrorIs(t, c.Press(context.Background()), ErrMicrophoneUnavailable)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "armed", StateArmed.String())
	assert.Equal(t, "recording", StateRecording.String())
	assert.Equal(t, "finalizing", StateFinalizing.String())
	assert.Equal(t, "unknown", State(42).String())
}
