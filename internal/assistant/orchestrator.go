// Package assistant coordinates the booking assistant: typed and recorded
// turns, reply reveal, specialty suggestions and the booking modal.
package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/internal/booking"
	"github.com/wolfman30/medspa-booking-assistant/internal/chatlog"
	"github.com/wolfman30/medspa-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/medspa-booking-assistant/internal/recording"
	"github.com/wolfman30/medspa-booking-assistant/internal/reveal"
	"github.com/wolfman30/medspa-booking-assistant/internal/session"
	"github.com/wolfman30/medspa-booking-assistant/internal/suggest"
	"github.com/wolfman30/medspa-booking-assistant/internal/voice"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// Backend is the part of the booking backend the orchestrator talks to.
// *api.Client satisfies it.
type Backend interface {
	Converse(ctx context.Context, in api.ConverseRequest) (*api.ConverseResponse, error)
	Doctors(ctx context.Context, specialization string) ([]api.Doctor, error)
	CreateBooking(ctx context.Context, in api.BookingRequest) (*api.Booking, error)
	Transcribe(ctx context.Context, audio []byte, filename, contentType string) (*api.TranscribeResponse, error)
}

// TurnPolicy decides what happens when a turn starts while another is
// still outstanding.
type TurnPolicy string

const (
	// TurnPolicySerialize queues turns and runs them one at a time, in order.
	TurnPolicySerialize TurnPolicy = "serialize"
	// TurnPolicyOverlap lets turns interleave; the latest reveal wins the
	// assistant placeholder.
	TurnPolicyOverlap TurnPolicy = "overlap"
)

// ParseTurnPolicy maps a config value onto a policy, defaulting to serialize.
func ParseTurnPolicy(s string) TurnPolicy {
	if TurnPolicy(s) == TurnPolicyOverlap {
		return TurnPolicyOverlap
	}
	return TurnPolicySerialize
}

// Notice is a timed notification, shown until Until.
type Notice struct {
	Title string
	Text  string
	Until time.Time
}

// State is a copy of everything a front-end renders.
type State struct {
	SessionID  string
	Messages   []chatlog.Message
	Thinking   bool
	Recording  recording.State
	Doctors    []api.Doctor
	Suggestion *suggest.Suggestion
	Booking    booking.State
	Notice     *Notice
}

const (
	defaultNoticeDuration        = 2200 * time.Millisecond
	defaultBookingNoticeDuration = 6 * time.Second
	sessionNoticeDuration        = 2 * time.Second
)

type orchestratorConfig struct {
	mic                   recording.Microphone
	minHold               time.Duration
	minBytes              int
	player                voice.Player
	patients              booking.PatientStore
	metrics               *metrics.AssistantMetrics
	now                   func() time.Time
	revealInterval        time.Duration
	noticeDuration        time.Duration
	bookingNoticeDuration time.Duration
	policy                TurnPolicy
	onNotice              func(Notice)
}

// Option configures the orchestrator.
type Option func(*orchestratorConfig)

// WithMicrophone sets the capture device used by the record gesture.
func WithMicrophone(mic recording.Microphone) Option {
	return func(cfg *orchestratorConfig) { cfg.mic = mic }
}

// WithRecordingGate overrides the accidental-tap thresholds.
func WithRecordingGate(minHold time.Duration, minBytes int) Option {
	return func(cfg *orchestratorConfig) {
		cfg.minHold = minHold
		cfg.minBytes = minBytes
	}
}

// WithPlayer enables reply audio playback.
func WithPlayer(p voice.Player) Option {
	return func(cfg *orchestratorConfig) { cfg.player = p }
}

// WithPatientStore remembers patient details between bookings.
func WithPatientStore(store booking.PatientStore) Option {
	return func(cfg *orchestratorConfig) { cfg.patients = store }
}

// WithMetrics records prometheus metrics.
func WithMetrics(m *metrics.AssistantMetrics) Option {
	return func(cfg *orchestratorConfig) { cfg.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(cfg *orchestratorConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithRevealInterval sets the per-character reveal delay. Zero reveals the
// whole reply at once.
func WithRevealInterval(d time.Duration) Option {
	return func(cfg *orchestratorConfig) {
		if d >= 0 {
			cfg.revealInterval = d
		}
	}
}

// WithNoticeDurations sets how long regular and booking notices stay up.
func WithNoticeDurations(notice, bookingNotice time.Duration) Option {
	return func(cfg *orchestratorConfig) {
		if notice > 0 {
			cfg.noticeDuration = notice
		}
		if bookingNotice > 0 {
			cfg.bookingNoticeDuration = bookingNotice
		}
	}
}

// WithTurnPolicy selects serialized or overlapping turns.
func WithTurnPolicy(p TurnPolicy) Option {
	return func(cfg *orchestratorConfig) { cfg.policy = p }
}

// WithNoticeHandler is called for every notice as it is raised.
func WithNoticeHandler(fn func(Notice)) Option {
	return func(cfg *orchestratorConfig) { cfg.onNotice = fn }
}

// Orchestrator owns the application state and sequences every turn.
type Orchestrator struct {
	backend  Backend
	sessions *session.Store
	messages *chatlog.Log
	recorder *recording.Controller
	speech   *voice.Transcriber
	resolver *suggest.Resolver
	booking  *booking.Workflow
	renderer *reveal.Renderer
	logger   *logging.Logger
	cfg      orchestratorConfig

	// turns is nil under TurnPolicyOverlap.
	turns     *semaphore.Weighted
	directory singleflight.Group
	audio     sync.WaitGroup

	mu         sync.Mutex
	inflight   int
	doctors    []api.Doctor
	suggestion *suggest.Suggestion
	notice     *Notice
}

// NewOrchestrator wires the assistant around the backend and session store.
func NewOrchestrator(backend Backend, sessions *session.Store, logger *logging.Logger, opts ...Option) *Orchestrator {
	if backend == nil {
		panic("assistant: backend cannot be nil")
	}
	if sessions == nil {
		panic("assistant: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := orchestratorConfig{
		minHold:               200 * time.Millisecond,
		minBytes:              1000,
		now:                   time.Now,
		revealInterval:        reveal.DefaultInterval,
		noticeDuration:        defaultNoticeDuration,
		bookingNoticeDuration: defaultBookingNoticeDuration,
		policy:                TurnPolicySerialize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.mic == nil {
		cfg.mic = noMicrophone{}
	}

	messages := chatlog.New().WithClock(cfg.now)
	o := &Orchestrator{
		backend:  backend,
		sessions: sessions,
		messages: messages,
		recorder: recording.NewController(cfg.mic, messages,
			recording.WithMinHold(cfg.minHold),
			recording.WithMinBytes(cfg.minBytes),
			recording.WithClock(cfg.now),
			recording.WithLogger(logger),
		),
		speech:   voice.NewTranscriber(backend, logger),
		resolver: suggest.NewResolver(backend, logger),
		booking:  booking.NewWorkflow(backend, cfg.patients, logger),
		renderer: reveal.NewRenderer(cfg.revealInterval),
		logger:   logger,
		cfg:      cfg,
	}
	if cfg.policy != TurnPolicyOverlap {
		o.turns = semaphore.NewWeighted(1)
	}
	return o
}

// Messages exposes the log so front-ends can subscribe to it.
func (o *Orchestrator) Messages() *chatlog.Log { return o.messages }

// Booking exposes the modal for field edits.
func (o *Orchestrator) Booking() *booking.Workflow { return o.booking }

// Recorder exposes the record gesture, e.g. to swap microphones.
func (o *Orchestrator) Recorder() *recording.Controller { return o.recorder }

// SessionID returns the current conversation identifier.
func (o *Orchestrator) SessionID(ctx context.Context) string {
	return o.sessions.Get(ctx)
}

// Snapshot copies the whole application state.
func (o *Orchestrator) Snapshot(ctx context.Context) State {
	st := State{
		SessionID: o.sessions.Get(ctx),
		Messages:  o.messages.Messages(),
		Recording: o.recorder.State(),
		Booking:   o.booking.Snapshot(),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	st.Thinking = o.inflight > 0
	st.Doctors = append([]api.Doctor(nil), o.doctors...)
	if o.suggestion != nil {
		s := *o.suggestion
		s.Doctors = append([]api.Doctor(nil), o.suggestion.Doctors...)
		st.Suggestion = &s
	}
	if o.notice != nil && o.cfg.now().Before(o.notice.Until) {
		n := *o.notice
		st.Notice = &n
	}
	return st
}

// Wait blocks until background audio playback has finished.
func (o *Orchestrator) Wait() {
	o.audio.Wait()
}

// exclusive runs fn as one unit with respect to other turns. Under the
// overlap policy it runs fn immediately.
func (o *Orchestrator) exclusive(ctx context.Context, fn func()) error {
	if o.turns != nil {
		if err := o.turns.Acquire(ctx, 1); err != nil {
			return err
		}
		defer o.turns.Release(1)
	}
	fn()
	return nil
}

func (o *Orchestrator) setThinking(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if on {
		o.inflight++
	} else if o.inflight > 0 {
		o.inflight--
	}
}

func (o *Orchestrator) notify(title, text string, d time.Duration) {
	n := Notice{Title: title, Text: text, Until: o.cfg.now().Add(d)}
	o.mu.Lock()
	o.notice = &n
	o.mu.Unlock()

	o.logger.Debug("assistant: notice", "title", title)
	if o.cfg.onNotice != nil {
		o.cfg.onNotice(n)
	}
}

type noMicrophone struct{}

func (noMicrophone) Open(context.Context) (recording.Capture, error) {
	return nil, errors.New("no microphone configured")
}
