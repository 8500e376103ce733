package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/internal/chatlog"
	"github.com/wolfman30/medspa-booking-assistant/internal/recording"
	"github.com/wolfman30/medspa-booking-assistant/internal/session"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// fakeBackend records every call. Nil hooks answer with zero values.
type fakeBackend struct {
	converse   func(api.ConverseRequest) (*api.ConverseResponse, error)
	doctors    func(string) ([]api.Doctor, error)
	create     func(api.BookingRequest) (*api.Booking, error)
	transcribe func([]byte) (*api.TranscribeResponse, error)

	mu              sync.Mutex
	converseCalls   []api.ConverseRequest
	doctorQueries   []string
	bookingRequests []api.BookingRequest
	transcribeCalls int
}

func (f *fakeBackend) Converse(ctx context.Context, in api.ConverseRequest) (*api.ConverseResponse, error) {
	f.mu.Lock()
	f.converseCalls = append(f.converseCalls, in)
	fn := f.converse
	f.mu.Unlock()
	if fn == nil {
		return &api.ConverseResponse{OK: true}, nil
	}
	return fn(in)
}

func (f *fakeBackend) Doctors(ctx context.Context, specialization string) ([]api.Doctor, error) {
	f.mu.Lock()
	f.doctorQueries = append(f.doctorQueries, specialization)
	fn := f.doctors
	f.mu.Unlock()
	if fn == nil {
		return []api.Doctor{}, nil
	}
	return fn(specialization)
}

func (f *fakeBackend) CreateBooking(ctx context.Context, in api.BookingRequest) (*api.Booking, error) {
	f.mu.Lock()
	f.bookingRequests = append(f.bookingRequests, in)
	fn := f.create
	f.mu.Unlock()
	if fn == nil {
		return &api.Booking{ID: 1, PatientName: in.PatientName, RequestedSlot: in.RequestedSlot}, nil
	}
	return fn(in)
}

func (f *fakeBackend) Transcribe(ctx context.Context, audio []byte, filename, contentType string) (*api.TranscribeResponse, error) {
	f.mu.Lock()
	f.transcribeCalls++
	fn := f.transcribe
	f.mu.Unlock()
	if fn == nil {
		return &api.TranscribeResponse{OK: true, Text: string(audio)}, nil
	}
	return fn(audio)
}

func (f *fakeBackend) counts() (converse, doctors, bookings, transcribe int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.converseCalls), len(f.doctorQueries), len(f.bookingRequests), f.transcribeCalls
}

func (f *fakeBackend) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.doctorQueries...)
}

type stubIssuer struct {
	id  string
	err error
}

func (s stubIssuer) NewSession(ctx context.Context) (string, error) { return s.id, s.err }

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubMic hands out captures preloaded with data.
type stubMic struct {
	data []byte
	err  error
}

func (m *stubMic) Open(ctx context.Context) (recording.Capture, error) {
	if m.err != nil {
		return nil, m.err
	}
	c := &stubCapture{ch: make(chan []byte, 1)}
	if len(m.data) > 0 {
		c.ch <- m.data
	}
	return c, nil
}

type stubCapture struct {
	ch   chan []byte
	once sync.Once
}

func (c *stubCapture) Chunks() <-chan []byte { return c.ch }
func (c *stubCapture) ContentType() string  { return "audio/webm" }
func (c *stubCapture) Stop() error {
	c.once.Do(func() { close(c.ch) })
	return nil
}
func (c *stubCapture) Close() error { return c.Stop() }

type harness struct {
	o       *Orchestrator
	backend *fakeBackend
	clock   *testClock
	kv      *session.MemoryKV
}

func newHarness(t *testing.T, backend *fakeBackend, opts ...Option) *harness {
	t.Helper()
	return newHarnessWithIssuer(t, backend, nil, opts...)
}

func newHarnessWithIssuer(t *testing.T, backend *fakeBackend, issuer session.Issuer, opts ...Option) *harness {
	t.Helper()
	clock := newTestClock()
	kv := session.NewMemoryKV()
	store := session.NewStore(kv, issuer, session.WithLogger(logging.Discard()))
	base := []Option{WithClock(clock.Now), WithRevealInterval(0)}
	o := NewOrchestrator(backend, store, logging.Discard(), append(base, opts...)...)
	return &harness{o: o, backend: backend, clock: clock, kv: kv}
}

// transcript lists the log after the greeting as "origin: text".
func (h *harness) transcript() []string {
	var out []string
	for i, m := range h.o.Messages().Messages() {
		if i == 0 && m.Text == chatlog.Greeting {
			continue
		}
		out = append(out, string(m.Origin)+": "+m.Text)
	}
	return out
}

func strPtr(s string) *string { return &s }
