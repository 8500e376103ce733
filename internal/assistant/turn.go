package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/internal/chatlog"
	"github.com/wolfman30/medspa-booking-assistant/internal/voice"
)

// Reply texts shown in place of a backend answer.
const (
	ReplyRetry       = "Sorry — I couldn't process that. Could you say it again?"
	ReplyOkay        = "Okay."
	ReplyServerError = "Sorry — server error."
	ReplyNetworkFail = "Server error — try again."
)

const directoryKey = "directory"

// ReplyText derives the display string for a converse response: an error
// field wins, then a non-blank reply, then "Okay." for ok, then the generic
// server error. It never returns an empty string.
func ReplyText(resp *api.ConverseResponse) string {
	switch {
	case resp == nil:
		return ReplyServerError
	case resp.Error != "":
		return ReplyRetry
	case resp.Reply != nil && strings.TrimSpace(*resp.Reply) != "":
		return *resp.Reply
	case resp.OK:
		return ReplyOkay
	default:
		return ReplyServerError
	}
}

// Send runs one typed turn. Blank input is ignored. Backend failures are
// reported in the message log; the returned error is only non-nil when ctx
// ended before the turn could start.
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return o.exclusive(ctx, func() {
		o.runTurn(ctx, text, "typed")
	})
}

// runTurn executes the turn steps in order. Callers hold the turn lock.
func (o *Orchestrator) runTurn(ctx context.Context, text, source string) {
	o.messages.Append(chatlog.OriginUser, text)
	o.setThinking(true)
	o.messages.Append(chatlog.OriginAssistant, "")
	o.mu.Lock()
	o.suggestion = nil
	o.mu.Unlock()
	o.booking.DropSuggestedNote()

	sessionID := o.sessions.Get(ctx)
	logger := o.logger.With("session_id", sessionID, "source", source)

	start := time.Now()
	resp, err := o.backend.Converse(ctx, api.ConverseRequest{SessionID: sessionID, Text: text})
	o.setThinking(false)
	if err != nil {
		logger.Warn("assistant: converse failed", "error", err)
		o.cfg.metrics.ObserveTurn(source, "network_error", time.Since(start))
		o.messages.ReplaceLastAssistant(ReplyNetworkFail)
		return
	}

	if resp.SessionID != "" && resp.SessionID != sessionID {
		o.sessions.Adopt(ctx, resp.SessionID)
	}

	display := ReplyText(resp)
	outcome := "ok"
	if display == ReplyRetry || display == ReplyServerError {
		outcome = "error"
		logger.Warn("assistant: backend reported an error", "error", resp.Error)
	}
	o.cfg.metrics.ObserveTurn(source, outcome, time.Since(start))

	if err := o.renderer.Reveal(ctx, display, func(s string) { o.messages.ReplaceLastAssistant(s) }); err != nil {
		logger.Debug("assistant: reveal interrupted", "error", err)
	}

	if resp.AudioBase64 != "" {
		o.playAudio(ctx, resp.AudioBase64)
	}

	// The backend may complete a booking inside the conversation; its reply
	// already confirms it, so only the modal and notice are updated.
	if b := resp.Booking; b != nil && b.ID > 0 {
		o.booking.Close()
		o.mu.Lock()
		o.suggestion = nil
		o.mu.Unlock()
		o.cfg.metrics.ObserveBooking("conversation")
		o.notifyBooked(b.ID, b.PatientName, b.RequestedSlot)
		logger.Info("assistant: booking confirmed in conversation", "booking_id", b.ID)
		return
	}

	switch {
	case resp.Doctors != nil:
		o.mu.Lock()
		o.doctors = append([]api.Doctor(nil), resp.Doctors...)
		o.mu.Unlock()
		o.booking.Open(ctx, resp.Doctors, "")
		o.cfg.metrics.ObserveModalOpen("doctors")

	case resp.Expect == api.ExpectPatientInfo:
		o.booking.Open(ctx, o.doctorPool(ctx), "")
		o.cfg.metrics.ObserveModalOpen("patient_info")

	default:
		s, ok := o.resolver.Resolve(ctx, display)
		if !ok {
			return
		}
		o.mu.Lock()
		o.suggestion = s
		o.doctors = append([]api.Doctor(nil), s.Doctors...)
		o.mu.Unlock()
		o.booking.Open(ctx, s.Doctors, s.Specialty)
		o.cfg.metrics.ObserveModalOpen("suggestion")
		logger.Info("assistant: specialty suggested", "specialty", s.Specialty, "doctors", len(s.Doctors))
	}
}

// playAudio plays reply audio in the background. Failures are only logged.
func (o *Orchestrator) playAudio(ctx context.Context, encoded string) {
	if o.cfg.player == nil {
		return
	}
	playCtx := context.WithoutCancel(ctx)
	o.audio.Add(1)
	go func() {
		defer o.audio.Done()
		if err := voice.PlayBase64(playCtx, o.cfg.player, encoded); err != nil {
			o.logger.Warn("assistant: audio playback failed", "error", err)
		}
	}()
}

// doctorPool returns the active doctor pool, fetching the full directory
// when it is empty. A failed fetch yields an empty list.
func (o *Orchestrator) doctorPool(ctx context.Context) []api.Doctor {
	o.mu.Lock()
	pool := append([]api.Doctor(nil), o.doctors...)
	o.mu.Unlock()
	if len(pool) > 0 {
		return pool
	}
	return o.fetchDirectory(ctx)
}

// fetchDirectory loads the unfiltered directory, sharing one request among
// concurrent callers, and adopts it as the doctor pool.
func (o *Orchestrator) fetchDirectory(ctx context.Context) []api.Doctor {
	v, err, _ := o.directory.Do(directoryKey, func() (any, error) {
		return o.backend.Doctors(ctx, "")
	})
	if err != nil {
		o.logger.Warn("assistant: doctor directory unavailable", "error", err)
		return []api.Doctor{}
	}
	doctors, _ := v.([]api.Doctor)
	o.mu.Lock()
	o.doctors = append([]api.Doctor(nil), doctors...)
	o.mu.Unlock()
	return append([]api.Doctor{}, doctors...)
}
