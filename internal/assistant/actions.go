package assistant

import (
	"context"
	"fmt"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/internal/chatlog"
)

// NewSession clears the conversation back to the greeting, drops the
// suggestion and obtains a fresh session id, falling back to a local one.
func (o *Orchestrator) NewSession(ctx context.Context) (string, error) {
	var id string
	err := o.exclusive(ctx, func() {
		o.recorder.Cancel()
		o.messages.Reset()
		o.booking.Close()
		o.mu.Lock()
		o.suggestion = nil
		o.mu.Unlock()

		res := o.sessions.Reset(ctx)
		id = res.ID
		title := "Session reset"
		if res.Local {
			title = "Session reset (local)"
		}
		o.notify(title, "Conversation cleared.", sessionNoticeDuration)
	})
	return id, err
}

// OpenBookingForm opens the modal for manual entry over the full directory.
// A failed fetch opens it over the doctors already known, possibly none.
func (o *Orchestrator) OpenBookingForm(ctx context.Context) {
	doctors, err := o.backend.Doctors(ctx, "")
	if err != nil {
		o.logger.Warn("assistant: failed to load doctors", "error", err)
		o.mu.Lock()
		doctors = append([]api.Doctor(nil), o.doctors...)
		o.mu.Unlock()
	} else {
		o.mu.Lock()
		o.doctors = append([]api.Doctor(nil), doctors...)
		o.mu.Unlock()
	}

	o.booking.Open(ctx, doctors, o.suggestedSpecialty())
	o.cfg.metrics.ObserveModalOpen("manual")
}

// BookNow opens the modal over the active suggestion's doctors, or the
// current doctor pool when the suggestion has none.
func (o *Orchestrator) BookNow(ctx context.Context) {
	o.mu.Lock()
	doctors := append([]api.Doctor(nil), o.doctors...)
	specialty := ""
	if o.suggestion != nil {
		specialty = o.suggestion.Specialty
		if len(o.suggestion.Doctors) > 0 {
			doctors = append([]api.Doctor(nil), o.suggestion.Doctors...)
		}
	}
	o.mu.Unlock()

	o.booking.Open(ctx, doctors, specialty)
	o.cfg.metrics.ObserveModalOpen("book_now")
}

// SubmitBooking submits the modal. On success the modal closes, the
// suggestion is cleared, a confirmation message is appended and a booking
// notice raised. Failures leave the modal open with its error set.
func (o *Orchestrator) SubmitBooking(ctx context.Context) (*api.Booking, error) {
	var (
		created   *api.Booking
		submitErr error
	)
	draft := o.booking.Snapshot().Draft
	lockErr := o.exclusive(ctx, func() {
		created, submitErr = o.booking.Submit(ctx)
		if submitErr != nil {
			o.cfg.metrics.ObserveBooking("rejected")
			return
		}
		o.cfg.metrics.ObserveBooking("created")

		patient := created.PatientName
		if patient == "" {
			patient = draft.PatientName
		}
		slot := created.RequestedSlot
		if slot == "" {
			slot = draft.Slot
		}

		o.mu.Lock()
		o.suggestion = nil
		o.mu.Unlock()

		o.messages.Append(chatlog.OriginAssistant, ConfirmationMessage(created.ID, patient, slot))
		o.notifyBooked(created.ID, patient, slot)
		o.logger.Info("assistant: booking confirmed", "booking_id", created.ID)
	})
	if lockErr != nil {
		return nil, lockErr
	}
	return created, submitErr
}

func (o *Orchestrator) notifyBooked(id int, patient, slot string) {
	o.notify("Booking Confirmed", fmt.Sprintf("#%d confirmed for %s at %s", id, patient, slot), o.cfg.bookingNoticeDuration)
}

// ConfirmationMessage is appended to the log after a successful booking.
func ConfirmationMessage(id int, patient, slot string) string {
	return fmt.Sprintf("Booking #%d confirmed for %s at %s.", id, patient, slot)
}

func (o *Orchestrator) suggestedSpecialty() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.suggestion == nil {
		return ""
	}
	return o.suggestion.Specialty
}
