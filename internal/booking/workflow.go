// Package booking holds the booking modal: the candidate doctors, the draft
// being edited, and its submission to the backend.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/internal/session"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// NoSlot is the selected slot when the chosen doctor offers none.
const NoSlot = ""

var (
	ErrModalClosed   = errors.New("booking: modal is closed")
	ErrUnknownDoctor = errors.New("booking: doctor is not in the candidate list")
	ErrUnknownSlot   = errors.New("booking: slot is not offered by the selected doctor")
	ErrSubmitting    = errors.New("booking: submission already in progress")
)

// ValidationError blocks a submission before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RejectedError is a submission the backend refused or could not complete.
// The modal stays open with the draft intact.
type RejectedError struct {
	Detail string
	Err    error
}

func (e *RejectedError) Error() string { return "Booking failed: " + e.Detail }

func (e *RejectedError) Unwrap() error { return e.Err }

// Creator submits bookings. The backend client satisfies it.
type Creator interface {
	CreateBooking(ctx context.Context, in api.BookingRequest) (*api.Booking, error)
}

// PatientStore remembers the last-used patient identity.
type PatientStore interface {
	Load(ctx context.Context) session.Patient
	Save(ctx context.Context, patient session.Patient) error
}

// Draft is the unsubmitted state of the modal.
type Draft struct {
	DoctorID     int
	Slot         string
	PatientName  string
	PatientEmail string
	Note         string
}

// State is a copy of the modal for rendering.
type State struct {
	Open       bool
	Doctors    []api.Doctor
	Draft      Draft
	Error      string
	Submitting bool
}

// Workflow is the booking modal state machine.
type Workflow struct {
	creator  Creator
	patients PatientStore
	logger   *logging.Logger

	mu         sync.Mutex
	open       bool
	doctors    []api.Doctor
	draft      Draft
	errText    string
	submitting bool
	// autoNote is the problem category note filled in from a suggestion,
	// as long as the patient has not replaced it.
	autoNote string
}

// NewWorkflow creates a closed modal. patients may be nil.
func NewWorkflow(creator Creator, patients PatientStore, logger *logging.Logger) *Workflow {
	if creator == nil {
		panic("booking: creator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Workflow{creator: creator, patients: patients, logger: logger}
}

// ProblemCategoryNote is the note prefilled from a suggested specialty.
func ProblemCategoryNote(specialty string) string {
	if strings.TrimSpace(specialty) == "" {
		return ""
	}
	return "Problem category: " + specialty
}

// Open shows the modal over doctors, preselecting the first doctor and its
// first slot. The note is filled in from specialty unless the patient typed
// one. Reopening an open modal replaces the candidates but keeps what the
// patient already typed.
func (w *Workflow) Open(ctx context.Context, doctors []api.Doctor, specialty string) {
	var saved session.Patient
	if w.patients != nil {
		saved = w.patients.Load(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wasOpen := w.open
	w.open = true
	w.errText = ""
	w.doctors = append([]api.Doctor(nil), doctors...)

	if !wasOpen {
		w.draft = Draft{PatientName: saved.Name, PatientEmail: saved.Email}
		w.autoNote = ""
	}
	// A typed note survives; a filled-in one follows the current specialty.
	if w.draft.Note == "" || w.draft.Note == w.autoNote {
		w.draft.Note = ProblemCategoryNote(specialty)
		w.autoNote = w.draft.Note
	}

	w.draft.DoctorID = 0
	w.draft.Slot = NoSlot
	if len(w.doctors) > 0 {
		w.draft.DoctorID = w.doctors[0].ID
		w.draft.Slot = w.doctors[0].FirstSlot()
	}
	w.logger.Debug("booking: modal opened", "doctors", len(w.doctors), "doctor_id", w.draft.DoctorID)
}

// Close hides the modal and drops the draft.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = false
	w.doctors = nil
	w.draft = Draft{}
	w.autoNote = ""
	w.errText = ""
}

// DropSuggestedNote removes a note that was filled in from a suggestion
// which no longer applies. Notes the patient typed are kept.
func (w *Workflow) DropSuggestedNote() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.autoNote != "" && w.draft.Note == w.autoNote {
		w.draft.Note = ""
	}
	w.autoNote = ""
}

// IsOpen reports whether the modal is showing.
func (w *Workflow) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// SelectDoctor switches doctor and resets the slot to the doctor's first
// available slot, or NoSlot.
func (w *Workflow) SelectDoctor(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrModalClosed
	}
	doctor, ok := w.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDoctor, id)
	}
	w.draft.DoctorID = doctor.ID
	w.draft.Slot = doctor.FirstSlot()
	return nil
}

// SelectSlot picks one of the selected doctor's slots.
func (w *Workflow) SelectSlot(slot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrModalClosed
	}
	doctor, ok := w.findLocked(w.draft.DoctorID)
	if !ok {
		return ErrUnknownDoctor
	}
	if !doctor.HasSlot(slot) {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	w.draft.Slot = slot
	return nil
}

// SetPatientName updates the draft.
func (w *Workflow) SetPatientName(name string) error {
	return w.edit(func(d *Draft) { d.PatientName = name })
}

// SetPatientEmail updates the draft.
func (w *Workflow) SetPatientEmail(email string) error {
	return w.edit(func(d *Draft) { d.PatientEmail = email })
}

// SetNote updates the draft.
func (w *Workflow) SetNote(note string) error {
	return w.edit(func(d *Draft) { d.Note = note })
}

func (w *Workflow) edit(fn func(*Draft)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrModalClosed
	}
	fn(&w.draft)
	return nil
}

// Snapshot returns a copy of the modal state.
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Open:       w.open,
		Doctors:    append([]api.Doctor(nil), w.doctors...),
		Draft:      w.draft,
		Error:      w.errText,
		Submitting: w.submitting,
	}
}

// Submit validates the draft, remembers the patient, and creates the
// booking. Success closes the modal. Validation failures return a
// *ValidationError without touching the network; backend failures return a
// *RejectedError and leave the modal open.
func (w *Workflow) Submit(ctx context.Context) (*api.Booking, error) {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return nil, ErrModalClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitting
	}
	draft := w.draft
	if verr := validate(draft); verr != nil {
		w.errText = verr.Message
		w.mu.Unlock()
		return nil, verr
	}
	w.submitting = true
	w.errText = ""
	w.mu.Unlock()

	patient := session.Patient{
		Name:  strings.TrimSpace(draft.PatientName),
		Email: strings.TrimSpace(draft.PatientEmail),
	}
	if w.patients != nil {
		if err := w.patients.Save(ctx, patient); err != nil {
			w.logger.Warn("booking: failed to remember patient", "error", err)
		}
	}

	booking, err := w.creator.CreateBooking(ctx, api.BookingRequest{
		DoctorID:      draft.DoctorID,
		PatientName:   patient.Name,
		PatientEmail:  patient.Email,
		RequestedSlot: draft.Slot,
		Note:          draft.Note,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if err != nil {
		rejected := &RejectedError{Detail: rejectionDetail(err), Err: err}
		w.errText = rejected.Error()
		w.logger.Warn("booking: submission failed", "doctor_id", draft.DoctorID, "error", err)
		return nil, rejected
	}

	w.open = false
	w.doctors = nil
	w.draft = Draft{}
	w.autoNote = ""
	w.errText = ""
	w.logger.Info("booking: created", "booking_id", booking.ID, "doctor_id", draft.DoctorID)
	return booking, nil
}

func (w *Workflow) findLocked(id int) (api.Doctor, bool) {
	for _, d := range w.doctors {
		if d.ID == id {
			return d, true
		}
	}
	return api.Doctor{}, false
}

func validate(d Draft) *ValidationError {
	if d.DoctorID == 0 {
		return &ValidationError{Field: "doctor_id", Message: "Please select a doctor."}
	}
	msg := "Please fill patient name, email and select slot."
	switch {
	case strings.TrimSpace(d.PatientName) == "":
		return &ValidationError{Field: "patient_name", Message: msg}
	case strings.TrimSpace(d.PatientEmail) == "":
		return &ValidationError{Field: "patient_email", Message: msg}
	case strings.TrimSpace(d.Slot) == "":
		return &ValidationError{Field: "requested_slot", Message: msg}
	}
	return nil
}

func rejectionDetail(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return "unknown"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "request timed out"
	}
	return "could not reach the server"
}
