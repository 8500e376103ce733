package api

// Doctor is a bookable practitioner as served by the backend directory.
type Doctor struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Specialization string   `json:"specialization"`
	Bio            string   `json:"bio,omitempty"`
	AvailableSlots []string `json:"available_slots"`
}

// FirstSlot returns the first available slot label, or "" when none.
func (d Doctor) FirstSlot() string {
	if len(d.AvailableSlots) == 0 {
		return ""
	}
	return d.AvailableSlots[0]
}

// HasSlot reports whether slot is one of the doctor's offered slots.
func (d Doctor) HasSlot(slot string) bool {
	for _, s := range d.AvailableSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Booking is an appointment created by the backend. Immutable once returned.
type Booking struct {
	ID            int    `json:"id"`
	DoctorID      int    `json:"doctor_id,omitempty"`
	DoctorName    string `json:"doctor_name"`
	PatientName   string `json:"patient_name"`
	PatientEmail  string `json:"patient_email"`
	RequestedSlot string `json:"requested_slot"`
	Note          string `json:"note,omitempty"`
	Status        string `json:"status,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// SessionResponse is returned by POST /session/new.
type SessionResponse struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"session_id"`
}

// TranscribeResponse is returned by POST /voice/transcribe. Backends use
// either "text" or "transcript" for the recognized speech.
type TranscribeResponse struct {
	OK         bool   `json:"ok"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Recognized returns whichever transcript field the backend populated.
func (r TranscribeResponse) Recognized() string {
	if r.Text != "" {
		return r.Text
	}
	return r.Transcript
}

// ConverseRequest is one conversational turn.
type ConverseRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// Expectation values the backend may set on a converse response.
const (
	ExpectPatientInfo = "ask_patient_info"
)

// ConverseResponse is returned by POST /voice/converse.
//
// Reply is a pointer so a missing or null reply can be told apart from an
// empty one. Doctors is nil when the field was absent and non-nil (possibly
// empty) when the backend sent a list.
type ConverseResponse struct {
	SessionID   string   `json:"session_id,omitempty"`
	Reply       *string  `json:"reply,omitempty"`
	OK          bool     `json:"ok"`
	Error       string   `json:"error,omitempty"`
	AudioBase64 string   `json:"audio_base64,omitempty"`
	Doctors     []Doctor `json:"doctors,omitempty"`
	Expect      string   `json:"expect,omitempty"`
	Booking     *Booking `json:"booking,omitempty"`
}

// BookingRequest is the payload for POST /bookings/create.
type BookingRequest struct {
	DoctorID      int    `json:"doctor_id"`
	PatientName   string `json:"patient_name"`
	PatientEmail  string `json:"patient_email"`
	RequestedSlot string `json:"requested_slot"`
	Note          string `json:"note"`
}

// BookingResponse is returned by POST /bookings/create.
type BookingResponse struct {
	OK      bool     `json:"ok"`
	Booking *Booking `json:"booking,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

// BookingsResponse is returned by GET /bookings/list.
type BookingsResponse struct {
	OK       bool      `json:"ok"`
	Bookings []Booking `json:"bookings"`
}
