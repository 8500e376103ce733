package demo

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
)

// DefaultDoctors seeds the demo directory.
func DefaultDoctors() []api.Doctor {
	return []api.Doctor{
		{ID: 1, Name: "Dr. R.K. Gupta", Specialization: "Dermatology", Bio: "Senior dermatologist", AvailableSlots: []string{"Wed 10:00", "Fri 16:00"}},
		{ID: 2, Name: "Dr. Aditi Mehra", Specialization: "Physiotherapy", Bio: "Expert in sports injuries", AvailableSlots: []string{"Mon 11:00", "Thu 15:00"}},
		{ID: 3, Name: "Dr. Rohan Kapoor", Specialization: "Psychology", Bio: "Mental wellness coach", AvailableSlots: []string{"Tue 10:00", "Fri 12:00"}},
		{ID: 4, Name: "Ms. Nisha Bansal", Specialization: "Yoga & Fitness", Bio: "Holistic fitness trainer", AvailableSlots: []string{"Mon 9:00", "Wed 14:00"}},
		{ID: 5, Name: "Dr. Meena Sharma", Specialization: "Cardiology", Bio: "Heart specialist", AvailableSlots: []string{"Thu 11:00", "Sat 10:00"}},
		{ID: 6, Name: "Dr. Kavya Iyer", Specialization: "Dentistry", Bio: "Restorative dentist", AvailableSlots: []string{"Tue 09:30", "Thu 17:00"}},
		{ID: 7, Name: "Dr. Sameer Rao", Specialization: "Ophthalmology", Bio: "Cataract and retina care", AvailableSlots: []string{"Mon 15:00"}},
		{ID: 8, Name: "Dr. Priya Nair", Specialization: "General Medicine", Bio: "Family physician", AvailableSlots: []string{"Mon 10:00", "Wed 10:00", "Fri 10:00"}},
	}
}

var (
	errDoctorRequired = errors.New("doctor_id or valid doctor_name is required")
	errDoctorNotFound = errors.New("Doctor not found")
	errSlotTaken      = errors.New("Slot already booked for this doctor")
)

// Store is the in-memory state of the demo backend.
type Store struct {
	mu       sync.Mutex
	doctors  []api.Doctor
	bookings []api.Booking
	sessions map[string]struct{}
	now      func() time.Time
}

// NewStore creates a store over doctors (DefaultDoctors when nil).
func NewStore(doctors []api.Doctor) *Store {
	if doctors == nil {
		doctors = DefaultDoctors()
	}
	return &Store{
		doctors:  append([]api.Doctor(nil), doctors...),
		sessions: make(map[string]struct{}),
		now:      time.Now,
	}
}

// Doctors lists doctors whose specialization contains filter,
// case-insensitively. An empty filter lists everyone.
func (s *Store) Doctors(filter string) []api.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(filter))
	out := []api.Doctor{}
	for _, d := range s.doctors {
		if needle == "" || strings.Contains(strings.ToLower(d.Specialization), needle) {
			out = append(out, d)
		}
	}
	return out
}

// FindDoctor matches an id, then a name fragment, then a specialization
// fragment.
func (s *Store) FindDoctor(identifier string) (api.Doctor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txt := strings.ToLower(strings.TrimSpace(identifier))
	if txt == "" {
		return api.Doctor{}, false
	}
	for _, d := range s.doctors {
		if fmt.Sprint(d.ID) == txt {
			return d, true
		}
	}
	for _, d := range s.doctors {
		if strings.Contains(strings.ToLower(d.Name), txt) {
			return d, true
		}
	}
	for _, d := range s.doctors {
		if strings.Contains(strings.ToLower(d.Specialization), txt) {
			return d, true
		}
	}
	return api.Doctor{}, false
}

// DoctorMentionedIn returns the first doctor whose surname appears in text.
func (s *Store) DoctorMentionedIn(text string) (api.Doctor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	low := strings.ToLower(text)
	for _, d := range s.doctors {
		fields := strings.Fields(d.Name)
		if len(fields) == 0 {
			continue
		}
		surname := strings.ToLower(strings.Trim(fields[len(fields)-1], "."))
		if surname != "" && strings.Contains(low, surname) {
			return d, true
		}
	}
	return api.Doctor{}, false
}

// RegisterSession remembers a session id.
func (s *Store) RegisterSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = struct{}{}
}

// HasSession reports whether id was issued or seen before.
func (s *Store) HasSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// CreateBooking stores a booking, refusing unknown doctors and double
// bookings of the same doctor and slot.
func (s *Store) CreateBooking(in api.BookingRequest) (api.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doctor *api.Doctor
	for i := range s.doctors {
		if s.doctors[i].ID == in.DoctorID {
			doctor = &s.doctors[i]
			break
		}
	}
	if doctor == nil {
		return api.Booking{}, errDoctorNotFound
	}
	for _, b := range s.bookings {
		if b.DoctorID == in.DoctorID && b.RequestedSlot == in.RequestedSlot {
			return api.Booking{}, errSlotTaken
		}
	}

	id := 1
	if n := len(s.bookings); n > 0 {
		id = s.bookings[n-1].ID + 1
	}
	b := api.Booking{
		ID:            id,
		DoctorID:      doctor.ID,
		DoctorName:    doctor.Name,
		PatientName:   in.PatientName,
		PatientEmail:  in.PatientEmail,
		RequestedSlot: in.RequestedSlot,
		Note:          in.Note,
		Status:        "confirmed",
		CreatedAt:     s.now().UTC().Format(time.RFC3339),
	}
	s.bookings = append(s.bookings, b)
	return b, nil
}

// Bookings returns every booking in creation order.
func (s *Store) Bookings() []api.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Booking{}, s.bookings...)
}

// DoctorByID returns the doctor with id.
func (s *Store) DoctorByID(id int) (api.Doctor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.doctors {
		if d.ID == id {
			return d, true
		}
	}
	return api.Doctor{}, false
}
