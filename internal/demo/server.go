// Package demo is an in-memory stand-in for the booking/voice backend, used
// for local development and end-to-end tests.
package demo

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	httpmiddleware "github.com/wolfman30/medspa-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

const maxUploadBytes = 10 << 20

// Config holds demo backend configuration.
type Config struct {
	Logger             *logging.Logger
	Store              *Store
	AdminAuthSecret    string
	CORSAllowedOrigins []string
	// ReplyAudio attaches the reply text, base64 encoded, as audio_base64 so
	// clients exercise their playback path.
	ReplyAudio     bool
	MetricsHandler http.Handler
}

// Server implements the backend endpoints.
type Server struct {
	store      *Store
	logger     *logging.Logger
	replyAudio bool
}

// New creates a chi router with every endpoint mounted under /api.
func New(cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	store := cfg.Store
	if store == nil {
		store = NewStore(nil)
	}
	s := &Server{store: store, logger: logger, replyAudio: cfg.ReplyAudio}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/session/new", s.NewSession)
		r.Post("/voice/transcribe", s.Transcribe)
		r.Post("/voice/converse", s.Converse)
		r.Get("/doctors", s.ListDoctors)
		r.Post("/bookings/create", s.CreateBooking)
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/bookings/list", s.ListBookings)
		})
	})
	return r
}

// NewSession issues a fresh session id.
func (s *Server) NewSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	s.store.RegisterSession(id)
	writeJSON(w, http.StatusOK, api.SessionResponse{OK: true, SessionID: id})
}

// Transcribe reads the uploaded "file" part as UTF-8 text. The demo has no
// speech recognition; clips are expected to carry their transcript.
func (s *Server) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read upload")
		return
	}
	if !utf8.Valid(data) {
		writeJSON(w, http.StatusOK, api.TranscribeResponse{OK: false, Error: "unsupported audio"})
		return
	}
	writeJSON(w, http.StatusOK, api.TranscribeResponse{OK: true, Text: strings.TrimSpace(string(data))})
}

// Converse answers one turn using keyword rules.
func (s *Server) Converse(w http.ResponseWriter, r *http.Request) {
	var req api.ConverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeDetail(w, http.StatusBadRequest, "text is required")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s.store.RegisterSession(sessionID)

	decision := s.decide(text)
	out := api.ConverseResponse{
		OK:        true,
		SessionID: sessionID,
		Reply:     &decision.text,
		Expect:    decision.expect,
	}
	for _, id := range decision.doctorIDs {
		if d, ok := s.store.DoctorByID(id); ok {
			out.Doctors = append(out.Doctors, d)
		}
	}
	if s.replyAudio {
		out.AudioBase64 = base64.StdEncoding.EncodeToString([]byte(decision.text))
	}
	s.logger.Debug("demo: converse", "session_id", sessionID, "expect", decision.expect)
	writeJSON(w, http.StatusOK, out)
}

// ListDoctors returns the directory, optionally filtered by specialization.
func (s *Server) ListDoctors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Doctors(r.URL.Query().Get("specialization")))
}

type bookingCreate struct {
	api.BookingRequest
	DoctorName string `json:"doctor_name"`
}

// CreateBooking validates and stores a booking.
func (s *Server) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DoctorID == 0 && req.DoctorName != "" {
		if d, ok := s.store.FindDoctor(req.DoctorName); ok {
			req.DoctorID = d.ID
		}
	}
	if req.DoctorID == 0 {
		writeDetail(w, http.StatusBadRequest, errDoctorRequired.Error())
		return
	}
	switch {
	case strings.TrimSpace(req.PatientName) == "":
		writeDetail(w, http.StatusBadRequest, "patient_name is required")
		return
	case !looksLikeEmail(req.PatientEmail):
		writeDetail(w, http.StatusBadRequest, "patient_email is not a valid email address")
		return
	case strings.TrimSpace(req.RequestedSlot) == "":
		writeDetail(w, http.StatusBadRequest, "requested_slot is required")
		return
	}

	booking, err := s.store.CreateBooking(req.BookingRequest)
	if err != nil {
		if errors.Is(err, errDoctorNotFound) || errors.Is(err, errSlotTaken) {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDetail(w, http.StatusInternalServerError, "could not create booking")
		return
	}
	s.logger.Info("demo: booking created", "booking_id", booking.ID, "doctor_id", booking.DoctorID)
	writeJSON(w, http.StatusOK, api.BookingResponse{OK: true, Booking: &booking})
}

// ListBookings returns every booking. Mounted behind AdminJWT.
func (s *Server) ListBookings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.BookingsResponse{OK: true, Bookings: s.store.Bookings()})
}

func looksLikeEmail(v string) bool {
	v = strings.TrimSpace(v)
	at := strings.Index(v, "@")
	return at > 0 && at < len(v)-1 && !strings.ContainsAny(v, " \t") && strings.Contains(v[at:], ".")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
