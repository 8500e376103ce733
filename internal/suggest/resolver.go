package suggest

import (
	"context"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// Suggestion is a specialty inferred from a reply plus the doctors offering it.
type Suggestion struct {
	Specialty string
	Doctors   []api.Doctor
}

// Directory looks up doctors by specialization.
type Directory interface {
	Doctors(ctx context.Context, specialization string) ([]api.Doctor, error)
}

// Resolver turns reply text into a Suggestion.
type Resolver struct {
	directory Directory
	logger    *logging.Logger
}

// NewResolver creates a resolver over the doctor directory.
func NewResolver(directory Directory, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{directory: directory, logger: logger}
}

// Resolve extracts a specialty from text and fetches its doctors. A failed
// lookup still yields the suggestion, with an empty doctor list.
func (r *Resolver) Resolve(ctx context.Context, text string) (*Suggestion, bool) {
	specialty, ok := ExtractSpecialty(text)
	if !ok {
		return nil, false
	}

	doctors := []api.Doctor{}
	if r.directory != nil {
		found, err := r.directory.Doctors(ctx, specialty)
		if err != nil {
			r.logger.Warn("suggest: doctor lookup failed", "specialty", specialty, "error", err)
		} else if found != nil {
			doctors = found
		}
	}
	r.logger.Debug("suggest: specialty resolved", "specialty", specialty, "doctors", len(doctors))
	return &Suggestion{Specialty: specialty, Doctors: doctors}, true
}
