package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// Patient is the last-used patient identity, reused to prefill bookings.
type Patient struct {
	Name  string
	Email string
}

// Profile persists the patient identity next to the session id.
type Profile struct {
	kv       KV
	nameKey  string
	emailKey string
	logger   *logging.Logger
}

// NewProfile builds a profile store under the given key prefix.
func NewProfile(kv KV, prefix string, logger *logging.Logger) *Profile {
	if kv == nil {
		panic("session: kv cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Profile{
		kv:       kv,
		nameKey:  keyFor(prefix, "patient_name"),
		emailKey: keyFor(prefix, "patient_email"),
		logger:   logger,
	}
}

// Load returns whatever was saved last; missing values come back empty.
func (p *Profile) Load(ctx context.Context) Patient {
	return Patient{
		Name:  p.read(ctx, p.nameKey),
		Email: p.read(ctx, p.emailKey),
	}
}

// Save stores the patient identity. Blank fields are removed rather than
// stored, so a cleared field does not prefill the next booking.
func (p *Profile) Save(ctx context.Context, patient Patient) error {
	if err := p.write(ctx, p.nameKey, patient.Name); err != nil {
		return fmt.Errorf("session: save patient name: %w", err)
	}
	if err := p.write(ctx, p.emailKey, patient.Email); err != nil {
		return fmt.Errorf("session: save patient email: %w", err)
	}
	return nil
}

func (p *Profile) write(ctx context.Context, key, value string) error {
	if strings.TrimSpace(value) == "" {
		return p.kv.Delete(ctx, key)
	}
	return p.kv.Set(ctx, key, value)
}

func (p *Profile) read(ctx context.Context, key string) string {
	v, err := p.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("session: failed to read profile", "key", key, "error", err)
		}
		return ""
	}
	return v
}
