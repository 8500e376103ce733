package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/internal/assistant"
	appconfig "github.com/wolfman30/medspa-booking-assistant/internal/config"
	"github.com/wolfman30/medspa-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/medspa-booking-assistant/internal/session"
	"github.com/wolfman30/medspa-booking-assistant/internal/voice"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// Runtime bundles the wired assistant and the resources behind it.
type Runtime struct {
	Client       *api.Client
	Sessions     *session.Store
	Profile      *session.Profile
	Orchestrator *assistant.Orchestrator
	Metrics      *metrics.AssistantMetrics

	closeKV func() error
}

// Close releases the session backend.
func (r *Runtime) Close() error {
	if r == nil || r.closeKV == nil {
		return nil
	}
	return r.closeKV()
}

// BuildAssistant wires the backend client, session persistence and the
// orchestrator from configuration. reg may be nil to skip metrics.
func BuildAssistant(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer, extra ...assistant.Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	kv, closeKV, err := BuildSessionKV(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
		api.WithTracer(otel.Tracer("medspa-booking-assistant/api")),
	)
	sessions := session.NewStore(kv, client,
		session.WithKeyPrefix(cfg.StateKeyPrefix),
		session.WithResetTimeout(cfg.SessionResetTimeout),
		session.WithLogger(logger),
	)
	profile := session.NewProfile(kv, cfg.StateKeyPrefix, logger)

	var m *metrics.AssistantMetrics
	if reg != nil {
		m = metrics.NewAssistantMetrics(reg)
	}

	opts := []assistant.Option{
		assistant.WithPatientStore(profile),
		assistant.WithMetrics(m),
		assistant.WithRecordingGate(cfg.RecordMinHold, cfg.RecordMinBytes),
		assistant.WithRevealInterval(cfg.RevealInterval),
		assistant.WithNoticeDurations(cfg.NoticeDuration, cfg.BookingNoticeDuration),
		assistant.WithTurnPolicy(assistant.ParseTurnPolicy(cfg.TurnPolicy)),
	}
	if cfg.AudioOutputDir != "" || cfg.AudioPlayerCmd != "" {
		opts = append(opts, assistant.WithPlayer(&voice.FilePlayer{
			Dir:     cfg.AudioOutputDir,
			Command: cfg.AudioPlayerCmd,
			Logger:  logger,
		}))
	}
	opts = append(opts, extra...)

	logger.Info("assistant configured",
		"api_base_url", cfg.APIBaseURL,
		"session_backend", cfg.SessionBackend,
		"turn_policy", cfg.TurnPolicy,
	)

	return &Runtime{
		Client:       client,
		Sessions:     sessions,
		Profile:      profile,
		Orchestrator: assistant.NewOrchestrator(client, sessions, logger, opts...),
		Metrics:      m,
		closeKV:      closeKV,
	}, nil
}
