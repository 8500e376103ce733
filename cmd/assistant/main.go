package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/medspa-booking-assistant/internal/config"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// Flag overrides shared by every subcommand.
var (
	apiURLFlag   string
	logLevelFlag string
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var root = &cobra.Command{
		Use:           "assistant",
		Short:         "Clinic booking assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "backend base URL (default ASSISTANT_API_BASE_URL)")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (default LOG_LEVEL)")
	root.AddCommand(chatCMD(), doctorsCMD(), bookingsCMD(), demoBackendCMD())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and a logger that writes to stderr so it never
// interleaves with the chat transcript.
func setup() (*appconfig.Config, *logging.Logger) {
	cfg := appconfig.Load()
	if apiURLFlag != "" {
		cfg.APIBaseURL = strings.TrimRight(apiURLFlag, "/")
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return cfg, logger
}
