package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/medspa-booking-assistant/internal/assistant"
	appconfig "github.com/wolfman30/medspa-booking-assistant/internal/config"
	"github.com/wolfman30/medspa-booking-assistant/internal/demo"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

func runScript(t *testing.T, script string) string {
	t.Helper()
	srv := httptest.NewServer(demo.New(&demo.Config{Logger: logging.Discard()}))
	t.Cleanup(srv.Close)

	cfg := &appconfig.Config{
		APIBaseURL:     srv.URL + "/api",
		SessionBackend: "memory",
		RecordMinHold:  0,
		RecordMinBytes: 1,
	}
	var out bytes.Buffer
	r := newREPL(strings.NewReader(script), &out)
	rt, err := bootstrap.BuildAssistant(context.Background(), cfg, logging.Discard(), nil,
		assistant.WithNoticeHandler(r.notice),
	)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	r.attach(rt.Orchestrator)
	require.NoError(t, r.run(context.Background()))
	return out.String()
}

func TestREPLBooksAfterSuggestion(t *testing.T) {
	out := runScript(t, strings.Join([]string{
		"I have a toothache",
		"/name Asha",
		"/email asha@example.com",
		"/submit",
		"/quit",
	}, "\n"))

	assert.Contains(t, out, "astra> Hi, I'm Astra.")
	assert.Contains(t, out, "you> I have a toothache")
	assert.Contains(t, out, "Suggested specialist: Dentistry")
	assert.Contains(t, out, " * 6  Dr. Kavya Iyer (Dentistry)")
	assert.Contains(t, out, "astra> Booking #1 confirmed for Asha at Tue 09:30.")
	assert.Contains(t, out, "** Booking Confirmed: #1 confirmed for Asha at Tue 09:30")
}

func TestREPLPrintsEachNoticeOnce(t *testing.T) {
	out := runScript(t, "I have a toothache\n/name Asha\n/email asha@example.com\n/submit\n/state\n")
	assert.Equal(t, 1, strings.Count(out, "** Booking Confirmed:"))
}

func TestREPLShowsSnapshotNoticeWithoutHandler(t *testing.T) {
	var out bytes.Buffer
	r := newREPL(strings.NewReader("/new\n"), &out)
	srv := httptest.NewServer(demo.New(&demo.Config{Logger: logging.Discard()}))
	t.Cleanup(srv.Close)

	cfg := &appconfig.Config{APIBaseURL: srv.URL + "/api", SessionBackend: "memory"}
	rt, err := bootstrap.BuildAssistant(context.Background(), cfg, logging.Discard(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	r.attach(rt.Orchestrator)

	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "** Session reset: Conversation cleared.")
}

func TestREPLShowsValidationInForm(t *testing.T) {
	out := runScript(t, "/book\n/submit\n")

	assert.Contains(t, out, "-- Booking form --")
	assert.Contains(t, out, "! Please fill patient name, email and select slot.")
	assert.NotContains(t, out, "error:")
}

func TestREPLRecordsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.webm")
	require.NoError(t, os.WriteFile(path, []byte("my skin has a rash"), 0o600))

	out := runScript(t, "/record "+path+" 1ms\n")

	assert.Contains(t, out, "you> [voice message]")
	assert.Contains(t, out, "you> my skin has a rash")
	assert.Contains(t, out, "Suggested specialist: Dermatology")
}

func TestREPLUnknownCommand(t *testing.T) {
	out := runScript(t, "/dance\n")
	assert.Contains(t, out, "error: unknown command /dance")
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/wav", contentTypeFor("a.WAV"))
	assert.Equal(t, "audio/mpeg", contentTypeFor("a.mp3"))
	assert.Equal(t, "audio/webm", contentTypeFor("a.bin"))
}
