package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

type fakeTranscribeAPI struct {
	mu    sync.Mutex
	resp  *api.TranscribeResponse
	err   error
	calls []string
}

func (f *fakeTranscribeAPI) Transcribe(ctx context.Context, audio []byte, filename, contentType string) (*api.TranscribeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filename+"|"+contentType)
	return f.resp, f.err
}

func TestTranscribeReturnsText(t *testing.T) {
	fake := &fakeTranscribeAPI{resp: &api.TranscribeResponse{OK: true, Transcript: "  I have a toothache "}}
	tr := NewTranscriber(fake, logging.Discard())

	text, err := tr.Transcribe(context.Background(), []byte("clip"), "audio/ogg;codecs=opus")
	require.NoError(t, err)
	assert.Equal(t, "I have a toothache", text)
	assert.Equal(t, []string{"speech.ogg|audio/ogg;codecs=opus"}, fake.calls)
}

func TestTranscribeEmptyIsDistinctFromFailure(t *testing.T) {
	tr := NewTranscriber(&fakeTranscribeAPI{resp: &api.TranscribeResponse{OK: true}}, logging.Discard())
	_, err := tr.Transcribe(context.Background(), []byte("clip"), "audio/webm")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	assert.NotErrorIs(t, err, ErrTranscriptionFailed)
}

func TestTranscribeOkWithWarningIsEmpty(t *testing.T) {
	tr := NewTranscriber(&fakeTranscribeAPI{resp: &api.TranscribeResponse{OK: true, Error: "no speech detected"}}, logging.Discard())
	_, err := tr.Transcribe(context.Background(), []byte("clip"), "audio/webm")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	assert.NotErrorIs(t, err, ErrTranscriptionFailed)
}

func TestTranscribeBackendFailure(t *testing.T) {
	tr := NewTranscriber(&fakeTranscribeAPI{resp: &api.TranscribeResponse{OK: false, Error: "model offline"}}, logging.Discard())
	_, err := tr.Transcribe(context.Background(), []byte("clip"), "audio/webm")
	assert.ErrorIs(t, err, ErrTranscriptionFailed)

	var failure *FailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "model offline", failure.Detail)
}

func TestTranscribeHTTPErrorIsFailure(t *testing.T) {
	fake := &fakeTranscribeAPI{err: &api.Error{Op: "voice.transcribe", StatusCode: 400, Detail: "bad audio"}}
	tr := NewTranscriber(fake, logging.Discard())
	_, err := tr.Transcribe(context.Background(), []byte("clip"), "")

	var failure *FailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "bad audio", failure.Detail)
	assert.Equal(t, []string{"speech.webm|"}, fake.calls)
}

func TestTranscribeTransportError(t *testing.T) {
	tr := NewTranscriber(&fakeTranscribeAPI{err: errors.New("connection refused")}, logging.Discard())
	_, err := tr.Transcribe(context.Background(), []byte("clip"), "audio/webm")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTranscriptionFailed)
	assert.NotErrorIs(t, err, ErrEmptyTranscript)
}

type recordingPlayer struct {
	mu     sync.Mutex
	played [][]byte
}

func (p *recordingPlayer) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, audio)
	return nil
}

func TestPlayBase64(t *testing.T) {
	p := &recordingPlayer{}
	encoded := base64.StdEncoding.EncodeToString([]byte("mp3-bytes"))

	require.NoError(t, PlayBase64(context.Background(), p, encoded))
	require.NoError(t, PlayBase64(context.Background(), p, "data:audio/mpeg;base64,"+encoded))
	assert.Equal(t, [][]byte{[]byte("mp3-bytes"), []byte("mp3-bytes")}, p.played)

	assert.Error(t, PlayBase64(context.Background(), p, "%%%not base64"))
	assert.Error(t, PlayBase64(context.Background(), nil, encoded))
	assert.Len(t, p.played, 2)
}

func TestFilePlayerWritesClip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audio")
	p := &FilePlayer{Dir: dir, Logger: logging.Discard()}

	require.NoError(t, p.Play(context.Background(), []byte("mp3-bytes")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
}

func TestFilePlayerCommandFailure(t *testing.T) {
	p := &FilePlayer{Dir: t.TempDir(), Command: "definitely-not-a-real-player-binary", Logger: logging.Discard()}
	assert.Error(t, p.Play(context.Background(), []byte("mp3-bytes")))
}
