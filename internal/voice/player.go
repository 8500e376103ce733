package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// Player plays one decoded reply clip.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// PlayBase64 decodes a base64 clip and plays it.
func PlayBase64(ctx context.Context, p Player, encoded string) error {
	if p == nil {
		return errors.New("voice: no player configured")
	}
	encoded = strings.TrimSpace(encoded)
	// Data URLs are accepted as well as bare payloads.
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+1:]
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("voice: decode audio: %w", err)
	}
	if len(audio) == 0 {
		return errors.New("voice: empty audio")
	}
	return p.Play(ctx, audio)
}

// FilePlayer writes each clip into Dir and, when Command is set, runs it with
// the file path appended as the last argument.
type FilePlayer struct {
	Dir     string
	Command string
	Timeout time.Duration
	Logger  *logging.Logger

	seq atomic.Uint64
}

// Play writes the clip and runs the configured player.
func (p *FilePlayer) Play(ctx context.Context, audio []byte) error {
	dir := p.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("voice: create audio dir: %w", err)
	}
	name := fmt.Sprintf("reply-%d-%03d.mp3", time.Now().Unix(), p.seq.Add(1))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return fmt.Errorf("voice: write audio: %w", err)
	}

	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Debug("voice: reply audio written", "path", path, "bytes", len(audio))

	fields := strings.Fields(p.Command)
	if len(fields) == 0 {
		return nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(fields[1:], path)
	out, err := exec.CommandContext(runCtx, fields[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("voice: run player %q: %w (%s)", fields[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
