package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Microphone hands out exclusive capture handles.
type Microphone interface {
	// Open acquires the device. It may block while the user is asked for
	// permission.
	Open(ctx context.Context) (Capture, error)
}

// Capture is one acquired microphone handle.
//
// Chunks is closed once Stop or Close has been called and any pending chunk
// has been delivered. Close releases the device. Both Stop and Close must be
// idempotent.
type Capture interface {
	Chunks() <-chan []byte
	ContentType() string
	Stop() error
	Close() error
}

// FileMicrophone replays an audio file as if it were being captured live.
// The terminal front-end uses it in place of a device. Stop flushes whatever
// part of the file has not been streamed yet, like a recorder flushing its
// buffer; Close abandons it.
type FileMicrophone struct {
	Path        string
	ChunkSize   int
	Interval    time.Duration
	ContentType string
}

// Open starts streaming the file in chunks.
func (m *FileMicrophone) Open(ctx context.Context) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, fmt.Errorf("recording: open %s: %w", m.Path, err)
	}
	size := m.ChunkSize
	if size <= 0 {
		size = 4096
	}
	ct := m.ContentType
	if ct == "" {
		ct = "audio/webm"
	}
	c := &fileCapture{
		file:        f,
		contentType: ct,
		chunks:      make(chan []byte, 16),
		stop:        make(chan struct{}),
		closed:      make(chan struct{}),
	}
	go c.run(size, m.Interval)
	return c, nil
}

type fileCapture struct {
	file        *os.File
	contentType string
	chunks      chan []byte
	stop        chan struct{}
	closed      chan struct{}
	stopOnce    sync.Once
	closeOnce   sync.Once
	closeErr    error
}

func (c *fileCapture) Chunks() <-chan []byte { return c.chunks }

func (c *fileCapture) ContentType() string { return c.contentType }

func (c *fileCapture) Stop() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *fileCapture) Close() error {
	c.Stop()
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.file.Close()
	})
	return c.closeErr
}

func (c *fileCapture) run(size int, interval time.Duration) {
	defer close(c.chunks)
	buf := make([]byte, size)
	stopped := false
	for {
		if !stopped {
			select {
			case <-c.stop:
				stopped = true
			default:
			}
		}

		n, err := c.file.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.chunks <- chunk:
			case <-c.closed:
				return
			}
		}
		if err != nil {
			if stopped || !errors.Is(err, io.EOF) {
				return
			}
			// Everything delivered; hold the device until the gesture ends.
			select {
			case <-c.stop:
			case <-c.closed:
			}
			return
		}
		if interval > 0 && !stopped {
			select {
			case <-time.After(interval):
			case <-c.stop:
				stopped = true
			case <-c.closed:
				return
			}
		}
	}
}
