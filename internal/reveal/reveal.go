// Package reveal progressively writes a reply into the message log.
package reveal

import (
	"context"
	"time"
)

// DefaultInterval is the per-character reveal delay.
const DefaultInterval = 8 * time.Millisecond

// Stage is one staged update: show Text once Delay has elapsed since the
// previous stage.
type Stage struct {
	Text  string
	Delay time.Duration
}

// Plan breaks text into growing prefixes, one rune per stage. A non-positive
// interval collapses the plan into a single stage with the full text. The
// last stage always carries the full text.
func Plan(text string, interval time.Duration) []Stage {
	if interval <= 0 || text == "" {
		return []Stage{{Text: text}}
	}
	runes := []rune(text)
	stages := make([]Stage, 0, len(runes))
	for i := range runes {
		stages = append(stages, Stage{Text: string(runes[:i+1]), Delay: interval})
	}
	return stages
}

// Sink receives each revealed prefix. It replaces the latest assistant entry.
type Sink func(text string)

// Renderer runs reveal plans.
type Renderer struct {
	Interval time.Duration
	// After is time.After by default; tests can replace it.
	After func(time.Duration) <-chan time.Time
}

// NewRenderer creates a renderer with the given per-character interval.
func NewRenderer(interval time.Duration) *Renderer {
	return &Renderer{Interval: interval}
}

// Reveal writes text into sink stage by stage. If ctx ends first, the full
// text is flushed to sink and ctx.Err() is returned, so the sink never keeps
// a partial reply.
func (r *Renderer) Reveal(ctx context.Context, text string, sink Sink) error {
	after := r.After
	if after == nil {
		after = time.After
	}
	for _, stage := range Plan(text, r.Interval) {
		if stage.Delay > 0 {
			select {
			case <-ctx.Done():
				sink(text)
				return ctx.Err()
			case <-after(stage.Delay):
			}
		}
		sink(stage.Text)
	}
	return nil
}
