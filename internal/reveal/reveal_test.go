package reveal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanGrowsOneRuneAtATime(t *testing.T) {
	stages := Plan("Olá!", time.Millisecond)
	require.Len(t, stages, 4)
	assert.Equal(t, "O", stages[0].Text)
	assert.Equal(t, "Ol", stages[1].Text)
	assert.Equal(t, "Olá", stages[2].Text)
	assert.Equal(t, "Olá!", stages[3].Text)
	for _, s := range stages {
		assert.Equal(t, time.Millisecond, s.Delay)
	}
}

func TestPlanWithoutIntervalIsOneStep(t *testing.T) {
	assert.Equal(t, []Stage{{Text: "Okay."}}, Plan("Okay.", 0))
	assert.Equal(t, []Stage{{Text: ""}}, Plan("", DefaultInterval))
}

func TestRevealEndsWithFullText(t *testing.T) {
	var seen []string
	r := &Renderer{Interval: time.Millisecond, After: immediate}
	require.NoError(t, r.Reveal(context.Background(), "Hi there", func(s string) { seen = append(seen, s) }))
	require.Len(t, seen, len("Hi there"))
	assert.Equal(t, "Hi there", seen[len(seen)-1])
}

func TestRevealCancelledFlushesFullText(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	calls := 0
	r := &Renderer{Interval: time.Millisecond, After: func(d time.Duration) <-chan time.Time {
		calls++
		if calls == 3 {
			cancel()
			return make(chan time.Time)
		}
		return immediate(d)
	}}

	err := r.Reveal(ctx, "Dentistry", func(s string) { seen = append(seen, s) })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"D", "De", "Dentistry"}, seen)
}

func TestRevealZeroInterval(t *testing.T) {
	var seen []string
	require.NoError(t, NewRenderer(0).Reveal(context.Background(), "Okay.", func(s string) { seen = append(seen, s) }))
	assert.Equal(t, []string{"Okay."}, seen)
}

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}
