package proc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countStub int

func (c countStub) SessionCount() int { return int(c) }

func fixed(text string) StatusSource {
	return func(context.Context) string { return text }
}

func TestPresenceAvoidsRepeats(t *testing.T) {
	r := &PresenceRotator{
		sources: []StatusSource{fixed("a"), fixed(""), fixed("b")},
		pick:    func(int) int { return 0 },
	}
	ctx := context.Background()

	assert.Equal(t, "a", r.next(ctx))
	assert.Equal(t, "b", r.next(ctx))
	assert.Equal(t, "a", r.next(ctx))
}

func TestPresenceSingleChoiceRepeats(t *testing.T) {
	r := &PresenceRotator{sources: []StatusSource{fixed("only")}, pick: func(int) int { return 0 }}
	assert.Equal(t, "only", r.next(context.Background()))
	assert.Equal(t, "only", r.next(context.Background()))
}

func TestPresenceNothingAvailable(t *testing.T) {
	r := &PresenceRotator{sources: []StatusSource{fixed("")}, pick: func(int) int { return 0 }}
	assert.Empty(t, r.next(context.Background()))
}

func TestStatusSources(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, SessionsStatus(countStub(0))(ctx))
	assert.Equal(t, "music in 1 server", SessionsStatus(countStub(1))(ctx))
	assert.Equal(t, "music in 3 servers", SessionsStatus(countStub(3))(ctx))
	assert.Equal(t, "!help", HelpStatus("!")(ctx))
	assert.Equal(t, "for 2h 5m", UptimeStatus(time.Now().Add(-(2*time.Hour + 5*time.Minute + 10*time.Second)))(ctx))
}
