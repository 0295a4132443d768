package proc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledLink blocks SetSpeaking until unblock is closed or ctx ends.
type stalledLink struct {
	mu        sync.Mutex
	providers []voice.OpusFrameProvider
	speaking  []voice.SpeakingFlags
	entered   chan struct{}
	unblock   chan struct{}
}

func newStalledLink() *stalledLink {
	return &stalledLink{entered: make(chan struct{}, 4), unblock: make(chan struct{})}
}

func (l *stalledLink) SetOpusFrameProvider(p voice.OpusFrameProvider) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.providers = append(l.providers, p)
}

func (l *stalledLink) SetSpeaking(ctx context.Context, flags voice.SpeakingFlags) error {
	l.mu.Lock()
	l.speaking = append(l.speaking, flags)
	l.mu.Unlock()
	l.entered <- struct{}{}
	select {
	case <-l.unblock:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *stalledLink) Close(context.Context) {}

func (l *stalledLink) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.providers) + len(l.speaking)
}

func playingTransport(link voiceLink) (*voiceTransport, *streamProvider) {
	p := newStreamProvider(context.Background())
	return &voiceTransport{conn: link, provider: p, playing: true}, p
}

func TestReleaseDoesNotHoldStateLockDuringGatewayWrite(t *testing.T) {
	link := newStalledLink()
	tr, p := playingTransport(link)

	released := make(chan struct{})
	go func() {
		tr.release(p)
		close(released)
	}()

	select {
	case <-link.entered:
	case <-time.After(waitFor):
		t.Fatal("release never reached the voice connection")
	}

	answered := make(chan bool)
	go func() {
		tr.Pause()
		answered <- tr.IsPlaying()
	}()
	select {
	case playing := <-answered:
		assert.False(t, playing)
	case <-time.After(waitFor):
		t.Fatal("state calls blocked behind a stalled voice write")
	}

	close(link.unblock)
	require.Eventually(t, func() bool {
		select {
		case <-released:
			return true
		default:
			return false
		}
	}, waitFor, tick)
	assert.Equal(t, []voice.OpusFrameProvider{nil}, link.providers)
}

func TestReleaseOfReplacedStreamLeavesLinkAlone(t *testing.T) {
	link := newStalledLink()
	close(link.unblock)
	tr, old := playingTransport(link)
	tr.provider = newStreamProvider(context.Background())

	tr.release(old)

	assert.Zero(t, link.calls())
	assert.True(t, tr.IsPlaying())
}

func TestAttachSkipsStreamThatWasAlreadyReleased(t *testing.T) {
	link := newStalledLink()
	close(link.unblock)
	tr, p := playingTransport(link)
	tr.release(p)
	before := link.calls()

	tr.attach(context.Background(), p)

	assert.Equal(t, before, link.calls())
}
