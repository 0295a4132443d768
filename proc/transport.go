package proc

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

var ErrTransportClosed = errors.New("voice transport closed")

const speakingTimeout = 5 * time.Second

// voiceLink is the part of voice.Conn a transport writes to.
type voiceLink interface {
	SetOpusFrameProvider(handler voice.OpusFrameProvider)
	SetSpeaking(ctx context.Context, flags voice.SpeakingFlags) error
	Close(ctx context.Context)
}

// VoiceConnector opens disgo voice connections.
type VoiceConnector struct {
	client *bot.Client
}

func NewVoiceConnector(client *bot.Client) *VoiceConnector {
	return &VoiceConnector{client: client}
}

func (vc *VoiceConnector) Connect(ctx context.Context, guildID, channelID snowflake.ID) (Transport, error) {
	conn := vc.client.VoiceManager.CreateConn(guildID)
	if err := conn.Open(ctx, channelID, false, false); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		conn.Close(closeCtx)
		return nil, err
	}
	return &voiceTransport{conn: conn, guildID: guildID}, nil
}

// voiceTransport plays one stream at a time over a voice.Conn. mu guards the
// playback state and is never held across a gateway write; linkMu orders
// the attach and detach writes themselves.
type voiceTransport struct {
	conn    voiceLink
	guildID snowflake.ID

	linkMu sync.Mutex

	mu       sync.Mutex
	provider *streamProvider
	cancel   context.CancelFunc
	playing  bool
	paused   bool
	closed   bool
}

func (t *voiceTransport) Play(streamURL string, done func(error)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := newStreamProvider(ctx)
	t.provider, t.cancel = p, cancel
	t.playing, t.paused = true, false
	t.mu.Unlock()

	go func() {
		defer cancel()

		tc := NewTranscoder()
		defer tc.Close()

		err := tc.Open(streamURL)
		if err == nil {
			t.attach(ctx, p)
			err = tc.Transcode(ctx, p.push)
		}
		if err == nil {
			select {
			case <-p.drained:
			case <-ctx.Done():
			}
		}
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			sys.LogDebug(sys.MsgVoiceTranscoderError, t.guildID, err)
		}

		t.release(p)
		done(err)
	}()
	return nil
}

func (t *voiceTransport) current() *streamProvider {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.provider
}

func (t *voiceTransport) attach(ctx context.Context, p *streamProvider) {
	t.linkMu.Lock()
	defer t.linkMu.Unlock()
	if t.current() != p {
		return
	}
	t.conn.SetOpusFrameProvider(p)
	_ = t.conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)
}

// release detaches p from the connection unless a newer stream replaced it.
func (t *voiceTransport) release(p *streamProvider) {
	t.mu.Lock()
	if t.provider != p {
		t.mu.Unlock()
		return
	}
	t.provider, t.cancel = nil, nil
	t.playing, t.paused = false, false
	t.mu.Unlock()

	t.linkMu.Lock()
	defer t.linkMu.Unlock()
	if t.current() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), speakingTimeout)
	defer cancel()
	t.conn.SetOpusFrameProvider(nil)
	_ = t.conn.SetSpeaking(ctx, 0)
}

func (t *voiceTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *voiceTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.provider != nil {
		t.paused = true
		t.provider.paused.Store(true)
	}
}

func (t *voiceTransport) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.provider != nil {
		t.paused = false
		t.provider.paused.Store(false)
	}
}

func (t *voiceTransport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing && !t.paused
}

func (t *voiceTransport) IsPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing && t.paused
}

func (t *voiceTransport) Close(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()
	t.conn.Close(ctx)
}

// streamProvider feeds transcoded Opus packets to the voice sender. A nil
// packet marks the end of the stream.
type streamProvider struct {
	ctx     context.Context
	frames  chan []byte
	drained chan struct{}
	once    sync.Once
	paused  atomic.Bool
}

func newStreamProvider(ctx context.Context) *streamProvider {
	return &streamProvider{
		ctx:     ctx,
		frames:  make(chan []byte, 100),
		drained: make(chan struct{}),
	}
}

func (p *streamProvider) push(f []byte) {
	select {
	case p.frames <- f:
	case <-p.ctx.Done():
	}
}

func (p *streamProvider) finish() {
	p.once.Do(func() { close(p.drained) })
}

func (p *streamProvider) ProvideOpusFrame() ([]byte, error) {
	if p.paused.Load() {
		return nil, nil
	}
	select {
	case f := <-p.frames:
		if f == nil {
			p.finish()
			return nil, io.EOF
		}
		return f, nil
	case <-p.ctx.Done():
		p.finish()
		return nil, io.EOF
	case <-time.After(100 * time.Millisecond):
		return nil, nil
	}
}

func (p *streamProvider) Close() {
	p.finish()
}
