package proc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

const (
	DefaultIdleTimeout    = 120 * time.Second
	DefaultConnectTimeout = 20 * time.Second
	closeTimeout          = 10 * time.Second
)

// --- Events ---

// PlaybackFinished is emitted by a transport when an entry stops playing,
// whether it ran out, failed or was skipped.
type PlaybackFinished struct {
	GuildID snowflake.ID
	Seq     uint64
	Err     error
}

type streamResolved struct {
	session *Session
	seq     uint64
	url     string
	err     error
}

type idleExpired struct {
	session *Session
	epoch   uint64
}

// --- Coordinator ---

type Option func(*Coordinator)

func WithIdleTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithConnectTimeout bounds how long joining a voice channel may take.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithAfterFunc replaces the clock used to arm idle timers.
func WithAfterFunc(f func(d time.Duration, fn func())) Option {
	return func(c *Coordinator) {
		if f != nil {
			c.afterFunc = f
		}
	}
}

// Coordinator owns every guild's playback session. All session state is
// reached only from the Run goroutine; public methods hand closures to it.
type Coordinator struct {
	connector Connector
	resolver  Resolver
	notifier  Notifier

	idleTimeout    time.Duration
	connectTimeout time.Duration
	afterFunc      func(d time.Duration, fn func())

	// handled, when set, sees every event after the loop applied it.
	handled func(ev any)

	sessions map[snowflake.ID]*Session
	count    atomic.Int64

	cmds   chan func()
	events chan any
	stop   chan struct{}
	quit   chan struct{}

	stopOnce  sync.Once
	running   atomic.Bool
	workers   sync.WaitGroup
	runCtx    context.Context
	runCancel context.CancelFunc
}

func NewCoordinator(connector Connector, resolver Resolver, notifier Notifier, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		connector:   connector,
		resolver:    resolver,
		notifier:    notifier,
		idleTimeout:    DefaultIdleTimeout,
		connectTimeout: DefaultConnectTimeout,
		afterFunc: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
		sessions:  make(map[snowflake.ID]*Session),
		cmds:      make(chan func()),
		events:    make(chan any, 64),
		stop:      make(chan struct{}),
		quit:      make(chan struct{}),
		runCtx:    ctx,
		runCancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes commands and playback events until ctx is done or Shutdown
// is called. Sessions still open on exit are disconnected.
func (c *Coordinator) Run(ctx context.Context) {
	c.running.Store(true)
	defer close(c.quit)
	defer c.teardown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case f := <-c.cmds:
			f()
		case ev := <-c.events:
			c.handle(ev)
			if c.handled != nil {
				c.handled(ev)
			}
		}
	}
}

// Shutdown stops the loop and waits for in-flight voice work to finish.
func (c *Coordinator) Shutdown(ctx context.Context) {
	sys.LogVoice(sys.MsgVoiceShutdown)
	c.stopOnce.Do(func() { close(c.stop) })
	if c.running.Load() {
		select {
		case <-c.quit:
		case <-ctx.Done():
			return
		}
	}

	done := make(chan struct{})
	go func() {
		c.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// SessionCount is safe to call from any goroutine.
func (c *Coordinator) SessionCount() int {
	return int(c.count.Load())
}

// do runs f on the loop goroutine and waits for it.
func (c *Coordinator) do(ctx context.Context, f func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		f()
	}
	select {
	case c.cmds <- job:
	case <-c.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-c.quit:
		return ErrStopped
	}
}

// post delivers an event to the loop from any goroutine.
func (c *Coordinator) post(ev any) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

// goWork runs blocking voice or network work off the loop.
func (c *Coordinator) goWork(f func()) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		f()
	}()
}

// --- Commands ---

// Enqueue appends urls to the guild's queue, joining voiceChannelID first
// when the guild has no session. A guild that already has a session keeps
// its channel.
func (c *Coordinator) Enqueue(ctx context.Context, guildID, voiceChannelID, originChannelID snowflake.ID, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	var queued bool
	if err := c.do(ctx, func() {
		if s, ok := c.sessions[guildID]; ok {
			c.append(s, urls)
			queued = true
		}
	}); err != nil {
		return err
	}
	if queued {
		return nil
	}

	sys.LogVoice(sys.MsgVoiceJoining, voiceChannelID, guildID)
	connectCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	t, err := c.connector.Connect(connectCtx, guildID, voiceChannelID)
	cancel()
	if err != nil {
		sys.LogWarn(sys.MsgVoiceJoinFail, guildID, err)
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	var surplus bool
	err = c.do(ctx, func() {
		if s, ok := c.sessions[guildID]; ok {
			c.append(s, urls)
			surplus = true
			return
		}
		s := newSession(guildID, voiceChannelID, originChannelID, t)
		c.sessions[guildID] = s
		c.count.Store(int64(len(c.sessions)))
		s.queue = append(s.queue, urls...)
		s.log.Info(fmt.Sprintf(sys.MsgVoiceQueued, len(urls), guildID))
		c.advance(s)
	})
	if err != nil || surplus {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		t.Close(closeCtx)
		cancel()
	}
	return err
}

func (c *Coordinator) append(s *Session, urls []string) {
	s.queue = append(s.queue, urls...)
	s.log.Info(fmt.Sprintf(sys.MsgVoiceQueued, len(urls), s.GuildID))
	if s.state == StateAwaitingDisconnect {
		c.advance(s)
	}
}

// Skip ends the current entry. The queue then advances as if it had
// finished on its own.
func (c *Coordinator) Skip(ctx context.Context, guildID snowflake.ID) error {
	var result error
	err := c.do(ctx, func() {
		s, ok := c.sessions[guildID]
		if !ok || s.current == "" || (s.state != StatePlaying && s.state != StatePaused) {
			result = ErrNotPlaying
			return
		}
		if s.resolving {
			s.seq++
			s.resolving = false
			c.advance(s)
			return
		}
		s.transport.Stop()
	})
	if err != nil {
		return err
	}
	return result
}

// Stop clears the queue, discards the session and disconnects.
func (c *Coordinator) Stop(ctx context.Context, guildID snowflake.ID) error {
	var s *Session
	err := c.do(ctx, func() {
		s = c.remove(guildID)
	})
	if err != nil {
		return err
	}
	if s == nil {
		return ErrNoSession
	}
	s.transport.Stop()
	s.transport.Close(ctx)
	s.log.Info(fmt.Sprintf(sys.MsgVoiceLeft, guildID))
	return nil
}

// Forget discards the session after the bot was disconnected by someone
// else at leftAt. A session that connected after leftAt is newer than the
// disconnect and is kept.
func (c *Coordinator) Forget(ctx context.Context, guildID snowflake.ID, leftAt time.Time) error {
	var s *Session
	if err := c.do(ctx, func() {
		cur, ok := c.sessions[guildID]
		if !ok || cur.connectedAt.After(leftAt) {
			return
		}
		s = c.remove(guildID)
	}); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	s.log.Info(fmt.Sprintf(sys.MsgVoiceExternalLeave, guildID))
	c.goWork(func() {
		s.transport.Stop()
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		s.transport.Close(closeCtx)
	})
	return nil
}

func (c *Coordinator) Pause(ctx context.Context, guildID snowflake.ID) error {
	var result error
	err := c.do(ctx, func() {
		s, ok := c.sessions[guildID]
		if !ok || s.state != StatePlaying {
			result = ErrNotPlaying
			return
		}
		if !s.resolving {
			s.transport.Pause()
		}
		s.state = StatePaused
	})
	if err != nil {
		return err
	}
	return result
}

func (c *Coordinator) Resume(ctx context.Context, guildID snowflake.ID) error {
	var result error
	err := c.do(ctx, func() {
		s, ok := c.sessions[guildID]
		if !ok || s.state != StatePaused {
			result = ErrNotPaused
			return
		}
		if !s.resolving {
			s.transport.Resume()
		}
		s.state = StatePlaying
	})
	if err != nil {
		return err
	}
	return result
}

// Queue returns a snapshot of the guild's queue. The state is StateIdle when
// no session exists.
func (c *Coordinator) Queue(ctx context.Context, guildID snowflake.ID) (QueueSnapshot, error) {
	var snap QueueSnapshot
	err := c.do(ctx, func() {
		s, ok := c.sessions[guildID]
		if !ok {
			return
		}
		snap.State = s.state
		snap.Current = s.current
		snap.Pending = append([]string(nil), s.queue...)
	})
	return snap, err
}

// --- Loop internals ---

func (c *Coordinator) remove(guildID snowflake.ID) *Session {
	s, ok := c.sessions[guildID]
	if !ok {
		return nil
	}
	delete(c.sessions, guildID)
	c.count.Store(int64(len(c.sessions)))
	s.queue = nil
	s.current = ""
	s.state = StateIdle
	s.resolving = false
	s.seq++
	s.epoch++
	return s
}

// advance starts the head of the queue, or parks the session in
// AwaitingDisconnect and arms a single idle timer when the queue is empty.
func (c *Coordinator) advance(s *Session) {
	if len(s.queue) == 0 {
		s.current = ""
		s.state = StateAwaitingDisconnect
		s.epoch++
		epoch := s.epoch
		s.log.Info(fmt.Sprintf(sys.MsgVoiceIdleArmed, s.GuildID, c.idleTimeout))
		c.afterFunc(c.idleTimeout, func() {
			c.post(idleExpired{session: s, epoch: epoch})
		})
		return
	}

	url := s.queue[0]
	s.queue = s.queue[1:]
	s.current = url
	s.state = StatePlaying
	s.seq++
	s.resolving = true
	seq := s.seq
	ctx := c.runCtx

	c.goWork(func() {
		streamURL, err := c.resolver.StreamURL(ctx, url)
		c.post(streamResolved{session: s, seq: seq, url: streamURL, err: err})
	})
}

func (c *Coordinator) handle(ev any) {
	switch ev := ev.(type) {
	case streamResolved:
		c.onStreamResolved(ev)
	case PlaybackFinished:
		c.onPlaybackFinished(ev)
	case idleExpired:
		c.onIdleExpired(ev)
	}
}

func (c *Coordinator) onStreamResolved(ev streamResolved) {
	s := ev.session
	if c.sessions[s.GuildID] != s || s.seq != ev.seq {
		sys.LogDebug(sys.MsgVoiceStaleEvent, "stream", s.GuildID)
		return
	}
	s.resolving = false

	if ev.err != nil {
		s.log.Warn(fmt.Sprintf(sys.MsgVoiceStreamFail, s.current, ev.err))
		c.advance(s)
		return
	}

	guildID, seq := s.GuildID, s.seq
	err := s.transport.Play(ev.url, func(err error) {
		c.post(PlaybackFinished{GuildID: guildID, Seq: seq, Err: err})
	})
	if err != nil {
		s.log.Warn(fmt.Sprintf(sys.MsgVoicePlaybackError, s.GuildID, err))
		c.advance(s)
		return
	}
	if s.state == StatePaused {
		s.transport.Pause()
	}
	s.log.Info(fmt.Sprintf(sys.MsgVoiceStarting, s.current))
}

func (c *Coordinator) onPlaybackFinished(ev PlaybackFinished) {
	s, ok := c.sessions[ev.GuildID]
	if !ok || s.seq != ev.Seq || s.resolving {
		sys.LogDebug(sys.MsgVoiceStaleEvent, "playback", ev.GuildID)
		return
	}
	if ev.Err != nil {
		s.log.Warn(fmt.Sprintf(sys.MsgVoicePlaybackError, s.GuildID, ev.Err))
	} else {
		s.log.Info(fmt.Sprintf(sys.MsgVoiceFinished, s.current))
	}
	c.advance(s)
}

func (c *Coordinator) onIdleExpired(ev idleExpired) {
	s := ev.session
	if c.sessions[s.GuildID] != s || s.state != StateAwaitingDisconnect || s.epoch != ev.epoch {
		sys.LogDebug(sys.MsgVoiceStaleEvent, "idle", s.GuildID)
		return
	}
	if s.transport.IsPlaying() || s.transport.IsPaused() {
		return
	}

	c.remove(s.GuildID)
	s.log.Info(fmt.Sprintf(sys.MsgVoiceIdleDisconnect, s.GuildID))
	c.goWork(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		s.transport.Close(ctx)
		if c.notifier == nil {
			return
		}
		if err := c.notifier.Notify(ctx, s.OriginChannelID, sys.MsgIdleDisconnected); err != nil {
			sys.LogWarn(sys.MsgVoiceNotifyFail, s.OriginChannelID, err)
		}
	})
}

func (c *Coordinator) teardown() {
	c.runCancel()

	var wg sync.WaitGroup
	for id := range c.sessions {
		s := c.remove(id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.transport.Stop()
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			s.transport.Close(ctx)
		}()
	}
	wg.Wait()
}
