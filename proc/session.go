package proc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/leeineian/jukebox/sys"
)

var (
	ErrNoSession    = errors.New("no voice session in this guild")
	ErrNotConnected = errors.New("could not connect to voice")
	ErrNotPlaying   = errors.New("nothing is playing")
	ErrNotPaused    = errors.New("nothing is paused")
	ErrStopped      = errors.New("voice coordinator stopped")
)

// State is the playback state of a guild. Idle means no session exists.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateAwaitingDisconnect
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateAwaitingDisconnect:
		return "awaiting disconnect"
	default:
		return "idle"
	}
}

// SongInfo is what the resolver knows about a user supplied URL.
type SongInfo struct {
	Title string
	URL   string
}

// Resolver turns page URLs into song metadata and playable stream URLs.
type Resolver interface {
	Resolve(ctx context.Context, url string) (SongInfo, error)
	StreamURL(ctx context.Context, url string) (string, error)
}

// Transport is one guild's live voice connection.
//
// Play starts streaming and returns immediately. done is called exactly once
// when the stream ends, fails, or is stopped.
type Transport interface {
	Play(streamURL string, done func(error)) error
	Stop()
	Pause()
	Resume()
	IsPlaying() bool
	IsPaused() bool
	Close(ctx context.Context)
}

type Connector interface {
	Connect(ctx context.Context, guildID, channelID snowflake.ID) (Transport, error)
}

type Notifier interface {
	Notify(ctx context.Context, channelID snowflake.ID, content string) error
}

// Session is the in-memory playback state of one guild. Only the
// coordinator loop touches it.
type Session struct {
	ID              string
	GuildID         snowflake.ID
	ChannelID       snowflake.ID
	OriginChannelID snowflake.ID

	transport Transport
	queue     []string
	current   string
	state     State
	resolving bool

	// seq identifies the entry being played; epoch identifies the current
	// stay in AwaitingDisconnect.
	seq   uint64
	epoch uint64

	connectedAt time.Time

	log *slog.Logger
}

func newSession(guildID, channelID, originChannelID snowflake.ID, t Transport) *Session {
	id := uuid.NewString()
	return &Session{
		ID:              id,
		GuildID:         guildID,
		ChannelID:       channelID,
		OriginChannelID: originChannelID,
		transport:       t,
		connectedAt:     time.Now(),
		log:             sys.VoiceLogger("session", id, "guild", guildID.String()),
	}
}

// QueueSnapshot is a read-only copy of a session's queue.
type QueueSnapshot struct {
	State   State
	Current string
	Pending []string
}
