package home

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// Player is the part of the voice coordinator the commands drive.
type Player interface {
	Enqueue(ctx context.Context, guildID, voiceChannelID, originChannelID snowflake.ID, urls []string) error
	Skip(ctx context.Context, guildID snowflake.ID) error
	Stop(ctx context.Context, guildID snowflake.ID) error
	Forget(ctx context.Context, guildID snowflake.ID, leftAt time.Time) error
	Pause(ctx context.Context, guildID snowflake.ID) error
	Resume(ctx context.Context, guildID snowflake.ID) error
	Queue(ctx context.Context, guildID snowflake.ID) (proc.QueueSnapshot, error)
	SessionCount() int
}

// Deps are the services command handlers run against.
type Deps struct {
	Library  *sys.Library
	Resolver proc.Resolver
	Player   Player
	Searcher proc.Searcher
}

var deps Deps

// Wire installs the services used by every command in this package.
func Wire(d Deps) {
	deps = d
}
