package home

import (
	"errors"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicSkip(e *sys.CommandEvent) {
	err := deps.Player.Skip(e.Ctx, e.GuildID)
	switch {
	case errors.Is(err, proc.ErrNotPlaying):
		e.Reply(sys.MsgNotPlaying)
	case err != nil:
		replyFailure(e, err)
	default:
		e.Reply(sys.MsgSkipped)
	}
}

func handleMusicStop(e *sys.CommandEvent) {
	err := deps.Player.Stop(e.Ctx, e.GuildID)
	switch {
	case errors.Is(err, proc.ErrNoSession):
		e.Reply(sys.MsgNotConnected)
	case err != nil:
		replyFailure(e, err)
	default:
		e.Reply(sys.MsgStopped)
	}
}

func handleMusicPause(e *sys.CommandEvent) {
	err := deps.Player.Pause(e.Ctx, e.GuildID)
	switch {
	case errors.Is(err, proc.ErrNotPlaying):
		e.Reply(sys.MsgNotPlaying)
	case err != nil:
		replyFailure(e, err)
	default:
		e.Reply(sys.MsgPaused)
	}
}

func handleMusicResume(e *sys.CommandEvent) {
	err := deps.Player.Resume(e.Ctx, e.GuildID)
	switch {
	case errors.Is(err, proc.ErrNotPaused):
		e.Reply(sys.MsgNothingToResume)
	case err != nil:
		replyFailure(e, err)
	default:
		e.Reply(sys.MsgResumed)
	}
}
