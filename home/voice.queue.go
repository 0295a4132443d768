package home

import (
	"fmt"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const queuePreview = 15

func handleMusicQueue(e *sys.CommandEvent) {
	snap, err := deps.Player.Queue(e.Ctx, e.GuildID)
	if err != nil {
		replyFailure(e, err)
		return
	}

	switch snap.State {
	case proc.StateIdle:
		e.Reply(sys.MsgQueueEmpty)
		return
	case proc.StateAwaitingDisconnect:
		e.Reply(sys.MsgQueueIdle)
		return
	}

	var lines []string
	if snap.State == proc.StatePaused {
		lines = append(lines, fmt.Sprintf(sys.MsgQueuePausedOn, snap.Current))
	} else {
		lines = append(lines, fmt.Sprintf(sys.MsgQueueNowPlaying, snap.Current))
	}
	for i, url := range snap.Pending {
		if i == queuePreview {
			lines = append(lines, fmt.Sprintf(sys.MsgListMore, len(snap.Pending)-i))
			break
		}
		lines = append(lines, fmt.Sprintf("`%d.` %s", i+1, url))
	}
	e.ReplyEmbed(sys.MsgQueueTitle, limitLines(lines), colorServer)
}
