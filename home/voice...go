package home

import (
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:    "play",
		Usage:   "play <playlist_name or url>",
		Help:    "Plays a song from a URL or an entire playlist. Your personal playlists win over server ones.",
		Handler: handleMusicPlay,
	})
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:    "skip",
		Usage:   "skip",
		Help:    "Skips the current song.",
		Handler: handleMusicSkip,
	})
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:    "stop",
		Aliases: []string{"leave"},
		Usage:   "stop",
		Help:    "Stops the music, clears the queue, and leaves the channel.",
		Handler: handleMusicStop,
	})
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:    "pause",
		Usage:   "pause",
		Help:    "Pauses the current song.",
		Handler: handleMusicPause,
	})
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:    "resume",
		Usage:   "resume",
		Help:    "Resumes a paused song.",
		Handler: handleMusicResume,
	})
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "queue",
		Help:    "Shows the current song and what plays next.",
		Handler: handleMusicQueue,
	})
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:    "search",
		Usage:   "search <terms>",
		Help:    "Searches YouTube Music and YouTube and prints links for `play` or `p add`.",
		Handler: handleMusicSearch,
	})

	sys.RegisterVoiceStateUpdateHandler(onBotVoiceStateUpdate)
}

// onBotVoiceStateUpdate drops the guild's session when the bot is kicked or
// disconnected from voice by someone else.
func onBotVoiceStateUpdate(event *events.GuildVoiceStateUpdate, receivedAt time.Time) {
	if deps.Player == nil || event.VoiceState.UserID != event.Client().ID() || event.VoiceState.ChannelID != nil {
		return
	}
	if err := deps.Player.Forget(sys.AppContext, event.VoiceState.GuildID, receivedAt); err != nil {
		sys.LogDebug("Forget voice session in guild %s: %v", event.VoiceState.GuildID, err)
	}
}
