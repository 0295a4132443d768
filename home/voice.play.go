package home

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// handleMusicPlay queues a playlist or a single URL. Personal playlists are
// looked up first, then server playlists, then the query is tried as a URL.
func handleMusicPlay(e *sys.CommandEvent) {
	query := strings.TrimSpace(e.Args)
	if query == "" {
		e.Reply(sys.MsgUsage, e.Prefix, "play <playlist_name or url>")
		return
	}
	if e.VoiceChannelID == nil {
		e.Reply(sys.MsgNotInVoice)
		return
	}

	urls, announce, ok := resolvePlayQuery(e, query)
	if !ok {
		return
	}

	if err := deps.Player.Enqueue(e.Ctx, e.GuildID, *e.VoiceChannelID, e.ChannelID, urls); err != nil {
		if errors.Is(err, proc.ErrNotConnected) {
			e.Reply(sys.MsgJoinFailed)
			return
		}
		replyFailure(e, err)
		return
	}
	e.Reply("%s", announce)
}

// resolvePlayQuery returns the URLs to queue and the confirmation text. It
// replies on its own and reports false when nothing should be queued.
func resolvePlayQuery(e *sys.CommandEvent, query string) ([]string, string, bool) {
	playlist, err := deps.Library.GetPlaylist(e.Ctx, e.GuildID, sys.Personal(e.UserID), query)
	if err == nil && playlist == nil {
		playlist, err = deps.Library.GetPlaylist(e.Ctx, e.GuildID, sys.Server(), query)
	}
	if err != nil {
		replyFailure(e, err)
		return nil, "", false
	}

	if playlist != nil {
		songs, err := deps.Library.SongsOf(e.Ctx, playlist.ID)
		if err != nil {
			replyFailure(e, err)
			return nil, "", false
		}
		if len(songs) == 0 {
			e.Reply(sys.MsgPlaylistEmptyPlay, playlist.Name)
			return nil, "", false
		}
		urls := make([]string, 0, len(songs))
		for _, s := range songs {
			urls = append(urls, s.URL)
		}
		return urls, fmt.Sprintf(sys.MsgQueuingPlaylist, len(urls), playlist.Name), true
	}

	if strings.Contains(query, "http") {
		url, err := proc.ValidateMediaURL(query)
		if err != nil {
			sys.LogCommand("Rejected url from %s: %v", e.UserName, err)
			e.Reply(sys.MsgSongURLFailed)
			return nil, "", false
		}
		info, err := deps.Resolver.Resolve(e.Ctx, url)
		if err != nil {
			sys.LogCommand("Resolve failed for %s: %v", query, err)
			e.Reply(sys.MsgSongURLFailed)
			return nil, "", false
		}
		return []string{info.URL}, fmt.Sprintf(sys.MsgQueuingSong, info.Title), true
	}

	e.Reply(sys.MsgPlayNotFound, query)
	return nil, "", false
}
