package home

import (
	"fmt"

	"github.com/leeineian/jukebox/sys"
)

func handlePlaylistShow(e *sys.CommandEvent, sc playlistScope, name string) {
	if name == "" {
		sc.usage(e, "show <playlist_name>")
		return
	}

	playlist, err := deps.Library.GetPlaylist(e.Ctx, e.GuildID, sc.owner(e), name)
	if err != nil {
		replyFailure(e, err)
		return
	}
	if playlist == nil {
		e.Reply(sc.missing, name)
		return
	}

	songs, err := deps.Library.SongsOf(e.Ctx, playlist.ID)
	if err != nil {
		replyFailure(e, err)
		return
	}
	if len(songs) == 0 {
		e.Reply(sc.empty, name)
		return
	}

	lines := make([]string, 0, len(songs))
	for _, s := range songs {
		lines = append(lines, fmt.Sprintf("`%d`. **%s**", s.ID, s.Title))
	}
	e.ReplyEmbed(sc.showTitle(e, name), limitLines(lines), sc.color)
}

func handlePlaylistList(e *sys.CommandEvent, sc playlistScope) {
	names, err := deps.Library.ListPlaylists(e.Ctx, e.GuildID, sc.owner(e))
	if err != nil {
		replyFailure(e, err)
		return
	}
	if len(names) == 0 {
		e.Reply(sc.none, e.Prefix)
		return
	}

	lines := make([]string, 0, len(names))
	for _, n := range names {
		lines = append(lines, "• "+n)
	}
	e.ReplyEmbed(fmt.Sprintf(sc.listTitle, e.GuildName), limitLines(lines), sc.color)
}
