package home

import (
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// handlePlaylistAdd resolves the URL before anything is written, so a bad
// link leaves the catalog untouched.
func handlePlaylistAdd(e *sys.CommandEvent, sc playlistScope, args string) {
	name, url := splitArg(args)
	if name == "" || url == "" {
		sc.usage(e, "add <playlist_name> <url>")
		return
	}
	if !sc.allowMutation(e, "add") {
		return
	}
	url, err := proc.ValidateMediaURL(url)
	if err != nil {
		sys.LogCommand("Rejected url from %s: %v", e.UserName, err)
		e.Reply(sys.MsgSongInfoFailed)
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

	info, err := deps.Resolver.Resolve(e.Ctx, url)
	if err != nil {
		sys.LogCommand("Resolve failed for %s: %v", url, err)
		e.Reply(sys.MsgSongInfoFailed)
		return
	}

	songID, err := deps.Library.AddOrGetSong(e.Ctx, info.Title, info.URL, e.UserName)
	if err != nil {
		replyFailure(e, err)
		return
	}
	added, err := deps.Library.AddSong(e.Ctx, playlist.ID, songID)
	if err != nil {
		replyFailure(e, err)
		return
	}
	if !added {
		e.Reply(sc.duplicate, name)
		return
	}
	e.Reply(sc.added, info.Title, name)
}
