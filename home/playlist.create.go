package home

import (
	"github.com/leeineian/jukebox/sys"
)

func handlePlaylistCreate(e *sys.CommandEvent, sc playlistScope, name string) {
	if name == "" {
		sc.usage(e, "create <playlist_name>")
		return
	}
	if !sc.allowMutation(e, "create") {
		return
	}

	created, err := deps.Library.CreatePlaylist(e.Ctx, e.GuildID, sc.owner(e), name)
	if err != nil {
		replyFailure(e, err)
		return
	}
	if !created {
		e.Reply(sc.exists, name)
		return
	}
	e.Reply(sc.created, name)
}

func handlePlaylistDelete(e *sys.CommandEvent, sc playlistScope, name string) {
	if name == "" {
		sc.usage(e, "delete <playlist_name>")
		return
	}
	if !sc.allowMutation(e, "delete") {
		return
	}

	removed, err := deps.Library.DeletePlaylist(e.Ctx, e.GuildID, sc.owner(e), name)
	if err != nil {
		replyFailure(e, err)
		return
	}
	if !removed {
		e.Reply(sc.missing, name)
		return
	}
	e.Reply(sc.deleted, name)
}
