package home

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/leeineian/jukebox/sys"
)

const (
	colorPersonal = 0x2ECC71
	colorServer   = 0x3498DB
	embedLimit    = 4000
)

// playlistScope binds the shared playlist handlers to one owner kind.
type playlistScope struct {
	command string
	owner   func(e *sys.CommandEvent) sys.Owner
	guarded bool
	color   int

	created, exists, missing, added, duplicate string
	empty, none, deleted, invalid              string

	showTitle func(e *sys.CommandEvent, name string) string
	listTitle string
}

var personalScope = playlistScope{
	command:   "p",
	owner:     func(e *sys.CommandEvent) sys.Owner { return sys.Personal(e.UserID) },
	color:     colorPersonal,
	created:   sys.MsgPersonalCreated,
	exists:    sys.MsgPersonalExists,
	missing:   sys.MsgPersonalMissing,
	added:     sys.MsgPersonalAdded,
	duplicate: sys.MsgPersonalDuplicate,
	empty:     sys.MsgPersonalEmpty,
	none:      sys.MsgPersonalNone,
	deleted:   sys.MsgPersonalDeleted,
	invalid:   sys.MsgPersonalInvalid,
	showTitle: func(e *sys.CommandEvent, name string) string {
		return fmt.Sprintf(sys.MsgPersonalShowTitle, e.DisplayName, name)
	},
	listTitle: sys.MsgPersonalListTitle,
}

var serverScope = playlistScope{
	command:   "s",
	owner:     func(*sys.CommandEvent) sys.Owner { return sys.Server() },
	guarded:   true,
	color:     colorServer,
	created:   sys.MsgServerCreated,
	exists:    sys.MsgServerExists,
	missing:   sys.MsgServerMissing,
	added:     sys.MsgServerAdded,
	duplicate: sys.MsgServerDuplicate,
	empty:     sys.MsgServerEmpty,
	none:      sys.MsgServerNone,
	deleted:   sys.MsgServerDeleted,
	invalid:   sys.MsgServerInvalid,
	showTitle: func(_ *sys.CommandEvent, name string) string {
		return fmt.Sprintf(sys.MsgServerShowTitle, name)
	},
	listTitle: sys.MsgServerListTitle,
}

func init() {
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:  "p",
		Usage: "p <create|add|show|list|delete> ...",
		Help: "Manage your personal playlists.\n" +
			"`p create <playlist_name>` creates a new personal playlist.\n" +
			"`p add <playlist_name> <url>` adds a song to it.\n" +
			"`p show <playlist_name>` shows its songs.\n" +
			"`p list` lists your playlists in this server.\n" +
			"`p delete <playlist_name>` deletes it.",
		Handler: func(e *sys.CommandEvent) { handlePlaylist(e, personalScope) },
	})

	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:  "s",
		Usage: "s <create|add|show|list|delete> ...",
		Help: "Manage server-wide playlists. Changing them needs **Manage Server**.\n" +
			"`s create <playlist_name>` creates a new server playlist.\n" +
			"`s add <playlist_name> <url>` adds a song to it.\n" +
			"`s show <playlist_name>` shows its songs.\n" +
			"`s list` lists all server playlists.\n" +
			"`s delete <playlist_name>` deletes it.",
		Handler: func(e *sys.CommandEvent) { handlePlaylist(e, serverScope) },
	})
}

func handlePlaylist(e *sys.CommandEvent, sc playlistScope) {
	sub, rest := splitArg(e.Args)
	switch strings.ToLower(sub) {
	case "create":
		handlePlaylistCreate(e, sc, rest)
	case "add":
		handlePlaylistAdd(e, sc, rest)
	case "show":
		handlePlaylistShow(e, sc, rest)
	case "list":
		handlePlaylistList(e, sc)
	case "delete":
		handlePlaylistDelete(e, sc, rest)
	default:
		e.Reply(sc.invalid, e.Prefix)
	}
}

// allowMutation rejects server playlist changes from members without
// Manage Server before the store is touched. OWNER_IDS always pass.
func (sc playlistScope) allowMutation(e *sys.CommandEvent, action string) bool {
	if !sc.guarded || e.CanManageGuild {
		return true
	}
	if sys.GlobalConfig != nil && sys.GlobalConfig.IsOwner(e.UserID) {
		return true
	}
	sys.LogCommand(sys.MsgDispatchPermissionDenied, e.UserName, sc.command+" "+action, e.GuildID)
	e.Reply(sys.ErrPermissionManageGuild)
	return false
}

func (sc playlistScope) usage(e *sys.CommandEvent, rest string) {
	e.Reply(sys.MsgUsage, e.Prefix, sc.command+" "+rest)
}

// splitArg splits off the first whitespace separated word.
func splitArg(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// limitLines joins lines until the embed limit, then notes how many were
// left out.
func limitLines(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if b.Len()+len(l)+1 > embedLimit {
			fmt.Fprintf(&b, sys.MsgListMore, len(lines)-i)
			break
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func replyFailure(e *sys.CommandEvent, err error) {
	sys.LogError("%s%s %s: %v", e.Prefix, e.Name, e.Args, err)
	e.Reply(sys.ErrSomethingWentWrong)
}
