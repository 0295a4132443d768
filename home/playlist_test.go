package home

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   = snowflake.ID(1000)
	testChannel = snowflake.ID(2000)
	testVoice   = snowflake.ID(3000)
	alice       = snowflake.ID(11)
	bob         = snowflake.ID(22)
)

// --- Fakes ---

type recordingReplier struct {
	mu      sync.Mutex
	replies []sys.Reply
}

func (r *recordingReplier) Reply(_ context.Context, rep sys.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, rep)
	return nil
}

func (r *recordingReplier) last(t *testing.T) sys.Reply {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.replies, "no reply was sent")
	return r.replies[len(r.replies)-1]
}

type stubResolver struct {
	titles map[string]string
	calls  int
}

func (r *stubResolver) Resolve(_ context.Context, url string) (proc.SongInfo, error) {
	r.calls++
	title, ok := r.titles[url]
	if !ok {
		return proc.SongInfo{}, errors.New("yt-dlp: unsupported url")
	}
	return proc.SongInfo{Title: title, URL: url}, nil
}

func (r *stubResolver) StreamURL(_ context.Context, url string) (string, error) {
	return "stream:" + url, nil
}

func newTestLibrary(t *testing.T) *sys.Library {
	t.Helper()
	db, err := sys.OpenDatabase(context.Background(), filepath.Join(t.TempDir(), "jukebox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sys.NewLibrary(db)
}

type env struct {
	lib      *sys.Library
	resolver *stubResolver
	player   *recordingPlayer
}

func setup(t *testing.T) *env {
	t.Helper()
	en := &env{
		lib: newTestLibrary(t),
		resolver: &stubResolver{titles: map[string]string{
			"https://youtu.be/a": "Alpha",
			"https://youtu.be/b": "Bravo",
		}},
		player: &recordingPlayer{},
	}
	old := deps
	Wire(Deps{Library: en.lib, Resolver: en.resolver, Player: en.player})
	t.Cleanup(func() { Wire(old) })
	return en
}

// run dispatches one command line synchronously, as the guild worker would.
func run(t *testing.T, user snowflake.ID, canManage bool, line string) *recordingReplier {
	t.Helper()
	rep := &recordingReplier{}
	e := newEvent(user, canManage, line, rep)
	cmd, ok := sys.LookupPrefixCommand(e.Name)
	require.True(t, ok, "unknown command %q", e.Name)
	cmd.Handler(e)
	return rep
}

func newEvent(user snowflake.ID, canManage bool, line string, rep sys.Replier) *sys.CommandEvent {
	name, args, _ := sys.ParseCommand("!", line)
	voice := testVoice
	return &sys.CommandEvent{
		Ctx:            context.Background(),
		GuildID:        testGuild,
		GuildName:      "Test Guild",
		ChannelID:      testChannel,
		UserID:         user,
		UserName:       "user" + user.String(),
		DisplayName:    "User " + user.String(),
		Name:           name,
		Args:           args,
		CanManageGuild: canManage,
		VoiceChannelID: &voice,
		Prefix:         "!",
		Replier:        rep,
	}
}

// --- Personal playlists ---

func TestPersonalCreateTwice(t *testing.T) {
	setup(t)

	assert.Equal(t, "✅ Personal playlist `mix` created!", run(t, alice, false, "!p create mix").last(t).Content)
	assert.Equal(t, "⚠️ You already have a playlist named `mix`.", run(t, alice, false, "!p create mix").last(t).Content)

	// Another member may reuse the name.
	assert.Equal(t, "✅ Personal playlist `mix` created!", run(t, bob, false, "!p create mix").last(t).Content)
}

func TestPersonalAddAndShow(t *testing.T) {
	en := setup(t)
	run(t, alice, false, "!p create mix")

	assert.Equal(t, "Added **Bravo** to your playlist `mix`.", run(t, alice, false, "!p add mix https://youtu.be/b").last(t).Content)
	assert.Equal(t, "Added **Alpha** to your playlist `mix`.", run(t, alice, false, "!p add mix https://youtu.be/a").last(t).Content)
	assert.Equal(t, "That song is already in your playlist `mix`.", run(t, alice, false, "!p add mix https://youtu.be/a").last(t).Content)

	reply := run(t, alice, false, "!p show mix").last(t)
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "🎵 User 11's Playlist: mix", reply.Embed.Title)
	assert.Equal(t, colorPersonal, reply.Embed.Color)

	lines := strings.Split(reply.Embed.Description, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "**Alpha**")
	assert.Contains(t, lines[1], "**Bravo**")

	songs, _, err := en.lib.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, songs)
}

func TestPersonalAddResolveFailureWritesNothing(t *testing.T) {
	en := setup(t)
	run(t, alice, false, "!p create mix")

	assert.Equal(t, sys.MsgSongInfoFailed, run(t, alice, false, "!p add mix https://example.com/nope").last(t).Content)

	songs, _, err := en.lib.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, songs)
}

func TestPersonalAddMissingPlaylistSkipsResolve(t *testing.T) {
	en := setup(t)

	assert.Equal(t, "You don't have a personal playlist named `ghost`.", run(t, alice, false, "!p add ghost https://youtu.be/a").last(t).Content)
	assert.Zero(t, en.resolver.calls)
}

func TestPersonalAddRejectsOptionLikeURL(t *testing.T) {
	en := setup(t)
	run(t, alice, false, "!p create mix")

	for _, line := range []string{
		"!p add mix --exec=pre_process:touch http://x",
		"!p add mix -o /tmp/out https://youtu.be/a",
		"!p add mix ftp://youtu.be/a",
		"!p add mix youtu.be/a",
	} {
		assert.Equal(t, sys.MsgSongInfoFailed, run(t, alice, false, line).last(t).Content, line)
	}
	assert.Zero(t, en.resolver.calls)

	songs, _, err := en.lib.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, songs)
}

func TestPersonalPlaylistsArePrivate(t *testing.T) {
	setup(t)
	run(t, alice, false, "!p create mix")

	assert.Equal(t, "You don't have a personal playlist named `mix`.", run(t, bob, false, "!p show mix").last(t).Content)
	assert.Equal(t, "You have no personal playlists in this server. Use `!p create <name>` to make one!", run(t, bob, false, "!p list").last(t).Content)
}

func TestPersonalListAndDelete(t *testing.T) {
	setup(t)
	run(t, alice, false, "!p create zeta")
	run(t, alice, false, "!p create alpha")

	reply := run(t, alice, false, "!p list").last(t)
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "Your Playlists in Test Guild", reply.Embed.Title)
	assert.Equal(t, "• alpha\n• zeta", reply.Embed.Description)

	assert.Equal(t, "🗑️ Personal playlist `zeta` deleted.", run(t, alice, false, "!p delete zeta").last(t).Content)
	assert.Equal(t, "You don't have a personal playlist named `zeta`.", run(t, alice, false, "!p delete zeta").last(t).Content)
}

func TestPersonalShowEmpty(t *testing.T) {
	setup(t)
	run(t, alice, false, "!p create mix")
	assert.Equal(t, "Playlist `mix` is empty.", run(t, alice, false, "!p show mix").last(t).Content)
}

func TestPlaylistUsageAndInvalid(t *testing.T) {
	setup(t)

	assert.Equal(t, "Usage: `!p create <playlist_name>`", run(t, alice, false, "!p create").last(t).Content)
	assert.Equal(t, "Usage: `!p add <playlist_name> <url>`", run(t, alice, false, "!p add mix").last(t).Content)
	assert.Equal(t, "Invalid personal playlist command. Use `!help p` for more info.", run(t, alice, false, "!p shuffle").last(t).Content)
	assert.Equal(t, "Invalid server playlist command. Use `!help s` for more info.", run(t, alice, false, "!s").last(t).Content)
}

// --- Server playlists ---

func TestServerMutationsNeedManageGuild(t *testing.T) {
	en := setup(t)

	for _, line := range []string{"!s create party", "!s add party https://youtu.be/a", "!s delete party"} {
		assert.Equal(t, sys.ErrPermissionManageGuild, run(t, bob, false, line).last(t).Content, line)
	}
	_, playlists, err := en.lib.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, playlists)
	assert.Zero(t, en.resolver.calls)
}

func TestServerMutationsAllowConfiguredOwner(t *testing.T) {
	setup(t)
	old := sys.GlobalConfig
	sys.GlobalConfig = &sys.Config{OwnerIDs: []string{bob.String()}}
	t.Cleanup(func() { sys.GlobalConfig = old })

	assert.Equal(t, "✅ Server playlist `party` created!", run(t, bob, false, "!s create party").last(t).Content)
	assert.Equal(t, "Added **Alpha** to server playlist `party`.", run(t, bob, false, "!s add party https://youtu.be/a").last(t).Content)
	assert.Equal(t, sys.ErrPermissionManageGuild, run(t, alice, false, "!s delete party").last(t).Content)
	assert.Equal(t, "🗑️ Server playlist `party` deleted.", run(t, bob, false, "!s delete party").last(t).Content)
}

func TestServerPlaylistLifecycle(t *testing.T) {
	setup(t)

	assert.Equal(t, "✅ Server playlist `party` created!", run(t, alice, true, "!s create party").last(t).Content)
	assert.Equal(t, "⚠️ A server playlist named `party` already exists.", run(t, alice, true, "!s create party").last(t).Content)
	assert.Equal(t, "Added **Alpha** to server playlist `party`.", run(t, alice, true, "!s add party https://youtu.be/a").last(t).Content)

	// Reading needs no permission.
	reply := run(t, bob, false, "!s show party").last(t)
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "🎵 Server Playlist: party", reply.Embed.Title)
	assert.Equal(t, colorServer, reply.Embed.Color)

	list := run(t, bob, false, "!s list").last(t)
	require.NotNil(t, list.Embed)
	assert.Equal(t, "• party", list.Embed.Description)

	assert.Equal(t, "🗑️ Server playlist `party` deleted.", run(t, alice, true, "!s delete party").last(t).Content)
	assert.Equal(t, "This server has no playlists. Use `!s create <name>` to make one!", run(t, bob, false, "!s list").last(t).Content)
}

func TestServerAndPersonalNamesDoNotCollide(t *testing.T) {
	setup(t)

	run(t, alice, false, "!p create mix")
	assert.Equal(t, "✅ Server playlist `mix` created!", run(t, alice, true, "!s create mix").last(t).Content)
	assert.Equal(t, "Server playlist `mix` is empty.", run(t, bob, false, "!s show mix").last(t).Content)
}

// --- Helpers ---

func TestSplitArg(t *testing.T) {
	first, rest := splitArg("  add   mix  https://youtu.be/a ")
	assert.Equal(t, "add", first)
	assert.Equal(t, "mix  https://youtu.be/a", rest)

	first, rest = splitArg("list")
	assert.Equal(t, "list", first)
	assert.Empty(t, rest)
}

func TestLimitLines(t *testing.T) {
	line := strings.Repeat("x", 99)
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = line
	}

	out := limitLines(lines)
	assert.Equal(t, 40, strings.Count(out, line))
	assert.True(t, strings.HasSuffix(out, "…and 60 more"))
}
