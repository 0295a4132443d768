package sys

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guildA = snowflake.ID(111111111111111111)
	guildB = snowflake.ID(222222222222222222)
	userA  = snowflake.ID(333333333333333333)
	userB  = snowflake.ID(444444444444444444)
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	db, err := OpenDatabase(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLibrary(db)
}

func TestAddOrGetSongKeepsFirstWriter(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	id1, err := lib.AddOrGetSong(ctx, "First Title", "https://youtu.be/x", "alice")
	require.NoError(t, err)
	id2, err := lib.AddOrGetSong(ctx, "Second Title", "https://youtu.be/x", "bob")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	song, err := lib.GetSongByURL(ctx, "https://youtu.be/x")
	require.NoError(t, err)
	require.NotNil(t, song)
	assert.Equal(t, "First Title", song.Title)
	assert.Equal(t, "alice", song.AddedBy)

	missing, err := lib.GetSongByURL(ctx, "https://youtu.be/none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreatePlaylistUniqueness(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	cases := []struct {
		guild snowflake.ID
		owner Owner
		want  bool
	}{
		{guildA, Personal(userA), true},
		{guildA, Personal(userA), false},
		{guildA, Personal(userB), true},
		{guildB, Personal(userA), true},
		{guildA, Server(), true},
		{guildA, Server(), false},
		{guildB, Server(), true},
	}
	for i, tc := range cases {
		created, err := lib.CreatePlaylist(ctx, tc.guild, tc.owner, "mix")
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, tc.want, created, "case %d: %s in %s", i, tc.owner, tc.guild)
	}
}

func TestCreatePlaylistRejectsBadInput(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.CreatePlaylist(ctx, guildA, Personal(userA), "")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = lib.CreatePlaylist(ctx, guildA, Owner{}, "mix")
	assert.Error(t, err)
}

func TestGetPlaylistMatchesOwnerExactly(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.CreatePlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)

	p, err := lib.GetPlaylist(ctx, guildA, Server(), "mix")
	require.NoError(t, err)
	assert.Nil(t, p, "server lookup must not see personal playlists")

	p, err = lib.GetPlaylist(ctx, guildA, Personal(userB), "mix")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = lib.GetPlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "mix", p.Name)
	assert.Equal(t, guildA, p.GuildID)
}

func TestAddSongMembershipIsIdempotent(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.CreatePlaylist(ctx, guildA, Server(), "party")
	require.NoError(t, err)
	p, err := lib.GetPlaylist(ctx, guildA, Server(), "party")
	require.NoError(t, err)

	songID, err := lib.AddOrGetSong(ctx, "Song", "https://youtu.be/s", "alice")
	require.NoError(t, err)

	added, err := lib.AddSong(ctx, p.ID, songID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = lib.AddSong(ctx, p.ID, songID)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestSongsOfOrdersByTitle(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.CreatePlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	p, err := lib.GetPlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)

	for _, s := range []struct{ title, url string }{
		{"Zebra", "https://youtu.be/z"},
		{"Apple", "https://youtu.be/a"},
		{"Mango", "https://youtu.be/m"},
	} {
		id, err := lib.AddOrGetSong(ctx, s.title, s.url, "alice")
		require.NoError(t, err)
		_, err = lib.AddSong(ctx, p.ID, id)
		require.NoError(t, err)
	}

	songs, err := lib.SongsOf(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, songs, 3)
	assert.Equal(t, "Apple", songs[0].Title)
	assert.Equal(t, "Mango", songs[1].Title)
	assert.Equal(t, "Zebra", songs[2].Title)
}

func TestListPlaylistsPerOwner(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	for _, name := range []string{"rock", "jazz"} {
		_, err := lib.CreatePlaylist(ctx, guildA, Personal(userA), name)
		require.NoError(t, err)
	}
	_, err := lib.CreatePlaylist(ctx, guildA, Server(), "party")
	require.NoError(t, err)

	names, err := lib.ListPlaylists(ctx, guildA, Personal(userA))
	require.NoError(t, err)
	assert.Equal(t, []string{"jazz", "rock"}, names)

	names, err = lib.ListPlaylists(ctx, guildA, Server())
	require.NoError(t, err)
	assert.Equal(t, []string{"party"}, names)

	names, err = lib.ListPlaylists(ctx, guildB, Personal(userA))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDeletePlaylistKeepsCatalog(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.CreatePlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	p, err := lib.GetPlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	songID, err := lib.AddOrGetSong(ctx, "Song", "https://youtu.be/s", "alice")
	require.NoError(t, err)
	_, err = lib.AddSong(ctx, p.ID, songID)
	require.NoError(t, err)

	removed, err := lib.DeletePlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = lib.DeletePlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	assert.False(t, removed)

	songs, playlists, err := lib.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, songs)
	assert.Zero(t, playlists)

	var memberships int
	require.NoError(t, lib.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_songs`).Scan(&memberships))
	assert.Zero(t, memberships)

	// The name is free again.
	created, err := lib.CreatePlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestOwner(t *testing.T) {
	id, ok := Personal(userA).UserID()
	assert.True(t, ok)
	assert.Equal(t, userA, id)

	_, ok = Server().UserID()
	assert.False(t, ok)
	assert.True(t, Server().IsServer())
	assert.Equal(t, "server", Server().String())
	assert.Equal(t, "personal:"+userA.String(), Personal(userA).String())
}
