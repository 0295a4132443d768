package sys

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLibrary(t *testing.T, lib *Library) {
	t.Helper()
	ctx := context.Background()

	_, err := lib.CreatePlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	_, err = lib.CreatePlaylist(ctx, guildA, Server(), "party")
	require.NoError(t, err)

	mix, err := lib.GetPlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	party, err := lib.GetPlaylist(ctx, guildA, Server(), "party")
	require.NoError(t, err)

	a, err := lib.AddOrGetSong(ctx, "Alpha", "https://youtu.be/a", "alice")
	require.NoError(t, err)
	b, err := lib.AddOrGetSong(ctx, "Bravo", "https://youtu.be/b", "bob")
	require.NoError(t, err)

	for _, m := range [][2]int64{{mix.ID, a}, {mix.ID, b}, {party.ID, a}} {
		_, err := lib.AddSong(ctx, m[0], m[1])
		require.NoError(t, err)
	}
}

func TestArchiveRoundTripIntoEmptyLibrary(t *testing.T) {
	src := newTestLibrary(t)
	seedLibrary(t, src)
	ctx := context.Background()

	archive, err := src.Export(ctx)
	require.NoError(t, err)
	require.Len(t, archive.Playlists, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, archive))
	assert.Contains(t, buf.String(), "[[playlist]]")

	decoded, err := ReadArchive(&buf)
	require.NoError(t, err)

	dst := newTestLibrary(t)
	stats, err := dst.Import(ctx, decoded)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Playlists: 2, CreatedPlaylists: 2, AddedSongs: 3}, stats)

	mix, err := dst.GetPlaylist(ctx, guildA, Personal(userA), "mix")
	require.NoError(t, err)
	require.NotNil(t, mix)
	songs, err := dst.SongsOf(ctx, mix.ID)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "Alpha", songs[0].Title)
	assert.Equal(t, "alice", songs[0].AddedBy)

	// A second import changes nothing.
	stats, err = dst.Import(ctx, decoded)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Playlists: 2}, stats)
}

func TestImportRejectsUnknownScope(t *testing.T) {
	lib := newTestLibrary(t)
	archive, err := ReadArchive(strings.NewReader(`
[[playlist]]
guild_id = "111111111111111111"
scope = "global"
name = "odd"
`))
	require.NoError(t, err)

	_, err = lib.Import(context.Background(), archive)
	assert.ErrorContains(t, err, "unknown scope")
}

func TestReadArchiveRejectsGarbage(t *testing.T) {
	_, err := ReadArchive(strings.NewReader("[[playlist"))
	assert.Error(t, err)
}
