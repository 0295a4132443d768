package proc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateCenter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"center", "abcdefghijkl", 9, "abc...jkl"},
		{"tiny", "abcdef", 2, "ab"},
		{"runes", "ääääääääää", 7, "ää...ää"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateCenter(tt.in, tt.max))
		})
	}
}

func TestTruncateWithPreserve(t *testing.T) {
	got := TruncateWithPreserve("a very long song title indeed", 24, "", " - Band")
	assert.True(t, len([]rune(got)) <= 24)
	assert.Contains(t, got, " - Band")

	assert.Equal(t, "x - y", TruncateWithPreserve("x", 40, "", " - y"))
}

func TestMergeResultsDedupesByVideo(t *testing.T) {
	music := []SearchResult{
		{Title: "One", URL: "https://music.youtube.com/watch?v=aaa"},
		{Title: "Two", URL: "https://music.youtube.com/watch?v=bbb"},
	}
	videos := []SearchResult{
		{Title: "One (video)", URL: "https://www.youtube.com/watch?v=aaa&t=3"},
		{Title: "Three", URL: "https://www.youtube.com/watch?v=ccc"},
	}

	got := mergeResults(10, music, videos)
	require.Len(t, got, 3)
	assert.Equal(t, "One", got[0].Title)
	assert.Equal(t, "Two", got[1].Title)
	assert.Equal(t, "Three", got[2].Title)

	assert.Len(t, mergeResults(2, music, videos), 2)
}

func TestYouTubeSearcherOrdersMusicFirst(t *testing.T) {
	s := &YouTubeSearcher{
		music: func(q string) []SearchResult {
			return []SearchResult{{Title: "m:" + q, URL: "https://music.youtube.com/watch?v=1"}}
		},
		video: func(ctx context.Context, q string) []SearchResult {
			return []SearchResult{{Title: "v:" + q, URL: "https://www.youtube.com/watch?v=2"}}
		},
	}

	got, err := s.Search(context.Background(), "  lofi  ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m:lofi", got[0].Title)
	assert.Equal(t, "v:lofi", got[1].Title)

	empty, err := s.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestYouTubeSearcherReturnsWhatArrivedBeforeDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s := &YouTubeSearcher{
		music: func(q string) []SearchResult {
			<-release
			return []SearchResult{{Title: "late", URL: "https://music.youtube.com/watch?v=1"}}
		},
		video: func(ctx context.Context, q string) []SearchResult {
			return []SearchResult{{Title: "fast", URL: "https://www.youtube.com/watch?v=2"}}
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	got, err := s.Search(ctx, "q")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fast", got[0].Title)
}

func TestParseSongInfo(t *testing.T) {
	title, url, ok := parseSongInfo("Song Title\thttps://www.youtube.com/watch?v=abc\n")
	require.True(t, ok)
	assert.Equal(t, "Song Title", title)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", url)

	title, url, ok = parseSongInfo("NA\tNA")
	require.True(t, ok)
	assert.Equal(t, "Unknown Title", title)
	assert.Empty(t, url)

	_, _, ok = parseSongInfo("")
	assert.False(t, ok)
}
