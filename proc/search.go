package proc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

const (
	searchTimeout  = 2600 * time.Millisecond
	MaxSearchHits  = 10
	searchTitleLen = 90
)

type SearchResult struct {
	Title  string
	Artist string
	URL    string
}

// Searcher looks up playable URLs from free text.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// YouTubeSearcher queries YouTube Music and YouTube in parallel, music
// results first, deduplicated by video id.
type YouTubeSearcher struct {
	music func(query string) []SearchResult
	video func(ctx context.Context, query string) []SearchResult
}

func NewYouTubeSearcher() *YouTubeSearcher {
	return &YouTubeSearcher{music: searchMusic, video: searchVideos}
}

func (s *YouTubeSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var mu sync.Mutex
	var ytm, yt []SearchResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r := s.music(query)
		mu.Lock()
		ytm = r
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		r := s.video(ctx, query)
		mu.Lock()
		yt = r
		mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	return mergeResults(MaxSearchHits, ytm, yt), nil
}

// mergeResults concatenates result lists, dropping repeated videos, keeping
// at most limit entries.
func mergeResults(limit int, lists ...[]SearchResult) []SearchResult {
	seen := make(map[string]bool)
	var out []SearchResult
	for _, l := range lists {
		for _, r := range l {
			if len(out) >= limit {
				return out
			}
			id := videoID(r.URL)
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, r)
		}
	}
	return out
}

func videoID(url string) string {
	if i := strings.Index(url, "v="); i >= 0 {
		id := url[i+2:]
		if j := strings.IndexByte(id, '&'); j >= 0 {
			id = id[:j]
		}
		return id
	}
	return url
}

func searchMusic(query string) []SearchResult {
	r, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil
	}
	var out []SearchResult
	for _, v := range r.Tracks {
		if v.VideoID == "" {
			continue
		}
		artist := ""
		if len(v.Artists) > 0 {
			artist = v.Artists[0].Name
		}
		out = append(out, SearchResult{
			Title:  TruncateCenter(v.Title, searchTitleLen),
			Artist: artist,
			URL:    "https://music.youtube.com/watch?v=" + v.VideoID,
		})
	}
	return out
}

func searchVideos(ctx context.Context, query string) []SearchResult {
	r, err := ytsearch.NewClient(nil).Search(ctx, query)
	if err != nil {
		return nil
	}
	var out []SearchResult
	for _, v := range r.Results {
		if v.VideoID == "" {
			continue
		}
		out = append(out, SearchResult{
			Title: TruncateCenter(v.Title, searchTitleLen),
			URL:   "https://www.youtube.com/watch?v=" + v.VideoID,
		})
	}
	return out
}

// TruncateCenter truncates a string keeping both the start and end.
func TruncateCenter(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	k := (maxLen - 3) / 2
	return string(r[:k]) + "..." + string(r[len(r)-k:])
}

// TruncateWithPreserve truncates text while keeping prefix and suffix whole.
func TruncateWithPreserve(text string, maxLen int, prefix, suffix string) string {
	fixedLen := len([]rune(prefix)) + len([]rune(suffix))
	if fixedLen >= maxLen-10 {
		return TruncateCenter(prefix+text+suffix, maxLen)
	}
	return prefix + TruncateCenter(text, maxLen-fixedLen) + suffix
}
