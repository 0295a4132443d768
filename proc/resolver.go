package proc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

const DefaultResolveTimeout = 30 * time.Second

var (
	ErrNoMetadata = errors.New("yt-dlp returned no metadata")
	ErrInvalidURL = errors.New("not an http(s) url")
)

// ValidateMediaURL accepts a single absolute http or https URL and returns
// it trimmed. Anything yt-dlp could read as an option is rejected.
func ValidateMediaURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "-") || strings.ContainsAny(raw, " \t\r\n") {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidURL)
	}
	return raw, nil
}

// YTDLPResolver resolves media through the yt-dlp binary. Every call is
// bounded by its timeout.
type YTDLPResolver struct {
	timeout time.Duration
}

func NewYTDLPResolver(timeout time.Duration) *YTDLPResolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &YTDLPResolver{timeout: timeout}
}

// Resolve returns the title and canonical page URL of url.
func (r *YTDLPResolver) Resolve(ctx context.Context, url string) (SongInfo, error) {
	url, err := ValidateMediaURL(url)
	if err != nil {
		return SongInfo{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := ytdlp.New().
		Print("%(title)s\t%(webpage_url)s").
		Format("bestaudio").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", "--", url)
	if err != nil {
		return SongInfo{}, fmt.Errorf("resolve %s: %w", url, ytdlpError(res, err))
	}

	title, canonical, ok := parseSongInfo(res.Stdout)
	if !ok {
		return SongInfo{}, fmt.Errorf("resolve %s: %w", url, ErrNoMetadata)
	}
	if canonical == "" {
		canonical = url
	}
	return SongInfo{Title: title, URL: canonical}, nil
}

// StreamURL returns a short-lived direct audio URL for a canonical URL.
func (r *YTDLPResolver) StreamURL(ctx context.Context, url string) (string, error) {
	url, err := ValidateMediaURL(url)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := ytdlp.New().
		Print("%(url)s").
		Format("bestaudio/best").
		NoPlaylist().
		NoCheckFormats().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", "--", url)
	if err != nil {
		return "", fmt.Errorf("stream url %s: %w", url, ytdlpError(res, err))
	}

	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if l = strings.TrimSpace(l); strings.HasPrefix(l, "http") {
			return l, nil
		}
	}
	return "", fmt.Errorf("stream url %s: %w", url, ErrNoMetadata)
}

// parseSongInfo reads the first "title\turl" line. A missing title becomes
// "Unknown Title".
func parseSongInfo(out string) (title, url string, ok bool) {
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		ps := strings.SplitN(l, "\t", 2)
		if len(ps) < 2 {
			continue
		}
		title, url = strings.TrimSpace(ps[0]), strings.TrimSpace(ps[1])
		if title == "" || title == "NA" {
			title = "Unknown Title"
		}
		if url == "NA" {
			url = ""
		}
		return title, url, true
	}
	return "", "", false
}

func ytdlpError(res *ytdlp.Result, err error) error {
	if res == nil {
		return err
	}
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		return err
	}
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		msg = msg[i+1:]
	}
	return fmt.Errorf("%w: %s", err, msg)
}
