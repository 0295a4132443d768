package proc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/jukebox/sys"
)

// ConfigKeyPresenceVisible turns the rotating status off when set to "false".
const ConfigKeyPresenceVisible = "status_visible"

// StatusSource yields one candidate status text. Empty means skip it.
type StatusSource func(ctx context.Context) string

// PresenceRotator cycles the bot's "Listening to ..." activity.
type PresenceRotator struct {
	client   *bot.Client
	sources  []StatusSource
	interval func() time.Duration
	pick     func(n int) int
	last     string
}

func NewPresenceRotator(client *bot.Client, sources ...StatusSource) *PresenceRotator {
	return &PresenceRotator{
		client:  client,
		sources: sources,
		interval: func() time.Duration {
			return time.Duration(30+rand.IntN(31)) * time.Second
		},
		pick: rand.IntN,
	}
}

func (r *PresenceRotator) Run(ctx context.Context) {
	for {
		next := r.interval()
		r.update(ctx, next)
		select {
		case <-time.After(next):
		case <-ctx.Done():
			return
		}
	}
}

func (r *PresenceRotator) update(ctx context.Context, next time.Duration) {
	if visible, err := sys.GetBotConfig(ctx, ConfigKeyPresenceVisible); err != nil || visible == "false" {
		_ = r.client.SetPresence(ctx, gateway.WithOnlineStatus(discord.OnlineStatusOnline))
		return
	}

	text := r.next(ctx)
	if text == "" {
		return
	}
	err := r.client.SetPresence(ctx,
		gateway.WithOnlineStatus(discord.OnlineStatusOnline),
		gateway.WithListeningActivity(text),
	)
	if err != nil {
		sys.LogWarn(sys.MsgPresenceUpdateFail, err)
		return
	}
	sys.LogDebug(sys.MsgPresenceRotated, text, next)
}

// next picks a status other than the previous one when there is a choice.
func (r *PresenceRotator) next(ctx context.Context) string {
	var available []string
	for _, src := range r.sources {
		if text := src(ctx); text != "" {
			available = append(available, text)
		}
	}
	if len(available) == 0 {
		return ""
	}

	choices := make([]string, 0, len(available))
	for _, s := range available {
		if s != r.last {
			choices = append(choices, s)
		}
	}
	if len(choices) == 0 {
		choices = available
	}
	r.last = choices[r.pick(len(choices))]
	return r.last
}

// Sources

func SessionsStatus(counter interface{ SessionCount() int }) StatusSource {
	return func(context.Context) string {
		switch n := counter.SessionCount(); n {
		case 0:
			return ""
		case 1:
			return "music in 1 server"
		default:
			return fmt.Sprintf("music in %d servers", n)
		}
	}
}

func LibraryStatus(lib *sys.Library) StatusSource {
	return func(ctx context.Context) string {
		songs, playlists, err := lib.Counts(ctx)
		if err != nil || songs == 0 {
			return ""
		}
		return fmt.Sprintf("%d songs in %d playlists", songs, playlists)
	}
}

func UptimeStatus(since time.Time) StatusSource {
	return func(context.Context) string {
		uptime := time.Since(since)
		return fmt.Sprintf("for %dh %dm", int(uptime.Hours()), int(uptime.Minutes())%60)
	}
}

func HelpStatus(prefix string) StatusSource {
	return func(context.Context) string {
		return prefix + "help"
	}
}
