package home

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/sys"
)

const (
	statsAnsiReset    = "\u001b[0m"
	statsAnsiPink     = "\u001b[35m"
	statsAnsiPinkBold = "\u001b[35;1m"
)

type statsMetrics struct {
	GatewayPing   time.Duration
	DBLatency     time.Duration
	DBError       error
	VoiceSessions int
	Songs         int
	Playlists     int
	Uptime        time.Duration
	HeapMB        float64
	SysMB         float64
	Goroutines    int
}

func statsTitle(text string) string {
	return statsAnsiPink + text + statsAnsiReset
}

func statsLine(key, val string) string {
	return fmt.Sprintf("%s> %s:%s %s%s%s", statsAnsiPink, key, statsAnsiReset, statsAnsiPinkBold, val, statsAnsiReset)
}

func handleSessionStats(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	ephemeral := true
	if eph, ok := data.OptBool("ephemeral"); ok {
		ephemeral = eph
	}

	ctx, cancel := context.WithTimeout(sys.AppContext, 5*time.Second)
	defer cancel()

	m := collectStats(ctx)
	m.GatewayPing = event.Client().Gateway.Latency()

	err := event.CreateMessage(discord.NewMessageCreate().
		WithContent(renderStatsContent(m)).
		WithEphemeral(ephemeral))
	if err != nil {
		sys.LogDebug(sys.MsgSessionStatsRenderFail, err)
	}
}

func collectStats(ctx context.Context) statsMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := statsMetrics{
		Uptime:     time.Since(sys.StartupTime),
		HeapMB:     float64(mem.HeapAlloc) / 1024 / 1024,
		SysMB:      float64(mem.Sys) / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
	}
	if deps.Player != nil {
		m.VoiceSessions = deps.Player.SessionCount()
	}
	if deps.Library != nil {
		m.DBLatency, m.DBError = sys.PingDatabase(ctx, deps.Library.DB())
		if m.DBError == nil {
			m.Songs, m.Playlists, m.DBError = deps.Library.Counts(ctx)
		}
	}
	return m
}

func renderStatsContent(m statsMetrics) string {
	days := int(m.Uptime.Hours()) / 24
	hours := int(m.Uptime.Hours()) % 24
	minutes := int(m.Uptime.Minutes()) % 60

	lines := []string{
		statsTitle("System"),
		statsLine("Platform", runtime.GOOS+" "+runtime.GOARCH),
		statsLine("Go Version", runtime.Version()),
		statsLine("Memory", fmt.Sprintf("%.2f MB / %.2f MB (Sys)", m.HeapMB, m.SysMB)),
		statsLine("Goroutines", fmt.Sprintf("%d", m.Goroutines)),
		"",
		statsTitle(sys.MsgSessionStatsTitle),
		statsLine("Uptime", fmt.Sprintf("%dd %dh %dm", days, hours, minutes)),
		statsLine("Voice Sessions", fmt.Sprintf("%d", m.VoiceSessions)),
	}
	if m.GatewayPing > 0 {
		lines = append(lines, statsLine("Gateway", fmt.Sprintf("%dms", m.GatewayPing.Milliseconds())))
	}
	if m.DBError != nil {
		lines = append(lines, statsLine("Database", "unavailable"))
	} else {
		lines = append(lines,
			statsLine("Database", fmt.Sprintf("%.2fms", float64(m.DBLatency.Microseconds())/1000.0)),
			statsLine("Songs", fmt.Sprintf("%d", m.Songs)),
			statsLine("Playlists", fmt.Sprintf("%d", m.Playlists)),
		)
	}
	return fmt.Sprintf("```ansi\n%s\n```", strings.Join(lines, "\n"))
}
