package home

import (
	"context"
	"fmt"
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleSessionStatus(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	content := setPresenceVisible(sys.AppContext, data.Bool("visible"))

	err := event.CreateMessage(discord.NewMessageCreate().
		WithContent(content).
		WithEphemeral(true))
	if err != nil {
		sys.LogDebug(sys.MsgSessionStatsRenderFail, err)
	}
}

// setPresenceVisible stores the toggle the presence rotator reads on every
// tick and returns the reply text.
func setPresenceVisible(ctx context.Context, visible bool) string {
	if err := sys.SetBotConfig(ctx, proc.ConfigKeyPresenceVisible, strconv.FormatBool(visible)); err != nil {
		sys.LogWarn(sys.MsgSessionStatusFail, err)
		return fmt.Sprintf(sys.MsgSessionStatusFail, err)
	}
	if visible {
		return sys.MsgSessionStatusOn
	}
	return sys.MsgSessionStatusOff
}
