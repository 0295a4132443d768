package sys

import (
	"context"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// channelReplier posts replies into a text channel without pinging anyone.
type channelReplier struct {
	client    *bot.Client
	channelID snowflake.ID
}

func (r channelReplier) Reply(ctx context.Context, rep Reply) error {
	msg := discord.MessageCreate{
		Content:         rep.Content,
		AllowedMentions: &discord.AllowedMentions{},
	}
	if rep.Embed != nil {
		msg.Embeds = []discord.Embed{{
			Title:       rep.Embed.Title,
			Description: rep.Embed.Description,
			Color:       rep.Embed.Color,
		}}
	}
	_, err := r.client.Rest.CreateMessage(r.channelID, msg, rest.WithCtx(ctx))
	return err
}

// ChannelNotifier sends unsolicited messages, such as the idle disconnect
// notice, to a text channel.
type ChannelNotifier struct {
	client *bot.Client
}

func NewChannelNotifier(client *bot.Client) *ChannelNotifier {
	return &ChannelNotifier{client: client}
}

func (n *ChannelNotifier) Notify(ctx context.Context, channelID snowflake.ID, content string) error {
	return channelReplier{client: n.client, channelID: channelID}.Reply(ctx, Reply{Content: content})
}

// NewCommandEvent builds a CommandEvent from a guild message, resolving the
// author's voice channel and guild-level permissions from the cache.
func NewCommandEvent(ctx context.Context, event *events.GuildMessageCreate, name, args, prefix string) *CommandEvent {
	client := event.Client()
	author := event.Message.Author

	e := &CommandEvent{
		Ctx:         ctx,
		GuildID:     event.GuildID,
		ChannelID:   event.ChannelID,
		UserID:      author.ID,
		UserName:    author.Username,
		DisplayName: author.EffectiveName(),
		Name:        name,
		Args:        args,
		Prefix:      prefix,
		Replier:     channelReplier{client: client, channelID: event.ChannelID},
	}

	if guild, ok := client.Caches.Guild(event.GuildID); ok {
		e.GuildName = guild.Name
	}

	if vs, ok := client.Caches.VoiceState(event.GuildID, author.ID); ok && vs.ChannelID != nil {
		channelID := *vs.ChannelID
		e.VoiceChannelID = &channelID
	}

	var roleIDs []snowflake.ID
	if member, ok := client.Caches.Member(event.GuildID, author.ID); ok {
		roleIDs = member.RoleIDs
		if member.Nick != nil && *member.Nick != "" {
			e.DisplayName = *member.Nick
		}
	} else if event.Message.Member != nil {
		roleIDs = event.Message.Member.RoleIDs
	}
	perms := GuildPermissions(client, event.GuildID, author.ID, roleIDs)
	e.CanManageGuild = perms.Has(discord.PermissionManageGuild)

	return e
}

// GuildPermissions computes guild-wide permissions without channel
// overwrites.
func GuildPermissions(client *bot.Client, guildID, userID snowflake.ID, roleIDs []snowflake.ID) discord.Permissions {
	guild, ok := client.Caches.Guild(guildID)
	if !ok {
		return 0
	}

	if guild.OwnerID == userID {
		return discord.PermissionsAll
	}

	var perms discord.Permissions
	if everyoneRole, ok := client.Caches.Role(guild.ID, guild.ID); ok {
		perms |= everyoneRole.Permissions
	}
	for _, roleID := range roleIDs {
		if role, ok := client.Caches.Role(guild.ID, roleID); ok {
			perms |= role.Permissions
		}
	}

	if perms.Has(discord.PermissionAdministrator) {
		return discord.PermissionsAll
	}
	return perms
}
