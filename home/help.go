package home

import (
	"fmt"
	"strings"

	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterPrefixCommand(sys.PrefixCommand{
		Name:    "help",
		Usage:   "help [command]",
		Help:    "Shows this message.",
		Handler: handleHelp,
	})
}

func handleHelp(e *sys.CommandEvent) {
	topic := strings.ToLower(strings.TrimSpace(e.Args))
	if topic != "" {
		cmd, ok := sys.LookupPrefixCommand(strings.TrimPrefix(topic, e.Prefix))
		if !ok {
			e.Reply(sys.MsgUnknownHelpTopic, topic)
			return
		}
		desc := fmt.Sprintf(sys.MsgUsage, e.Prefix, cmd.Usage) + "\n\n" + cmd.Help
		if len(cmd.Aliases) > 0 {
			desc += "\nAliases: " + e.Prefix + strings.Join(cmd.Aliases, ", "+e.Prefix)
		}
		e.ReplyEmbed(e.Prefix+cmd.Name, desc, colorServer)
		return
	}

	var lines []string
	for _, cmd := range sys.PrefixCommands() {
		summary, _, _ := strings.Cut(cmd.Help, "\n")
		lines = append(lines, fmt.Sprintf("`%s%s` %s", e.Prefix, cmd.Name, summary))
	}
	lines = append(lines, "", fmt.Sprintf(sys.MsgHelpFooter, e.Prefix))
	e.ReplyEmbed(sys.MsgHelpTitle, limitLines(lines), colorServer)
}
