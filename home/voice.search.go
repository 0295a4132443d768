package home

import (
	"fmt"
	"strings"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicSearch(e *sys.CommandEvent) {
	query := strings.TrimSpace(e.Args)
	if query == "" {
		e.Reply(sys.MsgUsage, e.Prefix, "search <terms>")
		return
	}

	results, err := deps.Searcher.Search(e.Ctx, query)
	if err != nil {
		replyFailure(e, err)
		return
	}
	if len(results) == 0 {
		e.Reply(sys.MsgSearchNoResults, query)
		return
	}

	lines := make([]string, 0, len(results))
	for i, r := range results {
		suffix := ""
		if r.Artist != "" {
			suffix = " - " + r.Artist
		}
		title := proc.TruncateWithPreserve(r.Title, 100, "", suffix)
		lines = append(lines, fmt.Sprintf("`%d.` **%s**\n<%s>", i+1, title, r.URL))
	}
	e.ReplyEmbed(fmt.Sprintf(sys.MsgSearchTitle, query), limitLines(lines), colorPersonal)
}
