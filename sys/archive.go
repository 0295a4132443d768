package sys

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/disgoorg/snowflake/v2"
)

// Archive is the portable TOML form of every playlist in the library.
type Archive struct {
	ExportedAt time.Time          `toml:"exported_at"`
	Playlists  []ArchivedPlaylist `toml:"playlist"`
}

type ArchivedPlaylist struct {
	GuildID string         `toml:"guild_id"`
	Scope   Scope          `toml:"scope"`
	OwnerID string         `toml:"owner_id,omitempty"`
	Name    string         `toml:"name"`
	Songs   []ArchivedSong `toml:"song"`
}

type ArchivedSong struct {
	Title   string `toml:"title"`
	URL     string `toml:"url"`
	AddedBy string `toml:"added_by,omitempty"`
}

type ImportStats struct {
	Playlists        int
	CreatedPlaylists int
	AddedSongs       int
}

// Export snapshots all playlists, grouped by guild, owner and name.
func (l *Library) Export(ctx context.Context) (*Archive, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, guild_id, scope, owner_id, name FROM playlists
		ORDER BY guild_id, scope, owner_id, name
	`)
	if err != nil {
		return nil, fmt.Errorf("export playlists: %w", err)
	}

	type row struct {
		id int64
		ap ArchivedPlaylist
	}
	var collected []row
	for rows.Next() {
		var r row
		var owner *string
		if err := rows.Scan(&r.id, &r.ap.GuildID, &r.ap.Scope, &owner, &r.ap.Name); err != nil {
			rows.Close()
			return nil, err
		}
		if owner != nil {
			r.ap.OwnerID = *owner
		}
		collected = append(collected, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	archive := &Archive{ExportedAt: time.Now().UTC()}
	for _, r := range collected {
		songs, err := l.SongsOf(ctx, r.id)
		if err != nil {
			return nil, err
		}
		for _, s := range songs {
			r.ap.Songs = append(r.ap.Songs, ArchivedSong{Title: s.Title, URL: s.URL, AddedBy: s.AddedBy})
		}
		archive.Playlists = append(archive.Playlists, r.ap)
	}
	return archive, nil
}

// Import merges an archive into the library. Existing playlists and
// memberships are left alone, so importing twice is harmless.
func (l *Library) Import(ctx context.Context, a *Archive) (ImportStats, error) {
	var stats ImportStats
	for _, ap := range a.Playlists {
		guildID, err := snowflake.Parse(ap.GuildID)
		if err != nil {
			return stats, fmt.Errorf("playlist %q: guild id: %w", ap.Name, err)
		}

		var owner Owner
		switch ap.Scope {
		case ScopeServer:
			owner = Server()
		case ScopePersonal:
			userID, err := snowflake.Parse(ap.OwnerID)
			if err != nil {
				return stats, fmt.Errorf("playlist %q: owner id: %w", ap.Name, err)
			}
			owner = Personal(userID)
		default:
			return stats, fmt.Errorf("playlist %q: unknown scope %q", ap.Name, ap.Scope)
		}

		created, err := l.CreatePlaylist(ctx, guildID, owner, ap.Name)
		if err != nil {
			return stats, err
		}
		stats.Playlists++
		if created {
			stats.CreatedPlaylists++
		}

		p, err := l.GetPlaylist(ctx, guildID, owner, ap.Name)
		if err != nil {
			return stats, err
		}
		if p == nil {
			return stats, fmt.Errorf("playlist %q: %w", ap.Name, ErrPlaylistNotFound)
		}

		for _, s := range ap.Songs {
			songID, err := l.AddOrGetSong(ctx, s.Title, s.URL, s.AddedBy)
			if err != nil {
				return stats, err
			}
			added, err := l.AddSong(ctx, p.ID, songID)
			if err != nil {
				return stats, err
			}
			if added {
				stats.AddedSongs++
			}
		}
	}
	return stats, nil
}

func WriteArchive(w io.Writer, a *Archive) error {
	return toml.NewEncoder(w).Encode(a)
}

func ReadArchive(r io.Reader) (*Archive, error) {
	a := &Archive{}
	if _, err := toml.NewDecoder(r).Decode(a); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return a, nil
}
