package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrInvalidName      = errors.New("playlist name must not be blank")
)

// Scope discriminates personal playlists from server-wide ones.
type Scope string

const (
	ScopePersonal Scope = "personal"
	ScopeServer   Scope = "server"
)

// Owner is either Personal(user) or Server(). The zero value is not valid.
type Owner struct {
	scope  Scope
	userID snowflake.ID
}

func Personal(userID snowflake.ID) Owner {
	return Owner{scope: ScopePersonal, userID: userID}
}

func Server() Owner {
	return Owner{scope: ScopeServer}
}

func (o Owner) Scope() Scope { return o.scope }

func (o Owner) IsServer() bool { return o.scope == ScopeServer }

// UserID returns the owning user of a personal playlist.
func (o Owner) UserID() (snowflake.ID, bool) {
	if o.scope != ScopePersonal {
		return 0, false
	}
	return o.userID, true
}

func (o Owner) String() string {
	if o.scope == ScopePersonal {
		return "personal:" + o.userID.String()
	}
	return string(o.scope)
}

// ownerArg is the owner_id column value; server playlists store NULL.
func (o Owner) ownerArg() any {
	if o.scope == ScopePersonal {
		return o.userID.String()
	}
	return nil
}

func (o Owner) valid() bool {
	return o.scope == ScopeServer || (o.scope == ScopePersonal && o.userID != 0)
}

type Playlist struct {
	ID      int64
	GuildID snowflake.ID
	Owner   Owner
	Name    string
}

type Song struct {
	ID      int64
	Title   string
	URL     string
	AddedBy string
}

// Library is the song catalog plus the playlist store.
type Library struct {
	db *sql.DB
}

func NewLibrary(db *sql.DB) *Library {
	return &Library{db: db}
}

// --- Song Catalog ---

// AddOrGetSong returns the id of the song stored under url, inserting it on
// first sight. The first writer's title and submitter are kept.
func (l *Library) AddOrGetSong(ctx context.Context, title, url, addedBy string) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO songs (title, url, added_by_name) VALUES (?, ?, ?)`,
		title, url, addedBy)
	if err != nil {
		return 0, fmt.Errorf("insert song: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		if id, err := res.LastInsertId(); err == nil {
			return id, nil
		}
	}

	var id int64
	if err := l.db.QueryRowContext(ctx, `SELECT id FROM songs WHERE url = ?`, url).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup song: %w", err)
	}
	return id, nil
}

// GetSongByURL returns nil when the url has never been cataloged.
func (l *Library) GetSongByURL(ctx context.Context, url string) (*Song, error) {
	s := &Song{}
	var addedBy sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT id, title, url, added_by_name FROM songs WHERE url = ?`, url).
		Scan(&s.ID, &s.Title, &s.URL, &addedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup song: %w", err)
	}
	s.AddedBy = addedBy.String
	return s, nil
}

// --- Playlist Store ---

// CreatePlaylist reports false when (guild, owner, name) is already taken.
func (l *Library) CreatePlaylist(ctx context.Context, guildID snowflake.ID, owner Owner, name string) (bool, error) {
	if name == "" {
		return false, ErrInvalidName
	}
	if !owner.valid() {
		return false, fmt.Errorf("create playlist: invalid owner %q", owner)
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO playlists (guild_id, scope, owner_id, name) VALUES (?, ?, ?, ?)`,
		guildID.String(), string(owner.scope), owner.ownerArg(), name)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create playlist: %w", err)
	}
	LogLibrary(MsgLibraryPlaylistCreated, owner.scope, name, guildID)
	return true, nil
}

// GetPlaylist matches the owner exactly: Server() never matches a personal
// playlist and vice versa. Absent playlists yield nil, nil.
func (l *Library) GetPlaylist(ctx context.Context, guildID snowflake.ID, owner Owner, name string) (*Playlist, error) {
	var id int64
	err := l.db.QueryRowContext(ctx, `
		SELECT id FROM playlists
		WHERE guild_id = ? AND scope = ? AND owner_id IS ? AND name = ?
	`, guildID.String(), string(owner.scope), owner.ownerArg(), name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return &Playlist{ID: id, GuildID: guildID, Owner: owner, Name: name}, nil
}

// ListPlaylists returns playlist names for one owner, alphabetically.
func (l *Library) ListPlaylists(ctx context.Context, guildID snowflake.ID, owner Owner) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT name FROM playlists
		WHERE guild_id = ? AND scope = ? AND owner_id IS ?
		ORDER BY name
	`, guildID.String(), string(owner.scope), owner.ownerArg())
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddSong reports false when the song is already a member.
func (l *Library) AddSong(ctx context.Context, playlistID, songID int64) (bool, error) {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO playlist_songs (playlist_id, song_id) VALUES (?, ?)`, playlistID, songID)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add song to playlist: %w", err)
	}
	LogLibrary(MsgLibrarySongAdded, songID, playlistID)
	return true, nil
}

// SongsOf lists a playlist's songs ordered by title, ties by id.
func (l *Library) SongsOf(ctx context.Context, playlistID int64) ([]Song, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.url, s.added_by_name
		FROM songs s
		JOIN playlist_songs ps ON s.id = ps.song_id
		WHERE ps.playlist_id = ?
		ORDER BY s.title, s.id
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		var s Song
		var addedBy sql.NullString
		if err := rows.Scan(&s.ID, &s.Title, &s.URL, &addedBy); err != nil {
			return nil, err
		}
		s.AddedBy = addedBy.String
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// DeletePlaylist removes the playlist and its memberships. Songs stay in the
// catalog.
func (l *Library) DeletePlaylist(ctx context.Context, guildID snowflake.ID, owner Owner, name string) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM playlists
		WHERE guild_id = ? AND scope = ? AND owner_id IS ? AND name = ?
	`, guildID.String(), string(owner.scope), owner.ownerArg(), name).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete playlist: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_songs WHERE playlist_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete playlist songs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete playlist: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	LogLibrary(MsgLibraryPlaylistDeleted, owner.scope, name, guildID)
	return true, nil
}

// Counts returns the catalog size and the number of playlists.
func (l *Library) Counts(ctx context.Context) (songs, playlists int, err error) {
	err = l.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM songs), (SELECT COUNT(*) FROM playlists)`).
		Scan(&songs, &playlists)
	return songs, playlists, err
}

// DB exposes the underlying handle for health checks.
func (l *Library) DB() *sql.DB { return l.db }

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
