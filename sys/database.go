package sys

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bot_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		added_by_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		scope TEXT NOT NULL DEFAULT 'personal' CHECK (scope IN ('personal', 'server')),
		owner_id TEXT,
		name TEXT NOT NULL,
		CHECK ((scope = 'server' AND owner_id IS NULL) OR (scope = 'personal' AND owner_id IS NOT NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_songs (
		playlist_id INTEGER NOT NULL,
		song_id INTEGER NOT NULL,
		PRIMARY KEY (playlist_id, song_id),
		FOREIGN KEY (playlist_id) REFERENCES playlists (id) ON DELETE CASCADE,
		FOREIGN KEY (song_id) REFERENCES songs (id)
	)`,
}

// Indexes are created after migrations so that databases written by the
// older nullable-owner schema pick up the scope column first.
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_playlists_identity
		ON playlists (guild_id, scope, IFNULL(owner_id, ''), name)`,
	`CREATE INDEX IF NOT EXISTS idx_playlist_songs_song ON playlist_songs (song_id)`,
}

// OpenDatabase opens a SQLite handle, applies pragmas, and brings the schema
// up to date.
func OpenDatabase(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
		"PRAGMA foreign_keys=ON;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := db.ExecContext(initCtx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	if err := migrate(initCtx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDatabase opens the process-wide handle.
func InitDatabase(ctx context.Context, dataSourceName string) error {
	db, err := OpenDatabase(ctx, dataSourceName)
	if err != nil {
		return err
	}
	DB = db
	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range schema {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	// Playlists created before owners had an explicit scope stored a NULL
	// owner for server playlists and carried a UNIQUE(guild_id, owner_id, name)
	// that SQLite never enforced for NULL owners.
	hasScope, err := columnExists(ctx, tx, "playlists", "scope")
	if err != nil {
		return err
	}
	if !hasScope {
		steps := []string{
			`ALTER TABLE playlists ADD COLUMN scope TEXT NOT NULL DEFAULT 'personal'`,
			`UPDATE playlists SET scope = 'server' WHERE owner_id IS NULL`,
			`DELETE FROM playlists WHERE scope = 'server' AND id NOT IN (
				SELECT MIN(id) FROM playlists WHERE scope = 'server' GROUP BY guild_id, name
			)`,
			`DELETE FROM playlist_songs WHERE playlist_id NOT IN (SELECT id FROM playlists)`,
		}
		for _, q := range steps {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("migrate playlists scope: %w", err)
			}
		}
		LogDatabase(MsgDatabaseMigrated, "playlists.scope")
	}

	for _, q := range indexes {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	return tx.Commit()
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// --- Bot Persistence ---

// GetBotConfig reads a loader bookkeeping value; missing keys yield "".
func GetBotConfig(ctx context.Context, key string) (string, error) {
	if DB == nil {
		return "", nil
	}
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	if DB == nil {
		return nil
	}
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// PingDatabase measures a trivial round trip.
func PingDatabase(ctx context.Context, db *sql.DB) (time.Duration, error) {
	start := time.Now()
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
