package transcript

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"discord-archive/utils"
)

// ExportSQLite writes the transcript into a queryable SQLite database. The
// append log stays the source of truth; the database is a derived artifact
// and is rebuilt from scratch on every export.
func (t *Transcript) ExportSQLite(dbPath string) error {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := t.insertAll(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	utils.Infof("transcript", "sqlite", "exported %d messages, %d users, %d channels to %s",
		len(t.ordered), len(t.Users), len(t.Channels), dbPath)
	return nil
}

func createTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS servers (
            server_id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            owner_id INTEGER,
            member_count INTEGER
        );`,
		`CREATE TABLE IF NOT EXISTS channels (
            channel_id INTEGER PRIMARY KEY,
            server_id INTEGER,
            name TEXT,
            type TEXT NOT NULL,
            topic TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            user_id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            display_name TEXT,
            nick TEXT,
            bot INTEGER DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            message_id INTEGER PRIMARY KEY,
            channel_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            timestamp REAL NOT NULL,
            edited_timestamp REAL,
            content TEXT NOT NULL,
            rendered_content TEXT NOT NULL,
            attachments TEXT DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS reactions (
            message_id INTEGER NOT NULL,
            emoji TEXT NOT NULL,
            count INTEGER NOT NULL,
            user_ids TEXT DEFAULT '',
            PRIMARY KEY (message_id, emoji)
        );`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_messages_channel_timestamp ON messages(channel_id, timestamp);",
		"CREATE INDEX IF NOT EXISTS idx_messages_user_timestamp ON messages(user_id, timestamp);",
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			utils.Warn("transcript", "sqlite", fmt.Sprintf("failed to create index: %v", err))
		}
	}
	return nil
}

func (t *Transcript) insertAll(tx *sql.Tx) error {
	for _, s := range t.Servers {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO servers (server_id, name, owner_id, member_count) VALUES (?, ?, ?, ?)`,
			s.ID, s.Name, s.Owner, s.MemberCount); err != nil {
			return fmt.Errorf("failed to insert server %d: %w", s.ID, err)
		}
	}
	for _, c := range t.Channels {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO channels (channel_id, server_id, name, type, topic) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Server, c.Name, c.Type, c.Topic); err != nil {
			return fmt.Errorf("failed to insert channel %d: %w", c.ID, err)
		}
	}
	for _, u := range t.Users {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO users (user_id, name, display_name, nick, bot) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.DisplayName, u.Nick, u.Bot); err != nil {
			return fmt.Errorf("failed to insert user %d: %w", u.ID, err)
		}
	}
	for _, m := range t.Messages() {
		attachments := ""
		if len(m.Attachments) > 0 {
			data, err := json.Marshal(m.Attachments)
			if err != nil {
				return fmt.Errorf("failed to marshal attachments of %d: %w", m.ID, err)
			}
			attachments = string(data)
		}
		var edited any
		if m.EditedTimestamp != 0 {
			edited = m.EditedTimestamp
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO messages
             (message_id, channel_id, user_id, timestamp, edited_timestamp, content, rendered_content, attachments)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Channel, m.Author, m.Timestamp, edited, m.Content, m.Rendered, attachments); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", m.ID, err)
		}
		for _, r := range m.Reactions {
			ids := make([]string, 0, len(r.UserIDs))
			for _, id := range r.UserIDs {
				ids = append(ids, fmt.Sprint(id))
			}
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO reactions (message_id, emoji, count, user_ids) VALUES (?, ?, ?, ?)`,
				m.ID, emojiLabel(r.Emoji), r.Count, strings.Join(ids, ",")); err != nil {
				return fmt.Errorf("failed to insert reaction on %d: %w", m.ID, err)
			}
		}
	}
	return nil
}
