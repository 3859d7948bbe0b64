// Package archive keeps finished conversations in SQLite so they can be
// listed and searched later. Archived transcripts are read-only: nothing
// here restores a live session.
package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/convo"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS transcripts (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at    TEXT NOT NULL,
    birth_date    TEXT NOT NULL,
    birth_time    TEXT NOT NULL,
    city          TEXT NOT NULL,
    summary       TEXT NOT NULL DEFAULT '',
    planets       TEXT NOT NULL DEFAULT '[]',
    used_fallback INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS turns (
    transcript_id INTEGER NOT NULL,
    seq           INTEGER NOT NULL,
    author        TEXT NOT NULL,
    text          TEXT NOT NULL,
    PRIMARY KEY (transcript_id, seq)
);

CREATE VIRTUAL TABLE IF NOT EXISTS turns_fts USING fts5(
    text,
    content=turns,
    content_rowid=rowid,
    tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS turns_ai AFTER INSERT ON turns BEGIN
    INSERT INTO turns_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS turns_ad AFTER DELETE ON turns BEGIN
    INSERT INTO turns_fts(turns_fts, rowid, text) VALUES('delete', old.rowid, old.text);
END;
`

const timeLayout = "2006-01-02T15:04:05Z"

var ErrNotFound = errors.New("transcript not found")

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

// Transcript is one archived conversation.
type Transcript struct {
	ID           int64
	CreatedAt    time.Time
	Query        chart.BirthQuery
	Chart        chart.Result
	UsedFallback bool
	Turns        []convo.Turn
}

// Save stores a transcript and returns its id. Pending turns are skipped;
// a conversation without turns is not stored and yields id 0.
func (d *DB) Save(t Transcript) (int64, error) {
	var turns []convo.Turn
	for _, turn := range t.Turns {
		if !turn.Pending {
			turns = append(turns, turn)
		}
	}
	if len(turns) == 0 {
		return 0, nil
	}

	planets, err := json.Marshal(t.Chart.Planets)
	if err != nil {
		return 0, fmt.Errorf("marshal planets: %w", err)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO transcripts (created_at, birth_date, birth_time, city, summary, planets, used_fallback)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.CreatedAt.UTC().Format(timeLayout),
		t.Query.Date,
		t.Query.Time,
		t.Query.City,
		t.Chart.Summary,
		string(planets),
		t.UsedFallback,
	)
	if err != nil {
		return 0, fmt.Errorf("insert transcript: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO turns (transcript_id, seq, author, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, turn := range turns {
		if _, err := stmt.Exec(id, i, turn.Author.String(), turn.Text); err != nil {
			return 0, fmt.Errorf("insert turn %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Get loads a transcript with its turns. It returns nil when id is unknown.
func (d *DB) Get(id int64) (*Transcript, error) {
	var (
		t         Transcript
		createdAt string
		planets   string
	)
	err := d.db.QueryRow(
		`SELECT id, created_at, birth_date, birth_time, city, summary, planets, used_fallback
		 FROM transcripts WHERE id = ?`, id,
	).Scan(&t.ID, &createdAt, &t.Query.Date, &t.Query.Time, &t.Query.City, &t.Chart.Summary, &planets, &t.UsedFallback)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if err := json.Unmarshal([]byte(planets), &t.Chart.Planets); err != nil {
		return nil, fmt.Errorf("decode planets: %w", err)
	}

	rows, err := d.db.Query(`SELECT author, text FROM turns WHERE transcript_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var author, text string
		if err := rows.Scan(&author, &text); err != nil {
			return nil, err
		}
		t.Turns = append(t.Turns, convo.Turn{Text: text, Author: parseAuthor(author)})
	}
	return &t, rows.Err()
}

// Delete removes a transcript and its turns. It returns ErrNotFound when id
// is unknown.
func (d *DB) Delete(id int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM turns WHERE transcript_id = ?", id); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM transcripts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (d *DB) TranscriptCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&n)
	return n, err
}

func (d *DB) TurnCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM turns").Scan(&n)
	return n, err
}

func parseAuthor(s string) convo.Author {
	if strings.EqualFold(s, convo.User.String()) {
		return convo.User
	}
	return convo.Assistant
}
