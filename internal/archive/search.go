package archive

import (
	"fmt"
	"strings"
	"time"
)

// Entry is one row of a history listing.
type Entry struct {
	ID        int64
	CreatedAt time.Time
	City      string
	BirthDate string
	Summary   string
	Snippet   string // first matching turn, set only for searches
	Turns     int
}

type Options struct {
	Query string // "" lists everything
	Since string // "" = no filter, e.g. "2026-01-01"
	Limit int
}

// List returns transcripts newest first. With a Query, only transcripts
// with a matching turn are returned, one entry per transcript.
func List(d *DB, opts Options) ([]Entry, error) {
	var (
		where []string
		args  []any
	)

	q := strings.TrimSpace(opts.Query)
	stmt := `SELECT t.id, t.created_at, t.city, t.birth_date, t.summary, '',
	                (SELECT COUNT(*) FROM turns WHERE transcript_id = t.id)
	         FROM transcripts t`
	if q != "" {
		stmt = `SELECT t.id, t.created_at, t.city, t.birth_date, t.summary,
		               snippet(turns_fts, 0, '>>>', '<<<', '...', 12),
		               (SELECT COUNT(*) FROM turns WHERE transcript_id = t.id)
		        FROM turns_fts
		        JOIN turns u ON u.rowid = turns_fts.rowid
		        JOIN transcripts t ON t.id = u.transcript_id`
		where = append(where, "turns_fts MATCH ?")
		args = append(args, ftsQuery(q))
	}
	if opts.Since != "" {
		where = append(where, "t.created_at >= ?")
		args = append(args, opts.Since)
	}
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY t.created_at DESC, t.id DESC"
	if q == "" && opts.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := d.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []Entry
	seen := make(map[int64]struct{})
	for rows.Next() {
		var (
			e         Entry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &createdAt, &e.City, &e.BirthDate, &e.Summary, &e.Snippet, &e.Turns); err != nil {
			return nil, err
		}
		// several turns of one transcript may match; keep the first
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, e)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, rows.Err()
}

// ftsQuery quotes each term so user input is never parsed as FTS5 syntax.
// Terms match as prefixes: Korean particles stay attached to the word they
// follow ("금성이"), so "금성" has to match the longer token.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}
