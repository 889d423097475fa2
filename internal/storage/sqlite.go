package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Analysis is one LLM call as recorded in the history log.
type Analysis struct {
	ID       int64     `json:"id"`
	TS       time.Time `json:"ts"`
	Symbol   string    `json:"symbol"`
	Kind     string    `json:"kind"`
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Duration int64     `json:"duration_ms"`
	Question string    `json:"question,omitempty"`
	Answer   string    `json:"answer,omitempty"`
}

type Store struct{ db DB }

// OpenSQLite opens the database file, creating its directory if needed.
// dsn is a plain path or a "file:" URI with optional query parameters.
func OpenSQLite(dsn string) (DB, error) {
	if path := dsnPath(dsn); path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps a :memory: database alive across calls
	db.SetMaxOpenConns(1)
	return db, nil
}

// dsnPath returns the file path behind dsn, or "" for in-memory databases.
func dsnPath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS analyses(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		kind TEXT NOT NULL,
		provider TEXT,
		model TEXT,
		success INTEGER NOT NULL,
		error TEXT,
		duration_ms INTEGER,
		question TEXT,
		answer TEXT
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_analyses_symbol_ts ON analyses(symbol, ts)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

func (s *Store) SaveAnalysis(a Analysis) error {
	if a.TS.IsZero() {
		a.TS = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO analyses(ts,symbol,kind,provider,model,success,error,duration_ms,question,answer)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		a.TS.UnixMilli(), a.Symbol, a.Kind, a.Provider, a.Model, a.Success, a.Error, a.Duration, a.Question, a.Answer)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// RecentAnalyses returns the newest entries for symbol first. An empty symbol matches all.
func (s *Store) RecentAnalyses(symbol string, limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id,ts,symbol,kind,provider,model,success,error,duration_ms,question,answer FROM analyses`
	args := []any{}
	if symbol != "" {
		q += ` WHERE symbol=?`
		args = append(args, symbol)
	}
	q += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()
	var out []Analysis
	for rows.Next() {
		var a Analysis
		var ts int64
		var provider, model, errMsg, question, answer sql.NullString
		var duration sql.NullInt64
		if err := rows.Scan(&a.ID, &ts, &a.Symbol, &a.Kind, &provider, &model, &a.Success, &errMsg, &duration, &question, &answer); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		a.TS = time.UnixMilli(ts)
		a.Provider, a.Model, a.Error = provider.String, model.String, errMsg.String
		a.Question, a.Answer = question.String, answer.String
		a.Duration = duration.Int64
		out = append(out, a)
	}
	return out, rows.Err()
}
