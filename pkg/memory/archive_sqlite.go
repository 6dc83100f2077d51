package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

// SQLiteArchive keeps snapshots of sessions the store has forgotten.
type SQLiteArchive struct {
	db *sql.DB
}

var _ Archiver = (*SQLiteArchive)(nil)

func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between the sweeper and explicit cleanups.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	a := &SQLiteArchive{db: db}
	if err := a.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *SQLiteArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *SQLiteArchive) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS archived_sessions (
			session_id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			start_time_ms INTEGER NOT NULL,
			archived_at_ms INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			interaction_count INTEGER NOT NULL DEFAULT 0,
			average_score REAL NOT NULL DEFAULT 0,
			current_question TEXT NOT NULL DEFAULT '',
			covered_topics_json TEXT NOT NULL DEFAULT '[]',
			summary_json TEXT NOT NULL DEFAULT '',
			trends_json TEXT NOT NULL DEFAULT '[]'
		);`,
		`CREATE INDEX IF NOT EXISTS archived_sessions_time_idx ON archived_sessions(archived_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS archived_interactions (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			question TEXT NOT NULL DEFAULT '',
			answer TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			topics_json TEXT NOT NULL DEFAULT '[]',
			evaluation_json TEXT NOT NULL DEFAULT '',
			feedback TEXT NOT NULL DEFAULT '',
			context_json TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS archived_samples (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			kind TEXT NOT NULL,
			evaluation_json TEXT NOT NULL,
			difficulty TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (session_id, seq)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("init archive schema: %w", err)
		}
	}

	// Archives created before samples carried their level.
	var hasDifficulty int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('archived_samples') WHERE name = 'difficulty'`).Scan(&hasDifficulty); err != nil {
		return fmt.Errorf("inspect archive schema: %w", err)
	}
	if hasDifficulty == 0 {
		if _, err := a.db.Exec(`ALTER TABLE archived_samples ADD COLUMN difficulty TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("migrate archive schema: %w", err)
		}
	}
	return nil
}

// SaveSnapshot replaces any earlier archive of the same session.
func (a *SQLiteArchive) SaveSnapshot(ctx context.Context, snap Snapshot, reason string) error {
	covered, err := json.Marshal(nonNil(snap.CoveredTopics))
	if err != nil {
		return err
	}
	trends, err := json.Marshal(snap.TrendSnapshots)
	if err != nil {
		return err
	}
	summary := ""
	if snap.Summary != nil {
		b, err := json.Marshal(snap.Summary)
		if err != nil {
			return err
		}
		summary = string(b)
	}
	archivedAt := snap.TakenAt
	if archivedAt.IsZero() {
		archivedAt = time.Now()
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO archived_sessions(
		session_id, topic, difficulty, start_time_ms, archived_at_ms, reason,
		interaction_count, average_score, current_question, covered_topics_json, summary_json, trends_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.SessionID, snap.Topic, string(snap.Difficulty), snap.StartTime.UnixMilli(), archivedAt.UnixMilli(), reason,
		len(snap.Interactions), averageOf(snap.PerformanceSamples), snap.CurrentQuestion, string(covered), summary, string(trends),
	); err != nil {
		return fmt.Errorf("archive session row: %w", err)
	}
	for _, table := range []string{"archived_interactions", "archived_samples"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, snap.SessionID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, l := range snap.Interactions {
		topics, err := json.Marshal(nonNil(l.Topics))
		if err != nil {
			return err
		}
		evalJSON, err := marshalOptional(l.Evaluation)
		if err != nil {
			return err
		}
		ctxJSON, err := marshalOptional(l.Context)
		if err != nil {
			return fmt.Errorf("interaction %d context: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO archived_interactions(
			session_id, seq, timestamp_ms, question, answer, kind, topics_json, evaluation_json, feedback, context_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.SessionID, i, l.Timestamp.UnixMilli(), l.Question, l.Answer, string(l.Kind), string(topics), evalJSON, l.Feedback, ctxJSON,
		); err != nil {
			return fmt.Errorf("archive interaction %d: %w", i, err)
		}
	}
	for i, p := range snap.PerformanceSamples {
		evalJSON, err := json.Marshal(p.Evaluation)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO archived_samples(session_id, seq, timestamp_ms, kind, evaluation_json, difficulty) VALUES (?, ?, ?, ?, ?, ?)`,
			snap.SessionID, i, p.Timestamp.UnixMilli(), string(p.Kind), string(evalJSON), string(p.Difficulty),
		); err != nil {
			return fmt.Errorf("archive sample %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadSnapshot reads an archived session back. TakenAt is the archive time.
func (a *SQLiteArchive) LoadSnapshot(ctx context.Context, id string) (Snapshot, error) {
	var (
		snap                          Snapshot
		difficulty                    string
		startMS, archivedMS           int64
		coveredJSON, summaryJSON, tjs string
	)
	err := a.db.QueryRowContext(ctx, `SELECT session_id, topic, difficulty, start_time_ms, archived_at_ms,
		current_question, covered_topics_json, summary_json, trends_json
		FROM archived_sessions WHERE session_id = ?`, id).
		Scan(&snap.SessionID, &snap.Topic, &difficulty, &startMS, &archivedMS, &snap.CurrentQuestion, &coveredJSON, &summaryJSON, &tjs)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: no archive for %s", ErrNotFound, id)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load archived session: %w", err)
	}
	snap.Difficulty = interview.Difficulty(difficulty)
	snap.StartTime = time.UnixMilli(startMS).UTC()
	snap.TakenAt = time.UnixMilli(archivedMS).UTC()
	if err := json.Unmarshal([]byte(coveredJSON), &snap.CoveredTopics); err != nil {
		return Snapshot{}, fmt.Errorf("decode covered topics: %w", err)
	}
	if summaryJSON != "" {
		snap.Summary = &ContextSummary{}
		if err := json.Unmarshal([]byte(summaryJSON), snap.Summary); err != nil {
			return Snapshot{}, fmt.Errorf("decode summary: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(tjs), &snap.TrendSnapshots); err != nil {
		return Snapshot{}, fmt.Errorf("decode trends: %w", err)
	}

	if snap.Interactions, err = a.loadInteractions(ctx, id); err != nil {
		return Snapshot{}, err
	}
	if snap.PerformanceSamples, err = a.loadSamples(ctx, id); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (a *SQLiteArchive) loadInteractions(ctx context.Context, id string) ([]InteractionLog, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT timestamp_ms, question, answer, kind, topics_json, evaluation_json, feedback, context_json
		FROM archived_interactions WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("load archived interactions: %w", err)
	}
	defer rows.Close()

	out := make([]InteractionLog, 0)
	for rows.Next() {
		var (
			l                               InteractionLog
			tsMS                            int64
			kind, topics, evalJSON, ctxJSON string
		)
		if err := rows.Scan(&tsMS, &l.Question, &l.Answer, &kind, &topics, &evalJSON, &l.Feedback, &ctxJSON); err != nil {
			return nil, err
		}
		l.Timestamp = time.UnixMilli(tsMS).UTC()
		l.Kind = interview.QuestionKind(kind)
		if err := json.Unmarshal([]byte(topics), &l.Topics); err != nil {
			return nil, fmt.Errorf("decode topics: %w", err)
		}
		if evalJSON != "" {
			l.Evaluation = &interview.Evaluation{}
			if err := json.Unmarshal([]byte(evalJSON), l.Evaluation); err != nil {
				return nil, fmt.Errorf("decode evaluation: %w", err)
			}
		}
		if ctxJSON != "" {
			if err := json.Unmarshal([]byte(ctxJSON), &l.Context); err != nil {
				return nil, fmt.Errorf("decode context: %w", err)
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (a *SQLiteArchive) loadSamples(ctx context.Context, id string) ([]PerformanceSample, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT timestamp_ms, kind, evaluation_json, difficulty
		FROM archived_samples WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("load archived samples: %w", err)
	}
	defer rows.Close()

	out := make([]PerformanceSample, 0)
	for rows.Next() {
		var (
			p              PerformanceSample
			tsMS           int64
			kind, evalJSON string
			difficulty     string
		)
		if err := rows.Scan(&tsMS, &kind, &evalJSON, &difficulty); err != nil {
			return nil, err
		}
		p.Timestamp = time.UnixMilli(tsMS).UTC()
		p.Kind = interview.QuestionKind(kind)
		p.Difficulty = interview.Difficulty(difficulty)
		if err := json.Unmarshal([]byte(evalJSON), &p.Evaluation); err != nil {
			return nil, fmt.Errorf("decode sample evaluation: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSessions returns the most recently archived sessions first.
func (a *SQLiteArchive) ListSessions(ctx context.Context, limit int) ([]ArchivedSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.QueryContext(ctx, `SELECT session_id, topic, difficulty, start_time_ms, archived_at_ms, reason, interaction_count, average_score
		FROM archived_sessions ORDER BY archived_at_ms DESC, session_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived sessions: %w", err)
	}
	defer rows.Close()

	out := make([]ArchivedSession, 0)
	for rows.Next() {
		var (
			s                   ArchivedSession
			difficulty          string
			startMS, archivedMS int64
		)
		if err := rows.Scan(&s.SessionID, &s.Topic, &difficulty, &startMS, &archivedMS, &s.Reason, &s.InteractionCount, &s.AverageScore); err != nil {
			return nil, err
		}
		s.Difficulty = interview.Difficulty(difficulty)
		s.StartTime = time.UnixMilli(startMS).UTC()
		s.ArchivedAt = time.UnixMilli(archivedMS).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func averageOf(samples []PerformanceSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range samples {
		total += p.Evaluation.Scores.Average()
	}
	return total / float64(len(samples))
}

func marshalOptional(v any) (string, error) {
	switch t := v.(type) {
	case *interview.Evaluation:
		if t == nil {
			return "", nil
		}
	case map[string]any:
		if len(t) == 0 {
			return "", nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
