package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const schemaSQL = `
CREATE TABLE IF NOT EXISTS questions (
	id             TEXT PRIMARY KEY,
	subject        TEXT NOT NULL,
	chapter        TEXT NOT NULL,
	topic          TEXT NOT NULL,
	difficulty     TEXT NOT NULL,
	question_text  TEXT NOT NULL,
	options        JSONB NOT NULL DEFAULT '[]'::jsonb,
	correct_answer TEXT NOT NULL,
	solution       TEXT NOT NULL DEFAULT '',
	year           INTEGER NOT NULL DEFAULT 0,
	exam_type      TEXT NOT NULL DEFAULT '',
	question_type  TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_questions_subject_chapter ON questions (subject, chapter);
CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions (topic);
`

const selectColumns = `id, subject, chapter, topic, difficulty, question_text, options,
	correct_answer, solution, year, exam_type, question_type`

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a question store on top of pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the questions table if needed. Safe to call on every
// startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create questions schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, q Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("add question: %w", err)
	}

	options := q.Options
	if options == nil {
		options = []string{}
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (id, subject, chapter, topic, difficulty, question_text, options,
		                        correct_answer, solution, year, exam_type, question_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   subject = EXCLUDED.subject,
		   chapter = EXCLUDED.chapter,
		   topic = EXCLUDED.topic,
		   difficulty = EXCLUDED.difficulty,
		   question_text = EXCLUDED.question_text,
		   options = EXCLUDED.options,
		   correct_answer = EXCLUDED.correct_answer,
		   solution = EXCLUDED.solution,
		   year = EXCLUDED.year,
		   exam_type = EXCLUDED.exam_type,
		   question_type = EXCLUDED.question_type,
		   updated_at = NOW()`,
		q.ID,
		q.Subject,
		q.Chapter,
		q.Topic,
		q.Difficulty.String(),
		q.Text,
		string(optionsJSON),
		q.CorrectAnswer,
		q.Solution,
		q.Year,
		q.ExamType,
		string(q.Type),
	)
	if err != nil {
		return fmt.Errorf("upsert question: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Question, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM questions WHERE id = $1`,
		id,
	)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Question{}, false, nil
		}
		if errors.Is(err, errMalformedRow) {
			slog.Warn("treating malformed question row as missing", "id", id, "error", err)
			return Question{}, false, nil
		}
		return Question{}, false, fmt.Errorf("get question: %w", err)
	}
	return q, true, nil
}

// Query draws matching IDs, shuffles them with rng and loads the first limit
// rows, so the caller's randomness source decides the order.
func (s *PostgresStore) Query(ctx context.Context, f Filter, limit int, rng Rand) ([]Question, error) {
	if limit <= 0 {
		return []Question{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	where, args := buildWhere(f)
	rows, err := s.pool.Query(ctx, `SELECT id FROM questions`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query question ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect question ids: %w", err)
	}
	if len(ids) == 0 {
		return []Question{}, nil
	}

	Shuffle(ids, rng)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	rows, err = s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM questions WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Question, len(ids))
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			if errors.Is(err, errMalformedRow) {
				slog.Warn("skipping malformed question row", "error", err)
				continue
			}
			return nil, err
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	result := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			result = append(result, q)
		}
	}
	return result, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func buildWhere(f Filter) (string, []any) {
	var clauses []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if f.Subject != "" {
		add("subject", f.Subject)
	}
	if f.Chapter != "" {
		add("chapter", f.Chapter)
	}
	if f.Topic != "" {
		add("topic", f.Topic)
	}
	if f.Difficulty != 0 {
		add("difficulty", f.Difficulty.String())
	}
	if f.Year != 0 {
		add("year", f.Year)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var errMalformedRow = errors.New("malformed question row")

func scanQuestion(row pgx.Row) (Question, error) {
	var q Question
	var difficulty, qType string
	var optionsJSON []byte

	if err := row.Scan(
		&q.ID,
		&q.Subject,
		&q.Chapter,
		&q.Topic,
		&difficulty,
		&q.Text,
		&optionsJSON,
		&q.CorrectAnswer,
		&q.Solution,
		&q.Year,
		&q.ExamType,
		&qType,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Question{}, pgx.ErrNoRows
		}
		return Question{}, fmt.Errorf("scan question: %w", err)
	}

	d, err := ParseDifficulty(difficulty)
	if err != nil {
		return Question{}, fmt.Errorf("question %s: %w: %v", q.ID, errMalformedRow, err)
	}
	q.Difficulty = d
	q.Type = Type(qType)

	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return Question{}, fmt.Errorf("question %s: %w: %v", q.ID, errMalformedRow, err)
		}
	}
	if len(q.Options) == 0 {
		q.Options = nil
	}
	return q, nil
}
