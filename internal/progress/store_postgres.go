package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const schemaSQL = `
CREATE TABLE IF NOT EXISTS student_progress (
	learner_id      TEXT PRIMARY KEY,
	subject_scores  JSONB NOT NULL DEFAULT '{}'::jsonb,
	weak_topics     JSONB NOT NULL DEFAULT '[]'::jsonb,
	strong_topics   JSONB NOT NULL DEFAULT '[]'::jsonb,
	total_attempted INTEGER NOT NULL DEFAULT 0,
	correct_answers INTEGER NOT NULL DEFAULT 0,
	last_session    TIMESTAMPTZ,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a progress store on top of pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the student_progress table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create progress schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, learnerID string) (StudentProgress, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p := StudentProgress{LearnerID: learnerID}
	var raw encodedFields
	var lastSession *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT subject_scores, weak_topics, strong_topics, total_attempted, correct_answers, last_session
		 FROM student_progress
		 WHERE learner_id = $1`,
		learnerID,
	).Scan(
		&raw.Scores,
		&raw.Weak,
		&raw.Strong,
		&p.TotalAttempted,
		&p.CorrectAnswers,
		&lastSession,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StudentProgress{}, false, nil
		}
		return StudentProgress{}, false, fmt.Errorf("get progress: %w", err)
	}

	if err := decodeFields(&p, raw); err != nil {
		return StudentProgress{}, false, fmt.Errorf("learner %s: %w", learnerID, err)
	}
	if lastSession != nil {
		p.LastSession = *lastSession
	}
	return p, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, p StudentProgress) error {
	if p.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	enc, err := encodeFields(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO student_progress (learner_id, subject_scores, weak_topics, strong_topics,
		                               total_attempted, correct_answers, last_session)
		 VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, $5, $6, $7)
		 ON CONFLICT (learner_id) DO UPDATE SET
		   subject_scores = EXCLUDED.subject_scores,
		   weak_topics = EXCLUDED.weak_topics,
		   strong_topics = EXCLUDED.strong_topics,
		   total_attempted = EXCLUDED.total_attempted,
		   correct_answers = EXCLUDED.correct_answers,
		   last_session = EXCLUDED.last_session,
		   updated_at = NOW()`,
		p.LearnerID,
		string(enc.Scores),
		string(enc.Weak),
		string(enc.Strong),
		p.TotalAttempted,
		p.CorrectAnswers,
		nullIfZeroTime(p.LastSession),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func nullIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return sessionTime(t)
}
