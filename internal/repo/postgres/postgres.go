package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/repo"
	"github.com/hamed0406/readycheck/internal/report"
)

var _ repo.ReportStore = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

// Schema is applied by Migrate. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS reports (
  id          TEXT PRIMARY KEY,
  healthy     BOOLEAN NOT NULL,
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  outcomes    JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_finished_at ON reports (finished_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
  probe        TEXT PRIMARY KEY,
  last_state   BOOLEAN NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

type Store struct {
	pool    *pgxpool.Pool
	log     *zap.Logger
	history int
}

// New connects to dsn. history > 0 bounds the number of reports kept.
func New(ctx context.Context, dsn string, history int, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log, history: history}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ---- ReportStore ----

func (s *Store) Append(ctx context.Context, r report.Report) error {
	outcomes, err := json.Marshal(r.Outcomes)
	if err != nil {
		return fmt.Errorf("encode outcomes: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, healthy, started_at, finished_at, outcomes)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.Healthy, r.StartedAt, r.FinishedAt, outcomes,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if s.history > 0 {
		s.prune(ctx)
	}
	return nil
}

// prune is best effort; a failure only leaves extra rows behind.
func (s *Store) prune(ctx context.Context) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM reports
		  WHERE id NOT IN (
		    SELECT id FROM reports ORDER BY finished_at DESC, id DESC LIMIT $1
		  )`, s.history)
	if err != nil {
		s.log.Warn("reports_prune_error", zap.Error(err))
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		s.log.Debug("reports_pruned", zap.Int64("rows", n))
	}
}

func (s *Store) Latest(ctx context.Context) (*report.Report, error) {
	list, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (s *Store) List(ctx context.Context, limit int) ([]report.Report, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, healthy, started_at, finished_at, outcomes
		   FROM reports
		  ORDER BY finished_at DESC, id DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []report.Report
	for rows.Next() {
		var (
			r   report.Report
			raw []byte
		)
		if err := rows.Scan(&r.ID, &r.Healthy, &r.StartedAt, &r.FinishedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var outcomes []probe.Outcome
		if err := json.Unmarshal(raw, &outcomes); err != nil {
			return nil, fmt.Errorf("decode outcomes of %s: %w", r.ID, err)
		}
		r.Outcomes = outcomes
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- AlertStore ----

func (s *Store) Get(ctx context.Context, probe string) (*repo.AlertRecord, error) {
	const q = `SELECT last_state, last_sent_at FROM alerts WHERE probe=$1`
	r := repo.AlertRecord{Probe: probe}
	var lastSent *time.Time
	err := s.pool.QueryRow(ctx, q, probe).Scan(&r.LastState, &lastSent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	r.LastSentAt = lastSent
	return &r, nil
}

func (s *Store) Set(ctx context.Context, probe string, lastState bool, sentAt time.Time) error {
	const q = `
		INSERT INTO alerts (probe, last_state, last_sent_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (probe)
		DO UPDATE SET last_state=EXCLUDED.last_state, last_sent_at=EXCLUDED.last_sent_at
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	if _, err := s.pool.Exec(ctx, q, probe, lastState, ts); err != nil {
		return fmt.Errorf("set alert: %w", err)
	}
	return nil
}
