package probe

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PostgresChecker opens a fresh connection and runs SELECT 1. It does not pool:
// a readiness check should exercise the whole connect path every time.
type PostgresChecker struct{}

func NewPostgresChecker() *PostgresChecker { return &PostgresChecker{} }

func (PostgresChecker) Probe(ctx context.Context, def Definition) (Raw, error) {
	cfg, err := pgx.ParseConfig(def.Target)
	if err != nil {
		return Raw{}, Fault(err)
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return Raw{}, err
	}
	defer conn.Close(context.WithoutCancel(ctx))

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return Raw{}, err
	}
	return Raw{Output: "1"}, nil
}
