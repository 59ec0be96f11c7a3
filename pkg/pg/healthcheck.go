package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaCheckQuery = `SELECT to_regclass('notification_deliveries') IS NOT NULL`

// Healthcheck reports whether the pool can reach the database and the
// deliveries table has been migrated.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		var migrated bool
		if err := pool.QueryRow(ctx, schemaCheckQuery).Scan(&migrated); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if !migrated {
			return errors.Join(ErrHealthcheckFailed, ErrSchemaMissing)
		}
		return nil
	}
}
