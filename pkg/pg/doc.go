// Package pg connects to PostgreSQL through pgx/v5 and applies goose
// migrations from an embedded filesystem.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, db.Migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck returns a probe for the readiness endpoint. IsDuplicateKeyError
// and IsNotFoundError classify pgx errors for the storage layer.
package pg
