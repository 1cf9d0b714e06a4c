// Package pg opens the PostgreSQL pool (pgx/v5), applies goose migrations
// from an fs.FS and classifies driver errors for the store layer.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
//		return err
//	}
package pg
