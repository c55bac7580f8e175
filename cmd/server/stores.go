package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"organchain/internal/platform/config"
	"organchain/internal/profile/service"
	"organchain/internal/profile/store"
)

type stores struct {
	donors     service.DonorStore
	recipients service.RecipientStore
	close      func() error
}

// openStores selects the profile-store backend. Postgres is migrated before
// use.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.Server.Store != "postgres" {
		return &stores{
			donors:     store.NewInMemoryDonors(),
			recipients: store.NewInMemoryRecipients(),
			close:      func() error { return nil },
		}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &stores{
		donors:     store.NewPostgresDonors(db),
		recipients: store.NewPostgresRecipients(db),
		close:      db.Close,
	}, nil
}
