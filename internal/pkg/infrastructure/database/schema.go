package database

import (
	"context"
	"fmt"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

func (p *Provider) storageSchema() string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS storage_objects (
			bucket TEXT NOT NULL,
			path TEXT NOT NULL,
			content_type TEXT NOT NULL,
			content %s NOT NULL,
			size BIGINT NOT NULL,
			created_at %s NOT NULL,
			PRIMARY KEY (bucket, path)
		);`, p.dialect.blobType, p.dialect.timeType,
	)
}

// Migrate creates the storage_objects table and then applies each of the
// given scripts in order. Scripts are expected to be idempotent.
func (p *Provider) Migrate(ctx context.Context, scripts ...string) error {
	log := logging.GetFromContext(ctx)

	all := append([]string{p.storageSchema()}, scripts...)

	for idx, script := range all {
		_, err := p.db.ExecContext(ctx, script)
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", idx, err)
		}
	}

	log.Debug("database schema up to date", "dialect", p.dialect.name, "scripts", len(all))

	return nil
}
