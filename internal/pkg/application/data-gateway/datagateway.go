package datagateway

import (
	"context"
	"fmt"
	"os"

	"github.com/diwise/data-gateway/internal/pkg/infrastructure/database"
	"github.com/diwise/data-gateway/pkg/datamodels/dashboard"
	"github.com/diwise/data-gateway/pkg/gateway"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/data-gateway/pkg/provider/postgrest"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

type Secrets struct {
	APIKey string
	Debug  string
}

// NewProvider connects to the configured provider. The returned function
// releases any resources held by the provider.
func NewProvider(ctx context.Context, cfg ProviderConfig, secrets Secrets) (provider.Client, func(), error) {
	log := logging.GetFromContext(ctx).With("provider", cfg.Type)

	if cfg.Type == ProviderPostgREST {
		options := []postgrest.Option{postgrest.APIKey(secrets.APIKey), postgrest.Debug(secrets.Debug)}
		if cfg.Schema != "" {
			options = append(options, postgrest.Schema(cfg.Schema))
		}

		log.Info("using postgrest provider", "endpoint", cfg.Endpoint)
		return postgrest.NewClient(cfg.Endpoint, options...), func() {}, nil
	}

	options := []func(*database.Provider){}
	if cfg.PublicBaseURL != "" {
		options = append(options, database.PublicBaseURL(cfg.PublicBaseURL))
	}

	var p *database.Provider
	var err error

	switch cfg.Type {
	case ProviderPostgres:
		p, err = database.NewPostgresProvider(ctx, database.LoadConfiguration(ctx), options...)
	case ProviderSQLite:
		p, err = database.NewSQLiteProvider(ctx, cfg.Path, options...)
	default:
		err = fmt.Errorf("unknown provider type %q", cfg.Type)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s provider: %w", cfg.Type, err)
	}

	scripts := []string{}
	if cfg.DashboardSchema {
		scripts = append(scripts, dashboard.Schema)
	}

	for _, path := range cfg.Migrations {
		script, err := os.ReadFile(path)
		if err != nil {
			p.Close()
			return nil, nil, fmt.Errorf("failed to read migration %s: %w", path, err)
		}
		scripts = append(scripts, string(script))
	}

	if err = p.Migrate(ctx, scripts...); err != nil {
		p.Close()
		return nil, nil, err
	}

	log.Info("using sql provider", "migrations", len(scripts))

	return p, func() {
		if err := p.Close(); err != nil {
			log.Error("failed to close provider", "err", err.Error())
		}
	}, nil
}

func New(client provider.Client, cfg *Config, options ...func(*gateway.Gateway)) *gateway.Gateway {
	return gateway.New(client, append(cfg.GatewayOptions(), options...)...)
}
