package datagateway

import (
	"fmt"
	"io"

	"github.com/diwise/data-gateway/pkg/gateway"
	yaml "gopkg.in/yaml.v2"
)

const (
	ProviderPostgREST string = "postgrest"
	ProviderPostgres  string = "postgres"
	ProviderSQLite    string = "sqlite"
)

type RelationConfig struct {
	Collection string `yaml:"collection"`
	ForeignKey string `yaml:"foreignKey"`
}

type CollectionConfig struct {
	Name      string           `yaml:"name"`
	IDField   string           `yaml:"idField"`
	Relations []RelationConfig `yaml:"relations"`
}

type BucketConfig struct {
	Name      string `yaml:"name"`
	Overwrite bool   `yaml:"overwrite"`
	// Public buckets are served without authorization under /storage/v1/object/public
	Public bool `yaml:"public"`
}

type ProviderConfig struct {
	Type string `yaml:"type"`
	// Endpoint is the base url of a postgrest provider
	Endpoint string `yaml:"endpoint"`
	Schema   string `yaml:"schema"`
	// Path is the database file of a sqlite provider
	Path string `yaml:"path"`
	// PublicBaseURL is where objects stored by sql providers are served from
	PublicBaseURL string `yaml:"publicBaseURL"`
	// Migrations are files with sql that are applied in order when a sql provider starts
	Migrations []string `yaml:"migrations"`
	// DashboardSchema creates the users, nominees and access_categories tables
	DashboardSchema bool `yaml:"dashboardSchema"`
}

type Config struct {
	Provider    ProviderConfig     `yaml:"provider"`
	Collections []CollectionConfig `yaml:"collections"`
	Buckets     []BucketConfig     `yaml:"buckets"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Provider.Type == "" {
		cfg.Provider.Type = ProviderPostgREST
	}

	return cfg, cfg.validate()
}

func (cfg *Config) validate() error {
	switch cfg.Provider.Type {
	case ProviderPostgREST:
		if cfg.Provider.Endpoint == "" {
			return fmt.Errorf("a %s provider requires an endpoint", cfg.Provider.Type)
		}
	case ProviderSQLite:
		if cfg.Provider.Path == "" {
			return fmt.Errorf("a %s provider requires a path", cfg.Provider.Type)
		}
	case ProviderPostgres:
	default:
		return fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}

	for _, c := range cfg.Collections {
		if c.Name == "" {
			return fmt.Errorf("collections must be named")
		}
		for _, r := range c.Relations {
			if r.Collection == "" || r.ForeignKey == "" {
				return fmt.Errorf("relations of %s need both a collection and a foreign key", c.Name)
			}
		}
	}

	for _, b := range cfg.Buckets {
		if b.Name == "" {
			return fmt.Errorf("buckets must be named")
		}
	}

	return nil
}

// GatewayOptions translates the configured collections and buckets into gateway options.
func (cfg *Config) GatewayOptions() []func(*gateway.Gateway) {
	options := make([]func(*gateway.Gateway), 0, len(cfg.Collections)+len(cfg.Buckets))

	for _, c := range cfg.Collections {
		relations := make([]gateway.Relation, 0, len(c.Relations))
		for _, r := range c.Relations {
			relations = append(relations, gateway.Relation{Collection: r.Collection, ForeignKey: r.ForeignKey})
		}

		options = append(options, gateway.WithCollection(gateway.CollectionConfig{
			Name:      c.Name,
			IDField:   c.IDField,
			Relations: relations,
		}))
	}

	for _, b := range cfg.Buckets {
		options = append(options, gateway.WithBucket(gateway.BucketConfig{Name: b.Name, Overwrite: b.Overwrite, Public: b.Public}))
	}

	return options
}
