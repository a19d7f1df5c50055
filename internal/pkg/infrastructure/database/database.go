package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"
)

const (
	TraceAttributeCollection string = "collection"
	TraceAttributeDialect    string = "dialect"
)

var tracer = otel.Tracer("data-gateway/database")

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		host:     env.GetVariableOrDefault(ctx, "POSTGRES_HOST", ""),
		user:     env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
		password: env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
		port:     env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
		dbname:   env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "diwise"),
		sslmode:  env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
	}
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

// Provider stores records in the tables of a sql database and objects in
// its storage_objects table.
type Provider struct {
	db            *sql.DB
	pool          *pgxpool.Pool
	dialect       dialect
	idColumn      string
	publicBaseURL string
}

// PublicBaseURL sets the address that public object URLs are derived from.
func PublicBaseURL(baseURL string) func(*Provider) {
	return func(p *Provider) {
		p.publicBaseURL = baseURL
	}
}

// GeneratedIDColumn names the column that gets a random uuid when an inserted
// row lacks one and the request names no id column of its own. An empty name
// leaves id assignment to the database for every collection.
func GeneratedIDColumn(column string) func(*Provider) {
	return func(p *Provider) {
		p.idColumn = column
	}
}

// idColumnOf is the column that identifies the rows a request applies to.
func (p *Provider) idColumnOf(req *provider.Request) string {
	if req.IDColumn != "" {
		return req.IDColumn
	}
	if p.idColumn != "" {
		return p.idColumn
	}
	return "id"
}

func NewPostgresProvider(ctx context.Context, cfg Config, options ...func(*Provider)) (*Provider, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}

	p := newProvider(stdlib.OpenDBFromPool(pool), postgresDialect, options...)
	p.pool = pool

	return p, nil
}

// NewSQLiteProvider opens the sqlite database at path. The special path
// ":memory:" yields a private in-memory database.
func NewSQLiteProvider(ctx context.Context, path string, options ...func(*Provider)) (*Provider, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// every connection to ":memory:" is a database of its own
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return newProvider(db, sqliteDialect, options...), nil
}

func newProvider(db *sql.DB, d dialect, options ...func(*Provider)) *Provider {
	p := &Provider{
		db:            db,
		dialect:       d,
		idColumn:      "id",
		publicBaseURL: "http://localhost:8080",
	}

	for _, option := range options {
		option(p)
	}

	return p
}

func (p *Provider) Close() error {
	err := p.db.Close()
	if p.pool != nil {
		p.pool.Close()
	}
	return err
}

func (p *Provider) Select(ctx context.Context, collection string, params ...provider.RequestDecoratorFunc) (records []provider.Record, err error) {
	ctx, span := p.startSpan(ctx, "select", collection)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := provider.NewRequest(params...)

	stmt, err := selectStatement(p.dialect, collection, req)
	if err != nil {
		return nil, err
	}

	records, err = query(ctx, p.db, stmt)
	if err != nil {
		return nil, err
	}

	if req.Single {
		if err = single(records, collection); err != nil {
			return nil, err
		}
	}

	if err = p.embed(ctx, records, req.Embeds, p.idColumnOf(req)); err != nil {
		return nil, err
	}

	return records, nil
}

func (p *Provider) Insert(ctx context.Context, collection string, row provider.Record, params ...provider.RequestDecoratorFunc) (records []provider.Record, err error) {
	ctx, span := p.startSpan(ctx, "insert", collection)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if len(row) == 0 {
		err = errors.NewValidationError("refusing to insert an empty row")
		return nil, err
	}

	req := provider.NewRequest(params...)

	values := make(provider.Record, len(row)+1)
	for k, v := range row {
		values[k] = v
	}

	if p.idColumn != "" {
		if column := p.idColumnOf(req); values[column] == nil {
			values[column] = uuid.NewString()
		}
	}

	stmt, err := insertStatement(p.dialect, collection, values)
	if err != nil {
		return nil, err
	}

	return p.write(ctx, stmt, collection, req.Single)
}

func (p *Provider) Update(ctx context.Context, collection string, patch provider.Record, params ...provider.RequestDecoratorFunc) (records []provider.Record, err error) {
	ctx, span := p.startSpan(ctx, "update", collection)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := provider.NewRequest(params...)
	if len(req.Filters) == 0 {
		err = errors.NewValidationError("refusing to update without a filter")
		return nil, err
	}

	if len(patch) == 0 {
		err = errors.NewValidationError("refusing to apply an empty patch")
		return nil, err
	}

	stmt, err := updateStatement(p.dialect, collection, patch, req.Filters)
	if err != nil {
		return nil, err
	}

	return p.write(ctx, stmt, collection, req.Single)
}

func (p *Provider) Delete(ctx context.Context, collection string, params ...provider.RequestDecoratorFunc) (records []provider.Record, err error) {
	ctx, span := p.startSpan(ctx, "delete", collection)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := provider.NewRequest(params...)
	if len(req.Filters) == 0 {
		err = errors.NewValidationError("refusing to delete without a filter")
		return nil, err
	}

	stmt, err := deleteStatement(p.dialect, collection, req.Filters)
	if err != nil {
		return nil, err
	}

	return p.write(ctx, stmt, collection, req.Single)
}

func (p *Provider) Storage() provider.Storage {
	return &objectStore{db: p.db, dialect: p.dialect, publicBaseURL: p.publicBaseURL}
}

// write runs a statement within a transaction that is rolled back when a
// single row was required and another number of rows was affected.
func (p *Provider) write(ctx context.Context, stmt *statement, collection string, requireSingle bool) (records []provider.Record, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapf(err, "failed to begin transaction")
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
				logging.GetFromContext(ctx).Error("rollback failed", "err", rbErr.Error())
			}
		}
	}()

	records, err = query(ctx, tx, stmt)
	if err != nil {
		return nil, err
	}

	if requireSingle {
		if err = single(records, collection); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, wrapf(err, "failed to commit transaction")
	}

	return records, nil
}

// embed nests the rows of each relation under the records they reference
// through their keyColumn.
func (p *Provider) embed(ctx context.Context, records []provider.Record, embeds []provider.Embed, keyColumn string) error {
	if len(records) == 0 {
		return nil
	}

	for _, e := range embeds {
		keys := []any{}
		seen := map[string]bool{}

		for _, r := range records {
			r[e.Relation] = []provider.Record{}

			key, ok := r[keyColumn]
			if !ok || key == nil || seen[keyOf(key)] {
				continue
			}
			seen[keyOf(key)] = true
			keys = append(keys, key)
		}

		if len(keys) == 0 {
			continue
		}

		stmt, err := embedStatement(p.dialect, e, keys)
		if err != nil {
			return err
		}

		related, err := query(ctx, p.db, stmt)
		if err != nil {
			return err
		}

		byKey := map[string][]provider.Record{}
		for _, rel := range related {
			k := keyOf(rel[e.ForeignKey])
			byKey[k] = append(byKey[k], rel)
		}

		for _, r := range records {
			if nested, ok := byKey[keyOf(r[keyColumn])]; ok {
				r[e.Relation] = nested
			}
		}
	}

	return nil
}

func (p *Provider) startSpan(ctx context.Context, name, collection string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String(TraceAttributeDialect, p.dialect.name),
			attribute.String(TraceAttributeCollection, collection),
		),
	)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func query(ctx context.Context, q queryer, stmt *statement) ([]provider.Record, error) {
	rows, err := q.QueryContext(ctx, stmt.String(), stmt.args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, classify(err)
	}

	columns := make([]string, len(columnTypes))
	kinds := make([]columnKind, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = ct.Name()
		kinds[i] = kindOf(ct.DatabaseTypeName())
	}

	records := []provider.Record{}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err = rows.Scan(pointers...); err != nil {
			return nil, classify(err)
		}

		r := make(provider.Record, len(columns))
		for i, c := range columns {
			r[c] = fromColumn(values[i], kinds[i])
		}
		records = append(records, r)
	}

	if err = rows.Err(); err != nil {
		return nil, classify(err)
	}

	return records, nil
}

func single(records []provider.Record, collection string) error {
	switch len(records) {
	case 1:
		return nil
	case 0:
		return errors.NewNotFoundError(fmt.Sprintf("no matching row in %s", collection))
	default:
		return errors.NewProviderError(fmt.Sprintf("more than one row in %s matched a single row request", collection))
	}
}
