package gateway

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultIDField string = "id"

const (
	TraceAttributeCollection string = "collection"
	TraceAttributeEntityID   string = "entity-id"
	TraceAttributeBucket     string = "bucket"
	TraceAttributePath       string = "path"
)

var tracer = otel.Tracer("data-gateway")

// Relation is a collection whose rows reference a record through ForeignKey.
type Relation struct {
	Collection string
	ForeignKey string
}

type CollectionConfig struct {
	Name      string
	IDField   string
	Relations []Relation
}

type BucketConfig struct {
	Name string
	// Overwrite allows an upload to replace an existing object at the same path.
	Overwrite bool
	// Public marks a bucket whose objects may be read by anyone holding their URL.
	Public bool
}

// Filter selects records whose fields equal the given values.
type Filter map[string]any

type ListOption func(*listOptions)

type listOptions struct {
	embeds []string
	limit  int
	offset int
	order  []provider.Order
}

// Embed nests the named relations of each listed record.
func Embed(relations ...string) ListOption {
	return func(o *listOptions) {
		o.embeds = append(o.embeds, relations...)
	}
}

func Limit(count int) ListOption {
	return func(o *listOptions) {
		o.limit = count
	}
}

func Offset(offset int) ListOption {
	return func(o *listOptions) {
		o.offset = offset
	}
}

func OrderBy(field string, descending bool) ListOption {
	return func(o *listOptions) {
		o.order = append(o.order, provider.Order{Column: field, Descending: descending})
	}
}

func WithCollection(cfg CollectionConfig) func(*Gateway) {
	return func(g *Gateway) {
		if cfg.IDField == "" {
			cfg.IDField = DefaultIDField
		}
		g.collections[cfg.Name] = cfg
	}
}

func WithBucket(cfg BucketConfig) func(*Gateway) {
	return func(g *Gateway) {
		g.buckets[cfg.Name] = cfg
	}
}

// Gateway exposes typed record and file operations on top of a provider client.
// It keeps no state between calls and is safe for concurrent use.
type Gateway struct {
	client      provider.Client
	collections map[string]CollectionConfig
	buckets     map[string]BucketConfig
}

func New(client provider.Client, options ...func(*Gateway)) *Gateway {
	g := &Gateway{
		client:      client,
		collections: map[string]CollectionConfig{},
		buckets:     map[string]BucketConfig{},
	}

	for _, option := range options {
		option(g)
	}

	return g
}

func (g *Gateway) GetEntity(ctx context.Context, collection, id string) (record provider.Record, err error) {
	ctx, span := tracer.Start(ctx, "get-entity",
		trace.WithAttributes(
			attribute.String(TraceAttributeCollection, collection),
			attribute.String(TraceAttributeEntityID, id),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
	defer func() { err = annotate(ctx, "getEntity", collection, err) }()

	cfg, err := g.collection(collection)
	if err != nil {
		return nil, err
	}

	if err = requireID(id); err != nil {
		return nil, err
	}

	params := []provider.RequestDecoratorFunc{provider.Eq(cfg.IDField, id), provider.Single(), provider.IDColumn(cfg.IDField)}
	for _, rel := range cfg.Relations {
		params = append(params, provider.Embedded(rel.Collection, rel.ForeignKey))
	}

	rows, err := g.client.Select(ctx, collection, params...)
	if err != nil {
		return nil, err
	}

	return exactlyOne(rows, collection, id)
}

func (g *Gateway) UpdateEntity(ctx context.Context, collection, id string, patch provider.Record) (record provider.Record, err error) {
	ctx, span := tracer.Start(ctx, "update-entity",
		trace.WithAttributes(
			attribute.String(TraceAttributeCollection, collection),
			attribute.String(TraceAttributeEntityID, id),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
	defer func() { err = annotate(ctx, "updateEntity", collection, err) }()

	cfg, err := g.collection(collection)
	if err != nil {
		return nil, err
	}

	if err = requireID(id); err != nil {
		return nil, err
	}

	if len(patch) == 0 {
		return nil, errors.NewValidationError("patch contains no fields")
	}

	if err = validateFields(patch); err != nil {
		return nil, err
	}

	if newID, ok := patch[cfg.IDField]; ok && fmt.Sprint(newID) != id {
		return nil, errors.NewValidationError(fmt.Sprintf("patch must not change the %s field", cfg.IDField))
	}

	rows, err := g.client.Update(ctx, collection, patch, provider.Eq(cfg.IDField, id), provider.Single(), provider.IDColumn(cfg.IDField))
	if err != nil {
		return nil, err
	}

	return exactlyOne(rows, collection, id)
}

func (g *Gateway) CreateEntity(ctx context.Context, collection string, payload provider.Record) (record provider.Record, err error) {
	ctx, span := tracer.Start(ctx, "create-entity",
		trace.WithAttributes(attribute.String(TraceAttributeCollection, collection)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
	defer func() { err = annotate(ctx, "createEntity", collection, err) }()

	cfg, err := g.collection(collection)
	if err != nil {
		return nil, err
	}

	if len(payload) == 0 {
		return nil, errors.NewValidationError("payload contains no fields")
	}

	if err = validateFields(payload); err != nil {
		return nil, err
	}

	rows, err := g.client.Insert(ctx, collection, payload, provider.Single(), provider.IDColumn(cfg.IDField))
	if err != nil {
		return nil, err
	}

	if len(rows) != 1 {
		return nil, errors.NewProviderError(fmt.Sprintf("provider returned %d rows for a single insert", len(rows)))
	}

	if rows[0][cfg.IDField] == nil {
		return nil, errors.NewProviderError(fmt.Sprintf("provider did not assign a value to %s", cfg.IDField))
	}

	return rows[0], nil
}

func (g *Gateway) ListEntities(ctx context.Context, collection string, filter Filter, options ...ListOption) (records []provider.Record, err error) {
	ctx, span := tracer.Start(ctx, "list-entities",
		trace.WithAttributes(attribute.String(TraceAttributeCollection, collection)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
	defer func() { err = annotate(ctx, "listEntities", collection, err) }()

	cfg, err := g.collection(collection)
	if err != nil {
		return nil, err
	}

	opts := &listOptions{}
	for _, option := range options {
		option(opts)
	}

	params := make([]provider.RequestDecoratorFunc, 0, len(filter)+len(opts.embeds)+4)
	params = append(params, provider.IDColumn(cfg.IDField))

	// sorted so that identical filters always produce identical provider requests
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if !provider.IsValidIdentifier(field) {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid filter field %q", field))
		}
		params = append(params, provider.Eq(field, filter[field]))
	}

	for _, name := range opts.embeds {
		rel, ok := cfg.relation(name)
		if !ok {
			return nil, errors.NewValidationError(fmt.Sprintf("%s has no relation named %q", collection, name))
		}
		params = append(params, provider.Embedded(rel.Collection, rel.ForeignKey))
	}

	for _, o := range opts.order {
		if !provider.IsValidIdentifier(o.Column) {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid order field %q", o.Column))
		}
		if o.Descending {
			params = append(params, provider.OrderByDescending(o.Column))
		} else {
			params = append(params, provider.OrderBy(o.Column))
		}
	}

	if opts.limit < 0 || opts.offset < 0 {
		return nil, errors.NewValidationError("limit and offset must not be negative")
	}
	if opts.limit > 0 {
		params = append(params, provider.Limit(opts.limit))
	}
	if opts.offset > 0 {
		params = append(params, provider.Offset(opts.offset))
	}

	rows, err := g.client.Select(ctx, collection, params...)
	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = []provider.Record{}
	}

	return rows, nil
}

func (g *Gateway) DeleteEntity(ctx context.Context, collection, id string) (err error) {
	ctx, span := tracer.Start(ctx, "delete-entity",
		trace.WithAttributes(
			attribute.String(TraceAttributeCollection, collection),
			attribute.String(TraceAttributeEntityID, id),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
	defer func() { err = annotate(ctx, "deleteEntity", collection, err) }()

	cfg, err := g.collection(collection)
	if err != nil {
		return err
	}

	if err = requireID(id); err != nil {
		return err
	}

	rows, err := g.client.Delete(ctx, collection, provider.Eq(cfg.IDField, id), provider.Single(), provider.IDColumn(cfg.IDField))
	if err != nil {
		return err
	}

	_, err = exactlyOne(rows, collection, id)
	return err
}

func (g *Gateway) UploadFile(ctx context.Context, bucket, path, contentType string, blob io.Reader) (handle *provider.FileHandle, err error) {
	ctx, span := tracer.Start(ctx, "upload-file",
		trace.WithAttributes(
			attribute.String(TraceAttributeBucket, bucket),
			attribute.String(TraceAttributePath, path),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
	defer func() { err = annotate(ctx, "uploadFile", bucket, err) }()

	if err = validateObject(bucket, path); err != nil {
		return nil, err
	}

	if blob == nil {
		return nil, errors.NewValidationError("no file content")
	}

	// buckets without configuration never overwrite existing objects
	cfg := g.buckets[bucket]

	return g.client.Storage().Upload(ctx, bucket, path, blob, provider.UploadOptions{
		ContentType: contentType,
		Upsert:      cfg.Overwrite,
	})
}

func (g *Gateway) DownloadFile(ctx context.Context, bucket, path string) (file *provider.File, err error) {
	ctx, span := tracer.Start(ctx, "download-file",
		trace.WithAttributes(
			attribute.String(TraceAttributeBucket, bucket),
			attribute.String(TraceAttributePath, path),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
	defer func() { err = annotate(ctx, "downloadFile", bucket, err) }()

	if err = validateObject(bucket, path); err != nil {
		return nil, err
	}

	return g.client.Storage().Download(ctx, bucket, path)
}

// GetFileURL derives the public URL of an object. It never contacts the
// provider, so bucket and path are expected to have been validated by the caller.
func (g *Gateway) GetFileURL(bucket, path string) string {
	return g.client.Storage().PublicURL(bucket, path)
}

// IsPublicBucket reports whether bucket was configured as public. Buckets
// without configuration are private.
func (g *Gateway) IsPublicBucket(bucket string) bool {
	return g.buckets[bucket].Public
}

// ValidateObject reports whether bucket and path may be used for storage operations.
func ValidateObject(bucket, path string) error {
	return validateObject(bucket, path)
}

// IDField is the name of the field that identifies records in collection.
func (g *Gateway) IDField(collection string) string {
	if cfg, ok := g.collections[collection]; ok {
		return cfg.IDField
	}
	return DefaultIDField
}

func (g *Gateway) collection(name string) (CollectionConfig, error) {
	if !provider.IsValidIdentifier(name) {
		return CollectionConfig{}, errors.NewValidationError(fmt.Sprintf("invalid collection name %q", name))
	}

	cfg, ok := g.collections[name]
	if !ok {
		cfg = CollectionConfig{Name: name, IDField: DefaultIDField}
	}

	return cfg, nil
}

func (cfg CollectionConfig) relation(name string) (Relation, bool) {
	for _, rel := range cfg.Relations {
		if rel.Collection == name {
			return rel, true
		}
	}
	return Relation{}, false
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewValidationError("an identifier is required")
	}
	return nil
}

func validateFields(r provider.Record) error {
	for field := range r {
		if !provider.IsValidIdentifier(field) {
			return errors.NewValidationError(fmt.Sprintf("invalid field name %q", field))
		}
	}
	return nil
}

var bucketPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

func validateObject(bucket, path string) error {
	if !bucketPattern.MatchString(bucket) {
		return errors.NewValidationError(fmt.Sprintf("invalid bucket name %q", bucket))
	}

	if path == "" || strings.HasPrefix(path, "/") {
		return errors.NewValidationError("object path must be relative and not empty")
	}

	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return errors.NewValidationError(fmt.Sprintf("invalid object path %q", path))
		}
	}

	return nil
}

func exactlyOne(rows []provider.Record, collection, id string) (provider.Record, error) {
	switch len(rows) {
	case 0:
		return nil, errors.NewNotFoundError(fmt.Sprintf("no record with id %s in %s", id, collection))
	case 1:
		return rows[0], nil
	default:
		return nil, errors.NewProviderError(fmt.Sprintf("%d records matched id %s in %s", len(rows), id, collection))
	}
}

func annotate(ctx context.Context, op, resource string, err error) error {
	if err == nil {
		return nil
	}

	if !errors.Classified(err) {
		err = errors.Wrap(err, errors.ErrProvider)
	}

	logging.GetFromContext(ctx).Debug("gateway operation failed", "op", op, "resource", resource, "err", err.Error())

	return &errors.OperationError{Op: op, Resource: resource, Err: err}
}
