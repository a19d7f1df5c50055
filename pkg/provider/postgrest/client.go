package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	singleObjectContentType string = "application/vnd.pgrst.object+json"
	defaultSchema           string = "public"
)

type Option func(*pgClient)

func Debug(enabled string) Option {
	return func(c *pgClient) {
		c.debug = (enabled == "true")
	}
}

// APIKey sets the key sent in the apikey header, and as bearer token unless
// the request context carries an access token of its own.
func APIKey(key string) Option {
	return func(c *pgClient) {
		c.apiKey = key
	}
}

func Schema(schema string) Option {
	return func(c *pgClient) {
		c.schema = schema
	}
}

func NewClient(baseURL string, options ...Option) provider.Client {
	c := &pgClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		schema:  defaultSchema,
		debug:   false,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, option := range options {
		option(c)
	}

	return c
}

const (
	TraceAttributeCollection string = "collection"
	TraceAttributeSchema     string = "schema"
)

var tracer = otel.Tracer("data-gateway/postgrest")

type pgClient struct {
	baseURL    string
	apiKey     string
	schema     string
	debug      bool
	httpClient http.Client
}

func (c *pgClient) Select(ctx context.Context, collection string, params ...provider.RequestDecoratorFunc) (records []provider.Record, err error) {
	ctx, span := c.startSpan(ctx, "select", collection)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := provider.NewRequest(params...)

	return c.do(ctx, http.MethodGet, collection, req, nil, http.StatusOK)
}

func (c *pgClient) Insert(ctx context.Context, collection string, row provider.Record, params ...provider.RequestDecoratorFunc) (records []provider.Record, err error) {
	ctx, span := c.startSpan(ctx, "insert", collection)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := json.Marshal(row)
	if err != nil {
		err = errors.NewValidationError(fmt.Sprintf("failed to marshal row: %s", err.Error()))
		return nil, err
	}

	// filters are meaningless for an insert, only the shape of the response is kept
	req := provider.NewRequest(params...)
	req.Filters = nil

	return c.do(ctx, http.MethodPost, collection, req, body, http.StatusCreated)
}

func (c *pgClient) Update(ctx context.Context, collection string, patch provider.Record, params ...provider.RequestDecoratorFunc) (records []provider.Record, err error) {
	ctx, span := c.startSpan(ctx, "update", collection)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := provider.NewRequest(params...)
	if len(req.Filters) == 0 {
		err = errors.NewValidationError("refusing to update without a filter")
		return nil, err
	}

	body, err := json.Marshal(patch)
	if err != nil {
		err = errors.NewValidationError(fmt.Sprintf("failed to marshal patch: %s", err.Error()))
		return nil, err
	}

	return c.do(ctx, http.MethodPatch, collection, req, body, http.StatusOK)
}

func (c *pgClient) Delete(ctx context.Context, collection string, params ...provider.RequestDecoratorFunc) (records []provider.Record, err error) {
	ctx, span := c.startSpan(ctx, "delete", collection)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := provider.NewRequest(params...)
	if len(req.Filters) == 0 {
		err = errors.NewValidationError("refusing to delete without a filter")
		return nil, err
	}

	return c.do(ctx, http.MethodDelete, collection, req, nil, http.StatusOK)
}

func (c *pgClient) Storage() provider.Storage {
	return &storageClient{c: c}
}

func (c *pgClient) startSpan(ctx context.Context, name, collection string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String(TraceAttributeSchema, c.schema),
			attribute.String(TraceAttributeCollection, collection),
		),
	)
}

func (c *pgClient) do(ctx context.Context, method, collection string, req *provider.Request, body []byte, expectedStatus int) ([]provider.Record, error) {
	if !provider.IsValidIdentifier(collection) {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid collection name %q", collection))
	}

	query, err := encodeQuery(req)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/rest/v1/" + collection
	if len(query) > 0 {
		endpoint += "?" + query
	}

	headers := http.Header{}
	if method == http.MethodGet {
		headers.Set("Accept-Profile", c.schema)
	} else {
		headers.Set("Content-Profile", c.schema)
		headers.Set("Prefer", "return=representation")
	}

	if body != nil {
		headers.Set("Content-Type", "application/json")
	}

	if req.Single {
		headers.Set("Accept", singleObjectContentType)
	} else {
		headers.Set("Accept", "application/json")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	response, responseBody, err := c.callProvider(ctx, method, endpoint, reader, headers)
	if err != nil {
		return nil, err
	}

	if response.StatusCode >= http.StatusBadRequest {
		return nil, NewErrorFromResponse(response.StatusCode, responseBody)
	}

	if response.StatusCode != expectedStatus {
		return nil, fmt.Errorf("unexpected response code %d (%w)", response.StatusCode, errors.ErrProvider)
	}

	return c.decodeRecords(responseBody, req.Single)
}

func (c *pgClient) decodeRecords(body []byte, single bool) ([]provider.Record, error) {
	if single {
		record := provider.Record{}
		err := json.Unmarshal(body, &record)
		if err != nil {
			return nil, c.unmarshalError(body, err)
		}
		return []provider.Record{record}, nil
	}

	records := []provider.Record{}
	if len(bytes.TrimSpace(body)) == 0 {
		return records, nil
	}

	err := json.Unmarshal(body, &records)
	if err != nil {
		return nil, c.unmarshalError(body, err)
	}

	return records, nil
}

func (c *pgClient) unmarshalError(body []byte, err error) error {
	if c.debug && len(body) < 1000 {
		return fmt.Errorf("unmarshaling of %s failed with err %s (%w)", string(body), err.Error(), errors.ErrProvider)
	}
	return fmt.Errorf("failed to unmarshal response: %s (%w)", err.Error(), errors.ErrProvider)
}

func encodeQuery(req *provider.Request) (string, error) {
	params := url.Values{}

	selection, err := selectClause(req)
	if err != nil {
		return "", err
	}
	if selection != "" {
		params.Set("select", selection)
	}

	for _, f := range req.Filters {
		if !provider.IsValidIdentifier(f.Column) {
			return "", errors.NewValidationError(fmt.Sprintf("invalid filter column %q", f.Column))
		}
		if f.Value == nil {
			params.Add(f.Column, "is.null")
			continue
		}
		params.Add(f.Column, "eq."+formatValue(f.Value))
	}

	if len(req.Order) > 0 {
		order := make([]string, 0, len(req.Order))
		for _, o := range req.Order {
			if !provider.IsValidIdentifier(o.Column) {
				return "", errors.NewValidationError(fmt.Sprintf("invalid order column %q", o.Column))
			}
			direction := "asc"
			if o.Descending {
				direction = "desc"
			}
			order = append(order, o.Column+"."+direction)
		}
		params.Set("order", strings.Join(order, ","))
	}

	if req.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", req.Limit))
	}

	if req.Offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", req.Offset))
	}

	return params.Encode(), nil
}

// selectClause renders columns and embedded relations, e.g. "*,access_categories(*)".
// PostgREST resolves embeds through the foreign keys of the schema.
func selectClause(req *provider.Request) (string, error) {
	if len(req.Columns) == 0 && len(req.Embeds) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(req.Columns)+len(req.Embeds))
	for _, col := range req.Columns {
		if col != "*" && !provider.IsValidIdentifier(col) {
			return "", errors.NewValidationError(fmt.Sprintf("invalid column %q", col))
		}
		parts = append(parts, col)
	}

	if len(req.Columns) == 0 {
		parts = append(parts, "*")
	}

	for _, e := range req.Embeds {
		if !provider.IsValidIdentifier(e.Relation) {
			return "", errors.NewValidationError(fmt.Sprintf("invalid relation %q", e.Relation))
		}
		parts = append(parts, e.Relation+"(*)")
	}

	return strings.Join(parts, ","), nil
}

func formatValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}

func (c *pgClient) callProvider(ctx context.Context, method, endpoint string, body io.Reader, headers http.Header) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %s (%w)", err.Error(), errors.ErrProvider)
	}

	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	token := provider.AccessTokenFromContext(ctx)
	if token == "" {
		token = c.apiKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for header, headerValue := range headers {
		for _, val := range headerValue {
			req.Header.Add(header, val)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, errors.Wrap(fmt.Errorf("failed to send request: %w", err), errors.ErrProvider)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %s (%w)", err.Error(), errors.ErrProvider)
	}

	if c.debug && resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusNotFound {
			req.Header.Del("apikey")
			req.Header.Del("Authorization")

			reqbytes, _ := httputil.DumpRequest(req, false)
			respbytes, _ := httputil.DumpResponse(resp, false)

			log := logging.GetFromContext(ctx)
			log.Error("request failed", "request", string(reqbytes), "response", string(respbytes))
		}
	}

	return resp, respBody, nil
}
