package provider

import (
	"context"
	"io"
	"net/url"
	"regexp"
	"strings"
)

//go:generate moq -rm -out ./providertest/client_mock.go -pkg providertest . Client Storage

// Client is the record and file API of an external backend-as-a-service.
// Every call is a single request/response against the provider.
type Client interface {
	Select(ctx context.Context, collection string, params ...RequestDecoratorFunc) ([]Record, error)
	Insert(ctx context.Context, collection string, row Record, params ...RequestDecoratorFunc) ([]Record, error)
	Update(ctx context.Context, collection string, patch Record, params ...RequestDecoratorFunc) ([]Record, error)
	Delete(ctx context.Context, collection string, params ...RequestDecoratorFunc) ([]Record, error)

	Storage() Storage
}

// Storage stores blobs under a path within a named bucket.
type Storage interface {
	Upload(ctx context.Context, bucket, path string, body io.Reader, options UploadOptions) (*FileHandle, error)
	Download(ctx context.Context, bucket, path string) (*File, error)
	// PublicURL derives the public address of an object without contacting the provider.
	PublicURL(bucket, path string) string
}

// Record is one row of a collection, keyed by field name.
type Record map[string]any

func (r Record) String(field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

type UploadOptions struct {
	ContentType string
	Upsert      bool
}

type FileHandle struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	Key    string `json:"key"`
}

type File struct {
	ContentType string
	Content     []byte
}

// PublicObjectURL is the address under which baseURL serves a public object.
func PublicObjectURL(baseURL, bucket, path string) string {
	return strings.TrimSuffix(baseURL, "/") + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + EscapePath(path)
}

// EscapePath escapes every segment of an object path but keeps the separators.
func EscapePath(path string) string {
	segments := strings.Split(path, "/")
	for idx, segment := range segments {
		segments[idx] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsValidIdentifier reports whether name can be used as a collection or column name.
func IsValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

type accessTokenContextKey struct {
	name string
}

var accessTokenCtxKey = &accessTokenContextKey{"provider-access-token"}

// WithAccessToken stores the caller's access token so that providers can act on behalf of the caller.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenCtxKey, token)
}

func AccessTokenFromContext(ctx context.Context) string {
	token, ok := ctx.Value(accessTokenCtxKey).(string)
	if !ok {
		return ""
	}
	return token
}
