package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceAttributeBucket string = "bucket"
	TraceAttributePath   string = "path"
)

type storageClient struct {
	c *pgClient
}

func (s *storageClient) Upload(ctx context.Context, bucket, path string, body io.Reader, options provider.UploadOptions) (handle *provider.FileHandle, err error) {
	ctx, span := tracer.Start(ctx, "upload-object",
		trace.WithAttributes(
			attribute.String(TraceAttributeBucket, bucket),
			attribute.String(TraceAttributePath, path),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	headers := http.Header{}
	headers.Set("x-upsert", fmt.Sprintf("%t", options.Upsert))

	contentType := options.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers.Set("Content-Type", contentType)

	response, responseBody, err := s.c.callProvider(ctx, http.MethodPost, s.objectURL(bucket, path), body, headers)
	if err != nil {
		return nil, err
	}

	if response.StatusCode >= http.StatusBadRequest {
		err = NewErrorFromResponse(response.StatusCode, responseBody)
		return nil, err
	}

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		err = fmt.Errorf("unexpected response code %d (%w)", response.StatusCode, errors.ErrProvider)
		return nil, err
	}

	result := struct {
		Key string `json:"Key"`
	}{}
	_ = json.Unmarshal(responseBody, &result)

	if result.Key == "" {
		result.Key = bucket + "/" + path
	}

	return &provider.FileHandle{Bucket: bucket, Path: path, Key: result.Key}, nil
}

func (s *storageClient) Download(ctx context.Context, bucket, path string) (file *provider.File, err error) {
	ctx, span := tracer.Start(ctx, "download-object",
		trace.WithAttributes(
			attribute.String(TraceAttributeBucket, bucket),
			attribute.String(TraceAttributePath, path),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, responseBody, err := s.c.callProvider(ctx, http.MethodGet, s.objectURL(bucket, path), nil, nil)
	if err != nil {
		return nil, err
	}

	if response.StatusCode >= http.StatusBadRequest {
		err = NewErrorFromResponse(response.StatusCode, responseBody)
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected response code %d (%w)", response.StatusCode, errors.ErrProvider)
		return nil, err
	}

	return &provider.File{
		ContentType: response.Header.Get("Content-Type"),
		Content:     responseBody,
	}, nil
}

func (s *storageClient) PublicURL(bucket, path string) string {
	return provider.PublicObjectURL(s.c.baseURL, bucket, path)
}

func (s *storageClient) objectURL(bucket, path string) string {
	return s.c.baseURL + "/storage/v1/object/" + url.PathEscape(bucket) + "/" + provider.EscapePath(path)
}
