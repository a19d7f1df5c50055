package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxObjectSize int64 = 50 << 20

type objectStore struct {
	db            *sql.DB
	dialect       dialect
	publicBaseURL string
}

func (s *objectStore) Upload(ctx context.Context, bucket, path string, body io.Reader, options provider.UploadOptions) (handle *provider.FileHandle, err error) {
	ctx, span := tracer.Start(ctx, "upload-object",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("path", path),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	content, err := io.ReadAll(io.LimitReader(body, maxObjectSize+1))
	if err != nil {
		err = fmt.Errorf("failed to read object content: %w", err)
		return nil, err
	}

	if int64(len(content)) > maxObjectSize {
		err = errors.NewValidationError(fmt.Sprintf("object exceeds the maximum size of %d bytes", maxObjectSize))
		return nil, err
	}

	contentType := options.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	stmt := newStatement(s.dialect)
	stmt.write(
		"INSERT INTO storage_objects (bucket, path, content_type, content, size, created_at) VALUES (",
		stmt.bind(bucket), ", ", stmt.bind(path), ", ", stmt.bind(contentType), ", ",
		stmt.bind(content), ", ", stmt.bind(int64(len(content))), ", ", stmt.bind(time.Now().UTC()), ")",
	)

	if options.Upsert {
		stmt.write(
			" ON CONFLICT (bucket, path) DO UPDATE SET content_type = excluded.content_type,",
			" content = excluded.content, size = excluded.size, created_at = excluded.created_at",
		)
	}

	_, err = s.db.ExecContext(ctx, stmt.String(), stmt.args...)
	if err != nil {
		err = classify(err)
		if stderrors.Is(err, errors.ErrAlreadyExists) {
			err = errors.NewAlreadyExistsError(fmt.Sprintf("an object already exists at %s/%s", bucket, path))
		}
		return nil, err
	}

	return &provider.FileHandle{Bucket: bucket, Path: path, Key: bucket + "/" + path}, nil
}

func (s *objectStore) Download(ctx context.Context, bucket, path string) (file *provider.File, err error) {
	ctx, span := tracer.Start(ctx, "download-object",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("path", path),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	stmt := newStatement(s.dialect)
	stmt.write(
		"SELECT content_type, content FROM storage_objects WHERE bucket = ", stmt.bind(bucket),
		" AND path = ", stmt.bind(path),
	)

	file = &provider.File{}

	err = s.db.QueryRowContext(ctx, stmt.String(), stmt.args...).Scan(&file.ContentType, &file.Content)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			err = errors.NewNotFoundError(fmt.Sprintf("no object at %s/%s", bucket, path))
			return nil, err
		}
		err = classify(err)
		return nil, err
	}

	return file, nil
}

func (s *objectStore) PublicURL(bucket, path string) string {
	return provider.PublicObjectURL(s.publicBaseURL, bucket, path)
}
