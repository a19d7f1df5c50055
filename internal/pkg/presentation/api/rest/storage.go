package rest

import (
	"fmt"
	"net/http"

	"github.com/diwise/data-gateway/internal/pkg/presentation/api/rest/auth"
	"github.com/diwise/data-gateway/internal/pkg/presentation/api/rest/problems"
	"github.com/diwise/data-gateway/pkg/gateway"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceAttributeBucket string = "bucket"
	TraceAttributePath   string = "path"
)

// MaxUploadSize is the largest request body accepted by the upload handlers.
const MaxUploadSize int64 = 50 << 20

type uploadResponse struct {
	provider.FileHandle
	URL string `json:"url"`
}

func NewUploadFileHandler(gw *gateway.Gateway, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		bucket, path := chi.URLParam(r, "bucket"), chi.URLParam(r, "*")

		ctx, span := tracer.Start(r.Context(), "upload-file",
			trace.WithAttributes(
				attribute.String(TraceAttributeBucket, bucket),
				attribute.String(TraceAttributePath, path),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, bucket) {
			return
		}

		body := http.MaxBytesReader(w, r.Body, MaxUploadSize)
		defer body.Close()

		var handle *provider.FileHandle
		handle, err = gw.UploadFile(ctx, bucket, path, r.Header.Get("Content-Type"), body)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusCreated, uploadResponse{
			FileHandle: *handle,
			URL:        gw.GetFileURL(bucket, path),
		})
	})
}

func NewGetFileURLHandler(gw *gateway.Gateway, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		bucket, path := chi.URLParam(r, "bucket"), chi.URLParam(r, "*")

		ctx, span := tracer.Start(r.Context(), "get-file-url",
			trace.WithAttributes(
				attribute.String(TraceAttributeBucket, bucket),
				attribute.String(TraceAttributePath, path),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, bucket) {
			return
		}

		if err = gateway.ValidateObject(bucket, path); err != nil {
			problems.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, map[string]string{"url": gw.GetFileURL(bucket, path)})
	})
}

// NewDownloadFileHandler serves the objects of public buckets that GetFileURL
// points at. Objects in other buckets are reported as not found.
func NewDownloadFileHandler(gw *gateway.Gateway, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		bucket, path := chi.URLParam(r, "bucket"), chi.URLParam(r, "*")

		ctx, span := tracer.Start(r.Context(), "download-file",
			trace.WithAttributes(
				attribute.String(TraceAttributeBucket, bucket),
				attribute.String(TraceAttributePath, path),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, bucket) {
			return
		}

		if !gw.IsPublicBucket(bucket) {
			err = fmt.Errorf("download from non public bucket %s refused", bucket)
			problems.NewNotFound("no such object").WriteResponse(w)
			return
		}

		var file *provider.File
		file, err = gw.DownloadFile(ctx, bucket, path)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		w.Header().Add("Content-Type", file.ContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(file.Content)
	})
}
