package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/diwise/data-gateway/internal/pkg/application/dashboard"
	"github.com/diwise/data-gateway/internal/pkg/presentation/api/rest/auth"
	"github.com/diwise/data-gateway/internal/pkg/presentation/api/rest/problems"
	"github.com/diwise/data-gateway/pkg/gateway"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("data-gateway/rest")

const (
	TraceAttributeResource string = "resource"
)

func RegisterHandlers(ctx context.Context, r chi.Router, policies io.Reader, providerType string, gw *gateway.Gateway, app dashboard.Dashboard) error {

	authenticator, err := auth.NewAuthenticator(ctx, policies, providerType)
	if err != nil {
		return fmt.Errorf("failed to create api authenticator: %w", err)
	}

	logger := logging.GetFromContext(ctx)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Logger(logger), AccessToken())

		r.Route("/collections/{collection}", func(r chi.Router) {
			r.Use(RequiredContentTypes([]string{"application/json"}))

			r.Get("/", NewListEntitiesHandler(gw, authenticator))
			r.Post("/", NewCreateEntityHandler(gw, authenticator))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", NewGetEntityHandler(gw, authenticator))
				r.Patch("/", NewUpdateEntityHandler(gw, authenticator))
				r.Delete("/", NewDeleteEntityHandler(gw, authenticator))
			})
		})

		r.Route("/storage/{bucket}", func(r chi.Router) {
			r.Put("/*", NewUploadFileHandler(gw, authenticator))
			r.Get("/*", NewGetFileURLHandler(gw, authenticator))
		})

		r.Route("/dashboard/{userId}", func(r chi.Router) {
			r.Get("/", NewOverviewHandler(app, authenticator))
			r.With(RequiredContentTypes([]string{"application/json"})).Post("/nominees", NewCreateNomineeHandler(app, authenticator))
			r.Put("/avatar", NewUploadAvatarHandler(app, authenticator))
		})
	})

	r.Route("/storage/v1/object/public/{bucket}", func(r chi.Router) {
		r.Use(Logger(logger))
		r.Get("/*", NewDownloadFileHandler(gw, authenticator))
	})

	return nil
}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequiredContentTypes(validTypes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType := r.Header.Get("Content-Type")
			isValidContentType := true

			if len(contentType) > 0 {
				isValidContentType = false

				for _, t := range validTypes {
					if strings.HasPrefix(contentType, t) {
						isValidContentType = true
						break
					}
				}
			}

			if isValidContentType {
				next.ServeHTTP(w, r)
			} else {
				http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
			}
		})
	}
}

// AccessToken lets providers act on behalf of the caller by packing any
// bearer token into the request context
func AccessToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := provider.WithAccessToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func checkAccess(ctx context.Context, w http.ResponseWriter, r *http.Request, authenticator auth.Enticator, resource string) bool {
	if labeler, found := otelhttp.LabelerFromContext(ctx); found {
		labeler.Add(attribute.String(TraceAttributeResource, resource))
	}

	err := authenticator.CheckAccess(ctx, r, resource)
	if err != nil {
		logging.GetFromContext(ctx).Warn("access denied", "resource", resource, "err", err.Error())
		problems.NewForbidden("access denied").WriteResponse(w)
		return false
	}

	return true
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.GetFromContext(ctx).Error("failed to marshal response", "err", err.Error())
		problems.NewInternalError("failed to marshal response").WriteResponse(w)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
