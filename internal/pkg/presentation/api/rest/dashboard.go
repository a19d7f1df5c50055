package rest

import (
	"encoding/json"
	"net/http"

	"github.com/diwise/data-gateway/internal/pkg/application/dashboard"
	"github.com/diwise/data-gateway/internal/pkg/presentation/api/rest/auth"
	"github.com/diwise/data-gateway/internal/pkg/presentation/api/rest/problems"
	models "github.com/diwise/data-gateway/pkg/datamodels/dashboard"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TraceAttributeUserID string = "user-id"

func NewOverviewHandler(app dashboard.Dashboard, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		userID := chi.URLParam(r, "userId")

		ctx, span := tracer.Start(r.Context(), "dashboard-overview",
			trace.WithAttributes(attribute.String(TraceAttributeUserID, userID)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, models.UsersCollection) {
			return
		}

		var overview *models.Overview
		overview, err = app.Overview(ctx, userID)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, overview)
	})
}

func NewCreateNomineeHandler(app dashboard.Dashboard, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		userID := chi.URLParam(r, "userId")

		ctx, span := tracer.Start(r.Context(), "dashboard-create-nominee",
			trace.WithAttributes(attribute.String(TraceAttributeUserID, userID)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, models.NomineesCollection) {
			return
		}

		nominee := models.Nominee{}
		if err = json.NewDecoder(r.Body).Decode(&nominee); err != nil {
			problems.NewBadRequestData("unable to decode nominee: " + err.Error()).WriteResponse(w)
			return
		}
		nominee.UserID = userID

		var created *models.Nominee
		created, err = app.CreateNominee(ctx, nominee)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusCreated, created)
	})
}

// NewUploadAvatarHandler stores the request body as the avatar of a user. The
// file name is taken from the name query parameter.
func NewUploadAvatarHandler(app dashboard.Dashboard, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		userID := chi.URLParam(r, "userId")

		ctx, span := tracer.Start(r.Context(), "dashboard-upload-avatar",
			trace.WithAttributes(attribute.String(TraceAttributeUserID, userID)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, models.AvatarsBucket) {
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			problems.NewBadRequestData("the name of the avatar file is required").WriteResponse(w)
			return
		}

		body := http.MaxBytesReader(w, r.Body, MaxUploadSize)
		defer body.Close()

		var url string
		url, err = app.UploadAvatar(ctx, userID, name, r.Header.Get("Content-Type"), body)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusCreated, map[string]string{"url": url})
	})
}
