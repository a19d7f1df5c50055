package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

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
	TraceAttributeCollection string = "collection"
	TraceAttributeEntityID   string = "entity-id"
)

var reservedQueryParams = map[string]bool{"embed": true, "limit": true, "offset": true, "order": true}

func NewListEntitiesHandler(gw *gateway.Gateway, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		collection := chi.URLParam(r, "collection")

		ctx, span := tracer.Start(r.Context(), "list-entities",
			trace.WithAttributes(attribute.String(TraceAttributeCollection, collection)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, collection) {
			return
		}

		filter, options, err := listParameters(r.URL.Query())
		if err != nil {
			problems.NewBadRequestData(err.Error()).WriteResponse(w)
			return
		}

		var records []provider.Record
		records, err = gw.ListEntities(ctx, collection, filter, options...)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, records)
	})
}

func NewCreateEntityHandler(gw *gateway.Gateway, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		collection := chi.URLParam(r, "collection")

		ctx, span := tracer.Start(r.Context(), "create-entity",
			trace.WithAttributes(attribute.String(TraceAttributeCollection, collection)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, collection) {
			return
		}

		payload, err := decodeRecord(r)
		if err != nil {
			problems.NewBadRequestData(err.Error()).WriteResponse(w)
			return
		}

		var record provider.Record
		record, err = gw.CreateEntity(ctx, collection, payload)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		id := fmt.Sprint(record[gw.IDField(collection)])
		w.Header().Add("Location", "/api/v1/collections/"+collection+"/"+url.PathEscape(id))

		writeJSON(ctx, w, http.StatusCreated, record)
	})
}

func NewGetEntityHandler(gw *gateway.Gateway, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")

		ctx, span := tracer.Start(r.Context(), "get-entity",
			trace.WithAttributes(
				attribute.String(TraceAttributeCollection, collection),
				attribute.String(TraceAttributeEntityID, id),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, collection) {
			return
		}

		var record provider.Record
		record, err = gw.GetEntity(ctx, collection, id)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, record)
	})
}

func NewUpdateEntityHandler(gw *gateway.Gateway, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")

		ctx, span := tracer.Start(r.Context(), "update-entity",
			trace.WithAttributes(
				attribute.String(TraceAttributeCollection, collection),
				attribute.String(TraceAttributeEntityID, id),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, collection) {
			return
		}

		patch, err := decodeRecord(r)
		if err != nil {
			problems.NewBadRequestData(err.Error()).WriteResponse(w)
			return
		}

		var record provider.Record
		record, err = gw.UpdateEntity(ctx, collection, id, patch)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, record)
	})
}

func NewDeleteEntityHandler(gw *gateway.Gateway, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")

		ctx, span := tracer.Start(r.Context(), "delete-entity",
			trace.WithAttributes(
				attribute.String(TraceAttributeCollection, collection),
				attribute.String(TraceAttributeEntityID, id),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, collection) {
			return
		}

		err = gw.DeleteEntity(ctx, collection, id)
		if err != nil {
			problems.ReportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func decodeRecord(r *http.Request) (provider.Record, error) {
	record := provider.Record{}

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("unable to decode request payload: %s", err.Error())
	}

	return record, nil
}

// listParameters turns query parameters into an equality filter and list
// options. Orders are given as in ?order=name.asc,created_at.desc
func listParameters(query url.Values) (gateway.Filter, []gateway.ListOption, error) {
	filter := gateway.Filter{}
	options := []gateway.ListOption{}

	for key, values := range query {
		if reservedQueryParams[key] {
			continue
		}
		if len(values) != 1 {
			return nil, nil, fmt.Errorf("only a single value may be given for %s", key)
		}
		filter[key] = values[0]
	}

	if embed := query.Get("embed"); embed != "" {
		options = append(options, gateway.Embed(strings.Split(embed, ",")...))
	}

	for _, param := range []string{"limit", "offset"} {
		value := query.Get(param)
		if value == "" {
			continue
		}

		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, nil, fmt.Errorf("%s must be a positive number", param)
		}

		if param == "limit" {
			options = append(options, gateway.Limit(n))
		} else {
			options = append(options, gateway.Offset(n))
		}
	}

	if order := query.Get("order"); order != "" {
		for _, term := range strings.Split(order, ",") {
			field, direction, _ := strings.Cut(term, ".")
			switch direction {
			case "", "asc":
				options = append(options, gateway.OrderBy(field, false))
			case "desc":
				options = append(options, gateway.OrderBy(field, true))
			default:
				return nil, nil, fmt.Errorf("unknown order direction %q", direction)
			}
		}
	}

	return filter, options, nil
}
