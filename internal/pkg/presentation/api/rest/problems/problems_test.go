package problems

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/matryer/is"
)

func TestErrorKindsMapToResponseCodes(t *testing.T) {
	is := is.New(t)

	cases := []struct {
		err  error
		code int
	}{
		{errors.NewNotFoundError("gone"), http.StatusNotFound},
		{errors.NewAlreadyExistsError("twice"), http.StatusConflict},
		{errors.NewValidationError("bad"), http.StatusBadRequest},
		{errors.NewUnauthorizedError("jwt expired"), http.StatusUnauthorized},
		{errors.NewProviderError("down"), http.StatusBadGateway},
		{errors.Wrap(context.DeadlineExceeded, errors.ErrProvider), http.StatusBadGateway},
		{&errors.OperationError{Op: "getEntity", Resource: "users", Err: errors.NewNotFoundError("gone")}, http.StatusNotFound},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		is.Equal(FromError(c.err).ResponseCode(), c.code)
	}
}

func TestWriteResponse(t *testing.T) {
	is := is.New(t)
	w := httptest.NewRecorder()

	ReportError(w, &errors.OperationError{Op: "deleteEntity", Resource: "nominees", Err: errors.NewNotFoundError("no record with id n1 in nominees")})

	is.Equal(w.Code, http.StatusNotFound)
	is.Equal(w.Header().Get("Content-Type"), ProblemReportContentType)

	report := struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}{}
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &report))

	is.Equal(report.Title, "Not Found")
	is.Equal(report.Status, http.StatusNotFound)
	is.Equal(report.Detail, "deleteEntity nominees: no record with id n1 in nominees")
}
