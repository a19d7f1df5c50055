package postgrest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
)

// NewErrorFromResponse classifies an error response from either the REST
// or the storage API of the provider.
func NewErrorFromResponse(code int, body []byte) error {
	report := &struct {
		// PostgREST
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
		Hint    string `json:"hint"`
		// storage API
		StatusCode string `json:"statusCode"`
		Error      string `json:"error"`
	}{}

	err := json.Unmarshal(body, report)
	if err != nil {
		return errors.NewProviderError(
			fmt.Sprintf("[code: %d] failed to process error response from provider: %s", code, err.Error()),
		)
	}

	detail := report.Message
	if detail == "" {
		detail = report.Error
	}
	if report.Details != "" {
		detail = detail + " (" + report.Details + ")"
	}

	switch {
	case report.Code == "PGRST116":
		// a singular response was requested and the result held zero or several rows
		if strings.Contains(report.Details, " 0 rows") || strings.HasPrefix(report.Details, "0 rows") {
			return errors.NewNotFoundError(detail)
		}
		return errors.NewProviderError(detail)
	case code == http.StatusNotFound || report.StatusCode == "404":
		return errors.NewNotFoundError(detail)
	case code == http.StatusConflict || report.Code == "23505" || report.StatusCode == "409":
		return errors.NewAlreadyExistsError(detail)
	case code == http.StatusUnauthorized || code == http.StatusForbidden || report.Code == "42501" || strings.HasPrefix(report.Code, "PGRST3"):
		return errors.NewUnauthorizedError(detail)
	case strings.HasPrefix(report.Code, "22") || strings.HasPrefix(report.Code, "23") || report.Code == "42703" || strings.HasPrefix(report.Code, "PGRST1"):
		return errors.NewValidationError(detail)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity || code == http.StatusRequestEntityTooLarge:
		return errors.NewValidationError(detail)
	}

	return errors.NewProviderError(
		fmt.Sprintf("[code: %d] unknown error response of type \"%s\" with detail \"%s\" received",
			code, report.Code, detail,
		),
	)
}
