package problems

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
)

//ProblemDetails stores details about a certain problem according to RFC7807
//See https://tools.ietf.org/html/rfc7807
type ProblemDetails interface {
	ContentType() string
	Type() string
	Title() string
	Detail() string
	ResponseCode() int
	MarshalJSON() ([]byte, error)
	WriteResponse(w http.ResponseWriter)
}

type problemDetailsImpl struct {
	typ    string
	title  string
	detail string
	code   int
}

const (
	//ProblemReportContentType as required by https://tools.ietf.org/html/rfc7807
	ProblemReportContentType string = "application/problem+json"

	typePrefix string = "https://github.com/diwise/data-gateway/errors/"
)

func newProblem(name, title, detail string, code int) ProblemDetails {
	return &problemDetailsImpl{
		typ:    typePrefix + name,
		title:  title,
		detail: detail,
		code:   code,
	}
}

func NewAlreadyExists(detail string) ProblemDetails {
	return newProblem("AlreadyExists", "Already Exists", detail, http.StatusConflict)
}

//NewBadRequestData reports input data that does not meet the requirements of the operation
func NewBadRequestData(detail string) ProblemDetails {
	return newProblem("BadRequestData", "Bad Request Data", detail, http.StatusBadRequest)
}

func NewNotFound(detail string) ProblemDetails {
	return newProblem("ResourceNotFound", "Not Found", detail, http.StatusNotFound)
}

func NewUnauthorizedRequest(detail string) ProblemDetails {
	return newProblem("UnauthorizedRequest", "Unauthorized Request", detail, http.StatusUnauthorized)
}

func NewForbidden(detail string) ProblemDetails {
	return newProblem("Forbidden", "Forbidden", detail, http.StatusForbidden)
}

//NewProviderError reports a failure of the record or file provider behind the gateway
func NewProviderError(detail string) ProblemDetails {
	return newProblem("ProviderError", "Provider Error", detail, http.StatusBadGateway)
}

func NewInternalError(detail string) ProblemDetails {
	return newProblem("InternalError", "Internal Error", detail, http.StatusInternalServerError)
}

// FromError picks the problem that corresponds to the kind of a gateway error.
func FromError(err error) ProblemDetails {
	detail := err.Error()

	switch {
	case errors.IsNotFound(err):
		return NewNotFound(detail)
	case stderrors.Is(err, errors.ErrAlreadyExists):
		return NewAlreadyExists(detail)
	case errors.IsValidation(err):
		return NewBadRequestData(detail)
	case stderrors.Is(err, errors.ErrUnauthorized):
		return NewUnauthorizedRequest(detail)
	case errors.IsProvider(err):
		return NewProviderError(detail)
	}

	return NewInternalError(detail)
}

//ReportError writes the problem that corresponds to err to the supplied http.ResponseWriter
func ReportError(w http.ResponseWriter, err error) {
	FromError(err).WriteResponse(w)
}

func (p *problemDetailsImpl) ContentType() string {
	return ProblemReportContentType
}

func (p *problemDetailsImpl) Type() string   { return p.typ }
func (p *problemDetailsImpl) Title() string  { return p.title }
func (p *problemDetailsImpl) Detail() string { return p.detail }

func (p *problemDetailsImpl) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}{
		Type:   p.typ,
		Title:  p.title,
		Status: p.ResponseCode(),
		Detail: p.detail,
	})
}

//ResponseCode returns the HTTP response code to be used when returning a specific problem
func (p *problemDetailsImpl) ResponseCode() int {

	if p.code != 0 {
		return p.code
	}

	return http.StatusBadRequest
}

//WriteResponse writes the contents of this instance to a http.ResponseWriter
func (p *problemDetailsImpl) WriteResponse(w http.ResponseWriter) {
	w.Header().Add("Content-Type", p.ContentType())
	w.Header().Add("Content-Language", "en")
	w.WriteHeader(p.ResponseCode())

	pdbytes, err := json.MarshalIndent(p, "", "  ")
	if err == nil {
		w.Write(pdbytes)
	}
}
