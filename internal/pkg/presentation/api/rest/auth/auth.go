package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/open-policy-agent/opa/rego"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("data-gateway/rest/authz")

var ErrAccessDenied = errors.New("authorization failed")

type Enticator interface {
	// CheckAccess evaluates the policies for a request against a collection or bucket.
	CheckAccess(ctx context.Context, r *http.Request, resource string) error
}

type enticatorImpl struct {
	preparedQuery rego.PreparedEvalQuery
	provider      string
}

// NewAuthenticator prepares the rego policies. The provider type is passed to
// the policies so that they can tell providers that verify access tokens
// themselves from those that do not.
func NewAuthenticator(ctx context.Context, policies io.Reader, provider string) (Enticator, error) {

	module, err := io.ReadAll(policies)
	if err != nil {
		return nil, fmt.Errorf("unable to read authz policies: %s", err.Error())
	}

	impl := &enticatorImpl{provider: provider}

	impl.preparedQuery, err = rego.New(
		rego.Query("x = data.example.authz.allow"),
		rego.Module("example.rego", string(module)),
	).PrepareForEval(ctx)

	if err != nil {
		return nil, err
	}

	return impl, nil
}

func (e *enticatorImpl) CheckAccess(ctx context.Context, r *http.Request, resource string) error {
	var err error

	_, span := tracer.Start(ctx, "check-auth")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	input := map[string]any{
		"method":   r.Method,
		"path":     path,
		"token":    BearerToken(r),
		"resource": resource,
		"provider": e.provider,
	}

	results, err := e.preparedQuery.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		err = fmt.Errorf("opa eval failed: %w", err)
		return err
	}

	if len(results) == 0 {
		err = fmt.Errorf("auth failed: opa query could not be satisfied (%w)", ErrAccessDenied)
		return err
	}

	binding := results[0].Bindings["x"]

	// a denied request yields a single bool
	allowed, ok := binding.(bool)
	if ok && !allowed {
		err = ErrAccessDenied
		return err
	}

	if _, ok = binding.(map[string]any); !ok {
		err = errors.New("opa error: unexpected result type")
		return err
	}

	return nil
}

// BearerToken returns the token of an Authorization header, if any.
func BearerToken(r *http.Request) string {
	token := r.Header.Get("Authorization")

	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return token[7:]
	}

	return ""
}
