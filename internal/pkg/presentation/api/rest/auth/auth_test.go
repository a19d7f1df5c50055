package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/matryer/is"
)

func TestRequestsWithATokenAreAllowed(t *testing.T) {
	is, authenticator := setupAuthTest(t)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/collections/nominees", nil)
	r.Header.Set("Authorization", "Bearer some-token")

	is.NoErr(authenticator.CheckAccess(context.Background(), r, "nominees"))
}

func TestRequestsWithoutATokenAreDenied(t *testing.T) {
	is, authenticator := setupAuthTest(t)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/collections/nominees", nil)

	err := authenticator.CheckAccess(context.Background(), r, "nominees")
	is.True(errors.Is(err, ErrAccessDenied))
}

func TestPublicObjectsAreAlwaysAllowed(t *testing.T) {
	is, authenticator := setupAuthTest(t)

	r := httptest.NewRequest(http.MethodGet, "/storage/v1/object/public/avatars/u1/me.png", nil)

	is.NoErr(authenticator.CheckAccess(context.Background(), r, "avatars"))
}

func TestBearerToken(t *testing.T) {
	is := is.New(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	is.Equal(BearerToken(r), "")

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	is.Equal(BearerToken(r), "")

	r.Header.Set("Authorization", "bearer abc")
	is.Equal(BearerToken(r), "abc")
}

func TestShippedPolicyOnlyTrustsTokensVerifiedByTheProvider(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	policy, err := os.ReadFile("../../../../../../assets/config/authz.rego")
	is.NoErr(err)

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/collections/users/u1", nil)
	r.Header.Set("Authorization", "Bearer garbage")

	sqlite, err := NewAuthenticator(ctx, bytes.NewReader(policy), "sqlite")
	is.NoErr(err)
	is.True(errors.Is(sqlite.CheckAccess(ctx, r, "users"), ErrAccessDenied))

	postgrest, err := NewAuthenticator(ctx, bytes.NewReader(policy), "postgrest")
	is.NoErr(err)
	is.NoErr(postgrest.CheckAccess(ctx, r, "users"))

	anonymous := httptest.NewRequest(http.MethodDelete, "/api/v1/collections/users/u1", nil)
	is.True(errors.Is(postgrest.CheckAccess(ctx, anonymous, "users"), ErrAccessDenied))

	download := httptest.NewRequest(http.MethodGet, "/storage/v1/object/public/avatars/u1/me.png", nil)
	is.NoErr(sqlite.CheckAccess(ctx, download, "avatars"))
}

func setupAuthTest(t *testing.T) (*is.I, Enticator) {
	is := is.New(t)

	authenticator, err := NewAuthenticator(context.Background(), bytes.NewBufferString(opaModule), "postgrest")
	is.NoErr(err)

	return is, authenticator
}

const opaModule string = `
package example.authz

default allow := false

allow = response {
    input.token != ""
    response := {
        "resource": input.resource
    }
}

allow = response {
    input.token == ""
    input.method == "GET"
    input.path[0] == "storage"
    response := {}
}
`
