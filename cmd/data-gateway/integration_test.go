package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	datagateway "github.com/diwise/data-gateway/internal/pkg/application/data-gateway"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var method = expects.RequestMethod
var path = expects.RequestPath

func DefaultTestFlags() FlagMap {
	return FlagMap{
		listenAddress: "",
		servicePort:   "0",

		logFormat: "json",
	}
}

func TestIntegrateNomineeLifecycleWithSQLite(t *testing.T) {
	is, ts := setupIntegrationTest(t, sqliteConfig)

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v1/collections/users", `{"id":"u1","full_name":"Ursula User"}`)
	is.Equal(resp.StatusCode, http.StatusCreated)

	resp, body := testRequest(is, ts, http.MethodPost, "/api/v1/dashboard/u1/nominees", `{"name":"Alice","access_categories":[{"category":"email"}]}`)
	is.Equal(resp.StatusCode, http.StatusCreated)
	is.True(strings.Contains(body, `"category":"email"`))

	resp, body = testRequest(is, ts, http.MethodGet, "/api/v1/collections/nominees?user_id=u1&embed=access_categories", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"name":"Alice"`))
	is.True(strings.Contains(body, `"category":"email"`))

	resp, _ = testRequest(is, ts, http.MethodDelete, "/api/v1/collections/users/u1", "")
	is.Equal(resp.StatusCode, http.StatusNoContent)

	// nominees are removed along with their user
	resp, body = testRequest(is, ts, http.MethodGet, "/api/v1/collections/nominees?user_id=u1", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, "[]")
}

func TestIntegrateGetEntityFromPostgREST(t *testing.T) {
	is := is.New(t)

	ms := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/rest/v1/nominees"),
			expects.QueryParamEquals("id", "eq.n1"),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"id":"n1","name":"Alice","user_id":"u1"}`)),
		),
	)
	defer ms.Close()

	_, ts := setupIntegrationTest(t, "provider:\n  type: postgrest\n  endpoint: "+ms.URL()+"\n")

	resp, body := testRequest(is, ts, http.MethodGet, "/api/v1/collections/nominees/n1", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"id":"n1","name":"Alice","user_id":"u1"}`)
	is.Equal(ms.RequestCount(), 1)
}

func TestIntegrateProviderOutage(t *testing.T) {
	is := is.New(t)

	ms := testutils.NewMockServiceThat(
		Expects(is, expects.AnyInput()),
		Returns(
			response.Code(http.StatusServiceUnavailable),
			response.Body([]byte("down for maintenance")),
		),
	)
	defer ms.Close()

	_, ts := setupIntegrationTest(t, "provider:\n  type: postgrest\n  endpoint: "+ms.URL()+"\n")

	resp, _ := testRequest(is, ts, http.MethodGet, "/api/v1/collections/nominees/n1", "")
	is.Equal(resp.StatusCode, http.StatusBadGateway)
}

func TestIntegrateShippedConfiguration(t *testing.T) {
	is := is.New(t)

	config, err := os.ReadFile("../../assets/config/data-gateway.yaml")
	is.NoErr(err)
	policy, err := os.ReadFile("../../assets/config/authz.rego")
	is.NoErr(err)

	// keep the database in memory instead of at the deployment path
	config = bytes.Replace(config, []byte("/opt/diwise/data/data-gateway.db"), []byte(":memory:"), 1)

	handler, shutdown, err := initialize(context.Background(), DefaultTestFlags(), &AppConfig{
		gatewayConfig: bytes.NewReader(config),
		opaConfig:     bytes.NewReader(policy),
	})
	is.NoErr(err)

	ts := httptest.NewServer(handler)
	t.Cleanup(func() {
		ts.Close()
		shutdown()
	})

	// an unverified token grants nothing
	resp, _ := testRequest(is, ts, http.MethodDelete, "/api/v1/collections/users/u1", "")
	is.Equal(resp.StatusCode, http.StatusForbidden)

	download, err := http.Get(ts.URL + "/storage/v1/object/public/documents/u1/will.pdf")
	is.NoErr(err)
	download.Body.Close()
	is.Equal(download.StatusCode, http.StatusNotFound)
}

func TestInitializeFailsWithAnInvalidConfiguration(t *testing.T) {
	is := is.New(t)

	_, _, err := initialize(context.Background(), DefaultTestFlags(), &AppConfig{
		gatewayConfig: bytes.NewBufferString("provider:\n  type: mongodb\n"),
		opaConfig:     bytes.NewBufferString(opaModule),
	})
	is.True(err != nil)
}

func setupIntegrationTest(t *testing.T, config string) (*is.I, *httptest.Server) {
	is := is.New(t)

	handler, shutdown, err := initialize(context.Background(), DefaultTestFlags(), &AppConfig{
		gatewayConfig: bytes.NewBufferString(config),
		opaConfig:     bytes.NewBufferString(opaModule),
		secrets:       datagateway.Secrets{APIKey: "service-key"},
	})
	is.NoErr(err)

	ts := httptest.NewServer(handler)

	t.Cleanup(func() {
		ts.Close()
		shutdown()
	})

	return is, ts
}

func testRequest(is *is.I, ts *httptest.Server, method, path string, body string) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer a-token")

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err) // http request failed
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	is.NoErr(err) // failed to read response body

	return resp, string(respBody)
}

const sqliteConfig string = `
provider:
  type: sqlite
  path: ":memory:"
  dashboardSchema: true
buckets:
  - name: documents
`

const opaModule string = `
package example.authz

default allow := false

allow = response {
    input.token != ""
    response := {
        "resource": input.resource
    }
}
`
