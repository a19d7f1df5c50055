package postgrest

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	gwerrors "github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"

	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var anyInput = expects.AnyInput
var method = expects.RequestMethod
var path = expects.RequestPath
var body = expects.RequestBody

func TestSelectSingleRecord(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/rest/v1/nominees"),
			QueryParamEquals("id", "eq.n1"),
			QueryParamEquals("select", "*,access_categories(*)"),
			HeaderEquals("Accept", "application/vnd.pgrst.object+json"),
			HeaderEquals("apikey", "anon-key"),
			HeaderEquals("Authorization", "Bearer anon-key"),
		),
		Returns(
			response.ContentType("application/vnd.pgrst.object+json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"id":"n1","name":"Alice","access_categories":[{"id":"a1","nominee_id":"n1"}]}`)),
		),
	)
	defer s.Close()

	c := NewClient(s.URL(), APIKey("anon-key"))

	records, err := c.Select(context.Background(), "nominees",
		provider.Eq("id", "n1"), provider.Single(), provider.Embedded("access_categories", "nominee_id"),
	)

	is.NoErr(err)
	is.Equal(len(records), 1)
	is.Equal(records[0]["name"], "Alice")
	is.Equal(len(records[0]["access_categories"].([]any)), 1)
}

func TestSelectForwardsTheCallersAccessToken(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			HeaderEquals("apikey", "anon-key"),
			HeaderEquals("Authorization", "Bearer user-jwt"),
		),
		Returns(
			response.Code(http.StatusOK),
			response.Body([]byte(`[]`)),
		),
	)
	defer s.Close()

	c := NewClient(s.URL(), APIKey("anon-key"))
	ctx := provider.WithAccessToken(context.Background(), "user-jwt")

	records, err := c.Select(ctx, "users")

	is.NoErr(err)
	is.Equal(len(records), 0)
}

func TestSelectListWithFiltersOrderAndPaging(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			path("/rest/v1/nominees"),
			QueryParamEquals("user_id", "eq.u1"),
			QueryParamEquals("order", "name.asc,created_at.desc"),
			QueryParamEquals("limit", "10"),
			QueryParamEquals("offset", "20"),
			HeaderEquals("Accept", "application/json"),
			HeaderEquals("Accept-Profile", "public"),
		),
		Returns(
			response.Code(http.StatusOK),
			response.Body([]byte(`[{"id":"n1","user_id":"u1"},{"id":"n2","user_id":"u1"}]`)),
		),
	)
	defer s.Close()

	c := NewClient(s.URL())

	records, err := c.Select(context.Background(), "nominees",
		provider.Eq("user_id", "u1"),
		provider.OrderBy("name"), provider.OrderByDescending("created_at"),
		provider.Limit(10), provider.Offset(20),
	)

	is.NoErr(err)
	is.Equal(len(records), 2)
	is.Equal(records[1].String("id"), "n2")
}

func TestSelectWithANullFilter(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			path("/rest/v1/nominees"),
			QueryParamEquals("email", "is.null"),
			QueryParamEquals("user_id", "eq.u1"),
		),
		Returns(
			response.Code(http.StatusOK),
			response.Body([]byte(`[{"id":"n1","user_id":"u1","email":null}]`)),
		),
	)
	defer s.Close()

	records, err := NewClient(s.URL()).Select(context.Background(), "nominees", provider.Eq("email", nil), provider.Eq("user_id", "u1"))

	is.NoErr(err)
	is.Equal(len(records), 1)
	is.Equal(s.RequestCount(), 1)
}

func TestSingleSelectWithoutRowsIsNotFound(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusNotAcceptable),
			response.Body([]byte(`{"code":"PGRST116","details":"The result contains 0 rows","hint":null,"message":"JSON object requested, multiple (or no) rows returned"}`)),
		),
	)
	defer s.Close()

	c := NewClient(s.URL())

	_, err := c.Select(context.Background(), "nominees", provider.Eq("id", "missing"), provider.Single())

	is.True(errors.Is(err, gwerrors.ErrNotFound))
}

func TestInsertReturnsTheRepresentation(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/rest/v1/nominees"),
			body(`{"name":"Alice","user_id":"u1"}`),
			HeaderEquals("Prefer", "return=representation"),
			HeaderEquals("Content-Type", "application/json"),
		),
		Returns(
			response.Code(http.StatusCreated),
			response.Body([]byte(`{"id":"n1","name":"Alice","user_id":"u1"}`)),
		),
	)
	defer s.Close()

	c := NewClient(s.URL())

	records, err := c.Insert(context.Background(), "nominees", provider.Record{"name": "Alice", "user_id": "u1"}, provider.Single())

	is.NoErr(err)
	is.Equal(records[0].String("id"), "n1")
}

func TestInsertHandlesConstraintViolations(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.Code(http.StatusBadRequest),
			response.Body([]byte(`{"code":"23502","details":"Failing row contains (n1, null).","hint":null,"message":"null value in column \"user_id\" violates not-null constraint"}`)),
		),
	)
	defer s.Close()

	_, err := NewClient(s.URL()).Insert(context.Background(), "nominees", provider.Record{"name": "Alice"})

	is.True(errors.Is(err, gwerrors.ErrValidation))
}

func TestInsertHandlesDuplicates(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.Code(http.StatusConflict),
			response.Body([]byte(`{"code":"23505","details":"Key (id)=(n1) already exists.","hint":null,"message":"duplicate key value violates unique constraint \"nominees_pkey\""}`)),
		),
	)
	defer s.Close()

	_, err := NewClient(s.URL()).Insert(context.Background(), "nominees", provider.Record{"id": "n1"})

	is.True(errors.Is(err, gwerrors.ErrAlreadyExists))
	is.True(errors.Is(err, gwerrors.ErrValidation))
}

func TestUpdatePatchesFilteredRows(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPatch),
			path("/rest/v1/users"),
			QueryParamEquals("id", "eq.u1"),
			body(`{"full_name":"Bob"}`),
		),
		Returns(
			response.Code(http.StatusOK),
			response.Body([]byte(`{"id":"u1","full_name":"Bob"}`)),
		),
	)
	defer s.Close()

	records, err := NewClient(s.URL()).Update(context.Background(), "users", provider.Record{"full_name": "Bob"},
		provider.Eq("id", "u1"), provider.Single(),
	)

	is.NoErr(err)
	is.Equal(records[0]["full_name"], "Bob")
}

func TestUpdateAndDeleteRequireAFilter(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(Expects(is, anyInput()), Returns(response.Code(http.StatusOK)))
	defer s.Close()

	c := NewClient(s.URL())

	_, err := c.Update(context.Background(), "users", provider.Record{"full_name": "Bob"})
	is.True(errors.Is(err, gwerrors.ErrValidation))

	_, err = c.Delete(context.Background(), "users")
	is.True(errors.Is(err, gwerrors.ErrValidation))

	is.Equal(s.RequestCount(), 0)
}

func TestDeleteEntity(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodDelete),
			path("/rest/v1/nominees"),
			QueryParamEquals("id", "eq.n1"),
		),
		Returns(
			response.Code(http.StatusOK),
			response.Body([]byte(`[{"id":"n1"}]`)),
		),
	)
	defer s.Close()

	records, err := NewClient(s.URL()).Delete(context.Background(), "nominees", provider.Eq("id", "n1"))

	is.NoErr(err)
	is.Equal(len(records), 1)
	is.Equal(s.RequestCount(), 1)
}

func TestUnauthorizedRequestsAreProviderErrors(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.Code(http.StatusUnauthorized),
			response.Body([]byte(`{"code":"PGRST301","details":null,"hint":null,"message":"JWT expired"}`)),
		),
	)
	defer s.Close()

	_, err := NewClient(s.URL()).Select(context.Background(), "users")

	is.True(errors.Is(err, gwerrors.ErrUnauthorized))
	is.True(errors.Is(err, gwerrors.ErrProvider))
}

func TestUnexpectedStatusCodeIsAProviderError(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	_, err := NewClient(s.URL()).Select(context.Background(), "users")

	is.True(err != nil)
	is.Equal(err.Error(), "unexpected response code 204 (provider error)")
	is.True(errors.Is(err, gwerrors.ErrProvider))
}

func TestInvalidCollectionNamesAreRejected(t *testing.T) {
	is := is.New(t)

	_, err := NewClient("http://localhost").Select(context.Background(), "users?select=password")

	is.True(errors.Is(err, gwerrors.ErrValidation))
}

func TestUploadObject(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/storage/v1/object/avatars/u1/me.png"),
			HeaderEquals("x-upsert", "true"),
			HeaderEquals("Content-Type", "image/png"),
			body("png-bytes"),
		),
		Returns(
			response.Code(http.StatusOK),
			response.Body([]byte(`{"Key":"avatars/u1/me.png"}`)),
		),
	)
	defer s.Close()

	c := NewClient(s.URL())

	handle, err := c.Storage().Upload(context.Background(), "avatars", "u1/me.png", bytes.NewBufferString("png-bytes"),
		provider.UploadOptions{ContentType: "image/png", Upsert: true},
	)

	is.NoErr(err)
	is.Equal(handle.Key, "avatars/u1/me.png")
	is.Equal(handle.Path, "u1/me.png")
}

func TestUploadToAnExistingPathWithoutUpsertFails(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, HeaderEquals("x-upsert", "false")),
		Returns(
			response.Code(http.StatusBadRequest),
			response.Body([]byte(`{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`)),
		),
	)
	defer s.Close()

	_, err := NewClient(s.URL()).Storage().Upload(context.Background(), "avatars", "u1/me.png", bytes.NewBufferString("png"), provider.UploadOptions{})

	is.True(errors.Is(err, gwerrors.ErrAlreadyExists))
}

func TestDownloadObject(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodGet), path("/storage/v1/object/avatars/u1/me.png")),
		Returns(
			response.ContentType("image/png"),
			response.Code(http.StatusOK),
			response.Body([]byte("png-bytes")),
		),
	)
	defer s.Close()

	file, err := NewClient(s.URL()).Storage().Download(context.Background(), "avatars", "u1/me.png")

	is.NoErr(err)
	is.Equal(file.ContentType, "image/png")
	is.Equal(string(file.Content), "png-bytes")
}

func TestPublicURLIsDerivedLocally(t *testing.T) {
	is := is.New(t)

	c := NewClient("https://project.supabase.co/")

	u := c.Storage().PublicURL("avatars", "u1/my photo.png")

	is.Equal(u, "https://project.supabase.co/storage/v1/object/public/avatars/u1/my%20photo.png")
	is.Equal(c.Storage().PublicURL("avatars", "u1/my photo.png"), u)
}

func TestErrorResponsesThatAreNotJSON(t *testing.T) {
	is := is.New(t)

	err := NewErrorFromResponse(http.StatusBadGateway, []byte("<html>bad gateway</html>"))

	is.True(errors.Is(err, gwerrors.ErrProvider))
	is.True(!errors.Is(err, gwerrors.ErrValidation))
}

func QueryParamEquals(name, value string) func(*is.I, *http.Request) {
	return func(is *is.I, r *http.Request) {
		is.True(r.URL.Query().Has(name))         // query param should exist
		is.Equal(r.URL.Query().Get(name), value) // query param should match
	}
}

func HeaderEquals(name, value string) func(*is.I, *http.Request) {
	return func(is *is.I, r *http.Request) {
		is.Equal(r.Header.Get(name), value) // header should match
	}
}
