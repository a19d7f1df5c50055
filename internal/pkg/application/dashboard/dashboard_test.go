package dashboard

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/diwise/data-gateway/internal/pkg/infrastructure/database"
	"github.com/diwise/data-gateway/pkg/datamodels/dashboard"
	"github.com/diwise/data-gateway/pkg/gateway"
	gwerrors "github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/data-gateway/pkg/provider/providertest"
	"github.com/matryer/is"
)

func TestGetUser(t *testing.T) {
	is, ctx, app, _ := testSetup(t)

	user, err := app.GetUser(ctx, "u1")
	is.NoErr(err)
	is.Equal(user.FullName, "Ursula User")

	_, err = app.GetUser(ctx, "u9")
	is.True(errors.Is(err, gwerrors.ErrNotFound))
}

func TestUpdateUser(t *testing.T) {
	is, ctx, app, _ := testSetup(t)

	user, err := app.UpdateUser(ctx, "u1", provider.Record{"phone": "+46701234567"})
	is.NoErr(err)
	is.Equal(user.Phone, "+46701234567")
	is.Equal(user.FullName, "Ursula User")

	_, err = app.UpdateUser(ctx, "u1", provider.Record{"id": "u2"})
	is.True(errors.Is(err, gwerrors.ErrValidation))
}

func TestCreateNomineeWithAccessCategories(t *testing.T) {
	is, ctx, app, _ := testSetup(t)

	nominee, err := app.CreateNominee(ctx, dashboard.Nominee{
		UserID: "u1",
		Name:   "Alice",
		AccessCategories: []dashboard.AccessCategory{
			{Category: "photos"}, {Category: "email"},
		},
	})
	is.NoErr(err)
	is.True(nominee.ID != "")
	is.Equal(len(nominee.AccessCategories), 2)
	is.Equal(nominee.AccessCategories[0].NomineeID, nominee.ID)

	fetched, err := app.GetNominee(ctx, nominee.ID)
	is.NoErr(err)
	is.Equal(fetched.Name, "Alice")
	is.Equal(len(fetched.AccessCategories), 2)
}

func TestCreateNomineeIsUndoneWhenACategoryFails(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	client := &providertest.ClientMock{
		InsertFunc: func(ctx context.Context, collection string, row provider.Record, params ...provider.RequestDecoratorFunc) ([]provider.Record, error) {
			if collection == dashboard.AccessCategoriesCollection {
				return nil, gwerrors.NewValidationError("category violates check constraint")
			}
			return []provider.Record{{"id": "n1", "user_id": "u1", "name": "Alice"}}, nil
		},
		DeleteFunc: func(ctx context.Context, collection string, params ...provider.RequestDecoratorFunc) ([]provider.Record, error) {
			return []provider.Record{{"id": "n1"}}, nil
		},
	}

	app := New(gateway.New(client, Options()...))

	_, err := app.CreateNominee(ctx, dashboard.Nominee{
		UserID:           "u1",
		Name:             "Alice",
		AccessCategories: []dashboard.AccessCategory{{Category: "everything"}},
	})
	is.True(errors.Is(err, gwerrors.ErrValidation))

	is.Equal(len(client.DeleteCalls()), 1)
	is.Equal(client.DeleteCalls()[0].Collection, dashboard.NomineesCollection)
}

func TestCreateNomineeForAnUnknownUser(t *testing.T) {
	is, ctx, app, _ := testSetup(t)

	_, err := app.CreateNominee(ctx, dashboard.Nominee{UserID: "nobody", Name: "Bob"})
	is.True(errors.Is(err, gwerrors.ErrValidation))

	nominees, err := app.ListNominees(ctx, "nobody")
	is.NoErr(err)
	is.Equal(len(nominees), 0)
}

func TestCreateNomineeRequiresUserAndName(t *testing.T) {
	is, ctx, app, _ := testSetup(t)

	_, err := app.CreateNominee(ctx, dashboard.Nominee{Name: "Alice"})
	is.True(errors.Is(err, gwerrors.ErrValidation))
}

func TestListNominees(t *testing.T) {
	is, ctx, app, _ := testSetup(t)

	for _, name := range []string{"Carol", "Alice", "Bob"} {
		_, err := app.CreateNominee(ctx, dashboard.Nominee{UserID: "u1", Name: name})
		is.NoErr(err)
	}

	nominees, err := app.ListNominees(ctx, "u1")
	is.NoErr(err)
	is.Equal(len(nominees), 3)
	is.Equal(nominees[0].Name, "Alice")
	is.Equal(nominees[2].Name, "Carol")

	nominees, err = app.ListNominees(ctx, "u2")
	is.NoErr(err)
	is.Equal(len(nominees), 0)

	_, err = app.ListNominees(ctx, " ")
	is.True(errors.Is(err, gwerrors.ErrValidation))
}

func TestUpdateAndDeleteNominee(t *testing.T) {
	is, ctx, app, _ := testSetup(t)

	nominee, err := app.CreateNominee(ctx, dashboard.Nominee{UserID: "u1", Name: "Alice"})
	is.NoErr(err)

	updated, err := app.UpdateNominee(ctx, nominee.ID, provider.Record{"relationship": "sister"})
	is.NoErr(err)
	is.Equal(updated.Relationship, "sister")
	is.Equal(updated.Name, "Alice")

	_, err = app.UpdateNominee(ctx, nominee.ID, provider.Record{"access_categories": []any{}})
	is.True(errors.Is(err, gwerrors.ErrValidation))

	is.NoErr(app.DeleteNominee(ctx, nominee.ID))

	_, err = app.GetNominee(ctx, nominee.ID)
	is.True(errors.Is(err, gwerrors.ErrNotFound))

	err = app.DeleteNominee(ctx, nominee.ID)
	is.True(errors.Is(err, gwerrors.ErrNotFound))
}

func TestUploadAvatar(t *testing.T) {
	is, ctx, app, p := testSetup(t)

	url, err := app.UploadAvatar(ctx, "u1", "../me.png", "image/png", bytes.NewBufferString("png"))
	is.NoErr(err)
	is.Equal(url, "https://data.example.com/storage/v1/object/public/avatars/u1/me.png")
	is.Equal(app.AvatarURL("u1", "me.png"), url)

	user, err := app.GetUser(ctx, "u1")
	is.NoErr(err)
	is.Equal(user.AvatarURL, url)

	// avatars may be replaced
	_, err = app.UploadAvatar(ctx, "u1", "me.png", "image/png", bytes.NewBufferString("png2"))
	is.NoErr(err)

	file, err := p.Storage().Download(ctx, dashboard.AvatarsBucket, "u1/me.png")
	is.NoErr(err)
	is.Equal(string(file.Content), "png2")

	_, err = app.UploadAvatar(ctx, "", "me.png", "image/png", bytes.NewBufferString("png"))
	is.True(errors.Is(err, gwerrors.ErrValidation))
}

func TestUploadAvatarForAnUnknownUser(t *testing.T) {
	is, ctx, app, p := testSetup(t)

	_, err := app.UploadAvatar(ctx, "u9", "me.png", "image/png", bytes.NewBufferString("png"))
	is.True(errors.Is(err, gwerrors.ErrNotFound))

	_, err = p.Storage().Download(ctx, dashboard.AvatarsBucket, "u9/me.png")
	is.True(errors.Is(err, gwerrors.ErrNotFound)) // nothing should have been stored
}

func TestOverview(t *testing.T) {
	is, ctx, app, _ := testSetup(t)

	_, err := app.CreateNominee(ctx, dashboard.Nominee{
		UserID: "u1", Name: "Alice",
		AccessCategories: []dashboard.AccessCategory{{Category: "photos"}},
	})
	is.NoErr(err)

	overview, err := app.Overview(ctx, "u1")
	is.NoErr(err)
	is.Equal(overview.User.ID, "u1")
	is.Equal(len(overview.Nominees), 1)
	is.Equal(overview.Nominees[0].AccessCategories[0].Category, "photos")

	_, err = app.Overview(ctx, "u9")
	is.True(errors.Is(err, gwerrors.ErrNotFound))
}

func testSetup(t *testing.T) (*is.I, context.Context, Dashboard, *database.Provider) {
	is := is.New(t)
	ctx := context.Background()

	p, err := database.NewSQLiteProvider(ctx, ":memory:", database.PublicBaseURL("https://data.example.com"))
	is.NoErr(err)
	t.Cleanup(func() { p.Close() })

	is.NoErr(p.Migrate(ctx, dashboard.Schema))

	_, err = p.Insert(ctx, dashboard.UsersCollection, provider.Record{"id": "u1", "full_name": "Ursula User", "email": "ursula@example.com"})
	is.NoErr(err)

	gw := gateway.New(p, Options()...)

	return is, ctx, New(gw), p
}
