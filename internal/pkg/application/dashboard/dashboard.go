package dashboard

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/diwise/data-gateway/pkg/datamodels/dashboard"
	"github.com/diwise/data-gateway/pkg/gateway"
	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

type UserAPI interface {
	GetUser(ctx context.Context, userID string) (*dashboard.User, error)
	UpdateUser(ctx context.Context, userID string, patch provider.Record) (*dashboard.User, error)
}

type NomineeAPI interface {
	ListNominees(ctx context.Context, userID string) ([]dashboard.Nominee, error)
	GetNominee(ctx context.Context, nomineeID string) (*dashboard.Nominee, error)
	CreateNominee(ctx context.Context, nominee dashboard.Nominee) (*dashboard.Nominee, error)
	UpdateNominee(ctx context.Context, nomineeID string, patch provider.Record) (*dashboard.Nominee, error)
	DeleteNominee(ctx context.Context, nomineeID string) error
}

type StorageAPI interface {
	UploadAvatar(ctx context.Context, userID, filename, contentType string, content io.Reader) (string, error)
	AvatarURL(userID, filename string) string
}

type Dashboard interface {
	UserAPI
	NomineeAPI
	StorageAPI

	Overview(ctx context.Context, userID string) (*dashboard.Overview, error)
}

type dashboardApp struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) Dashboard {
	return &dashboardApp{gw: gw}
}

// Options registers the collections and buckets of the dashboard with a gateway.
func Options() []func(*gateway.Gateway) {
	return []func(*gateway.Gateway){
		gateway.WithCollection(gateway.CollectionConfig{Name: dashboard.UsersCollection}),
		gateway.WithCollection(gateway.CollectionConfig{
			Name: dashboard.NomineesCollection,
			Relations: []gateway.Relation{
				{Collection: dashboard.AccessCategoriesCollection, ForeignKey: dashboard.NomineeForeignKey},
			},
		}),
		gateway.WithCollection(gateway.CollectionConfig{Name: dashboard.AccessCategoriesCollection}),
		gateway.WithBucket(gateway.BucketConfig{Name: dashboard.AvatarsBucket, Overwrite: true, Public: true}),
	}
}

func (app *dashboardApp) GetUser(ctx context.Context, userID string) (*dashboard.User, error) {
	user, err := gateway.Get[dashboard.User](ctx, app.gw, dashboard.UsersCollection, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (app *dashboardApp) UpdateUser(ctx context.Context, userID string, patch provider.Record) (*dashboard.User, error) {
	user, err := gateway.Update[dashboard.User](ctx, app.gw, dashboard.UsersCollection, userID, patch)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (app *dashboardApp) ListNominees(ctx context.Context, userID string) ([]dashboard.Nominee, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.NewValidationError("a user id is required to list nominees")
	}

	return gateway.List[dashboard.Nominee](ctx, app.gw,
		dashboard.NomineesCollection, gateway.Filter{dashboard.UserForeignKey: userID},
		gateway.Embed(dashboard.AccessCategoriesCollection),
		gateway.OrderBy("name", false),
	)
}

func (app *dashboardApp) GetNominee(ctx context.Context, nomineeID string) (*dashboard.Nominee, error) {
	nominee, err := gateway.Get[dashboard.Nominee](ctx, app.gw, dashboard.NomineesCollection, nomineeID)
	if err != nil {
		return nil, err
	}
	return &nominee, nil
}

// CreateNominee stores a nominee followed by its access categories. The
// nominee is removed again if any of the categories could not be stored.
func (app *dashboardApp) CreateNominee(ctx context.Context, nominee dashboard.Nominee) (*dashboard.Nominee, error) {
	if nominee.UserID == "" || nominee.Name == "" {
		return nil, errors.NewValidationError("a nominee needs both a user id and a name")
	}

	categories := nominee.AccessCategories
	nominee.AccessCategories = nil

	created, err := gateway.Create(ctx, app.gw, dashboard.NomineesCollection, nominee)
	if err != nil {
		return nil, err
	}

	for _, ac := range categories {
		ac.ID = ""
		ac.NomineeID = created.ID

		stored, err := gateway.Create(ctx, app.gw, dashboard.AccessCategoriesCollection, ac)
		if err != nil {
			if delErr := app.gw.DeleteEntity(ctx, dashboard.NomineesCollection, created.ID); delErr != nil {
				logging.GetFromContext(ctx).Error("failed to remove incomplete nominee", "nominee_id", created.ID, "err", delErr.Error())
			}
			return nil, err
		}

		created.AccessCategories = append(created.AccessCategories, stored)
	}

	return &created, nil
}

func (app *dashboardApp) UpdateNominee(ctx context.Context, nomineeID string, patch provider.Record) (*dashboard.Nominee, error) {
	if _, ok := patch[dashboard.AccessCategoriesCollection]; ok {
		return nil, errors.NewValidationError("access categories can not be changed through a nominee patch")
	}

	nominee, err := gateway.Update[dashboard.Nominee](ctx, app.gw, dashboard.NomineesCollection, nomineeID, patch)
	if err != nil {
		return nil, err
	}
	return &nominee, nil
}

func (app *dashboardApp) DeleteNominee(ctx context.Context, nomineeID string) error {
	return app.gw.DeleteEntity(ctx, dashboard.NomineesCollection, nomineeID)
}

// UploadAvatar stores a profile picture and points the avatar_url of the user
// at it. Nothing is uploaded for unknown users.
func (app *dashboardApp) UploadAvatar(ctx context.Context, userID, filename, contentType string, content io.Reader) (string, error) {
	objectPath, err := avatarPath(userID, filename)
	if err != nil {
		return "", err
	}

	if _, err = app.GetUser(ctx, userID); err != nil {
		return "", err
	}

	_, err = app.gw.UploadFile(ctx, dashboard.AvatarsBucket, objectPath, contentType, content)
	if err != nil {
		return "", err
	}

	url := app.gw.GetFileURL(dashboard.AvatarsBucket, objectPath)

	_, err = app.gw.UpdateEntity(ctx, dashboard.UsersCollection, userID, provider.Record{"avatar_url": url})
	if err != nil {
		logging.GetFromContext(ctx).Warn("avatar left without a user", "bucket", dashboard.AvatarsBucket, "path", objectPath, "err", err.Error())
		return "", err
	}

	return url, nil
}

func (app *dashboardApp) AvatarURL(userID, filename string) string {
	objectPath, err := avatarPath(userID, filename)
	if err != nil {
		return ""
	}
	return app.gw.GetFileURL(dashboard.AvatarsBucket, objectPath)
}

func (app *dashboardApp) Overview(ctx context.Context, userID string) (*dashboard.Overview, error) {
	user, err := app.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	nominees, err := app.ListNominees(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dashboard.Overview{User: *user, Nominees: nominees}, nil
}

func avatarPath(userID, filename string) (string, error) {
	name := path.Base(filename)
	if strings.TrimSpace(userID) == "" || strings.Contains(userID, "/") || name == "." || name == "/" {
		return "", errors.NewValidationError(fmt.Sprintf("invalid avatar %q for user %q", filename, userID))
	}

	objectPath := userID + "/" + name

	return objectPath, gateway.ValidateObject(dashboard.AvatarsBucket, objectPath)
}
