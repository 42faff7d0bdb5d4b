package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/portalautarca/portal/internal/db"
	"github.com/portalautarca/portal/internal/markdown"
	"github.com/portalautarca/portal/internal/model"
	"github.com/portalautarca/portal/internal/repository"
	"github.com/portalautarca/portal/internal/storage"
)

type fixture struct {
	db      *sqlx.DB
	storage *storage.LocalStorage

	auth        *AuthService
	users       *UserService
	catalog     *CatalogService
	documents   *DocumentService
	initiatives *InitiativeService
	imports     *ImportService

	admin  *model.User
	parish *model.Parish
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database, err := db.Init("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))
	require.NoError(t, db.Seed(database))

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(database)
	parishRepo := repository.NewParishRepository(database)
	tagRepo := repository.NewTagRepository(database)

	f := &fixture{db: database, storage: local}
	f.auth = NewAuthService(userRepo, "test-secret", time.Hour, false)
	f.users = NewUserService(userRepo, parishRepo, f.auth)
	f.catalog = NewCatalogService(parishRepo, tagRepo)
	f.documents = NewDocumentService(repository.NewDocumentRepository(database), local, 1<<20, 800)
	f.initiatives = NewInitiativeService(
		repository.NewInitiativeRepository(database),
		repository.NewVoteRepository(database),
		f.catalog,
		f.documents,
		markdown.NewRenderer(),
	)
	f.imports = NewImportService(f.initiatives, f.catalog)

	f.admin, err = userRepo.ByEmail(ctx, "admin@portal.pt")
	require.NoError(t, err)
	f.parish, err = parishRepo.ByCode(ctx, "lumiar")
	require.NoError(t, err)

	return f
}

func (f *fixture) create(t *testing.T, title, status string) *model.Initiative {
	t.Helper()
	in, err := f.initiatives.Create(context.Background(), f.admin, &InitiativeInput{
		Title:    title,
		Status:   status,
		ParishID: &f.parish.ID,
	})
	require.NoError(t, err)
	return in
}

func (f *fixture) exists(key string) bool {
	r, err := f.storage.Open(context.Background(), key)
	if err != nil {
		return false
	}
	_ = r.Close()
	return true
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func strPtr(s string) *string {
	return &s
}
