package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hirewire/hirewire/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

// newSocialAccountRepo opens an in-memory database with one seeded
// user and returns their id.
func newSocialAccountRepo(t *testing.T) (*SocialAccountRepository, string) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	_, err = bunDB.Exec("CREATE TABLE users (id TEXT NOT NULL PRIMARY KEY);")
	require.NoError(t, err)

	_, err = bunDB.Exec(`CREATE TABLE social_accounts (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    provider_user_id TEXT NOT NULL,
    email TEXT,
    name TEXT,
    username TEXT,
    avatar_url TEXT,
    access_token TEXT,
    refresh_token TEXT,
    token_expires_at TIMESTAMP NULL,
    profile_data TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
    CONSTRAINT uq_social_accounts_provider_id UNIQUE (provider, provider_user_id),
    CONSTRAINT uq_social_accounts_user_provider UNIQUE (user_id, provider)
);`)
	require.NoError(t, err)

	userID := uuid.New().String()
	_, err = bunDB.Exec("INSERT INTO users (id) VALUES (?)", userID)
	require.NoError(t, err)

	return NewSocialAccountRepository(bunDB), userID
}

func TestSocialAccountUpsertInsertsThenUpdates(t *testing.T) {
	repo, userID := newSocialAccountRepo(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(2 * time.Hour).UTC()
	account := &social.SocialAccount{
		UserID:         userID,
		Provider:       "github",
		ProviderUserID: "gh-123",
		Email:          "octo@example.com",
		Name:           "Octo Cat",
		Username:       "octo",
		AvatarURL:      "https://example.com/avatar.png",
		AccessToken:    "token",
		RefreshToken:   "refresh",
		TokenExpiresAt: &expiresAt,
		ProfileData:    map[string]any{"plan": "pro"},
	}

	require.NoError(t, repo.Upsert(ctx, account))

	found, err := repo.FindByProviderID(ctx, "github", "gh-123")
	require.NoError(t, err)
	assert.Equal(t, userID, found.UserID)
	assert.Equal(t, "octo@example.com", found.Email)
	assert.Equal(t, "octo", found.Username)
	assert.Equal(t, "token", found.AccessToken)
	assert.Equal(t, "refresh", found.RefreshToken)
	require.NotNil(t, found.TokenExpiresAt)
	assert.WithinDuration(t, expiresAt, *found.TokenExpiresAt, time.Second)
	assert.Equal(t, "pro", found.ProfileData["plan"])

	// a second sign-in carries fresher profile data
	account.Email = "new@example.com"
	account.Username = "octo-new"
	account.ProfileData = map[string]any{"plan": "enterprise"}
	require.NoError(t, repo.Upsert(ctx, account))

	updated, err := repo.FindByProviderID(ctx, "github", "gh-123")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "octo-new", updated.Username)
	assert.Equal(t, "enterprise", updated.ProfileData["plan"])

	accounts, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, accounts, 1, "the upsert updated the row instead of duplicating it")
	assert.Equal(t, updated.ID, accounts[0].ID)
}

func TestSocialAccountFindByUserIDEmpty(t *testing.T) {
	repo, _ := newSocialAccountRepo(t)

	accounts, err := repo.FindByUserID(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestSocialAccountDeleteByID(t *testing.T) {
	repo, userID := newSocialAccountRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &social.SocialAccount{
		UserID:         userID,
		Provider:       "google",
		ProviderUserID: "goog-abc",
		Email:          "ada@example.com",
	}))

	found, err := repo.FindByProviderID(ctx, "google", "goog-abc")
	require.NoError(t, err)
	require.NotEmpty(t, found.ID)

	require.NoError(t, repo.Delete(ctx, found.ID))

	_, err = repo.FindByProviderID(ctx, "google", "goog-abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSocialAccountDeleteByUserAndProvider(t *testing.T) {
	repo, userID := newSocialAccountRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &social.SocialAccount{
		UserID:         userID,
		Provider:       "github",
		ProviderUserID: "gh-321",
		Email:          "ada@example.com",
	}))

	require.NoError(t, repo.DeleteByUserAndProvider(ctx, userID, "github"))

	_, err := repo.FindByProviderID(ctx, "github", "gh-321")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
