package credentials

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/secrets"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.IntegrationCredential{}))
	return conn
}

func plaintextCodec(t *testing.T) *secrets.Codec {
	t.Helper()
	codec, err := secrets.NewCodec("")
	require.NoError(t, err)
	return codec
}

func TestResolveReturnsLatestRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	codec := plaintextCodec(t)
	resolver, err := NewResolver(repo, codec)
	require.NoError(t, err)

	first, err := codec.Encode(map[string]string{"api_key": "old"})
	require.NoError(t, err)
	second, err := codec.Encode(map[string]string{"api_key": "rotated"})
	require.NoError(t, err)

	require.NoError(t, repo.Create(context.Background(), &models.IntegrationCredential{
		SchoolID: 1, Provider: "email", SecretEnc: first,
	}))
	require.NoError(t, repo.Create(context.Background(), &models.IntegrationCredential{
		SchoolID: 1, Provider: "email", SecretEnc: second,
	}))

	secret, err := resolver.Resolve(context.Background(), 1, "email")
	require.NoError(t, err)
	assert.Equal(t, "rotated", secret["api_key"])
}

func TestResolveMissingYieldsNoCredentials(t *testing.T) {
	db := newTestDB(t)
	resolver, err := NewResolver(NewRepository(db), plaintextCodec(t))
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), 7, "sms")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestResolveScopedToSchool(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	codec := plaintextCodec(t)
	resolver, err := NewResolver(repo, codec)
	require.NoError(t, err)

	enc, err := codec.Encode(map[string]string{"api_key": "k"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &models.IntegrationCredential{
		SchoolID: 1, Provider: "email", SecretEnc: enc,
	}))

	_, err = resolver.Resolve(context.Background(), 2, "email")
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestResolveCorruptRowFailsClosed(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	resolver, err := NewResolver(repo, plaintextCodec(t))
	require.NoError(t, err)

	require.NoError(t, repo.Create(context.Background(), &models.IntegrationCredential{
		SchoolID: 1, Provider: "email", SecretEnc: "raw-untagged-secret",
	}))

	_, err = resolver.Resolve(context.Background(), 1, "email")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCredentialDecode))
}
