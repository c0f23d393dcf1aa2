package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCreateAndList(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	codec := plaintextCodec(t)
	svc, err := NewService(repo, codec)
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), CreateParams{
		SchoolID: 3,
		Provider: "sms",
		Label:    "production",
		Secret:   map[string]string{"sender_id": "VIDYA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sms", created.Provider)
	assert.Equal(t, "production", created.Label)
	assert.False(t, created.Sealed)

	listed, err := svc.List(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, err := NewService(NewRepository(newTestDB(t)), plaintextCodec(t))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateParams{Provider: "sms", Secret: map[string]string{"k": "v"}})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateParams{SchoolID: 1, Secret: map[string]string{"k": "v"}})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateParams{SchoolID: 1, Provider: "sms"})
	require.Error(t, err)
}

func TestServiceRotationKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	codec := plaintextCodec(t)
	svc, err := NewService(repo, codec)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateParams{
		SchoolID: 5, Provider: "email", Secret: map[string]string{"api_key": "one"},
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateParams{
		SchoolID: 5, Provider: "email", Secret: map[string]string{"api_key": "two"},
	})
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	resolver, err := NewResolver(repo, codec)
	require.NoError(t, err)
	secret, err := resolver.Resolve(context.Background(), 5, "email")
	require.NoError(t, err)
	assert.Equal(t, "two", secret["api_key"])
}
