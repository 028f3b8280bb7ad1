package server

import (
	"context"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupTestDB spins up a single-node MongoDB replica set and returns the
// client and a fresh database. Transactions need the replica set.
func setupTestDB(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint).SetDirect(true))
	require.NoError(t, err, "failed to connect to mongo")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return client, client.Database("frontdesk_e2e")
}

// mockAuthClient implements service.FirebaseAuthClient for testing
type mockAuthClient struct {
	validTokens map[string]*auth.Token
}

func newMockAuthClient() *mockAuthClient {
	return &mockAuthClient{validTokens: make(map[string]*auth.Token)}
}

func (m *mockAuthClient) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if token, ok := m.validTokens[idToken]; ok {
		return token, nil
	}
	return nil, fmt.Errorf("invalid mock token")
}

func (m *mockAuthClient) addUser(tokenString, uid, email string) {
	m.validTokens[tokenString] = &auth.Token{
		UID:    uid,
		Claims: map[string]interface{}{"email": email},
	}
}
