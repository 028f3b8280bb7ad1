package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoTxManager implements domain.TxManager with MongoDB multi-document
// transactions. It requires a replica set or sharded cluster.
type MongoTxManager struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

func NewMongoTxManager(client *mongo.Client) *MongoTxManager {
	return &MongoTxManager{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
	}
}

// WithinTransaction runs fn in a session transaction. The ctx handed to fn is
// a mongo.SessionContext, so repository calls made with it join the
// transaction. The driver may re-run fn on transient transaction errors.
func (m *MongoTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, m.opts)
	return err
}
