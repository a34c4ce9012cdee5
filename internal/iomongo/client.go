// Package iomongo connects to MongoDB servers of the legacy and the new
// store.
package iomongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect creates a client and makes sure the server answers.
func Connect(
	ctx context.Context,
	uri string,
	timeout time.Duration,
) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("tmmigrate").
		SetTimeout(timeout)

	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connCtx, opts)
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, timeout)
	defer pingCancel()
	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		Disconnect(client, timeout)
		return nil, err
	}
	return client, nil
}

// Disconnect closes the client with a fresh context, so it works after
// the run context is cancelled.
func Disconnect(client *mongo.Client, timeout time.Duration) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Disconnect(ctx)
}
