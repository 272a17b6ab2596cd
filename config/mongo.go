package config

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client

var mongoDBName = "mockinterview"

// InitMongo connects to MongoDB, pings it and keeps the client in MongoClient.
func InitMongo(ctx context.Context, cfg StoreConfig) error {
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongoOptions(cfg))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return err
	}

	MongoClient = client
	if cfg.MongoDB != "" {
		mongoDBName = cfg.MongoDB
	}
	return nil
}

func mongoOptions(cfg StoreConfig) *options.ClientOptions {
	opts := options.Client().ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(20 * time.Second).
		SetConnectTimeout(15 * time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(1)

	// Some Atlas clusters still fail the TLS 1.3 handshake.
	if cfg.MongoTLS12 {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}
	return opts
}
