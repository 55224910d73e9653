// bootstrap.go
//
// Realtime collection service for form capture, admin tables and file uploads
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-collectionsdb.
// jam-build-collectionsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-collectionsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-collectionsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package bootstrap

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/localnerve/jam-build-collectionsdb/internal/config"
	"github.com/localnerve/jam-build-collectionsdb/internal/database"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/objects"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// Components are the backends selected by configuration
type Components struct {
	DB     *gorm.DB
	Store  *store.Store
	Bucket objects.Bucket
	Auth   services.AuthProvider

	closers []func(context.Context) error
}

// Open connects every backend cfg selects. The SQL database is always opened;
// it holds the objects of the sql bucket and answers the health check.
func Open(ctx context.Context, cfg *config.Config) (*Components, error) {
	c := &Components{}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db
	c.closers = append(c.closers, func(context.Context) error { return database.Close(db) })

	if err := database.AutoMigrate(db); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var fb *firebase.App
	if cfg.UsesFirebase() {
		if fb, err = newFirebaseApp(ctx, cfg); err != nil {
			c.Close(ctx)
			return nil, err
		}
	}

	backend, err := c.openBackend(ctx, cfg, fb)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.Store = store.New(backend)

	if c.Bucket, err = openBucket(ctx, cfg, db, fb); err != nil {
		c.Close(ctx)
		return nil, err
	}

	var authClient *auth.Client
	if cfg.AuthProvider == "firebase" {
		if authClient, err = fb.Auth(ctx); err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
		}
	}
	if c.Auth, err = services.NewAuthProvider(cfg, authClient); err != nil {
		c.Close(ctx)
		return nil, err
	}

	logger.L().WithFields(logrus.Fields{
		"store":  backend.Name(),
		"bucket": c.Bucket.Name(),
		"auth":   c.Auth.Name(),
	}).Info("backends ready")
	return c, nil
}

// Close releases the backends in reverse order of opening.
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func newFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		DatabaseURL:   cfg.FirebaseDatabaseURL,
		StorageBucket: cfg.FirebaseStorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

func (c *Components) openBackend(ctx context.Context, cfg *config.Config, fb *firebase.App) (store.Backend, error) {
	switch cfg.StoreBackend {
	case "firebase":
		client, err := fb.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create firebase database client: %w", err)
		}
		return store.NewFirebaseBackend(client), nil
	case "mongo":
		mb, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, mb.Close)
		return mb, nil
	}
	return store.NewSQLBackend(c.DB), nil
}

func openBucket(ctx context.Context, cfg *config.Config, db *gorm.DB, fb *firebase.App) (objects.Bucket, error) {
	if cfg.ObjectBackend != "firebase" {
		return objects.NewSQLBucket(db, cfg.PublicURL), nil
	}
	client, err := fb.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase storage client: %w", err)
	}
	handle, err := client.Bucket(cfg.FirebaseStorageBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", cfg.FirebaseStorageBucket, err)
	}
	return objects.NewFirebaseBucket(handle, cfg.FirebaseStorageBucket), nil
}
