// main.go
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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/jam-build-collectionsdb/internal/bootstrap"
	"github.com/localnerve/jam-build-collectionsdb/internal/config"
	"github.com/localnerve/jam-build-collectionsdb/internal/handlers"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/metrics"
	"github.com/localnerve/jam-build-collectionsdb/internal/middleware"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/theme"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/localnerve/jam-build-collectionsdb/docs/api" // Swagger docs
)

// @title CollectionsDB API
// @version 1.0.0
// @description Realtime collections for site forms, admin tables and file uploads
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/jam-build-collectionsdb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	ctx := context.Background()
	components, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backends: %v", err)
	}
	defer components.Close(ctx)

	// Publish the default complaint table on first start
	complaints := &services.ComplaintService{D: services.NewDispatcher(components.Store, components.Bucket)}
	if err := complaints.Seed(ctx); err != nil {
		log.Warnf("Failed to seed complaint table: %v", err)
	}

	themes := theme.NewProvider(cfg.Theme, nil)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.MaxUploadBytes,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: log.Writer()}))
	app.Use(compress.New())

	// Prometheus metrics
	prom := fiberprometheus.New("collectionsdb")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	h := handlers.New(components.Store, components.Bucket, themes, components.Auth)
	h.Register(api, middleware.AuthAdmin(components.Auth))

	// 404 handler
	app.Use(handlers.NotFound)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Gracefully shutting down...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	log.Infof("Starting server on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Info("Server stopped")
}
