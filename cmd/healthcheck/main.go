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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/localnerve/jam-build-collectionsdb/internal/bootstrap"
	"github.com/localnerve/jam-build-collectionsdb/internal/config"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(logger.Options{Level: "warn", Format: cfg.LogFormat})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	components, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		logger.L().Fatalf("Failed to open backends: %v", err)
	}

	// Perform health check
	result := services.HealthCheck(ctx, cfg, services.HealthDeps{
		DB:     components.DB,
		Store:  components.Store,
		Bucket: components.Bucket,
	})
	_ = components.Close(ctx)

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.L().Fatalf("Failed to marshal health check result: %v", err)
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
	os.Exit(0)
}
