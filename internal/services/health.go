package services

import (
	"context"
	"fmt"

	"github.com/localnerve/jam-build-collectionsdb/internal/config"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/objects"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Store        string            `json:"store"`
	Objects      string            `json:"objects"`
	Authorizer   string            `json:"authorizer"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// HealthDeps are the components a health check inspects. Nil members are skipped.
type HealthDeps struct {
	DB     *gorm.DB
	Store  *store.Store
	Bucket objects.Bucket
}

func (r *HealthCheckResult) failure(detailKey, summary string, err error) {
	r.Status = "unhealthy"
	r.Details[detailKey] = err.Error()
	if r.ErrorMessage == "" {
		r.ErrorMessage = fmt.Sprintf("%s: %v", summary, err)
	} else {
		r.ErrorMessage += fmt.Sprintf("; %s: %v", summary, err)
	}
	logger.L().Warnf("Health check failed - %s: %v", summary, err)
}

// HealthCheck performs a comprehensive health check of the service
func HealthCheck(ctx context.Context, cfg *config.Config, deps HealthDeps) HealthCheckResult {
	result := HealthCheckResult{
		Status:     "healthy",
		Database:   "skipped",
		Store:      "skipped",
		Objects:    "skipped",
		Authorizer: "skipped",
		Details:    make(map[string]string),
	}

	// Check database connectivity
	if deps.DB != nil {
		sqlDB, err := deps.DB.DB()
		if err != nil {
			result.Database = "error"
			result.failure("database_error", "Database connection error", err)
		} else if err := sqlDB.PingContext(ctx); err != nil {
			result.Database = "unreachable"
			result.failure("database_ping_error", "Database ping failed", err)
		} else {
			result.Database = "ok"
			result.Details["database_type"] = cfg.DBType
			result.Details["database_name"] = cfg.DBAppDatabase
		}
	}

	// Check the record backend
	if deps.Store != nil {
		if err := deps.Store.Ping(ctx); err != nil {
			result.Store = "unreachable"
			result.failure("store_error", "Store ping failed", err)
		} else {
			result.Store = "ok"
			result.Details["store_backend"] = deps.Store.Backend().Name()
		}
	}

	if deps.Bucket != nil {
		result.Objects = "ok"
		result.Details["object_backend"] = deps.Bucket.Name()
	}

	// Check Authorizer connectivity
	if cfg.AuthProvider == "authorizer" {
		if err := utils.PingAuthorizer(ctx, cfg.AuthzURL); err != nil {
			result.Authorizer = "unreachable"
			result.failure("authorizer_error", "Authorizer ping failed", err)
		} else {
			result.Authorizer = "ok"
			result.Details["authorizer_url"] = cfg.AuthzURL
		}
	}

	if result.Status == "healthy" {
		logger.L().Info("Health check passed - all systems operational")
	}

	return result
}
