package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port           string
	PublicURL      string
	MaxUploadBytes int

	// Database configuration
	DBType               string // mysql, postgres, sqlite, sqlite-pure, sqlserver
	DBHost               string
	DBPort               string
	DBAppDatabase        string
	DBAppUser            string
	DBAppPassword        string
	DBAppConnectionLimit int

	// Backends
	StoreBackend  string // sql, firebase, mongo
	ObjectBackend string // sql, firebase

	// MongoDB configuration
	MongoURI      string
	MongoDatabase string

	// Firebase configuration
	FirebaseProjectID     string
	FirebaseCredentials   string
	FirebaseDatabaseURL   string
	FirebaseStorageBucket string

	// Authentication
	AuthProvider  string // authorizer, firebase
	AuthzURL      string
	AuthzClientID string
	// Verified emails admitted by the firebase provider without the admin claim
	FirebaseAdminEmails []string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Theme selected at startup
	Theme string
}

// Load loads configuration from environment variables.
// When ENV_FILE is set, that file is loaded first without overriding the environment.
func Load() (*Config, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:                  getEnv("PORT", "3000"),
		PublicURL:             strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
		MaxUploadBytes:        getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20),
		DBType:                getEnv("DB_TYPE", "sqlite"),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "3306"),
		DBAppDatabase:         getEnv("DB_APP_DATABASE", ""),
		DBAppUser:             getEnv("DB_APP_USER", ""),
		DBAppPassword:         getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit:  getEnvAsInt("DB_APP_CONNECTION_LIMIT", 5),
		StoreBackend:          getEnv("STORE_BACKEND", "sql"),
		ObjectBackend:         getEnv("OBJECT_BACKEND", "sql"),
		MongoURI:              getEnv("MONGO_URI", ""),
		MongoDatabase:         getEnv("MONGO_DATABASE", "collectionsdb"),
		FirebaseProjectID:     getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials:   getEnv("FIREBASE_CREDENTIALS", ""),
		FirebaseDatabaseURL:   getEnv("FIREBASE_DATABASE_URL", ""),
		FirebaseStorageBucket: getEnv("FIREBASE_STORAGE_BUCKET", ""),
		AuthProvider:          getEnv("AUTH_PROVIDER", "authorizer"),
		AuthzURL:              getEnv("AUTHZ_URL", ""),
		AuthzClientID:         getEnv("AUTHZ_CLIENT_ID", ""),
		FirebaseAdminEmails:   getEnvAsList("FIREBASE_ADMIN_EMAILS"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		LogFile:               getEnv("LOG_FILE", ""),
		Theme:                 getEnv("THEME", "classic"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every selected backend has what it needs.
func (cfg *Config) Validate() error {
	// The SQL database always backs the health check, even with other record backends.
	if cfg.DBAppDatabase == "" {
		return fmt.Errorf("DB_APP_DATABASE is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBType != "sqlite-pure" && cfg.DBAppUser == "" {
		return fmt.Errorf("DB_APP_USER is required")
	}

	switch cfg.StoreBackend {
	case "sql":
	case "mongo":
		if cfg.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND=mongo")
		}
	case "firebase":
		if cfg.FirebaseDatabaseURL == "" {
			return fmt.Errorf("FIREBASE_DATABASE_URL is required when STORE_BACKEND=firebase")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND: %s", cfg.StoreBackend)
	}

	switch cfg.ObjectBackend {
	case "sql":
	case "firebase":
		if cfg.FirebaseStorageBucket == "" {
			return fmt.Errorf("FIREBASE_STORAGE_BUCKET is required when OBJECT_BACKEND=firebase")
		}
	default:
		return fmt.Errorf("unsupported OBJECT_BACKEND: %s", cfg.ObjectBackend)
	}

	switch cfg.AuthProvider {
	case "authorizer":
		if cfg.AuthzURL == "" {
			return fmt.Errorf("AUTHZ_URL is required")
		}
		if cfg.AuthzClientID == "" {
			return fmt.Errorf("AUTHZ_CLIENT_ID is required")
		}
	case "firebase":
		if cfg.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when AUTH_PROVIDER=firebase")
		}
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER: %s", cfg.AuthProvider)
	}

	return nil
}

// UsesFirebase reports whether any component needs the Firebase Admin app.
func (cfg *Config) UsesFirebase() bool {
	return cfg.StoreBackend == "firebase" || cfg.ObjectBackend == "firebase" || cfg.AuthProvider == "firebase"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries
func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
