package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/localnerve/jam-build-collectionsdb/data"
	"github.com/localnerve/jam-build-collectionsdb/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// waitForSQL pings db until it answers or timeout passes. Database images
// accept connections briefly during init before restarting.
func waitForSQL(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// executeSQL runs each statement of script. Whole-line "--" comments are dropped.
func executeSQL(ctx context.Context, db *sql.DB, script string) error {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: when executing > %s", err, stmt)
		}
	}
	return nil
}

// initMariaDB creates the authorizer database and the app account, then
// applies the embedded collections DDL.
func initMariaDB(ctx context.Context, env stackEnv, host, port string) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/", env.dbRootPassword, host, port))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := waitForSQL(ctx, db, 30*time.Second); err != nil {
		return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
	}

	setup := strings.Join([]string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", env.appDatabase),
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", env.authzDatabase),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", env.appUser, env.appPassword),
	}, ";\n") + ";"
	for _, script := range []string{setup, data.InitdbMariaDBTables, data.InitdbMariaDBPrivileges} {
		if err := executeSQL(ctx, db, script); err != nil {
			return err
		}
	}
	return nil
}

// initPostgres creates the authorizer database. The image creates the app
// database and the service migrates its own tables.
func initPostgres(ctx context.Context, env stackEnv, host, port string) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, env.appUser, env.appPassword, env.appDatabase)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := waitForSQL(ctx, sqlDB, 30*time.Second); err != nil {
		return fmt.Errorf("PostgreSQL not ready after 30 seconds: %w", err)
	}

	var exists bool
	if err := db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)", env.authzDatabase).
		Scan(&exists).Error; err != nil {
		return err
	}
	if exists {
		return nil
	}
	return db.WithContext(ctx).Exec(fmt.Sprintf("CREATE DATABASE %s", env.authzDatabase)).Error
}

func mongoRequest(image string) testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
}

// StartMariaDB starts a standalone MariaDB for backend integration tests and
// returns it with a config pointing at its mapped port.
func StartMariaDB(t *testing.T) (testcontainers.Container, *config.Config) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        envOr("DB_IMAGE", "mariadb:11"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	db, err := sql.Open("mysql", fmt.Sprintf("testuser:testpass@tcp(%s:%s)/testdb", host, port.Port()))
	if err != nil {
		t.Fatalf("Failed to open MariaDB: %v", err)
	}
	defer db.Close()
	if err := waitForSQL(ctx, db, 30*time.Second); err != nil {
		t.Fatalf("MariaDB not ready after 30 seconds: %v", err)
	}

	return c, &config.Config{
		DBType:               "mariadb",
		DBHost:               host,
		DBPort:               port.Port(),
		DBAppDatabase:        "testdb",
		DBAppUser:            "testuser",
		DBAppPassword:        "testpass",
		DBAppConnectionLimit: 5,
	}
}

// StartMongo starts a standalone MongoDB and returns its connection URI.
func StartMongo(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	image := os.Getenv("MONGO_IMAGE")
	if image == "" {
		image = "mongo:7"
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: mongoRequest(image),
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start MongoDB container: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MongoDB container: %v", err)
		}
	})

	endpoint, err := c.Endpoint(ctx, "mongodb")
	if err != nil {
		t.Fatalf("Failed to get MongoDB endpoint: %v", err)
	}
	return endpoint
}
