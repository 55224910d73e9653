// Testcontainers helpers, used by the e2e tests and by cmd/testcontainers.
// Expects environment variables to be loaded from .env files.
//

package helpers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	serviceImage = "collectionsdb-test:latest"
	authzAlias   = "authorizer"
	mongoAlias   = "mongo"
	debuggerPort = "2345/tcp"
)

// TestContainers are the containers of one full stack run
type TestContainers struct {
	Network             *testcontainers.DockerNetwork
	DBContainer         testcontainers.Container
	MongoContainer      testcontainers.Container
	AuthorizerContainer testcontainers.Container
	ServiceContainer    testcontainers.Container
	BuilderContainer    testcontainers.Container

	env stackEnv
}

// stackEnv is the environment of a full stack run, read once at start.
type stackEnv struct {
	dbType         string
	dbImage        string
	dbAlias        string
	dbPort         string
	dbRootPassword string
	appDatabase    string
	appUser        string
	appPassword    string
	connLimit      string

	authzImage       string
	authzPort        string
	authzDatabase    string
	authzClientID    string
	authzAdminSecret string

	servicePort  string
	storeBackend string
	mongoImage   string
	buildContext string
	debug        bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadStackEnv() stackEnv {
	return stackEnv{
		dbType:           envOr("DB_TYPE", "mariadb"),
		dbImage:          envOr("DB_IMAGE", "mariadb:11"),
		dbAlias:          envOr("DB_HOST", "db"),
		dbPort:           envOr("DB_PORT", "3306"),
		dbRootPassword:   os.Getenv("DB_ROOT_PASSWORD"),
		appDatabase:      envOr("DB_APP_DATABASE", "collectionsdb"),
		appUser:          envOr("DB_APP_USER", "collectionsdb_app"),
		appPassword:      os.Getenv("DB_APP_PASSWORD"),
		connLimit:        envOr("DB_APP_CONNECTION_LIMIT", "10"),
		authzImage:       os.Getenv("AUTHZ_IMAGE"),
		authzPort:        envOr("AUTHZ_PORT", "8080"),
		authzDatabase:    envOr("AUTHZ_DATABASE", "authorizer"),
		authzClientID:    os.Getenv("AUTHZ_CLIENT_ID"),
		authzAdminSecret: os.Getenv("AUTHZ_ADMIN_SECRET"),
		servicePort:      envOr("PORT", "3000"),
		storeBackend:     envOr("STORE_BACKEND", "sql"),
		mongoImage:       envOr("MONGO_IMAGE", "mongo:7"),
		buildContext:     envOr("TESTCONTAINERS_BUILD_CONTEXT", "../.."),
		debug:            os.Getenv("DEBUG_CONTAINER") == "true",
	}
}

// authzDatabaseURL is the authorizer's connection string on the container network.
func (e stackEnv) authzDatabaseURL() string {
	if e.dbType == "postgres" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", e.appUser, e.appPassword, e.dbAlias, e.dbPort, e.authzDatabase)
	}
	return fmt.Sprintf("root:%s@tcp(%s:%s)/%s", e.dbRootPassword, e.dbAlias, e.dbPort, e.authzDatabase)
}

func (e stackEnv) dbInitEnv() map[string]string {
	switch e.dbType {
	case "postgres":
		return map[string]string{
			"POSTGRES_PASSWORD": e.appPassword,
			"POSTGRES_USER":     e.appUser,
			"POSTGRES_DB":       e.appDatabase,
		}
	case "mariadb", "mysql":
		return map[string]string{
			"MYSQL_ROOT_PASSWORD": e.dbRootPassword,
			"MYSQL_DATABASE":      e.appDatabase,
			"MYSQL_USER":          e.appUser,
			"MYSQL_PASSWORD":      e.appPassword,
		}
	}
	return nil
}

// Terminate stops every started container and removes the network
func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	for _, c := range []struct {
		name      string
		container testcontainers.Container
	}{
		{"CollectionsDB", tc.ServiceContainer},
		{"CollectionsDB builder", tc.BuilderContainer},
		{"Authorizer", tc.AuthorizerContainer},
		{"MongoDB", tc.MongoContainer},
		{"Database", tc.DBContainer},
	} {
		if c.container == nil {
			continue
		}
		if err := c.container.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate %s: %v", c.name, err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// ServiceURL is the host address of the CollectionsDB container
func (tc *TestContainers) ServiceURL(ctx context.Context) (string, error) {
	return mappedURL(ctx, tc.ServiceContainer, tc.env.servicePort)
}

// AuthorizerURL is the host address of the Authorizer container
func (tc *TestContainers) AuthorizerURL(ctx context.Context) (string, error) {
	return mappedURL(ctx, tc.AuthorizerContainer, tc.env.authzPort)
}

// DatabaseAddress is the host and mapped port of the database container
func (tc *TestContainers) DatabaseAddress(ctx context.Context) (string, string, error) {
	if tc.DBContainer == nil {
		return "", "", fmt.Errorf("database not started")
	}
	host, err := tc.DBContainer.Host(ctx)
	if err != nil {
		return "", "", err
	}
	port, err := tc.DBContainer.MappedPort(ctx, nat.Port(tc.env.dbPort+"/tcp"))
	if err != nil {
		return "", "", err
	}
	return host, port.Port(), nil
}

func mappedURL(ctx context.Context, c testcontainers.Container, port string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("container not started")
	}
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port+"/tcp"))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%s", host, mapped.Port()), nil
}

// CreateAllTestContainers starts the database, optional MongoDB, authorizer and
// service containers on one network. On failure everything started is terminated.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	tc := &TestContainers{env: loadStackEnv()}

	steps := []struct {
		name string
		run  func(context.Context, *testing.T) error
	}{
		{"network", tc.startNetwork},
		{"database", tc.startDatabase},
		{"mongodb", tc.startMongo},
		{"authorizer", tc.startAuthorizer},
		{"collectionsdb", tc.startService},
	}
	for _, step := range steps {
		if err := step.run(ctx, t); err != nil {
			tc.Terminate(t)
			return nil, fmt.Errorf("start %s: %w", step.name, err)
		}
	}

	logMessage(t, "CollectionsDB testcontainers started successfully")
	return tc, nil
}

func (tc *TestContainers) startNetwork(ctx context.Context, _ *testing.T) error {
	nw, err := network.New(ctx)
	if err != nil {
		return err
	}
	tc.Network = nw
	return nil
}

func (tc *TestContainers) networked(req testcontainers.ContainerRequest, alias string) testcontainers.ContainerRequest {
	req.Networks = []string{tc.Network.Name}
	if alias != "" {
		req.NetworkAliases = map[string][]string{tc.Network.Name: {alias}}
	}
	return req
}

func (tc *TestContainers) startDatabase(ctx context.Context, t *testing.T) error {
	env := tc.env
	port, err := nat.NewPort("tcp", env.dbPort)
	if err != nil {
		return err
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: tc.networked(testcontainers.ContainerRequest{
			Image:        env.dbImage,
			ExposedPorts: []string{string(port)},
			Env:          env.dbInitEnv(),
			WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(60 * time.Second),
		}, env.dbAlias),
		Started: true,
	})
	if err != nil {
		return err
	}
	tc.DBContainer = c

	host, err := c.Host(ctx)
	if err != nil {
		return err
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return err
	}
	logMessage(t, "%s listening at %s:%s", env.dbType, host, mapped.Port())

	switch env.dbType {
	case "mysql", "mariadb":
		return initMariaDB(ctx, env, host, mapped.Port())
	case "postgres":
		return initPostgres(ctx, env, host, mapped.Port())
	}
	return fmt.Errorf("unsupported DB_TYPE %q", env.dbType)
}

func (tc *TestContainers) startMongo(ctx context.Context, t *testing.T) error {
	if tc.env.storeBackend != "mongo" {
		return nil
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: tc.networked(mongoRequest(tc.env.mongoImage), mongoAlias),
		Started:          true,
	})
	if err != nil {
		return err
	}
	tc.MongoContainer = c
	logMessage(t, "MONGO_URI=mongodb://%s:27017", mongoAlias)
	return nil
}

func (tc *TestContainers) startAuthorizer(ctx context.Context, t *testing.T) error {
	env := tc.env
	if env.authzImage == "" {
		return fmt.Errorf("AUTHZ_IMAGE is required")
	}
	port, err := nat.NewPort("tcp", env.authzPort)
	if err != nil {
		return err
	}

	logLevel := "info"
	if env.debug {
		logLevel = "debug"
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: tc.networked(testcontainers.ContainerRequest{
			Image:        env.authzImage,
			ExposedPorts: []string{string(port)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     env.authzClientID,
				"PORT":          env.authzPort,
				"DATABASE_TYPE": env.dbType,
				"DATABASE_NAME": env.authzDatabase,
				"DATABASE_URL":  env.authzDatabaseURL(),
				"ADMIN_SECRET":  env.authzAdminSecret,
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
				"LOG_LEVEL":     logLevel,
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(10 * time.Second),
		}, authzAlias),
		Started: true,
	})
	if err != nil {
		return err
	}
	tc.AuthorizerContainer = c

	if url, err := tc.AuthorizerURL(ctx); err == nil {
		logMessage(t, "AUTHZ_URL=%s", url)
	}
	return nil
}

// serviceEnv is the CollectionsDB environment on the container network.
func (e stackEnv) serviceEnv() map[string]string {
	env := map[string]string{
		"DB_TYPE":                 e.dbType,
		"DB_HOST":                 e.dbAlias,
		"DB_PORT":                 e.dbPort,
		"DB_APP_DATABASE":         e.appDatabase,
		"DB_APP_USER":             e.appUser,
		"DB_APP_PASSWORD":         e.appPassword,
		"DB_APP_CONNECTION_LIMIT": e.connLimit,
		"STORE_BACKEND":           e.storeBackend,
		"OBJECT_BACKEND":          "sql",
		"AUTH_PROVIDER":           "authorizer",
		"LOG_FORMAT":              "json",
		"AUTHZ_URL":               fmt.Sprintf("http://%s:%s", authzAlias, e.authzPort),
		"AUTHZ_CLIENT_ID":         e.authzClientID,
		"PORT":                    e.servicePort,
		"PUBLIC_URL":              fmt.Sprintf("http://localhost:%s", e.servicePort),
	}
	if e.storeBackend == "mongo" {
		env["MONGO_URI"] = fmt.Sprintf("mongodb://%s:27017", mongoAlias)
		env["MONGO_DATABASE"] = e.appDatabase
	}
	return env
}

func (tc *TestContainers) serviceRequest(port nat.Port) testcontainers.ContainerRequest {
	env := tc.env
	req := testcontainers.ContainerRequest{
		ExposedPorts: []string{string(port)},
		Env:          env.serviceEnv(),
		WaitingFor:   wait.ForHTTP("/metrics").WithPort(port).WithStartupTimeout(30 * time.Second),
	}
	if !env.debug {
		return tc.networked(req, "")
	}

	// Serve under delve on a fixed local port
	req.ExposedPorts = append(req.ExposedPorts, debuggerPort)
	req.HostConfigModifier = func(hostConfig *container.HostConfig) {
		hostConfig.PortBindings = nat.PortMap{
			debuggerPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "2345"}},
		}
		hostConfig.CapAdd = []string{"SYS_PTRACE"}
		hostConfig.SecurityOpt = []string{"apparmor:unconfined"}
	}
	req.WaitingFor = wait.ForLog("API server listening at: [::]:2345").WithStartupTimeout(5 * time.Minute)
	req.Entrypoint = []string{
		"/usr/local/bin/dlv",
		"--listen=:2345",
		"--headless=true",
		"--api-version=2",
		"--accept-multiclient",
		"exec",
		"./collectionsdb",
	}
	return tc.networked(req, "")
}

func (tc *TestContainers) startService(ctx context.Context, t *testing.T) error {
	port, err := nat.NewPort("tcp", tc.env.servicePort)
	if err != nil {
		return err
	}
	req := tc.serviceRequest(port)

	exists, err := imageExists(ctx, serviceImage)
	if err != nil {
		return fmt.Errorf("check image %s: %w", serviceImage, err)
	}
	if exists {
		logMessage(t, "Image %s exists, reusing...", serviceImage)
		req.Image = serviceImage
	} else {
		logMessage(t, "Image %s does not exist, building...", serviceImage)
		fromDockerfile, err := tc.buildService(ctx)
		if err != nil {
			return err
		}
		req.FromDockerfile = fromDockerfile
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return err
	}
	tc.ServiceContainer = c

	if url, err := tc.ServiceURL(ctx); err == nil {
		logMessage(t, "BASE_URL=%s", url)
	}
	return nil
}

// buildService builds the builder stage, then returns the runtime stage build
// of the same Dockerfile, kept for reuse by later runs.
func (tc *TestContainers) buildService(ctx context.Context) (testcontainers.FromDockerfile, error) {
	sessionID := uuid.New().String()
	buildArgs := map[string]*string{
		"RESOURCE_REAPER_SESSION_ID": &sessionID,
	}
	if tc.env.debug {
		debug := "true"
		buildArgs["DEBUG"] = &debug
	}

	stage := func(repo, tag, target string, keep bool) testcontainers.FromDockerfile {
		return testcontainers.FromDockerfile{
			Context:    tc.env.buildContext,
			Dockerfile: "Dockerfile",
			Repo:       repo,
			Tag:        tag,
			KeepImage:  keep,
			BuildArgs:  buildArgs,
			BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
				opts.Target = target
			},
			PrintBuildLog: true,
		}
	}

	builder, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			FromDockerfile: stage("collectionsdb-test-builder", "latest", "builder", false),
		},
		Started: false,
	})
	if err != nil {
		return testcontainers.FromDockerfile{}, fmt.Errorf("build collectionsdb-test-builder: %w", err)
	}
	tc.BuilderContainer = builder

	repo, tag, _ := strings.Cut(serviceImage, ":")
	return stage(repo, tag, "runtime", true), nil
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}

	return false, nil
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
