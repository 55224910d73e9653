package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/jam-build-collectionsdb/tests/helpers"
)

const usage = `
Run the collectionsdb testcontainers (database, authorizer, optional mongodb and service)
with the environment variables from the .env file.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH] [-db DB_TYPE] [-store STORE_BACKEND]

ENV_FILE_PATH: path to the .env file
DB_TYPE:       mariadb, mysql or postgres, overrides the environment
STORE_BACKEND: sql or mongo, overrides the environment

example
  testcontainers -f /path/to/something/.env -store mongo
`

func main() {
	var (
		showHelp     bool
		envFilename  string
		dbType       string
		storeBackend string
	)
	flag.BoolVar(&showHelp, "h", false, "show help")
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.StringVar(&dbType, "db", "", "database type")
	flag.StringVar(&storeBackend, "store", "", "record store backend")
	flag.Parse()

	if showHelp {
		fmt.Print(usage + "\n")
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	overrides := map[string]string{"DB_TYPE": dbType, "STORE_BACKEND": storeBackend}
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			log.Fatalf("Failed to set %s: %v\n", key, err)
		}
	}
	switch os.Getenv("STORE_BACKEND") {
	case "", "sql", "mongo":
	default:
		log.Fatalf("STORE_BACKEND must be sql or mongo for testcontainers\n")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	type started struct {
		tc  *helpers.TestContainers
		err error
	}
	ready := make(chan started, 1)
	go func() {
		tc, err := helpers.CreateAllTestContainers(nil)
		ready <- started{tc, err}
	}()

	var testContainers *helpers.TestContainers
	select {
	case s := <-ready:
		if s.err != nil {
			log.Fatalf("Failed to create test containers: %v\n", s.err)
		}
		testContainers = s.tc
		ctx := context.Background()
		if url, err := testContainers.ServiceURL(ctx); err == nil {
			log.Printf("CollectionsDB: %s (swagger at %s/swagger/)\n", url, url)
		}
		if url, err := testContainers.AuthorizerURL(ctx); err == nil {
			log.Printf("Authorizer: %s\n", url)
		}
	case sig := <-sigs:
		log.Printf("\nReceived signal: %v before startup finished, waiting to terminate...\n", sig)
		if s := <-ready; s.tc != nil {
			s.tc.Terminate(nil)
		}
		return
	}

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating test containers...\n", sig)
	testContainers.Terminate(nil)
}
