// UserManagerService is a small user directory: a REST gateway over a JSON document and a terminal client for it.
//
// The gateway stores users (and any other top-level collection found in the document) and validates user bodies
// with the same field schema the client uses. Rate limiting of 2 events per second with a burst of 20 is applied
// by default. Prometheus metrics are exposed for monitoring.
//
// The following endpoints are available:
//
//  1. GET / - Liveness probe
//  2. GET /api/users - Get all users
//  3. GET /api/users/{id} - Get a user by ID
//  4. POST /api/users - Create a new user
//  5. PUT /api/users/{id} - Replace an existing user
//  6. PATCH /api/users/{id} - Partially update an existing user
//  7. DELETE /api/users/{id} - Delete an existing user
//  8. GET /metrics - Display Prometheus metrics
//
// Run "usermanager serve" to start the gateway and "usermanager ui" to open the client.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"UserManagerService/config"
)

var rootCmd = &cobra.Command{
	Use:   "usermanager",
	Short: "Manage users through a REST gateway and a terminal client",
	Long: `usermanager runs the user gateway and its terminal client.

Settings come from the environment and an optional .env file
(PORT, DB_FILE, STATIC_DIR, API_URL, RATE_LIMIT, RATE_BURST,
LOG_LEVEL, LOG_FILE, HTTP_TIMEOUT). Flags override them.

Examples:
  usermanager serve                 # Start the gateway on :3001
  usermanager serve --db users.json # Use another document
  usermanager ui                    # Open the client against API_URL`,
	SilenceUsage: true,
}

func main() {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("No .env file loaded")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the settings and lets apply override them from flags before validation.
func loadConfig(apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(cfg.Level())
	return log
}
