// Package health validates that the stack's services are up: HTTP health
// endpoints for the web services and object stores, and real connections
// for the Postgres instances using the credentials the provisioning engine
// generated.
package health

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	// Postgres driver for the database connectivity checks.
	_ "github.com/lib/pq"

	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/logging"
)

// Result is the outcome of a single service check
type Result struct {
	Name   string
	Kind   string // "http" or "postgres"
	OK     bool
	Detail string
}

// Checker runs service checks. The database opener is injectable so tests
// can substitute a mock driver.
type Checker struct {
	logger *logging.Logger
	client *http.Client
	openDB func(driverName, dsn string) (*sql.DB, error)
}

// New creates a checker. TLS verification is disabled: local stacks run
// with self-signed certificates.
func New(logger *logging.Logger) *Checker {
	return &Checker{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		openDB: sql.Open,
	}
}

// CheckHTTP probes a health endpoint; anything but a 200 is a failure
func (c *Checker) CheckHTTP(ctx context.Context, name, url string) Result {
	c.logger.Step("Checking %s at %s", name, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Name: name, Kind: "http", Detail: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("%s is not accessible: %v", name, err)
		return Result{Name: name, Kind: "http", Detail: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("%s returned status %d", name, resp.StatusCode)
		return Result{Name: name, Kind: "http", Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	c.logger.Info("%s is healthy", name)
	return Result{Name: name, Kind: "http", OK: true}
}

// CheckPostgres connects and pings a Postgres instance with credentials
// resolved from the generated env file.
func (c *Checker) CheckPostgres(ctx context.Context, check config.PostgresCheck, env map[string]string) Result {
	c.logger.Step("Checking %s PostgreSQL at %s:%d", check.Name, check.Host, check.Port)

	user := lookup(env, check.UserVar, check.DefaultUser)
	password := env[check.PasswordVar]
	database := lookup(env, check.DatabaseVar, check.DefaultDatabase)

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=10",
		check.Host, check.Port, user, password, database,
	)

	db, err := c.openDB("postgres", dsn)
	if err != nil {
		c.logger.Error("%s PostgreSQL connection failed: %v", check.Name, err)
		return Result{Name: check.Name + " PostgreSQL", Kind: "postgres", Detail: err.Error()}
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		c.logger.Error("%s PostgreSQL connection failed: %v", check.Name, err)
		return Result{Name: check.Name + " PostgreSQL", Kind: "postgres", Detail: err.Error()}
	}

	c.logger.Info("%s PostgreSQL is accessible", check.Name)
	return Result{Name: check.Name + " PostgreSQL", Kind: "postgres", OK: true}
}

// ValidateStack runs every configured check and returns the results plus
// an overall verdict.
func (c *Checker) ValidateStack(ctx context.Context, stack *config.Stack, env map[string]string) ([]Result, bool) {
	var results []Result

	for _, check := range stack.PostgresChecks {
		results = append(results, c.CheckPostgres(ctx, check, env))
	}
	for _, check := range stack.HTTPChecks {
		results = append(results, c.CheckHTTP(ctx, check.Name, check.URL))
	}

	ok := true
	for _, r := range results {
		if !r.OK {
			ok = false
		}
	}
	return results, ok
}

// Summarize logs the validation verdict and returns overall success
func Summarize(logger *logging.Logger, results []Result) bool {
	passed := 0
	for _, r := range results {
		if r.OK {
			passed++
		}
	}
	if passed == len(results) {
		logger.Info("All %d services are healthy", len(results))
		return true
	}
	logger.Error("%d out of %d services failed validation", len(results)-passed, len(results))
	for _, r := range results {
		if !r.OK {
			logger.Error("  %s: %s", r.Name, r.Detail)
		}
	}
	logger.Warn("Check container logs with 'docker compose logs -f' and confirm the .env matches the running volumes")
	return false
}

func lookup(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok && v != "" {
		return v
	}
	return fallback
}
