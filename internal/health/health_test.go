package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/logging"
)

func testChecker() *Checker {
	return New(logging.New(false, true))
}

func TestCheckHTTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		wantOK     bool
	}{
		{"healthy service", http.StatusOK, true},
		{"server error", http.StatusInternalServerError, false},
		{"not found", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			result := testChecker().CheckHTTP(context.Background(), "Test Service", server.URL)
			assert.Equal(t, tt.wantOK, result.OK)
			assert.Equal(t, "http", result.Kind)
			if !tt.wantOK {
				assert.NotEmpty(t, result.Detail)
			}
		})
	}
}

func TestCheckHTTP_Unreachable(t *testing.T) {
	t.Parallel()

	// Port 1 is never listening locally.
	result := testChecker().CheckHTTP(context.Background(), "Down Service", "http://127.0.0.1:1/health")
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Detail)
}

func TestCheckPostgres(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()

	checker := testChecker()
	var gotDSN string
	checker.openDB = func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "postgres", driverName)
		gotDSN = dsn
		return db, nil
	}

	check := config.PostgresCheck{
		Name: "Tracking", Host: "localhost", Port: 5434,
		UserVar: "DB_USER", PasswordVar: "DB_PASSWORD", DatabaseVar: "DB_NAME",
		DefaultUser: "tracking", DefaultDatabase: "tracking",
	}
	env := map[string]string{
		"DB_USER":     "mlflow",
		"DB_PASSWORD": "generatedpass123",
		"DB_NAME":     "mlflow",
	}

	result := checker.CheckPostgres(context.Background(), check, env)
	assert.True(t, result.OK)
	assert.Equal(t, "postgres", result.Kind)
	assert.Equal(t, "Tracking PostgreSQL", result.Name)
	assert.Equal(t,
		"host=localhost port=5434 user=mlflow password=generatedpass123 dbname=mlflow sslmode=disable connect_timeout=10",
		gotDSN)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckPostgres_DefaultsWhenEnvMissing(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()

	checker := testChecker()
	var gotDSN string
	checker.openDB = func(driverName, dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return db, nil
	}

	check := config.PostgresCheck{
		Name: "Tracing", Host: "localhost", Port: 5435,
		UserVar: "MISSING_USER", PasswordVar: "MISSING_PASS", DatabaseVar: "MISSING_DB",
		DefaultUser: "langfuse", DefaultDatabase: "langfuse",
	}

	result := checker.CheckPostgres(context.Background(), check, map[string]string{})
	assert.True(t, result.OK)
	assert.Contains(t, gotDSN, "user=langfuse")
	assert.Contains(t, gotDSN, "dbname=langfuse")
	assert.Contains(t, gotDSN, "password= ")
}

func TestCheckPostgres_PingFailure(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(fmt.Errorf("password authentication failed"))
	mock.ExpectClose()

	checker := testChecker()
	checker.openDB = func(driverName, dsn string) (*sql.DB, error) {
		return db, nil
	}

	check := config.PostgresCheck{Name: "Tracking", Host: "localhost", Port: 5434}
	result := checker.CheckPostgres(context.Background(), check, nil)
	assert.False(t, result.OK)
	assert.Contains(t, result.Detail, "password authentication failed")
}

func TestValidateStack(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	stack := &config.Stack{
		HTTPChecks: []config.HTTPCheck{
			{Name: "Healthy", URL: healthy.URL},
			{Name: "Broken", URL: broken.URL},
		},
	}

	results, ok := testChecker().ValidateStack(context.Background(), stack, nil)
	assert.False(t, ok)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)

	stack.HTTPChecks = stack.HTTPChecks[:1]
	results, ok = testChecker().ValidateStack(context.Background(), stack, nil)
	assert.True(t, ok)
	require.Len(t, results, 1)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	logger := logging.New(false, true)
	assert.True(t, Summarize(logger, []Result{{Name: "a", OK: true}}))
	assert.False(t, Summarize(logger, []Result{{Name: "a", OK: true}, {Name: "b", Detail: "boom"}}))
	assert.True(t, Summarize(logger, nil))
}
