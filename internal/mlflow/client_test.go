package mlflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlopshq/stackctl/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(logging.New(false, true), server.URL, Credentials{
		Username: "admin",
		Password: "s3cr3t",
	})
}

func TestClient_BasicAuthSent(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "no basic auth header")
		assert.Equal(t, "admin", user)
		assert.Equal(t, "s3cr3t", pass)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{"id": 1, "username": "admin", "is_admin": true},
		})
	})

	user, err := client.GetUser(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.True(t, user.IsAdmin)
}

func TestClient_CreateUser(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/2.0/mlflow/users/create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "alicepass", body["password"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{"id": 7, "username": "alice", "is_admin": false},
		})
	})

	user, err := client.CreateUser(context.Background(), "alice", "alicepass")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsAdmin)
}

func TestClient_GetUserQueryEncoding(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "bob smith", r.URL.Query().Get("username"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{"id": 2, "username": "bob smith"},
		})
	})

	user, err := client.GetUser(context.Background(), "bob smith")
	require.NoError(t, err)
	assert.Equal(t, "bob smith", user.Username)
}

func TestClient_UpdateUserAdmin(t *testing.T) {
	t.Parallel()

	var gotBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/2.0/mlflow/users/update-admin", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.UpdateUserAdmin(context.Background(), "alice", true))
	assert.Equal(t, "alice", gotBody["username"])
	assert.Equal(t, true, gotBody["is_admin"])
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_code": "RESOURCE_DOES_NOT_EXIST"}`, http.StatusNotFound)
	})

	_, err := client.GetUser(context.Background(), "nobody")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "RESOURCE_DOES_NOT_EXIST")
}

func TestClient_Unauthorized(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := client.UpdateUserPassword(context.Background(), "admin", "new")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_PermissionEndpoints(t *testing.T) {
	t.Parallel()

	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	require.NoError(t, client.CreateExperimentPermission(ctx, "1", "alice", PermissionEdit))
	require.NoError(t, client.DeleteExperimentPermission(ctx, "1", "alice"))
	require.NoError(t, client.CreateRegisteredModelPermission(ctx, "my-model", "alice", PermissionManage))
	require.NoError(t, client.DeleteRegisteredModelPermission(ctx, "my-model", "alice"))

	assert.Equal(t, []string{
		"POST /api/2.0/mlflow/experiments/permissions/create",
		"DELETE /api/2.0/mlflow/experiments/permissions/delete",
		"POST /api/2.0/mlflow/registered-models/permissions/create",
		"DELETE /api/2.0/mlflow/registered-models/permissions/delete",
	}, paths)
}

func TestValidatePermission(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{PermissionRead, PermissionEdit, PermissionManage} {
		assert.NoError(t, ValidatePermission(valid))
	}
	assert.Error(t, ValidatePermission("ADMIN"))
	assert.Error(t, ValidatePermission("read"))
	assert.Error(t, ValidatePermission(""))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request sent despite invalid permission")
	})
	err := client.CreateExperimentPermission(context.Background(), "1", "alice", "OWNER")
	assert.Error(t, err)
}
