//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shelf-fs/shelf/pkg/api/auth"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/service"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// testServer runs the full router against an in-memory store and a
// throwaway directory for file content.
type testServer struct {
	*httptest.Server
	store *store.GORMStore
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	dbConfig := store.Config{
		Type: store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{
			Path: ":memory:",
		},
	}
	st, err := store.New(&dbConfig)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtService, err := auth.NewService(auth.Config{
		Secret: "test-secret-key-that-is-at-least-32-characters-long",
	})
	if err != nil {
		t.Fatalf("Failed to create JWT service: %v", err)
	}

	svc := service.New(st, service.Options{})

	router := NewRouter(Dependencies{
		Store:   st,
		Service: svc,
		JWT:     jwtService,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, store: st}
}

func (ts *testServer) createUser(t *testing.T, username, password string, role models.UserRole) *models.User {
	t.Helper()
	user, err := ts.store.Conn(context.Background()).CreateUser(username, password, role)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

// request performs a JSON request and returns the status code and body.
func (ts *testServer) request(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp.StatusCode, data
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()

	status, body := ts.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("Login failed with status %d: %s", status, body)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	return resp.AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	ts := setupServer(t)

	for _, path := range []string{"/health", "/health/ready"} {
		status, body := ts.request(t, http.MethodGet, path, "", nil)
		if status != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200 (%s)", path, status, body)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	ts := setupServer(t)
	ts.createUser(t, "alice", "password123", models.RoleUser)

	t.Run("login with wrong password", func(t *testing.T) {
		status, _ := ts.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": "alice", "password": "wrong",
		})
		if status != http.StatusUnauthorized {
			t.Errorf("got status %d, want 401", status)
		}
	})

	t.Run("login and whoami", func(t *testing.T) {
		token := ts.login(t, "alice", "password123")

		status, body := ts.request(t, http.MethodGet, "/api/v1/auth/me", token, nil)
		if status != http.StatusOK {
			t.Fatalf("got status %d: %s", status, body)
		}
		var me struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(body, &me); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if me.Username != "alice" {
			t.Errorf("got username %q, want alice", me.Username)
		}
	})

	t.Run("refresh token", func(t *testing.T) {
		status, body := ts.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": "alice", "password": "password123",
		})
		if status != http.StatusOK {
			t.Fatalf("login failed: %s", body)
		}
		var pair struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.Unmarshal(body, &pair); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}

		status, body = ts.request(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
			"refresh_token": pair.RefreshToken,
		})
		if status != http.StatusOK {
			t.Errorf("refresh: got status %d: %s", status, body)
		}
	})

	t.Run("protected route without token", func(t *testing.T) {
		status, _ := ts.request(t, http.MethodGet, "/api/v1/fs", "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("got status %d, want 401", status)
		}
	})

	t.Run("access token rejected as refresh token", func(t *testing.T) {
		token := ts.login(t, "alice", "password123")
		status, _ := ts.request(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
			"refresh_token": token,
		})
		if status != http.StatusUnauthorized {
			t.Errorf("got status %d, want 401", status)
		}
	})
}

func TestFSLifecycle(t *testing.T) {
	ts := setupServer(t)
	ts.createUser(t, "alice", "password123", models.RoleUser)
	token := ts.login(t, "alice", "password123")

	// Register a medium backed by a throwaway directory.
	status, body := ts.request(t, http.MethodPost, "/api/v1/fs/storage", token, map[string]any{
		"name": "main",
		"path": t.TempDir(),
	})
	if status != http.StatusCreated {
		t.Fatalf("create medium: got status %d: %s", status, body)
	}

	status, body = ts.request(t, http.MethodGet, "/api/v1/fs", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list roots: got status %d: %s", status, body)
	}
	var page struct {
		Items []struct {
			UID  string `json:"uid"`
			Type string `json:"type"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("Failed to decode roots: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Type != "root" {
		t.Fatalf("unexpected roots page: %s", body)
	}
	rootUID := page.Items[0].UID

	// Directory under the root.
	status, body = ts.request(t, http.MethodPost, "/api/v1/fs/"+rootUID, token, map[string]string{
		"basename": "docs",
	})
	if status != http.StatusCreated {
		t.Fatalf("create directory: got status %d: %s", status, body)
	}
	var dir struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(body, &dir); err != nil {
		t.Fatalf("Failed to decode directory: %v", err)
	}

	// Upload a file into the directory.
	content := "hello shelf"
	req, err := http.NewRequest(http.MethodPut,
		ts.URL+"/api/v1/fs/"+dir.UID+"?basename=hello.txt", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Failed to create upload request: %v", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	uploadBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: got status %d: %s", resp.StatusCode, uploadBody)
	}
	var file struct {
		UID  string `json:"uid"`
		Size int64  `json:"size"`
		Mime string `json:"mime"`
	}
	if err := json.Unmarshal(uploadBody, &file); err != nil {
		t.Fatalf("Failed to decode file: %v", err)
	}
	if file.Size != int64(len(content)) {
		t.Errorf("got size %d, want %d", file.Size, len(content))
	}
	if file.Mime != "text/plain" {
		t.Errorf("got mime %q, want text/plain", file.Mime)
	}

	// Download it back.
	req, err = http.NewRequest(http.MethodGet, ts.URL+"/api/v1/fs/"+file.UID+"/download", nil)
	if err != nil {
		t.Fatalf("Failed to create download request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	downloaded, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: got status %d", resp.StatusCode)
	}
	if string(downloaded) != content {
		t.Errorf("downloaded %q, want %q", downloaded, content)
	}
	if hash := resp.Header.Get("x-hash"); !strings.HasPrefix(hash, "blake3:") {
		t.Errorf("x-hash header %q missing blake3 prefix", hash)
	}

	// Replacing the file's content updates an existing resource: 200, not
	// 201.
	newContent := "hello again"
	req, err = http.NewRequest(http.MethodPut,
		ts.URL+"/api/v1/fs/"+file.UID, strings.NewReader(newContent))
	if err != nil {
		t.Fatalf("Failed to create replace request: %v", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	replaceBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replace: got status %d, want 200: %s", resp.StatusCode, replaceBody)
	}
	var replaced struct {
		UID  string `json:"uid"`
		Size int64  `json:"size"`
	}
	if err := json.Unmarshal(replaceBody, &replaced); err != nil {
		t.Fatalf("Failed to decode replaced file: %v", err)
	}
	if replaced.UID != file.UID {
		t.Errorf("replace changed uid: got %q, want %q", replaced.UID, file.UID)
	}
	if replaced.Size != int64(len(newContent)) {
		t.Errorf("got size %d, want %d", replaced.Size, len(newContent))
	}

	// Update metadata.
	status, body = ts.request(t, http.MethodPatch, "/api/v1/fs/"+file.UID, token, map[string]any{
		"comment": "greeting",
	})
	if status != http.StatusOK {
		t.Fatalf("patch: got status %d: %s", status, body)
	}

	// Duplicate basename collides.
	status, _ = ts.request(t, http.MethodPost, "/api/v1/fs/"+rootUID, token, map[string]string{
		"basename": "docs",
	})
	if status != http.StatusConflict {
		t.Errorf("duplicate directory: got status %d, want 409", status)
	}

	// Recursive delete of the directory reports both nodes.
	status, body = ts.request(t, http.MethodDelete, "/api/v1/fs/"+dir.UID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: got status %d: %s", status, body)
	}
	var result struct {
		Deleted int `json:"deleted"`
		Skipped int `json:"skipped"`
		Failed  int `json:"failed"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to decode delete result: %v", err)
	}
	if result.Deleted != 2 || result.Failed != 0 {
		t.Errorf("got %+v, want 2 deleted", result)
	}

	// Deleting the root is forbidden.
	status, _ = ts.request(t, http.MethodDelete, "/api/v1/fs/"+rootUID, token, nil)
	if status != http.StatusForbidden {
		t.Errorf("delete root: got status %d, want 403", status)
	}
}

func TestOwnershipIsolationOverHTTP(t *testing.T) {
	ts := setupServer(t)
	ts.createUser(t, "alice", "password123", models.RoleUser)
	ts.createUser(t, "bob", "password456", models.RoleUser)

	aliceToken := ts.login(t, "alice", "password123")
	bobToken := ts.login(t, "bob", "password456")

	status, body := ts.request(t, http.MethodPost, "/api/v1/fs/storage", aliceToken, map[string]any{
		"name": "private",
		"path": t.TempDir(),
	})
	if status != http.StatusCreated {
		t.Fatalf("create medium: got status %d: %s", status, body)
	}
	var medium struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &medium); err != nil {
		t.Fatalf("Failed to decode medium: %v", err)
	}

	// Foreign mediums answer 404, not 403, so existence does not leak.
	status, _ = ts.request(t, http.MethodGet, "/api/v1/fs/storage/"+medium.ID, bobToken, nil)
	if status != http.StatusNotFound {
		t.Errorf("foreign medium: got status %d, want 404", status)
	}
}

func TestUserAdminEndpoints(t *testing.T) {
	ts := setupServer(t)
	admin := ts.createUser(t, "root", "password123", models.RoleAdmin)
	user := ts.createUser(t, "alice", "password123", models.RoleUser)

	adminToken := ts.login(t, "root", "password123")
	userToken := ts.login(t, "alice", "password123")

	t.Run("list requires admin", func(t *testing.T) {
		status, _ := ts.request(t, http.MethodGet, "/api/v1/users", userToken, nil)
		if status != http.StatusForbidden {
			t.Errorf("got status %d, want 403", status)
		}

		status, _ = ts.request(t, http.MethodGet, "/api/v1/users", adminToken, nil)
		if status != http.StatusOK {
			t.Errorf("got status %d, want 200", status)
		}
	})

	t.Run("create user", func(t *testing.T) {
		status, body := ts.request(t, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
			"username": "carol", "password": "password789",
		})
		if status != http.StatusCreated {
			t.Errorf("got status %d: %s", status, body)
		}
	})

	t.Run("password change authorization", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/users/%s/password", admin.ID)
		status, _ := ts.request(t, http.MethodPut, path, userToken, map[string]string{
			"password": "hijacked123",
		})
		if status != http.StatusForbidden {
			t.Errorf("foreign password change: got status %d, want 403", status)
		}

		path = fmt.Sprintf("/api/v1/users/%s/password", user.ID)
		status, _ = ts.request(t, http.MethodPut, path, userToken, map[string]string{
			"password": "newpassword1",
		})
		if status != http.StatusNoContent {
			t.Errorf("own password change: got status %d, want 204", status)
		}
	})

	t.Run("self delete rejected", func(t *testing.T) {
		status, _ := ts.request(t, http.MethodDelete, "/api/v1/users/"+admin.ID, adminToken, nil)
		if status != http.StatusBadRequest {
			t.Errorf("got status %d, want 400", status)
		}
	})
}
