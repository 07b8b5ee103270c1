// ABOUTME: Tests for the fake backend itself
// ABOUTME: Guards the reply shapes the client tests rely on

package fakeapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, s *Server, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestRegisterThenLogin(t *testing.T) {
	s := New()

	rec, body := do(t, s, http.MethodPost, "/auth/register", "", map[string]string{"username": "a", "password": "b"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User created successfully", body["message"])

	rec, body = do(t, s, http.MethodPost, "/auth/register", "", map[string]string{"username": "a", "password": "b"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already exists", body["message"])

	rec, body = do(t, s, http.MethodPost, "/auth/login", "", map[string]string{"username": "a", "password": "b"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])
}

func TestLoginRejections(t *testing.T) {
	s := New()
	s.AddUser("a", "b")

	rec, body := do(t, s, http.MethodPost, "/auth/login", "", map[string]string{"username": "a", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", body["message"])

	rec, body = do(t, s, http.MethodPost, "/auth/login", "", map[string]string{"username": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", body["message"])
}

func TestKeysLifecycle(t *testing.T) {
	s := New()
	s.AddUser("a", "b")
	token := s.IssueToken("a")

	rec, body := do(t, s, http.MethodPost, "/api/generate-key", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	key, _ := body["api_key"].(string)
	require.NotEmpty(t, key)

	rec, body = do(t, s, http.MethodGet, "/api/keys", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	keys := body["api_keys"].([]interface{})
	require.Len(t, keys, 1)
	created := keys[0].(map[string]interface{})["created_at"].(string)
	_, err := time.Parse(pythonISO, created)
	assert.NoError(t, err, "created_at should look like Python isoformat")

	rec, _ = do(t, s, http.MethodPost, "/api/revoke/"+key, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.ActiveKeys("a"))

	rec, body = do(t, s, http.MethodPost, "/api/revoke/"+key+"x", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "API key not found", body["message"])
}

func TestTokenRequired(t *testing.T) {
	s := New()

	rec, body := do(t, s, http.MethodGet, "/api/keys", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is missing", body["message"])

	rec, body = do(t, s, http.MethodGet, "/api/keys", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is invalid", body["message"])
}

func TestExpiredToken(t *testing.T) {
	s := New()
	s.AddUser("a", "b")
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return issued })
	token := s.IssueToken("a")

	s.SetClock(func() time.Time { return issued.Add(25 * time.Hour) })
	rec, _ := do(t, s, http.MethodGet, "/api/keys", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFailNext(t *testing.T) {
	s := New()
	s.AddUser("a", "b")
	token := s.IssueToken("a")

	s.FailNext(RouteKeys, http.StatusInternalServerError, "")
	rec, _ := do(t, s, http.MethodGet, "/api/keys", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// only the next request fails
	rec, _ = do(t, s, http.MethodGet, "/api/keys", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, s.CountRequests(http.MethodGet, "/api/keys"))
}
