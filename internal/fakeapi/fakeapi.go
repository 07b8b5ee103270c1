// ABOUTME: In-memory fake of the key-management backend used by tests
// ABOUTME: Serves the auth and API-key routes with the same reply shapes and messages

package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Route names accepted by FailNext
const (
	RouteLogin    = "login"
	RouteRegister = "register"
	RouteKeys     = "keys"
	RouteGenerate = "generate"
	RouteRevoke   = "revoke"
)

// pythonISO matches datetime.isoformat() output for a value with microseconds
const pythonISO = "2006-01-02T15:04:05.000000"

// Request is a recorded inbound request
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type keyRecord struct {
	key       string
	owner     string
	createdAt time.Time
	active    bool
}

type failure struct {
	status  int
	message string
}

// Server is the fake backend. The zero value is not usable; call New or Start.
type Server struct {
	URL string

	mu       sync.Mutex
	secret   []byte
	users    map[string]string
	keys     []*keyRecord
	failures map[string]failure
	requests []Request
	now      func() time.Time

	router *mux.Router
}

// New builds a fake backend without starting a listener
func New() *Server {
	s := &Server{
		secret:   []byte("fakeapi-secret"),
		users:    make(map[string]string),
		failures: make(map[string]failure),
		now:      time.Now,
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/auth/register", s.failable(RouteRegister, s.register)).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.failable(RouteLogin, s.login)).Methods(http.MethodPost)
	r.HandleFunc("/api/keys", s.failable(RouteKeys, s.tokenRequired(s.listKeys))).Methods(http.MethodGet)
	r.HandleFunc("/api/generate-key", s.failable(RouteGenerate, s.tokenRequired(s.generateKey))).Methods(http.MethodPost)
	r.HandleFunc("/api/revoke/{key}", s.failable(RouteRevoke, s.tokenRequired(s.revokeKey))).Methods(http.MethodPost)
	s.router = r

	return s
}

// Start runs the fake on an httptest listener closed at test cleanup
func Start(t testing.TB) *Server {
	t.Helper()
	s := New()
	ts := httptest.NewServer(s)
	s.URL = ts.URL
	t.Cleanup(ts.Close)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetClock replaces the time source used for key creation and token expiry
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser registers a user directly
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// IssueToken returns a valid session token for username
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueToken(username)
}

// SeedKey adds an active key for username
func (s *Server) SeedKey(username, key string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, &keyRecord{key: key, owner: username, createdAt: createdAt, active: true})
}

// ActiveKeys returns the active key strings of username in creation order
func (s *Server) ActiveKeys(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for _, k := range s.keys {
		if k.owner == username && k.active {
			keys = append(keys, k.key)
		}
	}
	return keys
}

// FailNext makes the next request to route answer with status. An empty
// message produces a plain-text body.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests returns how many requests hit method and path
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) failable(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[route]
		delete(s.failures, route)
		s.mu.Unlock()

		if !ok {
			next(w, r)
			return
		}
		if f.message == "" {
			http.Error(w, http.StatusText(f.status), f.status)
			return
		}
		writeJSON(w, f.status, map[string]string{"message": f.message})
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Missing required fields"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[creds.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username already exists"})
		return
	}
	s.users[creds.Username] = creds.Password
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Missing required fields"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	password, exists := s.users[creds.Username]
	if !exists || password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": s.issueToken(creds.Username)})
}

func (s *Server) tokenRequired(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is missing"})
			return
		}
		fields := strings.Fields(header)
		if len(fields) < 2 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is invalid"})
			return
		}

		s.mu.Lock()
		secret, now := s.secret, s.now
		s.mu.Unlock()

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(fields[1], claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(now))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is invalid"})
			return
		}

		username, _ := claims["user_id"].(string)
		s.mu.Lock()
		_, exists := s.users[username]
		s.mu.Unlock()
		if !exists {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is invalid"})
			return
		}

		next(w, r, username)
	}
}

func (s *Server) listKeys(w http.ResponseWriter, _ *http.Request, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := []map[string]interface{}{}
	for _, k := range s.keys {
		if k.owner != username || !k.active {
			continue
		}
		keys = append(keys, map[string]interface{}{
			"key":        k.key,
			"created_at": k.createdAt.UTC().Format(pythonISO),
			"is_active":  k.active,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"api_keys": keys})
}

func (s *Server) generateKey(w http.ResponseWriter, _ *http.Request, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	s.keys = append(s.keys, &keyRecord{key: key, owner: username, createdAt: s.now(), active: true})
	writeJSON(w, http.StatusOK, map[string]string{"api_key": key})
}

func (s *Server) revokeKey(w http.ResponseWriter, r *http.Request, username string) {
	target := mux.Vars(r)["key"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.key == target && k.owner == username {
			k.active = false
			writeJSON(w, http.StatusOK, map[string]string{"message": "API key revoked successfully"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "API key not found"})
}

// issueToken must be called with s.mu held
func (s *Server) issueToken(username string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": username,
		"exp":     s.now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic("fakeapi: signing token: " + err.Error())
	}
	return signed
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeCredentials(r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, false
	}
	return c, c.Username != "" && c.Password != ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
