// ABOUTME: Tests for the login, register and logout commands
// ABOUTME: Runs each command against the fake backend with a temp session file

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sumitbondd/api-key-manager/internal/client"
	"github.com/sumitbondd/api-key-manager/internal/session"
	"github.com/sumitbondd/api-key-manager/internal/tui"
	"github.com/sumitbondd/api-key-manager/internal/tui/authform"
)

func TestRunAuth_LoginSavesToken(t *testing.T) {
	api := startBackend(t)
	api.AddUser("alice", "secret")

	var buf bytes.Buffer
	exitCode := runAuth(context.Background(), &buf, authform.KindLogin, client.Credentials{Username: "alice", Password: "secret"})

	if exitCode != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", exitCode, buf.String())
	}
	if !strings.Contains(buf.String(), tui.MsgLoginOK) {
		t.Errorf("expected %q in output, got: %s", tui.MsgLoginOK, buf.String())
	}
	if !strings.Contains(buf.String(), "Session expires") {
		t.Errorf("expected session expiry in output, got: %s", buf.String())
	}

	token, ok := savedToken(t)
	if !ok {
		t.Fatal("expected token to be saved")
	}
	if _, ok := session.Expiry(token); !ok {
		t.Errorf("expected saved token to be a JWT, got %q", token)
	}
}

func TestRunAuth_InvalidCredentials(t *testing.T) {
	api := startBackend(t)
	api.AddUser("alice", "secret")
	if err := session.NewFileStore(sessionFile).Write("previous"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	exitCode := runAuth(context.Background(), &buf, authform.KindLogin, client.Credentials{Username: "alice", Password: "wrong"})

	if exitCode != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, exitCode)
	}
	if !strings.Contains(buf.String(), "Error: Invalid credentials") {
		t.Errorf("expected backend message, got: %s", buf.String())
	}
	if strings.Contains(buf.String(), "apikeys login") {
		t.Errorf("a failed login is not a session expiry, got: %s", buf.String())
	}

	token, _ := savedToken(t)
	if token != "previous" {
		t.Errorf("expected existing session to be kept, got %q", token)
	}
}

func TestRunAuth_LoginWithoutTokenKeepsSession(t *testing.T) {
	dir := isolate(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()
	apiURL = server.URL
	sessionFile = dir + "/session"
	if err := session.NewFileStore(sessionFile).Write("previous"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	exitCode := runAuth(context.Background(), &buf, authform.KindLogin, client.Credentials{Username: "alice", Password: "secret"})

	if exitCode != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, exitCode)
	}
	if !strings.Contains(buf.String(), "ok") || !strings.Contains(buf.String(), "no session token") {
		t.Errorf("expected backend message and missing token error, got: %s", buf.String())
	}
	token, ok := savedToken(t)
	if !ok || token != "previous" {
		t.Errorf("expected existing session to be kept, got %q (present=%v)", token, ok)
	}
}

func TestRunAuth_Register(t *testing.T) {
	api := startBackend(t)

	var buf bytes.Buffer
	exitCode := runAuth(context.Background(), &buf, authform.KindRegister, client.Credentials{Username: "bob", Password: "pw"})

	if exitCode != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", exitCode, buf.String())
	}
	if !strings.Contains(buf.String(), "User created successfully") {
		t.Errorf("expected backend message, got: %s", buf.String())
	}
	if _, ok := savedToken(t); ok {
		t.Error("registering must not create a session")
	}
	if api.CountRequests("POST", "/auth/register") != 1 {
		t.Error("expected one register request")
	}
}

func TestRunAuth_RegisterTaken(t *testing.T) {
	api := startBackend(t)
	api.AddUser("bob", "pw")

	var buf bytes.Buffer
	exitCode := runAuth(context.Background(), &buf, authform.KindRegister, client.Credentials{Username: "bob", Password: "pw"})

	if exitCode != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, exitCode)
	}
	if !strings.Contains(buf.String(), "Username already exists") {
		t.Errorf("expected backend message, got: %s", buf.String())
	}
}

func TestRunAuth_JSONOutput(t *testing.T) {
	api := startBackend(t)
	api.AddUser("alice", "secret")
	jsonOutput = true

	var buf bytes.Buffer
	exitCode := runAuth(context.Background(), &buf, authform.KindLogin, client.Credentials{Username: "alice", Password: "secret"})
	if exitCode != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", exitCode, buf.String())
	}

	var out authOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if out.Action != "login" || out.Username != "alice" {
		t.Errorf("unexpected output: %+v", out)
	}
	if out.Message != tui.MsgLoginOK {
		t.Errorf("expected fallback message, got %q", out.Message)
	}
	if out.Session != sessionFile {
		t.Errorf("expected session file %s, got %s", sessionFile, out.Session)
	}
}

func TestRunAuth_ConnectionError(t *testing.T) {
	isolate(t)
	apiURL = "http://127.0.0.1:1"
	sessionFile = t.TempDir() + "/session"

	var buf bytes.Buffer
	exitCode := runAuth(context.Background(), &buf, authform.KindLogin, client.Credentials{Username: "a", Password: "b"})

	if exitCode != exitError {
		t.Errorf("expected exit code %d, got %d", exitError, exitCode)
	}
	if !strings.Contains(buf.String(), "Error:") {
		t.Errorf("expected error output, got: %s", buf.String())
	}
}

func TestRunLogout(t *testing.T) {
	api := startBackend(t)
	loginAs(t, api, "alice")

	var buf bytes.Buffer
	exitCode := runLogout(&buf)

	if exitCode != exitOK {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	if !strings.Contains(buf.String(), "Logged out.") {
		t.Errorf("expected confirmation, got: %s", buf.String())
	}
	if _, err := os.Stat(sessionFile); !os.IsNotExist(err) {
		t.Errorf("expected session file to be removed, stat returned %v", err)
	}
}

func TestRunLogout_NoSession(t *testing.T) {
	startBackend(t)

	var buf bytes.Buffer
	if exitCode := runLogout(&buf); exitCode != exitOK {
		t.Errorf("expected exit code 0 without a session, got %d", exitCode)
	}
}
