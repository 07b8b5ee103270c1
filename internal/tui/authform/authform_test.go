// ABOUTME: Tests for the login and register form
// ABOUTME: Validates kinds, shared credentials and rendering

package authform

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sumitbondd/api-key-manager/internal/client"
)

func TestKindNames(t *testing.T) {
	if KindLogin.String() != "login" || KindRegister.String() != "register" {
		t.Errorf("unexpected kind names %q %q", KindLogin, KindRegister)
	}
	if KindLogin.Title() != "Login" || KindRegister.Title() != "Register" {
		t.Errorf("unexpected kind titles %q %q", KindLogin.Title(), KindRegister.Title())
	}
	if KindLogin.Other() != KindRegister || KindRegister.Other() != KindLogin {
		t.Error("expected Other to toggle between login and register")
	}
}

func TestFormViewShowsTitleAndToggle(t *testing.T) {
	creds := &client.Credentials{}

	login := New(KindLogin, creds)
	view := login.View()
	if !strings.Contains(view, "Login") {
		t.Error("expected login title in view")
	}
	if !strings.Contains(view, "Register instead") {
		t.Error("expected register toggle hint in login view")
	}
	if !strings.Contains(view, "Username") || !strings.Contains(view, "Password") {
		t.Error("expected username and password fields in view")
	}

	register := New(KindRegister, creds)
	if !strings.Contains(register.View(), "Login instead") {
		t.Error("expected login toggle hint in register view")
	}
	if register.Kind() != KindRegister {
		t.Errorf("expected register kind, got %v", register.Kind())
	}
}

func TestFormSharesCredentials(t *testing.T) {
	creds := &client.Credentials{Username: "alice"}
	f := New(KindLogin, creds)
	f.Init()

	if !strings.Contains(f.View(), "alice") {
		t.Error("expected username from shared credentials in view")
	}

	// values set elsewhere show up after a reset
	creds.Username = "bob"
	f.Reset()
	if !strings.Contains(f.View(), "bob") {
		t.Error("expected reset form to show updated username")
	}
}

func TestFormPasswordIsMasked(t *testing.T) {
	creds := &client.Credentials{Username: "alice", Password: "s3cret-value"}
	f := New(KindLogin, creds)
	f.Init()

	if strings.Contains(f.View(), "s3cret-value") {
		t.Error("password must not be rendered in clear text")
	}
}

func TestFormBannerOnlyWhenWide(t *testing.T) {
	creds := &client.Credentials{}
	f := New(KindLogin, creds)

	f.Update(tea.WindowSizeMsg{Width: 40, Height: 30})
	narrow := strings.Count(f.View(), "\n")

	f.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	wide := strings.Count(f.View(), "\n")

	if wide <= narrow {
		t.Errorf("expected banner lines on wide terminals (narrow=%d wide=%d)", narrow, wide)
	}
}

func TestPromptSkipsWhenComplete(t *testing.T) {
	creds := &client.Credentials{Username: "a", Password: "b"}
	if err := Prompt(KindLogin, creds); err != nil {
		t.Fatalf("expected no prompt when both fields are set, got %v", err)
	}
	if creds.Username != "a" || creds.Password != "b" {
		t.Errorf("credentials changed: %+v", creds)
	}
}
