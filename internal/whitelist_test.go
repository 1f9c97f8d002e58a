package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestIsWhitelisted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+whitelistQueryPath {
			http.NotFound(w, r)

			return
		}

		if r.URL.Query().Get("authority") != "com.example.stickers" {
			t.Errorf("Expected authority com.example.stickers, but got %s", r.URL.Query().Get("authority"))
		}

		if r.URL.Query().Get("identifier") == "custom_registered" {
			w.Write([]byte(`{"result": 1}`))
		} else {
			w.Write([]byte(`{"result": 0}`))
		}
	}))
	defer server.Close()

	checker := NewWhitelistChecker("com.example.stickers", []string{server.URL}, zerolog.Nop())

	if !checker.IsWhitelisted(context.Background(), "custom_registered") {
		t.Error("Expected custom_registered to be whitelisted")
	}

	if checker.IsWhitelisted(context.Background(), "custom_unknown") {
		t.Error("Expected custom_unknown to not be whitelisted")
	}
}

func TestIsWhitelistedEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	checker := NewWhitelistChecker("com.example.stickers", []string{server.URL}, zerolog.Nop())

	// Failures count as not registered.
	if checker.IsWhitelisted(context.Background(), "custom_pack") {
		t.Error("Expected failure to count as not whitelisted")
	}
}

func TestIsWhitelistedUnreachableEndpoint(t *testing.T) {
	checker := NewWhitelistChecker("com.example.stickers", []string{"http://127.0.0.1:1"}, zerolog.Nop())

	if checker.IsWhitelisted(context.Background(), "custom_pack") {
		t.Error("Expected unreachable endpoint to count as not whitelisted")
	}
}
