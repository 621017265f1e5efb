package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fitproapp/fitlink/internal/identity"
	"github.com/fitproapp/fitlink/internal/provider"
)

var music = provider.Music

func TestStatus_DecodesConnected(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/spotify/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"connected":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, identity.Static("tok"), 0)
	connected, err := c.Status(context.Background(), music)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !connected {
		t.Fatalf("expected connected")
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("missing bearer header, got %q", gotAuth)
	}
}

func TestAuthLogin_MissingFieldsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"auth_url":"","state":""}`))
	}))
	defer srv.Close()

	c := New(srv.URL, identity.Static("tok"), 0)
	if _, err := c.AuthLogin(context.Background(), music); err == nil {
		t.Fatalf("expected error on empty auth_url/state")
	}
}

func TestExchangeCode_ServerErrorMessageSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"code already used"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, identity.Static("tok"), 0)
	_, err := c.ExchangeCode(context.Background(), music, "XYZ", "abc")
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Message != "code already used" {
		t.Fatalf("message not extracted: %q", apiErr.Message)
	}
}

func TestExchangeCode_KeepsRawUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("code") != "XYZ" || q.Get("state") != "abc123" {
			t.Errorf("query not forwarded: %v", q)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("callback must be unauthenticated")
		}
		_, _ = w.Write([]byte(`{"success":true,"user_id":"u1","user_info":{"display_name":"Ann","custom_field":42}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, identity.Static("tok"), 0)
	res, err := c.ExchangeCode(context.Background(), music, "XYZ", "abc123")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if !res.Success || res.UserID != "u1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.UserInfo == nil || res.UserInfo.DisplayName != "Ann" {
		t.Fatalf("user_info not decoded: %+v", res.UserInfo)
	}
	// provider-specific fields survive in the raw payload
	if got := string(res.UserInfo.Raw); !strings.Contains(got, "custom_field") {
		t.Fatalf("raw payload lost: %q", got)
	}
}

func TestAuthenticatedCall_FailsFastWithoutToken(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	c := New(srv.URL, identity.Static(""), 0)
	_, err := c.Status(context.Background(), music)
	if !errors.Is(err, identity.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if hit {
		t.Fatalf("request must not reach the network without a credential")
	}
}

func TestDisconnect_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, identity.Static("tok"), 0)
	if err := c.Disconnect(context.Background(), music); err == nil {
		t.Fatalf("expected error on 403")
	}
}
