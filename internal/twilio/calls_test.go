package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUpdateCall(t *testing.T) {
	var gotPath, gotTwiml, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotTwiml = r.PostFormValue("Twiml")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("AC000", "SK000", "secret").WithBaseURL(srv.URL)
	if err := c.UpdateCall(context.Background(), "CA456", FailureTwiML()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/Accounts/AC000/Calls/CA456.json" {
		t.Errorf("expected call update path, got %s", gotPath)
	}
	if gotUser != "SK000" {
		t.Errorf("expected basic auth user SK000, got %s", gotUser)
	}
	if gotTwiml != FailureTwiML() {
		t.Errorf("expected TwiML body, got %q", gotTwiml)
	}
}

func TestUpdateCallErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code": 20404, "message": "not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("AC000", "SK000", "secret").WithBaseURL(srv.URL)
	if err := c.UpdateCall(context.Background(), "CA456", FailureTwiML()); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
