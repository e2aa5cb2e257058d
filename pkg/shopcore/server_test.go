package shopcore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestServerServeHTTP(t *testing.T) {
	s := New(Options{Name: "test", Logger: discardLogger()})
	s.Router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"pong": "ok"})
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	if len(s.Middleware().ReqLog.Entries()) != 1 {
		t.Error("expected the request to be logged")
	}
}

func TestErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	TypedError(rec, http.StatusConflict, "checkout_pending", "busy")

	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Message != "busy" || body.Error.Type != "checkout_pending" || body.Error.Code != 409 {
		t.Errorf("unexpected error body: %+v", body)
	}

	rec = httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "nope")
	if !strings.Contains(rec.Body.String(), `"type":"Not Found"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct{ Code string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"SKIN10"}`))
	if err := DecodeJSON(req, &v); err != nil || v.Code != "SKIN10" {
		t.Errorf("decode: %v %+v", err, v)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	if err := DecodeJSON(req, &v); err != nil {
		t.Errorf("empty body should not fail: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	if err := DecodeJSON(req, &v); err == nil {
		t.Error("expected error for malformed body")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s := New(Options{Name: "test", Port: 0, Logger: discardLogger()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
