package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/underskin/storefront/pkg/shopcore"
	"github.com/underskin/storefront/pkg/store"
)

type mockState struct {
	data        map[string]string
	resetCalled bool
}

func newMockState() *mockState {
	return &mockState{data: map[string]string{"sessions": "1"}}
}

func (m *mockState) Snapshot() any { return m.data }

func (m *mockState) Reset() {
	m.resetCalled = true
	m.data = map[string]string{}
}

type mockDecliner struct{ n int }

func (m *mockDecliner) DeclineNext(n int)    { m.n = n }
func (m *mockDecliner) PendingDeclines() int { return m.n }

type mockFlusher struct {
	err     error
	flushed bool
}

func (m *mockFlusher) Flush(ctx context.Context) error {
	m.flushed = true
	return m.err
}

type fixture struct {
	srv      *httptest.Server
	mw       *shopcore.Middleware
	state    *mockState
	decliner *mockDecliner
	clock    *store.Clock
}

func setup(t *testing.T, flusher Flusher) *fixture {
	t.Helper()
	f := &fixture{
		mw:       shopcore.NewMiddleware(false, slog.New(slog.NewTextHandler(io.Discard, nil))),
		state:    newMockState(),
		decliner: &mockDecliner{},
		clock:    store.NewClock(),
	}
	h := NewHandler(f.state, f.mw, f.clock)
	h.SetDecliner(f.decliner)
	if flusher != nil {
		h.SetFlusher(flusher)
	}
	r := chi.NewRouter()
	h.Routes(r)
	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	f := setup(t, nil)
	resp, body := do(t, http.MethodGet, f.srv.URL+"/admin/health", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response: %d %+v", resp.StatusCode, body)
	}
}

func TestReset(t *testing.T) {
	f := setup(t, nil)
	f.clock.Advance(time.Hour)
	f.decliner.n = 3
	f.mw.Faults.Set("/v1/cart", shopcore.FaultConfig{StatusCode: 500})
	f.mw.ReqLog.Add(shopcore.RequestLogEntry{Path: "/v1/cart"})

	resp, _ := do(t, http.MethodPost, f.srv.URL+"/admin/reset", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !f.state.resetCalled {
		t.Error("expected state reset")
	}
	if f.clock.Offset() != 0 {
		t.Error("expected clock reset")
	}
	if f.decliner.n != 0 {
		t.Error("expected declines disarmed")
	}
	if len(f.mw.Faults.All()) != 0 || len(f.mw.ReqLog.Entries()) != 0 {
		t.Error("expected faults and request log cleared")
	}
}

func TestGetState(t *testing.T) {
	f := setup(t, nil)
	_, body := do(t, http.MethodGet, f.srv.URL+"/admin/state", "")
	if body["sessions"] != "1" {
		t.Errorf("unexpected state: %+v", body)
	}
}

func TestInjectAndRemoveFault(t *testing.T) {
	f := setup(t, nil)

	resp, body := do(t, http.MethodPost, f.srv.URL+"/admin/fault/v1/cart/checkout", `{"status_code":503}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["endpoint"] != "/v1/cart/checkout" {
		t.Errorf("unexpected endpoint %v", body["endpoint"])
	}
	if fc := f.mw.Faults.Check("/v1/cart/checkout"); fc == nil || fc.StatusCode != 503 {
		t.Errorf("fault not registered: %+v", fc)
	}

	_, faults := do(t, http.MethodGet, f.srv.URL+"/admin/faults", "")
	if _, ok := faults["/v1/cart/checkout"]; !ok {
		t.Errorf("fault missing from list: %+v", faults)
	}

	resp, _ = do(t, http.MethodDelete, f.srv.URL+"/admin/fault/v1/cart/checkout", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodDelete, f.srv.URL+"/admin/fault/v1/cart/checkout", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestInjectFaultInvalid(t *testing.T) {
	f := setup(t, nil)
	resp, _ := do(t, http.MethodPost, f.srv.URL+"/admin/fault/v1/cart", "{bad")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckoutDecline(t *testing.T) {
	f := setup(t, nil)

	resp, body := do(t, http.MethodPost, f.srv.URL+"/admin/checkout/decline", "")
	if resp.StatusCode != http.StatusOK || body["pending"] != float64(1) {
		t.Errorf("default arm should decline once: %d %+v", resp.StatusCode, body)
	}

	_, body = do(t, http.MethodPost, f.srv.URL+"/admin/checkout/decline", `{"count":3}`)
	if f.decliner.n != 3 || body["pending"] != float64(3) {
		t.Errorf("expected 3 pending declines, got %d", f.decliner.n)
	}

	_, body = do(t, http.MethodGet, f.srv.URL+"/admin/checkout/decline", "")
	if body["pending"] != float64(3) {
		t.Errorf("unexpected pending: %+v", body)
	}

	resp, _ = do(t, http.MethodPost, f.srv.URL+"/admin/checkout/decline", `{"count":-1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for negative count, got %d", resp.StatusCode)
	}

	do(t, http.MethodDelete, f.srv.URL+"/admin/checkout/decline", "")
	if f.decliner.n != 0 {
		t.Error("expected declines disarmed")
	}
}

func TestRequests(t *testing.T) {
	f := setup(t, nil)
	f.mw.ReqLog.Add(shopcore.RequestLogEntry{Method: "GET", Path: "/v1/cart"})

	resp, err := http.Get(f.srv.URL + "/admin/requests")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var entries []shopcore.RequestLogEntry
	json.NewDecoder(resp.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Path != "/v1/cart" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestFlushWebhooks(t *testing.T) {
	fl := &mockFlusher{}
	f := setup(t, fl)
	resp, body := do(t, http.MethodPost, f.srv.URL+"/admin/webhooks/flush", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "flushed" || !fl.flushed {
		t.Errorf("unexpected flush response: %d %+v", resp.StatusCode, body)
	}

	fl.err = errors.New("receiver down")
	resp, _ = do(t, http.MethodPost, f.srv.URL+"/admin/webhooks/flush", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestFlushWithoutFlusher(t *testing.T) {
	f := setup(t, nil)
	_, body := do(t, http.MethodPost, f.srv.URL+"/admin/webhooks/flush", "")
	if body["status"] != "no webhooks configured" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestTimeAdvance(t *testing.T) {
	f := setup(t, nil)
	resp, body := do(t, http.MethodPost, f.srv.URL+"/admin/time/advance", `{"duration":"2h"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if f.clock.Offset() != 2*time.Hour || body["offset"] != "2h0m0s" {
		t.Errorf("unexpected offset %v %+v", f.clock.Offset(), body)
	}

	resp, _ = do(t, http.MethodPost, f.srv.URL+"/admin/time/advance", `{"duration":"soon"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	_, body = do(t, http.MethodGet, f.srv.URL+"/admin/time", "")
	if body["offset"] != "2h0m0s" {
		t.Errorf("unexpected time response %+v", body)
	}
}
