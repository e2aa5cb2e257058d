package api_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underskin/storefront/internal/advisor"
	"github.com/underskin/storefront/internal/api"
	"github.com/underskin/storefront/internal/cart"
	"github.com/underskin/storefront/internal/catalog"
	"github.com/underskin/storefront/internal/session"
	"github.com/underskin/storefront/pkg/admin"
	"github.com/underskin/storefront/pkg/shopcore"
	"github.com/underskin/storefront/pkg/store"
	"github.com/underskin/storefront/pkg/testutil"
)

type env struct {
	client    *testutil.Client
	admin     *testutil.AdminClient
	sessions  *session.Manager
	processor *cart.SimulatedProcessor
}

func setup(t *testing.T, checkoutDelay time.Duration) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := shopcore.New(shopcore.Options{Name: "storefront-test", Logger: logger})

	c, err := catalog.Default()
	require.NoError(t, err)

	clock := store.NewClock()
	processor := cart.NewSimulatedProcessor(checkoutDelay)
	sessions, err := session.NewManager(session.Config{
		Secret:    []byte("test-secret"),
		TTL:       time.Hour,
		Processor: processor,
		Strategy:  advisor.NewLocal(0),
		Clock:     clock,
		Logger:    logger,
	})
	require.NoError(t, err)

	api.NewHandler(c, sessions, srv.Middleware(), logger).Routes(srv.Router)
	adm := admin.NewHandler(sessions, srv.Middleware(), clock)
	adm.SetDecliner(processor)
	adm.Routes(srv.Router)

	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)

	client := testutil.NewClient(t, ts)
	return &env{
		client:    client,
		admin:     testutil.NewAdminClient(client),
		sessions:  sessions,
		processor: processor,
	}
}

func waitForCheckout(t *testing.T, c *testutil.Client, want string) map[string]any {
	t.Helper()
	var last map[string]any
	require.Eventually(t, func() bool {
		last = c.Get("/v1/cart/checkout").AssertStatus(http.StatusOK).JSONMap()
		return last["status"] == want
	}, 2*time.Second, 10*time.Millisecond, "checkout never reached %q", want)
	return last
}

func cartOf(t *testing.T, resp *testutil.Response) map[string]any {
	t.Helper()
	body := resp.JSONMap()
	c, ok := body["cart"].(map[string]any)
	require.True(t, ok, "response has no cart: %s", resp.Body)
	return c
}

func TestListProducts(t *testing.T) {
	e := setup(t, 0)

	var all struct {
		Data  []catalog.Product `json:"data"`
		Count int               `json:"count"`
	}
	e.client.Get("/v1/products").AssertStatus(http.StatusOK).JSON(&all)
	assert.Equal(t, 8, all.Count)
	assert.Len(t, all.Data, 8)

	var beauty struct {
		Data []catalog.Product `json:"data"`
	}
	e.client.Get("/v1/products?category=beauty").AssertStatus(http.StatusOK).JSON(&beauty)
	require.Len(t, beauty.Data, 3)
	for _, p := range beauty.Data {
		assert.Equal(t, catalog.CategoryBeauty, p.Category)
	}

	var search struct {
		Data []catalog.Product `json:"data"`
	}
	e.client.Get("/v1/products?q=OMEGA").AssertStatus(http.StatusOK).JSON(&search)
	require.Len(t, search.Data, 1)
	assert.Equal(t, "omega-3-ultra", search.Data[0].ID)

	resp := e.client.Get("/v1/products?category=bogus").AssertStatus(http.StatusBadRequest)
	assert.Equal(t, "invalid_category", resp.ErrorType())
}

func TestFeaturedAndGetProduct(t *testing.T) {
	e := setup(t, 0)

	body := e.client.Get("/v1/products/featured").AssertStatus(http.StatusOK).JSONMap()
	assert.EqualValues(t, catalog.FeaturedCount, body["count"])

	var p catalog.Product
	e.client.Get("/v1/products/marine-collagen").AssertStatus(http.StatusOK).JSON(&p)
	assert.Equal(t, "Marine Collagen", p.Name)

	resp := e.client.Get("/v1/products/nope").AssertStatus(http.StatusNotFound)
	assert.Equal(t, "product_not_found", resp.ErrorType())
}

func TestSessionRequired(t *testing.T) {
	e := setup(t, 0)

	resp := e.client.Get("/v1/cart").AssertStatus(http.StatusUnauthorized)
	assert.Equal(t, "missing_session", resp.ErrorType())

	resp = e.client.WithToken("not-a-jwt").Get("/v1/cart").AssertStatus(http.StatusUnauthorized)
	assert.Equal(t, "invalid_session", resp.ErrorType())
}

func TestSessionExpiresWithClock(t *testing.T) {
	e := setup(t, 0)
	c := e.client.NewSession()
	c.Get("/v1/cart").AssertStatus(http.StatusOK)

	e.admin.AdvanceTime("2h").AssertStatus(http.StatusOK)
	resp := c.Get("/v1/cart").AssertStatus(http.StatusUnauthorized)
	assert.Equal(t, "invalid_session", resp.ErrorType())
}

func TestSessionsAreIsolated(t *testing.T) {
	e := setup(t, 0)
	a := e.client.NewSession()
	b := e.client.NewSession()

	a.Post("/v1/cart/items", map[string]string{"product_id": "marine-collagen"}).AssertStatus(http.StatusOK)

	items := cartOf(t, b.Get("/v1/cart"))["items"].([]any)
	assert.Empty(t, items)
	assert.Equal(t, 2, e.sessions.Count())
}

func TestView(t *testing.T) {
	e := setup(t, 0)
	c := e.client.NewSession()

	assert.Equal(t, "home", c.Get("/v1/session/view").AssertStatus(http.StatusOK).JSONMap()["view"])
	c.Put("/v1/session/view", map[string]string{"view": "catalog"}).AssertStatus(http.StatusOK)
	assert.Equal(t, "catalog", c.Get("/v1/session/view").JSONMap()["view"])

	resp := c.Put("/v1/session/view", map[string]string{"view": "checkout"}).AssertStatus(http.StatusBadRequest)
	assert.Equal(t, "invalid_view", resp.ErrorType())
	assert.Equal(t, "catalog", c.Get("/v1/session").JSONMap()["view"])
}

func TestCartOperations(t *testing.T) {
	e := setup(t, 0)
	c := e.client.NewSession()

	c.Post("/v1/cart/items", map[string]string{"product_id": "marine-collagen"}).AssertStatus(http.StatusOK)
	resp := c.Post("/v1/cart/items", map[string]string{"product_id": "marine-collagen"}).AssertStatus(http.StatusOK)
	items := cartOf(t, resp)["items"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].(map[string]any)["quantity"])

	resp = c.Post("/v1/cart/items", map[string]string{"product_id": "coq10-energy"}).AssertStatus(http.StatusOK)
	notice := resp.JSONMap()["notice"].(map[string]any)
	assert.Equal(t, "error", notice["kind"])

	c.Post("/v1/cart/items", map[string]string{"product_id": "ghost"}).AssertStatus(http.StatusNotFound)
	c.Post("/v1/cart/items", map[string]string{}).AssertStatus(http.StatusBadRequest)

	body := c.Patch("/v1/cart/items/marine-collagen", map[string]int{"delta": -1}).AssertStatus(http.StatusOK).JSONMap()
	assert.Equal(t, true, body["applied"])
	body = c.Patch("/v1/cart/items/marine-collagen", map[string]int{"delta": -1}).AssertStatus(http.StatusOK).JSONMap()
	assert.Equal(t, false, body["applied"])

	resp = c.Delete("/v1/cart/items/marine-collagen").AssertStatus(http.StatusOK)
	assert.Empty(t, cartOf(t, resp)["items"])
}

func TestCoupon(t *testing.T) {
	e := setup(t, 0)
	c := e.client.NewSession()
	c.Post("/v1/cart/items", map[string]string{"product_id": "marine-collagen"}).AssertStatus(http.StatusOK)

	resp := c.Post("/v1/cart/coupon", map[string]string{"code": " skin10 "}).AssertStatus(http.StatusOK)
	totals := cartOf(t, resp)["totals"].(map[string]any)
	assert.EqualValues(t, 1850000, totals["subtotal"])
	assert.Equal(t, "185000", totals["discount_amount"])
	assert.Equal(t, "1665000", totals["total"])

	resp = c.Post("/v1/cart/coupon", map[string]string{"code": "FREE"}).AssertStatus(http.StatusOK)
	assert.Equal(t, "error", resp.JSONMap()["notice"].(map[string]any)["kind"])
	totals = cartOf(t, resp)["totals"].(map[string]any)
	assert.Equal(t, "1850000", totals["total"])
}

func TestCheckoutFlow(t *testing.T) {
	e := setup(t, 0)
	c := e.client.NewSession()

	resp := c.Post("/v1/cart/checkout", nil).AssertStatus(http.StatusUnprocessableEntity)
	assert.Equal(t, "empty_cart", resp.ErrorType())

	c.Post("/v1/cart/items", map[string]string{"product_id": "vitamin-d3-k2"}).AssertStatus(http.StatusOK)
	c.Post("/v1/cart/coupon", map[string]string{"code": "SKIN10"}).AssertStatus(http.StatusOK)
	c.Post("/v1/cart/checkout", nil).AssertStatus(http.StatusAccepted)

	body := waitForCheckout(t, c, "succeeded")
	assert.Equal(t, true, body["reward_pending"])
	out := body["last_outcome"].(map[string]any)
	assert.Equal(t, true, out["reward_triggered"])
	assert.Equal(t, "SKIN10", out["order"].(map[string]any)["coupon"])

	cv := cartOf(t, c.Get("/v1/cart"))
	assert.Empty(t, cv["items"])
	assert.EqualValues(t, 0, cv["discount"].(map[string]any)["percent"])

	spin := c.Post("/v1/rewards/spin", nil).AssertStatus(http.StatusOK).JSONMap()
	assert.Equal(t, cart.CodeReward, spin["code"])
	assert.Equal(t, false, spin["reward_pending"])

	c.Post("/v1/cart/items", map[string]string{"product_id": "vitamin-d3-k2"}).AssertStatus(http.StatusOK)
	resp = c.Post("/v1/cart/coupon", map[string]string{"code": spin["code"].(string)}).AssertStatus(http.StatusOK)
	assert.EqualValues(t, 10, cartOf(t, resp)["discount"].(map[string]any)["percent"])
}

func TestCheckoutFreezesCart(t *testing.T) {
	e := setup(t, 300*time.Millisecond)
	c := e.client.NewSession()

	c.Post("/v1/cart/items", map[string]string{"product_id": "biotin-complex"}).AssertStatus(http.StatusOK)
	c.Post("/v1/cart/checkout", nil).AssertStatus(http.StatusAccepted)

	resp := c.Post("/v1/cart/checkout", nil).AssertStatus(http.StatusConflict)
	assert.Equal(t, "checkout_pending", resp.ErrorType())
	resp = c.Post("/v1/cart/items", map[string]string{"product_id": "biotin-complex"}).AssertStatus(http.StatusConflict)
	assert.Equal(t, "checkout_pending", resp.ErrorType())
	c.Post("/v1/cart/coupon", map[string]string{"code": "SKIN10"}).AssertStatus(http.StatusConflict)
	c.Delete("/v1/cart/items/biotin-complex").AssertStatus(http.StatusConflict)

	assert.Equal(t, "pending", cartOf(t, c.Get("/v1/cart"))["checkout_status"])
	waitForCheckout(t, c, "succeeded")
}

func TestCheckoutDecline(t *testing.T) {
	e := setup(t, 0)
	c := e.client.NewSession()

	e.admin.DeclineCheckouts(1).AssertStatus(http.StatusOK)
	assert.Equal(t, 1, e.processor.PendingDeclines())

	c.Post("/v1/cart/items", map[string]string{"product_id": "omega-3-ultra"}).AssertStatus(http.StatusOK)
	c.Post("/v1/cart/checkout", nil).AssertStatus(http.StatusAccepted)

	body := waitForCheckout(t, c, "failed")
	assert.Equal(t, false, body["reward_pending"])
	out := body["last_outcome"].(map[string]any)
	assert.Equal(t, cart.ErrPaymentDeclined.Error(), out["reason"])

	items := cartOf(t, c.Get("/v1/cart"))["items"].([]any)
	assert.Len(t, items, 1, "declined checkout keeps the cart")

	c.Post("/v1/cart/checkout", nil).AssertStatus(http.StatusAccepted)
	waitForCheckout(t, c, "succeeded")
}

func TestChat(t *testing.T) {
	e := setup(t, 0)
	c := e.client.NewSession()

	body := c.Get("/v1/chat").AssertStatus(http.StatusOK).JSONMap()
	assert.Equal(t, "demo", body["mode"])
	assert.Equal(t, "idle", body["status"])
	require.Len(t, body["messages"].([]any), 1)

	resp := c.Post("/v1/chat", map[string]string{"text": "   "}).AssertStatus(http.StatusBadRequest)
	assert.Equal(t, "empty_message", resp.ErrorType())

	var reply struct {
		Reply  advisor.Message `json:"reply"`
		Status string          `json:"status"`
	}
	c.Post("/v1/chat", map[string]string{"text": "سلام"}).AssertStatus(http.StatusOK).JSON(&reply)
	assert.Equal(t, advisor.RoleAssistant, reply.Reply.Role)
	assert.Contains(t, reply.Reply.Text, "سلام دوست عزیز")
	assert.Equal(t, "succeeded", reply.Status)

	var history struct {
		Messages []advisor.Message `json:"messages"`
	}
	c.Get("/v1/chat").JSON(&history)
	require.Len(t, history.Messages, 3)
	assert.Equal(t, advisor.RoleUser, history.Messages[1].Role)
	assert.Equal(t, "سلام", history.Messages[1].Text)
}

func TestFaultInjection(t *testing.T) {
	e := setup(t, 0)

	e.admin.InjectFault("/v1/products", map[string]any{"status_code": 503}).AssertStatus(http.StatusOK)
	e.client.Get("/v1/products").AssertStatus(http.StatusServiceUnavailable)
	e.admin.Health().AssertStatus(http.StatusOK)

	e.admin.RemoveFault("/v1/products").AssertStatus(http.StatusOK)
	e.client.Get("/v1/products").AssertStatus(http.StatusOK)
}

func TestAdminResetDropsSessions(t *testing.T) {
	e := setup(t, 0)
	c := e.client.NewSession()

	state := e.admin.GetState().AssertStatus(http.StatusOK).JSONMap()
	assert.EqualValues(t, 1, state["count"])

	e.admin.Reset().AssertStatus(http.StatusOK)
	assert.Equal(t, 0, e.sessions.Count())
	resp := c.Get("/v1/cart").AssertStatus(http.StatusUnauthorized)
	assert.Equal(t, "invalid_session", resp.ErrorType())
}
