package ledger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"daoverse-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedgerHandlers(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ChainEvent{}, &domain.Wallet{}, &domain.ProceedsEntry{}))

	h := &Handlers{Service: &Service{DB: db}, Log: &Log{DB: db}}
	app := fiber.New()
	// Stand-in for the session middleware.
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("wallet_address", alice)
		return c.Next()
	})
	app.Get("/api/v1/wallet/balance", h.Balance)
	app.Post("/api/v1/wallet/deposit", h.Deposit)
	app.Get("/api/v1/chain/height", h.Height)
	app.Get("/api/v1/chain/events", h.Events)
	app.Post("/api/v1/chain/advance", h.Advance)
	return app, db
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) (*map[string]interface{}, int) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return &out, resp.StatusCode
}

func TestDepositAndBalanceEndpoints(t *testing.T) {
	app, _ := setupLedgerHandlers(t)

	out, status := postJSON(t, app, "/api/v1/wallet/deposit", map[string]interface{}{"amount": 500})
	assert.Equal(t, fiber.StatusOK, status)
	data := (*out)["data"].(map[string]interface{})
	assert.Equal(t, float64(500), data["balance"])

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/wallet/balance", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var balanceOut map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &balanceOut))
	data = balanceOut["data"].(map[string]interface{})
	assert.Equal(t, float64(500), data["balance"])
	assert.Equal(t, alice, data["address"])
}

func TestDepositEndpoint_ZeroAmount(t *testing.T) {
	app, _ := setupLedgerHandlers(t)

	_, status := postJSON(t, app, "/api/v1/wallet/deposit", map[string]interface{}{"amount": 0})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestChainEndpoints(t *testing.T) {
	app, _ := setupLedgerHandlers(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/chain/height", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, float64(0), out["data"].(map[string]interface{})["height"])

	advanced, status := postJSON(t, app, "/api/v1/chain/advance", map[string]interface{}{"blocks": 4})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(4), (*advanced)["data"].(map[string]interface{})["height"])

	_, status = postJSON(t, app, "/api/v1/chain/advance", map[string]interface{}{"blocks": 0})
	assert.Equal(t, fiber.StatusBadRequest, status)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/chain/events?limit=2", nil))
	require.NoError(t, err)
	raw, _ = io.ReadAll(resp.Body)
	var eventsOut map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &eventsOut))
	events := eventsOut["data"].([]interface{})
	assert.Len(t, events, 2)
}
