package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"daoverse-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTest(t *testing.T) (*fiber.App, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cfg := middleware.SessionConfig{
		Secret:   "test-secret",
		RedisURL: "redis://" + mr.Addr(),
	}
	sessionHandler, rdb, err := middleware.Session(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(sessionHandler)

	h := &Handlers{Rdb: rdb, Config: cfg}
	app.Post("/api/v1/auth/connect", h.Connect)
	app.Get("/api/v1/auth/me", h.Me)
	app.Delete("/api/v1/auth/disconnect", h.Disconnect)
	return app, rdb
}

func connectWallet(t *testing.T, app *fiber.App, address string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"address": address})
	req := httptest.NewRequest("POST", "/api/v1/auth/connect", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "daoverse.sid" {
			return cookie.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func TestConnect_SetsSessionAndLowercases(t *testing.T) {
	app, rdb := setupAuthTest(t)

	sid := connectWallet(t, app, "0xAbCdEf1234567890abcdef1234567890ABCDEF12")
	require.NotEmpty(t, sid)

	b, err := rdb.Get(context.Background(), "session:"+sid).Bytes()
	require.NoError(t, err)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &data))
	assert.Equal(t, "0xabcdef1234567890abcdef1234567890abcdef12", data["address"])
}

func TestConnect_RejectsBadAddresses(t *testing.T) {
	app, _ := setupAuthTest(t)

	for _, address := range []string{"", "0x123", "abcdef1234567890abcdef1234567890abcdef12", "0xzzzdef1234567890abcdef1234567890abcdef12"} {
		body, _ := json.Marshal(map[string]string{"address": address})
		req := httptest.NewRequest("POST", "/api/v1/auth/connect", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestMe_WithAndWithoutSession(t *testing.T) {
	app, _ := setupAuthTest(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/auth/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	sid := connectWallet(t, app, "0xabcdef1234567890abcdef1234567890abcdef12")
	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Cookie", "daoverse.sid="+sid)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "success", out["status"])
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "0xabcdef1234567890abcdef1234567890abcdef12", data["address"])
}

func TestDisconnect_ClearsSession(t *testing.T) {
	app, rdb := setupAuthTest(t)

	sid := connectWallet(t, app, "0xabcdef1234567890abcdef1234567890abcdef12")

	req := httptest.NewRequest("DELETE", "/api/v1/auth/disconnect", nil)
	req.Header.Set("Cookie", "daoverse.sid="+sid)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	b, _ := rdb.Get(context.Background(), "session:"+sid).Bytes()
	var data map[string]interface{}
	_ = json.Unmarshal(b, &data)
	assert.Empty(t, data["address"])
}

func TestNormalizeAddress(t *testing.T) {
	address, err := NormalizeAddress("  0xABCdef1234567890abcdef1234567890abcdef12 ")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef1234567890abcdef1234567890abcdef12", address)

	_, err = NormalizeAddress("")
	assert.ErrorIs(t, err, ErrAddressRequired)
	_, err = NormalizeAddress("0x123")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
