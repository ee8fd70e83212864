package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"daoverse-backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	deployerAddr = "0xd000000000000000000000000000000000000001"
	aliceAddr    = "0xa000000000000000000000000000000000000002"
)

func setupApp(t *testing.T) *fiber.App {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		Env:             "test",
		Port:            "0",
		RedisURL:        "redis://" + mr.Addr(),
		BaseURI:         "ipfs://rooms/",
		Deployer:        deployerAddr,
		TimelockAddress: "0x000000000000000000000000000000000074696d",
		FeePercentage:   5,
		PeriodDuration:  3600,
		VotingDelay:     5,
		VotingPeriod:    10,
		MinDelay:        3600,
		QuorumPercent:   4,
	}
	app, err := CreateApp(cfg, db)
	require.NoError(t, err)
	return app
}

func connect(t *testing.T, app *fiber.App, address string) string {
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
	t.Fatal("no session cookie")
	return ""
}

func doJSON(t *testing.T, app *fiber.App, method, path, sid string, payload interface{}) (map[string]interface{}, int) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.Header.Set("Cookie", "daoverse.sid="+sid)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return out, resp.StatusCode
}

func TestProtectedRoutesRequireWallet(t *testing.T) {
	app := setupApp(t)

	_, status := doJSON(t, app, "POST", "/api/v1/rooms/mint", "", map[string]interface{}{
		"uri": "", "area_size": 100, "name": "terra",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Reads stay public.
	_, status = doJSON(t, app, "GET", "/api/v1/rooms", "", nil)
	assert.Equal(t, http.StatusOK, status)
	_, status = doJSON(t, app, "GET", "/api/v1/chain/height", "", nil)
	assert.Equal(t, http.StatusOK, status)
	_, status = doJSON(t, app, "GET", "/api/v1/renting/fee", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestMintListRentThroughAPI(t *testing.T) {
	app := setupApp(t)
	deployerSid := connect(t, app, deployerAddr)
	aliceSid := connect(t, app, aliceAddr)

	out, status := doJSON(t, app, "POST", "/api/v1/rooms/mint", deployerSid, map[string]interface{}{
		"uri": "/terra", "area_size": 245, "name": "terra",
	})
	require.Equal(t, http.StatusCreated, status)
	room := out["data"].(map[string]interface{})
	assert.Equal(t, float64(0), room["room_id"])
	assert.Equal(t, "ipfs://rooms//terra", room["uri"])

	// Non-owner mint is rejected.
	_, status = doJSON(t, app, "POST", "/api/v1/rooms/mint", aliceSid, map[string]interface{}{
		"uri": "", "area_size": 100, "name": "nope",
	})
	assert.Equal(t, http.StatusForbidden, status)

	out, status = doJSON(t, app, "POST", "/api/v1/renting/list-room", deployerSid, map[string]interface{}{
		"room_id": 0, "price_per_period": 310, "max_periods": 12,
	})
	require.Equal(t, http.StatusCreated, status)

	_, status = doJSON(t, app, "POST", "/api/v1/wallet/deposit", aliceSid, map[string]interface{}{
		"amount": 1000,
	})
	require.Equal(t, http.StatusOK, status)

	out, status = doJSON(t, app, "POST", "/api/v1/renting/rent", aliceSid, map[string]interface{}{
		"room_id": 0, "periods": 3, "payment": 930,
	})
	require.Equal(t, http.StatusOK, status)
	rented := out["data"].(map[string]interface{})
	assert.Equal(t, aliceAddr, rented["user"])

	out, status = doJSON(t, app, "GET", "/api/v1/rooms/0/user", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, aliceAddr, out["data"].(map[string]interface{})["user"])

	out, status = doJSON(t, app, "GET", "/api/v1/wallet/balance", aliceSid, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(70), out["data"].(map[string]interface{})["balance"])
}

func TestBuyThroughAPI(t *testing.T) {
	app := setupApp(t)
	deployerSid := connect(t, app, deployerAddr)
	aliceSid := connect(t, app, aliceAddr)

	_, status := doJSON(t, app, "POST", "/api/v1/rooms/mint", deployerSid, map[string]interface{}{
		"uri": "", "area_size": 245, "name": "terra",
	})
	require.Equal(t, http.StatusCreated, status)

	_, status = doJSON(t, app, "POST", "/api/v1/market/list-room", deployerSid, map[string]interface{}{
		"room_id": 0, "price": 5000,
	})
	require.Equal(t, http.StatusCreated, status)

	_, status = doJSON(t, app, "POST", "/api/v1/wallet/deposit", aliceSid, map[string]interface{}{
		"amount": 5000,
	})
	require.Equal(t, http.StatusOK, status)

	out, status := doJSON(t, app, "POST", "/api/v1/market/buy", aliceSid, map[string]interface{}{
		"room_id": 0, "payment": 5000,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, aliceAddr, out["data"].(map[string]interface{})["owner"])

	// The sale listing is gone afterwards.
	out, status = doJSON(t, app, "GET", "/api/v1/market/listing/0", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), out["data"].(map[string]interface{})["price"])
}

func TestGovernanceEndpointsThroughAPI(t *testing.T) {
	app := setupApp(t)
	deployerSid := connect(t, app, deployerAddr)

	// Hand the renting market to the timelock so proposals can execute later.
	_, status := doJSON(t, app, "POST", "/api/v1/admin/transfer-ownership", deployerSid, map[string]interface{}{
		"target": "renting", "new_owner": "0x000000000000000000000000000000000074696d",
	})
	require.Equal(t, http.StatusOK, status)

	actions := []map[string]interface{}{
		{"kind": "set_fee_percentage", "target": "renting", "value": 10},
	}
	out, status := doJSON(t, app, "POST", "/api/v1/governance/propose", deployerSid, map[string]interface{}{
		"actions": actions, "description": "raise the fee",
	})
	require.Equal(t, http.StatusCreated, status)
	proposalID := out["data"].(map[string]interface{})["proposal_id"].(string)

	out, status = doJSON(t, app, "GET", "/api/v1/governance/proposals/"+proposalID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Pending", out["data"].(map[string]interface{})["state"])

	// Duplicate proposal conflicts.
	_, status = doJSON(t, app, "POST", "/api/v1/governance/propose", deployerSid, map[string]interface{}{
		"actions": actions, "description": "raise the fee",
	})
	assert.Equal(t, http.StatusConflict, status)
}
