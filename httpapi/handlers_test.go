package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/sicko7947/vehicledb"
	"github.com/sicko7947/vehicledb/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *store.MemoryDataAccess) {
	t.Helper()
	data := store.NewMemoryDataAccess()
	app := fiber.New()
	New(data, zerolog.Nop()).Register(app)
	return app, data
}

func doJSON(t *testing.T, app *fiber.App, method, target, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

// signupAndLogin runs the signup/login flow and returns a session token
func signupAndLogin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "secret"}

	resp, _ := doJSON(t, app, fiber.MethodPost, "/signup", "", creds)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, fiber.MethodPost, "/login", "", creds)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, ok := body["token"].(string)
	require.True(t, ok, "login response carries no token")
	return token
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestSignup(t *testing.T) {
	app, _ := newTestApp(t)
	creds := map[string]string{"username": "alice", "password": "secret"}

	resp, body := doJSON(t, app, fiber.MethodPost, "/signup", "", creds)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "new user is created", body["message"])

	// Same username again conflicts
	resp, _ = doJSON(t, app, fiber.MethodPost, "/signup", "", creds)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSignup_MissingFields(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/signup", "", map[string]string{"username": "alice"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	app, _ := newTestApp(t)
	doJSON(t, app, fiber.MethodPost, "/signup", "", map[string]string{"username": "alice", "password": "secret"})

	resp, _ := doJSON(t, app, fiber.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMissingAuthorization(t *testing.T) {
	app, _ := newTestApp(t)

	routes := []struct {
		method string
		target string
	}{
		{fiber.MethodGet, "/vehicles"},
		{fiber.MethodPost, "/vehicles"},
		{fiber.MethodGet, "/vehicles/fee?type=tax"},
		{fiber.MethodGet, "/vehicles/search?q=DHA"},
		{fiber.MethodPost, "/fees?type=tax"},
		{fiber.MethodGet, "/history"},
		{fiber.MethodDelete, "/history"},
		{fiber.MethodDelete, "/session"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.target, func(t *testing.T) {
			resp, _ := doJSON(t, app, route.method, route.target, "", nil)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestVehicleLifecycle(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupAndLogin(t, app, "alice")

	vehicle := map[string]string{
		"vehicle_no":     "DHA-12-AB-1234",
		"owner":          "alice",
		"tax_date":       "2026-09-15",
		"fitness_date":   "2026-10-01",
		"insurance_date": "2026-08-20",
		"route_date":     "2026-12-31",
	}

	resp, body := doJSON(t, app, fiber.MethodPost, "/vehicles", token, vehicle)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "new car is added", body["message"])

	// Duplicate plate conflicts
	resp, _ = doJSON(t, app, fiber.MethodPost, "/vehicles", token, vehicle)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// The vehicle shows up in the listing
	req := httptest.NewRequest(fiber.MethodGet, "/vehicles", nil)
	req.Header.Set("Authorization", token)
	listResp, err := app.Test(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var vehicles []vehicledb.Vehicle
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&vehicles))
	require.Len(t, vehicles, 1)
	assert.Equal(t, "DHA-12-AB-1234", vehicles[0].VehicleNo)

	// Search finds it by suffix
	req = httptest.NewRequest(fiber.MethodGet, "/vehicles/search?q=1234", nil)
	req.Header.Set("Authorization", token)
	searchResp, err := app.Test(req)
	require.NoError(t, err)
	defer searchResp.Body.Close()
	require.Equal(t, fiber.StatusOK, searchResp.StatusCode)

	var plates []string
	require.NoError(t, json.NewDecoder(searchResp.Body).Decode(&plates))
	assert.Equal(t, []string{"DHA-12-AB-1234"}, plates)
}

func TestPayFeeAndUndo(t *testing.T) {
	app, data := newTestApp(t)
	today := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	data.SetClock(func() time.Time { return today })
	token := signupAndLogin(t, app, "alice")

	vehicle := map[string]string{
		"vehicle_no":     "DHA-12-AB-1234",
		"owner":          "alice",
		"tax_date":       "2026-08-01",
		"fitness_date":   "2026-10-01",
		"insurance_date": "2026-08-20",
		"route_date":     "2026-12-31",
	}
	resp, _ := doJSON(t, app, fiber.MethodPost, "/vehicles", token, vehicle)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	payment := map[string]string{
		"vehicle_no": "DHA-12-AB-1234",
		"tax_date":   "2027-08-01",
	}
	resp, body := doJSON(t, app, fiber.MethodPost, "/fees?type=tax", token, payment)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "the car tax date is updated", body["message"])

	// The payment shows up in history with the pre-payment date
	req := httptest.NewRequest(fiber.MethodGet, "/history", nil)
	req.Header.Set("Authorization", token)
	histResp, err := app.Test(req)
	require.NoError(t, err)
	defer histResp.Body.Close()
	require.Equal(t, fiber.StatusOK, histResp.StatusCode)

	var records []vehicledb.TransactionHistory
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "2026-08-01", records[0].Date)
	assert.Equal(t, "alice", records[0].Payer)

	undo := map[string]string{
		"vehicle_no":       "DHA-12-AB-1234",
		"date":             "2026-08-01",
		"transaction_type": "tax",
	}
	resp, body = doJSON(t, app, fiber.MethodDelete, "/history", token, undo)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "The transaction undo successfully!!", body["message"])

	// Undoing again is a 404: the record is gone
	resp, _ = doJSON(t, app, fiber.MethodDelete, "/history", token, undo)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPayFee_TypeRequired(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupAndLogin(t, app, "alice")

	resp, body := doJSON(t, app, fiber.MethodPost, "/fees", token, map[string]string{"vehicle_no": "DHA-12-AB-1234"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Fee type is not provided", body["message"])
}

func TestGetVehiclesByFee_TypeRequired(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupAndLogin(t, app, "alice")

	resp, body := doJSON(t, app, fiber.MethodGet, "/vehicles/fee", token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Fee type is not provided", body["message"])
}

func TestGetRoute_DaysRequired(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupAndLogin(t, app, "alice")

	resp, body := doJSON(t, app, fiber.MethodGet, "/vehicles/route", token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Days is not provided", body["message"])
}

func TestGetHistory_InvalidDays(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupAndLogin(t, app, "alice")

	resp, _ := doJSON(t, app, fiber.MethodGet, "/history?days=abc", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpdateVehicle_NotFound(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupAndLogin(t, app, "alice")

	update := map[string]string{
		"vehicle_no": "ZZZ-9999",
		"tax_date":   "2027-01-01",
	}
	resp, _ := doJSON(t, app, fiber.MethodPut, "/vehicles", token, update)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeleteSession(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupAndLogin(t, app, "alice")

	resp, body := doJSON(t, app, fiber.MethodDelete, "/session", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "All Sessions of the user alice is deleted", body["message"])

	// The revoked token no longer works
	resp, _ = doJSON(t, app, fiber.MethodGet, "/vehicles", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
