package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"unity-upload-backend/internal/clock"
	"unity-upload-backend/internal/handlers"
	"unity-upload-backend/internal/middleware"
	"unity-upload-backend/internal/models"
	"unity-upload-backend/internal/services"
	"unity-upload-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	app      *fiber.App
	clock    *clock.Manual
	handlers *handlers.Handlers
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	clk := clock.NewManual(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC))

	fs, err := store.NewFileStore(filepath.Join(dir, "bans.json"))
	require.NoError(t, err)
	registry, err := services.NewBanRegistry(fs, clk)
	require.NoError(t, err)

	uploads, err := services.NewUploadStore(filepath.Join(dir, "uploads"), 1<<20, ".json", clk)
	require.NoError(t, err)
	voice, err := services.NewVoiceLog(filepath.Join(dir, "voice.log"), 1<<20, clk)
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Report{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	h := &handlers.Handlers{
		Bans:     registry,
		Sweeper:  services.NewSweeper(registry, time.Minute),
		Uploads:  uploads,
		Winners:  services.NewWinnerPicker(uploads, clk),
		VoiceLog: voice,
		Reports:  services.NewReportLog(db),
	}

	app := fiber.New()
	SetupRoutes(app, h, middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 600, BurstLimit: 100}))
	return &testServer{app: app, clock: clk, handlers: h}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	json.Unmarshal(body, &env)
	return resp.StatusCode, env
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestBanEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, jsonRequest("POST", "/api/bans", fiber.Map{"playerId": "p1", "reason": "cheating", "durationMinutes": 60}))
	require.Equal(t, fiber.StatusCreated, status)
	var rec models.BanRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "p1", rec.PlayerID)
	assert.Equal(t, time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC), rec.ExpiresAt)

	status, _ = s.do(t, formRequest("/api/bans", url.Values{"playerId": {"p1"}, "reason": {"again"}, "durationMinutes": {"5"}}))
	assert.Equal(t, fiber.StatusConflict, status)

	status, env = s.do(t, jsonRequest("POST", "/api/bans", fiber.Map{"playerId": "p2", "reason": "cheating", "durationMinutes": 0}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Error, "durationMinutes")

	status, _ = s.do(t, jsonRequest("POST", "/api/bans", fiber.Map{"playerId": "p2", "reason": "cheating", "durationMinutes": 200_000_000}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, env = s.do(t, httptest.NewRequest("GET", "/api/bans/check/p2", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"banned":false}`, string(env.Data))

	s.clock.Advance(30 * time.Minute)
	status, env = s.do(t, httptest.NewRequest("GET", "/api/bans/check/p1", nil))
	require.Equal(t, fiber.StatusOK, status)
	var ban models.BanStatus
	require.NoError(t, json.Unmarshal(env.Data, &ban))
	assert.True(t, ban.Banned)
	assert.Equal(t, "cheating", ban.Reason)

	status, env = s.do(t, httptest.NewRequest("GET", "/api/bans", nil))
	require.Equal(t, fiber.StatusOK, status)
	var list []models.BanRecord
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	status, _ = s.do(t, formRequest("/api/bans/revoke", url.Values{"playerId": {"p1"}}))
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, jsonRequest("POST", "/api/bans/revoke", fiber.Map{"playerId": "p1"}))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, env = s.do(t, httptest.NewRequest("GET", "/api/bans/check/unknown%20player", nil))
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &ban))
	assert.False(t, ban.Banned)
}

func TestBanEndpoints_LazyExpiryAndSweep(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, jsonRequest("POST", "/api/bans", fiber.Map{"playerId": "p1", "reason": "cheating", "durationMinutes": 60}))
	require.Equal(t, fiber.StatusCreated, status)

	s.clock.Advance(61 * time.Minute)
	_, env := s.do(t, httptest.NewRequest("GET", "/api/bans/check/p1", nil))
	assert.JSONEq(t, `{"banned":false}`, string(env.Data))

	status, env = s.do(t, httptest.NewRequest("POST", "/api/bans/sweep", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"removed":1}`, string(env.Data))
}

func TestUploadAndWinners(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Kira"))
	fw, err := mw.CreateFormFile("file", "arena.json")
	require.NoError(t, err)
	fw.Write([]byte(`{"tiles":[]}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, env := s.do(t, req)
	require.Equal(t, fiber.StatusCreated, status, env.Error)

	var info services.UploadInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, "Kira", info.Uploader)

	resp, err := s.app.Test(httptest.NewRequest("GET", info.URL, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	status, _ = s.do(t, httptest.NewRequest("POST", "/upload", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = s.do(t, jsonRequest("POST", "/api/winners", fiber.Map{"count": 3}))
	require.Equal(t, fiber.StatusOK, status)
	var pick services.WinnerPick
	require.NoError(t, json.Unmarshal(env.Data, &pick))
	assert.Len(t, pick.Winners, 1)

	status, _ = s.do(t, httptest.NewRequest("DELETE", "/api/winners", nil))
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, httptest.NewRequest("GET", "/api/winners", nil))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, httptest.NewRequest("DELETE", "/api/uploads/"+info.Filename, nil))
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, httptest.NewRequest("DELETE", "/api/uploads/"+info.Filename, nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestVoiceLogAndReports(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, formRequest("/voice-log", url.Values{"name": {"Kira"}, "reason": {"slurs"}, "playfabId": {"PF1"}}))
	require.Equal(t, fiber.StatusOK, status)

	status, env := s.do(t, httptest.NewRequest("GET", "/api/voice-log", nil))
	require.Equal(t, fiber.StatusOK, status)
	var lines []string
	require.NoError(t, json.Unmarshal(env.Data, &lines))
	assert.Equal(t, []string{"[2025-03-01T18:00:00Z] Kira (PF1): slurs"}, lines)

	status, env = s.do(t, formRequest("/report", url.Values{"targetName": {"griefer"}, "reason": {"aimbot"}, "match": {"42"}}))
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var report models.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.JSONEq(t, `{"match":"42"}`, string(report.Metadata))

	status, _ = s.do(t, formRequest("/report", url.Values{"targetName": {"griefer"}}))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = s.do(t, httptest.NewRequest("GET", "/api/reports?search=grief", nil))
	require.Equal(t, fiber.StatusOK, status)
	var page services.PaginatedReports
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
}

func TestDashboardAndHealth(t *testing.T) {
	s := newTestServer(t)

	s.do(t, jsonRequest("POST", "/api/bans", fiber.Map{"playerId": "<script>", "reason": "xss", "durationMinutes": 5}))

	resp, err := s.app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Active Bans: <b>1</b>")
	assert.Contains(t, string(body), "&lt;script&gt;")

	assert.NotContains(t, string(body), "/api/playfab/unban")

	resp, err = s.app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var health struct {
		Timestamp  int64 `json:"timestamp"`
		ActiveBans int   `json:"active_bans"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, s.clock.Now().Unix(), health.Timestamp)
	assert.Equal(t, 1, health.ActiveBans)
}

func TestPlayFabUnban(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, formRequest("/api/playfab/unban", url.Values{"playfabId": {"PF1"}}))
	assert.Equal(t, fiber.StatusServiceUnavailable, status)

	var mu sync.Mutex
	var gotIDs []string
	pf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayFabIds []string
		}
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		gotIDs = append(gotIDs, body.PlayFabIds...)
		mu.Unlock()
		if body.PlayFabIds[0] == "GONE" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"errorCode":1001,"errorMessage":"User not found"}`))
			return
		}
		w.Write([]byte(`{"code":200,"status":"OK"}`))
	}))
	defer pf.Close()
	s.handlers.PlayFab = services.NewPlayFabClient("TITLE", "key", 5*time.Second).WithBaseURL(pf.URL)

	// voice bans have no local record
	status, _ = s.do(t, jsonRequest("POST", "/api/bans/revoke", fiber.Map{"playerId": "PF1"}))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, env := s.do(t, formRequest("/api/playfab/unban", url.Values{"playfabId": {"PF1"}}))
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)

	status, _ = s.do(t, formRequest("/api/playfab/unban", url.Values{"playfabId": {"GONE"}}))
	assert.Equal(t, fiber.StatusInternalServerError, status)

	status, _ = s.do(t, jsonRequest("POST", "/api/playfab/unban", fiber.Map{"playfabId": " "}))
	assert.Equal(t, fiber.StatusBadRequest, status)

	mu.Lock()
	assert.Equal(t, []string{"PF1", "GONE"}, gotIDs)
	mu.Unlock()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `action="/api/playfab/unban"`)
}
