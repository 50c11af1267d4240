package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"statboard/internal/config"
	"statboard/internal/controllers"
	"statboard/internal/middleware"
	"statboard/internal/models"
	"statboard/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type stubSource struct {
	mu      sync.Mutex
	samples []models.Sample
	err     error
}

func (s *stubSource) GetLatest(ctx context.Context) (models.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Sample{}, s.err
	}
	return s.samples[len(s.samples)-1], nil
}

func (s *stubSource) GetHistory(ctx context.Context, limit int) ([]models.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Sample(nil), s.samples...), nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type fixture struct {
	router *gin.Engine
	ctl    *controllers.Controller
	source *stubSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	source := &stubSource{samples: []models.Sample{
		{ID: 1, ObservedAt: t0, CPUPercent: 50, RAMPercent: 40, DiskPercent: 70, NetworkRxBytes: 0, NetworkTxBytes: 0},
		{ID: 2, ObservedAt: t0.Add(10 * time.Second), CPUPercent: 75, RAMPercent: 30, DiskPercent: 70, NetworkRxBytes: 1000, NetworkTxBytes: 500},
	}}
	poller := services.NewPoller(source, services.WithIndicatorDelay(time.Millisecond))
	hub := services.NewWebSocketHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	ctl := &controllers.Controller{
		Poller:   poller,
		Probe:    services.NewConnectionProbe(stubPinger{}, "abcd.supabase.co", "abcd", time.Hour),
		Auth:     services.NewAuthService("0123456789abcdef0123456789abcdef-routes", time.Hour),
		Hub:      hub,
		Security: middleware.NewSecurityLogger(quiet),
		Title:    "statboard",
	}
	r, err := NewRouter(config.ServerConfig{}, ctl)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return &fixture{router: r, ctl: ctl, source: source}
}

func (f *fixture) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

// ----------------------------------------------------------------------------
// Page and dashboard API
// ----------------------------------------------------------------------------

func Test_GetPage(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "abcd.supabase.co") {
		t.Error("page does not show the store host")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers not applied")
	}
}

func Test_GetDashboard_AfterRefresh(t *testing.T) {
	f := newFixture(t)
	f.ctl.Poller.Refresh(context.Background())

	w := f.do(http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var state models.DashboardState
	decode(t, w, &state)

	if state.Current == nil || state.Current.ID != 2 {
		t.Fatalf("current = %+v", state.Current)
	}
	if len(state.History) != 2 || len(state.Rates) != 1 {
		t.Errorf("history/rates = %d/%d, want 2/1", len(state.History), len(state.Rates))
	}
	if state.Rates[0].RxBytesPerSec != 100 || state.Rates[0].TxBytesPerSec != 50 {
		t.Errorf("rate = %+v", state.Rates[0])
	}
	if state.Trends.CPU == nil || state.Trends.CPU.PercentChange != 50 || !state.Trends.CPU.IsPositive {
		t.Errorf("cpu trend = %+v", state.Trends.CPU)
	}
	if state.NoData || state.Loading {
		t.Errorf("flags = no_data:%v loading:%v", state.NoData, state.Loading)
	}
}

func Test_GetDashboard_ErrorBanner(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("store: authentication failed (HTTP 401)")
	f.ctl.Poller.Refresh(context.Background())

	var state models.DashboardState
	decode(t, f.do(http.MethodGet, "/api/dashboard", nil), &state)
	if state.Error != "store: authentication failed (HTTP 401)" {
		t.Errorf("error = %q", state.Error)
	}
}

func Test_GetHistory(t *testing.T) {
	f := newFixture(t)
	f.ctl.Poller.Refresh(context.Background())

	var body struct {
		History []models.Sample      `json:"history"`
		Rates   []models.DerivedRate `json:"rates"`
		Count   int                  `json:"count"`
	}
	decode(t, f.do(http.MethodGet, "/api/history", nil), &body)
	if body.Count != 2 || len(body.History) != 2 || len(body.Rates) != 1 {
		t.Errorf("body = %+v", body)
	}
	if !body.History[0].ObservedAt.Before(body.History[1].ObservedAt) {
		t.Error("history not ascending")
	}
}

func Test_TriggerRefresh(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	var body struct {
		Started bool `json:"started"`
	}
	decode(t, w, &body)
	if !body.Started {
		t.Error("started = false")
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.ctl.Poller.Snapshot().Current == nil {
		if time.Now().After(deadline) {
			t.Fatal("manual refresh never populated the dashboard")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func Test_TriggerRefresh_RateLimited(t *testing.T) {
	f := newFixture(t)

	var last int
	for i := 0; i < 10; i++ {
		last = f.do(http.MethodPost, "/api/refresh", nil).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}
}

// ----------------------------------------------------------------------------
// Connection
// ----------------------------------------------------------------------------

func Test_Connection(t *testing.T) {
	f := newFixture(t)

	var st models.ConnectionStatus
	decode(t, f.do(http.MethodGet, "/api/connection", nil), &st)
	if st.Online {
		t.Error("online before any check")
	}

	decode(t, f.do(http.MethodPost, "/api/connection/check", nil), &st)
	if !st.Online || st.Status != "online" || st.Project != "abcd" {
		t.Errorf("status after check = %+v", st)
	}

	decode(t, f.do(http.MethodGet, "/api/connection", nil), &st)
	if !st.Online {
		t.Error("GET does not reflect the last check")
	}
}

// ----------------------------------------------------------------------------
// Auth and live feed
// ----------------------------------------------------------------------------

func Test_TokenStatus_Cases(t *testing.T) {
	f := newFixture(t)
	token, err := f.ctl.Auth.GenerateToken("wallboard")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"bearer", "/auth/status", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"query", "/auth/status?token=" + token, nil, http.StatusOK},
		{"missing", "/auth/status", nil, http.StatusBadRequest},
		{"malformed", "/auth/status?token=abc", nil, http.StatusUnauthorized},
		{"tampered", "/auth/status?token=" + token + "x", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, tt.path, tt.header)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	var body struct {
		Viewer string `json:"viewer"`
	}
	decode(t, f.do(http.MethodGet, "/auth/status?token="+token, nil), &body)
	if body.Viewer != "wallboard" {
		t.Errorf("viewer = %q", body.Viewer)
	}
}

func Test_WebSocket_RejectsMissingToken(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodGet, "/ws", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w := f.do(http.MethodGet, "/ws?token=bogus", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func Test_WebSocket_PushesState(t *testing.T) {
	f := newFixture(t)
	f.ctl.Poller.Subscribe(f.ctl.Hub.PublishDashboard)

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	token, err := f.ctl.Auth.GenerateToken("wallboard")
	if err != nil {
		t.Fatal(err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	type envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	var msg envelope

	// initial dashboard then connection state
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != services.MessageDashboard {
		t.Fatalf("first message = %q, %v", msg.Type, err)
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != services.MessageConnection {
		t.Fatalf("second message = %q, %v", msg.Type, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.ctl.Hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.ctl.Poller.Refresh(context.Background())
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		var state models.DashboardState
		if err := json.Unmarshal(msg.Data, &state); err != nil {
			t.Fatal(err)
		}
		if msg.Type == services.MessageDashboard && state.Current != nil {
			if state.Current.ID != 2 {
				t.Errorf("current id = %d", state.Current.ID)
			}
			return
		}
	}
}
