package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"splitride/internal/auth"
	"splitride/internal/core"
	"splitride/internal/notify"
	"splitride/internal/pairing"
	"splitride/internal/services"
)

// memStore backs the handler tests with an in-memory implementation of
// the service store ports.
type memStore struct {
	mu         sync.Mutex
	profiles   map[string]core.Profile
	passwords  map[string]string
	settings   map[string]core.Settings
	attendance map[string]core.Attendance
	requests   map[string]core.Request
}

func newMemStore() *memStore {
	return &memStore{
		profiles:   make(map[string]core.Profile),
		passwords:  make(map[string]string),
		settings:   make(map[string]core.Settings),
		attendance: make(map[string]core.Attendance),
		requests:   make(map[string]core.Request),
	}
}

func (m *memStore) CreateProfile(_ context.Context, p core.Profile, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	m.passwords[p.Email] = hash
	return nil
}

func (m *memStore) GetProfile(_ context.Context, id string) (core.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return core.Profile{}, core.ErrNotFound
	}
	return p, nil
}

func (m *memStore) GetCredentials(_ context.Context, email string) (core.Profile, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email == email {
			return p, m.passwords[email], nil
		}
	}
	return core.Profile{}, "", core.ErrNotFound
}

func (m *memStore) PairingCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.PairingCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindRiderByCode(_ context.Context, code string, createdAfter time.Time) (core.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Role == core.RoleRider && p.PairingCode == code && !p.CreatedAt.Before(createdAfter) {
			return p, nil
		}
	}
	return core.Profile{}, core.ErrRiderNotFound
}

func (m *memStore) SetPairedRider(_ context.Context, partnerID, riderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[partnerID]
	if !ok {
		return core.ErrNotFound
	}
	p.PairedRiderID = riderID
	m.profiles[partnerID] = p
	return nil
}

func (m *memStore) UpsertSettings(_ context.Context, s core.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.RiderID] = s
	return nil
}

func (m *memStore) GetSettings(_ context.Context, riderID string) (core.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[riderID]
	if !ok {
		return core.Settings{}, core.ErrNoSettings
	}
	return s, nil
}

func (m *memStore) UpsertAttendance(_ context.Context, a core.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[a.PartnerID+"|"+a.RiderID+"|"+a.Date.String()] = a
	return nil
}

func (m *memStore) ListAttendanceByRider(_ context.Context, riderID string) ([]core.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Attendance
	for _, a := range m.attendance {
		if a.RiderID == riderID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListAttendanceByPartner(_ context.Context, partnerID string) ([]core.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Attendance
	for _, a := range m.attendance {
		if a.PartnerID == partnerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) UpsertRequest(_ context.Context, r core.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.RiderID+"|"+r.PartnerID+"|"+r.Date.String()] = r
	return nil
}

func (m *memStore) CompletePendingRequest(_ context.Context, riderID, partnerID string, date core.Date) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := riderID + "|" + partnerID + "|" + date.String()
	r, ok := m.requests[k]
	if !ok || r.Status != core.RequestPending {
		return false, nil
	}
	r.Status = core.RequestCompleted
	m.requests[k] = r
	return true, nil
}

func (m *memStore) ListRequestsByRider(_ context.Context, riderID string) ([]core.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Request
	for _, r := range m.requests {
		if r.RiderID == riderID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListRequestsByPartner(_ context.Context, partnerID string) ([]core.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Request
	for _, r := range m.requests {
		if r.PartnerID == partnerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := newMemStore()
	tokens := auth.NewTokenIssuer("handler-test-secret", time.Hour)
	gen := pairing.NewGenerator(store)
	hub := notify.NewHub()
	t.Cleanup(hub.Close)

	accounts := services.NewAccountService(store, gen, tokens)
	pairs := services.NewPairingService(store)
	attendance := services.NewAttendanceService(store, store, store, store, nil, hub)

	srv := NewServer(":0", accounts, pairs, attendance, tokens, hub)
	t.Cleanup(srv.rateLimiter.stop)
	return srv
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func signup(t *testing.T, s *Server, email, role string) (profileResponse, string) {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/signup", "",
		`{"email":"`+email+`","password":"hunter2secret","role":"`+role+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return resp.Profile, resp.Token
}

func TestSignupAndLoginFlow(t *testing.T) {
	s := newTestServer(t)

	rider, token := signup(t, s, "rider@example.com", "rider")
	if rider.PairingCode == "" {
		t.Error("rider signup must return a pairing code")
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	rec := do(t, s, http.MethodPost, "/login", "",
		`{"email":"rider@example.com","password":"hunter2secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/login", "",
		`{"email":"rider@example.com","password":"wrong-password"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/signup", "",
		`{"email":"x@example.com","password":"hunter2secret","role":"driver"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad role: expected 422, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/signup", "",
		`{"email":"x@example.com","password":"short","role":"rider"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("weak password: expected 422, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/signup", "", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/me"},
		{http.MethodPost, "/pair"},
		{http.MethodGet, "/settings"},
		{http.MethodPost, "/attendance"},
		{http.MethodGet, "/stats"},
	} {
		rec := do(t, s, route.method, route.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", route.method, route.path, rec.Code)
		}
	}

	rec := do(t, s, http.MethodGet, "/me", "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: expected 401, got %d", rec.Code)
	}
}

func TestFullPairAndMarkFlow(t *testing.T) {
	s := newTestServer(t)

	rider, riderToken := signup(t, s, "rider@example.com", "rider")
	_, partnerToken := signup(t, s, "partner@example.com", "partner")

	// Rider sets the daily cost.
	rec := do(t, s, http.MethodPut, "/settings", riderToken, `{"dailyCost":"120,00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put settings returned %d: %s", rec.Code, rec.Body.String())
	}
	var cfg settingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if cfg.DailyCost != "120.00" {
		t.Errorf("expected daily cost 120.00, got %s", cfg.DailyCost)
	}

	// Partner cannot mark before pairing.
	rec = do(t, s, http.MethodPost, "/attendance", partnerToken, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("unpaired mark: expected 409, got %d", rec.Code)
	}

	// Partner pairs with the rider's code.
	rec = do(t, s, http.MethodPost, "/pair", partnerToken, `{"code":"`+rider.PairingCode+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("pair returned %d: %s", rec.Code, rec.Body.String())
	}
	var paired profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &paired); err != nil {
		t.Fatalf("decode pair response: %v", err)
	}
	if paired.ID != rider.ID {
		t.Errorf("paired with wrong rider: %s", paired.ID)
	}
	if paired.PairingCode != "" {
		t.Error("pair response must not expose the rider's code")
	}

	// Rider sends today's request.
	rec = do(t, s, http.MethodPost, "/requests", riderToken, `{"partnerId":"`+paired.ID+`"}`)
	if rec.Code == http.StatusCreated {
		t.Error("rider must address the partner, not themselves")
	}
	partnerProfile := func() string {
		r := do(t, s, http.MethodGet, "/me", partnerToken, "")
		var p profileResponse
		_ = json.Unmarshal(r.Body.Bytes(), &p)
		return p.ID
	}()
	rec = do(t, s, http.MethodPost, "/requests", riderToken, `{"partnerId":"`+partnerProfile+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send request returned %d: %s", rec.Code, rec.Body.String())
	}

	// Partner marks attendance.
	rec = do(t, s, http.MethodPost, "/attendance", partnerToken, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("mark attendance returned %d: %s", rec.Code, rec.Body.String())
	}
	var marked attendanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &marked); err != nil {
		t.Fatalf("decode attendance: %v", err)
	}
	if marked.Amount != "120.00" || marked.Status != "present" {
		t.Errorf("unexpected attendance: %+v", marked)
	}

	// The rider's request list shows it completed.
	rec = do(t, s, http.MethodGet, "/requests", riderToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list requests returned %d", rec.Code)
	}
	var reqs []requestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &reqs); err != nil {
		t.Fatalf("decode requests: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Status != "completed" {
		t.Errorf("expected one completed request, got %+v", reqs)
	}

	// Stats reflect the single marked day.
	rec = do(t, s, http.MethodGet, "/stats", riderToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	var sum statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if sum.Total != "120.00" || sum.DaysThisMonth != 1 || sum.TodayStatus != "completed" {
		t.Errorf("unexpected stats: %+v", sum)
	}

	// Series defaults to a week and ends with the marked day.
	rec = do(t, s, http.MethodGet, "/attendance", partnerToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("series returned %d", rec.Code)
	}
	var points []seriesPointResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("expected 7 points, got %d", len(points))
	}
	if last := points[6]; last.Status != "completed" || last.Amount != "120.00" {
		t.Errorf("unexpected last point: %+v", last)
	}
}

func TestSeriesRejectsUnknownWindow(t *testing.T) {
	s := newTestServer(t)
	_, token := signup(t, s, "rider@example.com", "rider")

	rec := do(t, s, http.MethodGet, "/attendance?window=fortnight", token, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSettingsAuthorization(t *testing.T) {
	s := newTestServer(t)
	_, partnerToken := signup(t, s, "partner@example.com", "partner")

	rec := do(t, s, http.MethodPut, "/settings", partnerToken, `{"dailyCost":"10,00"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("partner setting cost: expected 403, got %d", rec.Code)
	}
}

func TestPairErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	_, partnerToken := signup(t, s, "partner@example.com", "partner")

	rec := do(t, s, http.MethodPost, "/pair", partnerToken, `{"code":"abc"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed code: expected 422, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/pair", partnerToken, `{"code":"ZZZZZZ"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unmatched code: expected 404, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, s, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s returned %d", path, rec.Code)
		}
	}
}
