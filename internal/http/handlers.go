package http

import (
	"net/http"
	"time"

	"splitride/internal/auth"
	"splitride/internal/core"
)

type (
	signupRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	pairRequest struct {
		Code string `json:"code"`
	}

	settingsRequest struct {
		DailyCost string `json:"dailyCost"`
	}

	sendRequestBody struct {
		PartnerID string `json:"partnerId"`
	}

	profileResponse struct {
		ID            string    `json:"id"`
		Email         string    `json:"email"`
		Role          string    `json:"role"`
		PairingCode   string    `json:"pairingCode,omitempty"`
		PairedRiderID string    `json:"pairedRiderId,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	authResponse struct {
		Profile profileResponse `json:"profile"`
		Token   string          `json:"token"`
	}

	settingsResponse struct {
		RiderID   string `json:"riderId"`
		DailyCost string `json:"dailyCost"`
	}

	attendanceResponse struct {
		PartnerID string `json:"partnerId"`
		RiderID   string `json:"riderId"`
		Date      string `json:"date"`
		Amount    string `json:"amount"`
		Status    string `json:"status"`
	}

	requestResponse struct {
		RiderID   string `json:"riderId"`
		PartnerID string `json:"partnerId"`
		Date      string `json:"date"`
		Status    string `json:"status"`
	}

	statsResponse struct {
		Total         string  `json:"total"`
		Month         string  `json:"month"`
		DaysThisMonth int     `json:"daysThisMonth"`
		AveragePerDay float64 `json:"averagePerDay"`
		TodayStatus   string  `json:"todayStatus"`
	}

	seriesPointResponse struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
		Status string `json:"status"`
	}
)

func toProfileResponse(p core.Profile) profileResponse {
	return profileResponse{
		ID:            p.ID,
		Email:         p.Email,
		Role:          string(p.Role),
		PairingCode:   p.PairingCode,
		PairedRiderID: p.PairedRiderID,
		CreatedAt:     p.CreatedAt,
	}
}

func toAttendanceResponse(a core.Attendance) attendanceResponse {
	return attendanceResponse{
		PartnerID: a.PartnerID,
		RiderID:   a.RiderID,
		Date:      a.Date.String(),
		Amount:    core.FormatCents(a.AmountCents),
		Status:    string(a.Status),
	}
}

func toRequestResponses(reqs []core.Request) []requestResponse {
	out := make([]requestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, requestResponse{
			RiderID:   r.RiderID,
			PartnerID: r.PartnerID,
			Date:      r.Date.String(),
			Status:    string(r.Status),
		})
	}
	return out
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	role := core.Role(req.Role)
	if !role.Valid() {
		writeError(w, r, core.ErrInvalidRole)
		return
	}

	profile, token, err := s.accounts.Signup(r.Context(), req.Email, req.Password, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Profile: toProfileResponse(profile), Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	profile, token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Profile: toProfileResponse(profile), Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())
	profile, err := s.accounts.Me(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	var req pairRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rider, err := s.pairs.Pair(r.Context(), sess, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// The rider's own code stays private to the rider.
	resp := toProfileResponse(rider)
	resp.PairingCode = ""
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	cfg, err := s.attendance.DailyCost(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		RiderID:   cfg.RiderID,
		DailyCost: core.FormatCents(cfg.DailyCostCents),
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(req.DailyCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cfg, err := s.attendance.SetDailyCost(r.Context(), sess, cents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		RiderID:   cfg.RiderID,
		DailyCost: core.FormatCents(cfg.DailyCostCents),
	})
}

func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	record, err := s.attendance.MarkAttendance(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttendanceResponse(record))
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	window := core.Window(r.URL.Query().Get("window"))
	if window == "" {
		window = core.WindowWeek
	}

	points, err := s.attendance.Series(r.Context(), sess, window)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]seriesPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, seriesPointResponse{
			Date:   p.Date.String(),
			Amount: core.FormatCents(p.AmountCents),
			Status: string(p.Status),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	var req sendRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	created, err := s.attendance.SendRequest(r.Context(), sess, req.PartnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestResponse{
		RiderID:   created.RiderID,
		PartnerID: created.PartnerID,
		Date:      created.Date.String(),
		Status:    string(created.Status),
	})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	reqs, err := s.attendance.Requests(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(reqs))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	sum, err := s.attendance.Stats(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Total:         core.FormatCents(sum.TotalCents),
		Month:         core.FormatCents(sum.MonthCents),
		DaysThisMonth: sum.DaysThisMonth,
		AveragePerDay: sum.AveragePerDay,
		TodayStatus:   string(sum.TodayStatus),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "WebSocket upgrade failed", "error", err)
		return
	}

	s.hub.Attach(r.Context(), sess.UserID, conn)
}
