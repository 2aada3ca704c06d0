package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"treeplant/api/internal/authpw"
	"treeplant/api/internal/rbac"
	"treeplant/api/internal/search"
)

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.HandleFunc("GET /api/test", s.handleDatabaseVersion)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/session/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/session/logout", s.handleLogout)
	mux.HandleFunc("GET /api/session", s.handleSession)

	mux.HandleFunc("GET /api/trees", s.handleListTrees)
	mux.HandleFunc("GET /api/trees/search", s.handleSearchTrees)
	mux.HandleFunc("GET /api/neighborhoods", s.handleListNeighborhoods)

	resident := func(h authedHandler) http.HandlerFunc { return s.requireAction(rbac.ActionRequestTree, h) }
	mux.HandleFunc("GET /api/tree-requests", resident(s.handleListTreeRequests))
	mux.HandleFunc("GET /api/details", resident(s.handleTreeRequestDetails))
	mux.HandleFunc("GET /api/tree-request-status", resident(s.handleTreeRequestStatus))
	mux.HandleFunc("POST /api/tree-request", resident(s.handleCreateTreeRequest))
	mux.HandleFunc("POST /api/volunteer-requests", resident(s.handleVolunteerRequest))
	mux.HandleFunc("GET /api/is_organization_member", resident(s.handleIsOrganizationMember))

	attend := func(h authedHandler) http.HandlerFunc { return s.requireAction(rbac.ActionAttend, h) }
	mux.HandleFunc("GET /api/scheduled-planting-details/{id}", attend(s.handlePlantingDetails))
	mux.HandleFunc("POST /api/photos", attend(s.handleUploadPhoto))
	mux.HandleFunc("GET /api/photos/{key}", attend(s.handleGetPhoto))

	staff := func(h authedHandler) http.HandlerFunc { return s.requireAction(rbac.ActionManage, h) }
	mux.HandleFunc("GET /api/all-tree-requests", staff(s.handleAllTreeRequests))
	mux.HandleFunc("GET /api/tree-request-details-admin", staff(s.handleAdminTreeRequestDetails))
	mux.HandleFunc("PATCH /api/update-permit-status", staff(s.handleUpdatePermitStatus))
	mux.HandleFunc("PATCH /api/accept-tree-request", staff(s.handleDecision(true)))
	mux.HandleFunc("PATCH /api/deny-tree-request", staff(s.handleDecision(false)))
	mux.HandleFunc("POST /api/schedule-visit", staff(s.handleScheduleVisit))
	mux.HandleFunc("PATCH /api/cancel-visit", staff(s.handleCancelVisit))
	mux.HandleFunc("POST /api/visit-events", staff(s.handleVisitEvent))
	mux.HandleFunc("GET /api/visit-details/{id}", staff(s.handleVisitDetails))
	mux.HandleFunc("POST /api/schedule-planting", staff(s.handleSchedulePlanting))
	mux.HandleFunc("PATCH /api/cancel-planting/{id}", staff(s.handleCancelPlanting))
	mux.HandleFunc("POST /api/add-org-member-to-planting", staff(s.handleAddOrgMemberToPlanting))
	mux.HandleFunc("POST /api/add-volunteer-to-planting", staff(s.handleAddVolunteerToPlanting))
	mux.HandleFunc("POST /api/new-planting-event", staff(s.handlePlantingEvent))
	mux.HandleFunc("POST /api/add-volunteer-to-planting-event", staff(s.handleAddVolunteerToPlantingEvent))
	mux.HandleFunc("GET /api/available-volunteers", staff(s.handleAvailableVolunteers))
	mux.HandleFunc("GET /api/available-org-members", staff(s.handleAvailableOrgMembers))
	mux.HandleFunc("PATCH /api/update-tree-inventory", staff(s.handleUpdateTreeInventory))
	mux.HandleFunc("GET /api/pending-volunteer-applications", staff(s.handlePendingVolunteerApplications))
	mux.HandleFunc("PATCH /api/approve-volunteer", staff(s.handleApproveVolunteer))
	mux.HandleFunc("DELETE /api/photos/{key}", staff(s.handleDeletePhoto))

	for name := range reports {
		mux.HandleFunc("GET /api/"+name, s.requireAction(rbac.ActionReport, s.handleReport(name)))
	}
	mux.HandleFunc("GET /api/report-export/{report}", s.requireAction(rbac.ActionReport, s.handleReportExport))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	// Sessions are reported but never fail readiness.
	if configured, err := s.service.PingSessions(ctx); configured {
		if err != nil {
			checks["sessions"] = map[string]any{"status": "error", "error": err.Error()}
		} else {
			checks["sessions"] = map[string]any{"status": "ok"}
		}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleDatabaseVersion(w http.ResponseWriter, r *http.Request) {
	version, err := s.service.DatabaseVersion(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": version})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body authpw.RegisterRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	id, err := s.service.Register(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":                  result.Session.Token,
		"refresh_token":          result.Session.RefreshToken,
		"expires_at":             result.Session.ExpiresAt.Unix(),
		"resident":               result.Resident,
		"role":                   result.Session.Role,
		"is_organization_member": result.IsOrganizationMember,
	})
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":         session.Token,
		"refresh_token": session.RefreshToken,
		"expires_at":    session.ExpiresAt.Unix(),
		"role":          session.Role,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := Session{}
	if token := bearerToken(r); token != "" {
		if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
			session = parsed
		}
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
		All          bool   `json:"all"`
	}
	_ = decodeBody(r, &body)
	_ = s.service.Logout(r.Context(), session, body.RefreshToken, body.All)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated":          true,
		"resident_id":            session.ResidentID,
		"email":                  session.Email,
		"role":                   session.Role,
		"is_organization_member": session.IsOrganizationMember(),
	})
}

func (s *HTTPServer) handleListTrees(w http.ResponseWriter, r *http.Request) {
	trees, err := s.service.ListTrees(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trees)
}

func (s *HTTPServer) handleSearchTrees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		limit = parsed
	}
	response, err := s.service.SearchTrees(r.Context(), search.Query{
		Text:        q.Get("q"),
		InStockOnly: q.Get("in_stock") == "true",
		Limit:       limit,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleListNeighborhoods(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ListNeighborhoods(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *HTTPServer) handleListTreeRequests(w http.ResponseWriter, r *http.Request, session Session) {
	residentID, err := parseID("resident_id", r.URL.Query().Get("resident_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	items, err := s.service.ListTreeRequests(r.Context(), session, residentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleTreeRequestDetails(w http.ResponseWriter, r *http.Request, session Session) {
	residentID, err := parseID("resident_id", r.URL.Query().Get("resident_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	treeRequestID, err := parseID("tree_request_id", r.URL.Query().Get("tree_request_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	details, err := s.service.TreeRequestDetails(r.Context(), session, residentID, treeRequestID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *HTTPServer) handleTreeRequestStatus(w http.ResponseWriter, r *http.Request, session Session) {
	treeRequestID, err := parseID("tree_request_id", r.URL.Query().Get("tree_request_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	result, err := s.service.TreeRequestStatus(r.Context(), session, treeRequestID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleCreateTreeRequest(w http.ResponseWriter, r *http.Request, session Session) {
	var body TreeRequestInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	id, err := s.service.CreateTreeRequest(r.Context(), session, body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *HTTPServer) handleVolunteerRequest(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		UserID int64  `json:"user_id"`
		Notes  string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.ApplyToVolunteer(r.Context(), session, body.UserID, body.Notes); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Volunteer application submitted"})
}

func (s *HTTPServer) handleIsOrganizationMember(w http.ResponseWriter, r *http.Request, session Session) {
	userID, err := parseID("user_id", r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	member, err := s.service.IsOrganizationMember(r.Context(), session, userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"is_organization_member": member})
}

func (s *HTTPServer) handleAllTreeRequests(w http.ResponseWriter, r *http.Request, _ Session) {
	items, err := s.service.ListAllTreeRequests(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleAdminTreeRequestDetails(w http.ResponseWriter, r *http.Request, _ Session) {
	treeRequestID, err := parseID("tree_request_id", r.URL.Query().Get("tree_request_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	details, err := s.service.AdminTreeRequestDetails(r.Context(), treeRequestID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *HTTPServer) handleUpdatePermitStatus(w http.ResponseWriter, r *http.Request, _ Session) {
	var body struct {
		TreeRequestID int64  `json:"tree_request_id"`
		Status        string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.UpdatePermitStatus(r.Context(), body.TreeRequestID, body.Status); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Permit status updated"})
}

func (s *HTTPServer) handleDecision(accepted bool) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ Session) {
		var body struct {
			TreeRequestID int64 `json:"tree_request_id"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.DecideTreeRequest(r.Context(), body.TreeRequestID, accepted); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		message := "Tree request denied"
		if accepted {
			message = "Tree request accepted"
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": message})
	}
}

func (s *HTTPServer) handleScheduleVisit(w http.ResponseWriter, r *http.Request, _ Session) {
	var body ScheduleVisitInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	id, err := s.service.ScheduleVisit(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event_id": id})
}

func (s *HTTPServer) handleCancelVisit(w http.ResponseWriter, r *http.Request, _ Session) {
	var body struct {
		EventID int64 `json:"event_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.CancelVisit(r.Context(), body.EventID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Visit cancelled"})
}

func (s *HTTPServer) handleVisitEvent(w http.ResponseWriter, r *http.Request, _ Session) {
	var body VisitOutcomeInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.RecordVisitOutcome(r.Context(), body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Visit outcome recorded"})
}

func (s *HTTPServer) handleVisitDetails(w http.ResponseWriter, r *http.Request, _ Session) {
	visitID, err := parseID("id", r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	treeRequestID, err := s.service.VisitTreeRequest(r.Context(), visitID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree_request_id": treeRequestID})
}

func (s *HTTPServer) handleSchedulePlanting(w http.ResponseWriter, r *http.Request, _ Session) {
	var body SchedulePlantingInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	id, err := s.service.SchedulePlanting(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event_id": id})
}

func (s *HTTPServer) handleCancelPlanting(w http.ResponseWriter, r *http.Request, _ Session) {
	eventID, err := parseID("id", r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.service.CancelPlanting(r.Context(), eventID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Planting cancelled"})
}

func (s *HTTPServer) handleAddOrgMemberToPlanting(w http.ResponseWriter, r *http.Request, _ Session) {
	var body struct {
		OrganizationMemberID int64 `json:"organization_member_id"`
		ScheduledPlantingID  int64 `json:"scheduled_planting_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.AddOrgMemberToPlanting(r.Context(), body.OrganizationMemberID, body.ScheduledPlantingID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Organization member assigned"})
}

func (s *HTTPServer) handleAddVolunteerToPlanting(w http.ResponseWriter, r *http.Request, _ Session) {
	var body struct {
		VolunteerID     int64 `json:"volunteer_id"`
		PlantingEventID int64 `json:"planting_event_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.AddVolunteerToPlanting(r.Context(), body.VolunteerID, body.PlantingEventID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Volunteer assigned"})
}

func (s *HTTPServer) handlePlantingEvent(w http.ResponseWriter, r *http.Request, _ Session) {
	var body PlantingOutcomeInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.service.RecordPlantingOutcome(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":             "Planting outcome recorded",
		"inventory_decreased": result.InventoryDecreased,
	})
}

func (s *HTTPServer) handleAddVolunteerToPlantingEvent(w http.ResponseWriter, r *http.Request, _ Session) {
	var body struct {
		VolunteerID     int64 `json:"volunteer_id"`
		PlantingEventID int64 `json:"planting_event_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.AddVolunteerToPlantingEvent(r.Context(), body.VolunteerID, body.PlantingEventID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Volunteer attendance recorded"})
}

func (s *HTTPServer) handlePlantingDetails(w http.ResponseWriter, r *http.Request, _ Session) {
	eventID, err := parseID("id", r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	details, err := s.service.PlantingDetails(r.Context(), eventID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *HTTPServer) handleAvailableVolunteers(w http.ResponseWriter, r *http.Request, _ Session) {
	people, err := s.service.AvailableVolunteers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *HTTPServer) handleAvailableOrgMembers(w http.ResponseWriter, r *http.Request, _ Session) {
	people, err := s.service.AvailableOrgMembers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *HTTPServer) handleUpdateTreeInventory(w http.ResponseWriter, r *http.Request, _ Session) {
	var body struct {
		TreeID    int64 `json:"tree_id"`
		Inventory *int  `json:"inventory"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.Inventory == nil {
		s.writeServiceError(w, r, validationError("inventory", "is required"))
		return
	}
	tree, err := s.service.UpdateTreeInventory(r.Context(), body.TreeID, *body.Inventory)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *HTTPServer) handlePendingVolunteerApplications(w http.ResponseWriter, r *http.Request, _ Session) {
	items, err := s.service.PendingVolunteerApplications(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleApproveVolunteer(w http.ResponseWriter, r *http.Request, _ Session) {
	var body struct {
		ResidentID int64 `json:"resident_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.ApproveVolunteer(r.Context(), body.ResidentID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Volunteer approved"})
}

func (s *HTTPServer) handleReport(name string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ Session) {
		rows, err := s.service.RunReport(r.Context(), name, r.URL.Query())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func (s *HTTPServer) handleReportExport(w http.ResponseWriter, r *http.Request, _ Session) {
	result, err := s.service.ExportReport(r.Context(), r.PathValue("report"), r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Type", result.MimeType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		s.logger.Warn("write export", zap.String("filename", result.Filename), zap.Error(err))
	}
}

func (s *HTTPServer) handleUploadPhoto(w http.ResponseWriter, r *http.Request, _ Session) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+1<<20)
	file, header, err := r.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeServiceError(w, r, errPhotoTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "multipart field photo is required", nil)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	key, err := s.service.SavePhoto(r.Context(), r.FormValue("kind"), mimeType, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key": key})
}

func (s *HTTPServer) handleGetPhoto(w http.ResponseWriter, r *http.Request, _ Session) {
	body, mimeType, err := s.service.OpenPhoto(r.Context(), r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn("stream photo", zap.String("key", r.PathValue("key")), zap.Error(err))
	}
}

func (s *HTTPServer) handleDeletePhoto(w http.ResponseWriter, r *http.Request, _ Session) {
	if err := s.service.DeletePhoto(r.Context(), r.PathValue("key")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
