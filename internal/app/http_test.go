package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"treeplant/api/internal/authpw"
	"treeplant/api/internal/export"
	"treeplant/api/internal/lifecycle"
	"treeplant/api/internal/store"
)

type fakeExporter struct {
	table  export.Table
	format export.Format
}

func (f *fakeExporter) Export(_ context.Context, table export.Table, format export.Format) (*export.Result, error) {
	f.table = table
	f.format = format
	return &export.Result{Data: []byte("common_name\nGinkgo\n"), Filename: "top-species.csv", MimeType: "text/csv; charset=utf-8"}, nil
}

func newTestServer(svc *Service) http.Handler {
	return NewHTTPServer(svc, "*", zap.NewNop(), nil).Handler()
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func registerRequestFor(email string) authpw.RegisterRequest {
	return authpw.RegisterRequest{
		Email:        email,
		Password:     "correct horse",
		FirstName:    "Eli",
		LastName:     "Park",
		Street:       "400 Grand Ave",
		ZipCode:      "94610",
		Neighborhood: "Grand Lake",
	}
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload), "body: %s", rr.Body.String())
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(newTestService(newFakeStore(), Dependencies{}))

	rr := doRequest(t, handler, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeResponse(t, rr)["ok"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestReadyEndpointReportsDatabaseFailure(t *testing.T) {
	fs := newFakeStore()
	fs.pingFn = func(context.Context) error { return errors.New("connection refused") }
	handler := newTestServer(newTestService(fs, Dependencies{}))

	rr := doRequest(t, handler, http.MethodGet, "/api/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	payload := decodeResponse(t, rr)
	assert.Equal(t, "not_ready", payload["status"])
}

func TestReadyEndpointReportsSessions(t *testing.T) {
	handler := newTestServer(newTestService(newFakeStore(), Dependencies{Sessions: newRedisSessions(t)}))

	rr := doRequest(t, handler, http.MethodGet, "/api/ready", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	checks, ok := decodeResponse(t, rr)["checks"].(map[string]any)
	require.True(t, ok)
	sessions, ok := checks["sessions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", sessions["status"])
}

func TestDatabaseVersionEndpoint(t *testing.T) {
	handler := newTestServer(newTestService(newFakeStore(), Dependencies{}))

	rr := doRequest(t, handler, http.MethodGet, "/api/test", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "PostgreSQL 16.4", decodeResponse(t, rr)["version"])
}

func TestPreflightAndCORS(t *testing.T) {
	handler := newTestServer(newTestService(newFakeStore(), Dependencies{}))

	rr := doRequest(t, handler, http.MethodOptions, "/api/tree-request", "", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestUnknownRouteReturnsJSONNotFound(t *testing.T) {
	handler := newTestServer(newTestService(newFakeStore(), Dependencies{}))

	rr := doRequest(t, handler, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeResponse(t, rr)["code"])
}

func TestRoleGates(t *testing.T) {
	fs := newFakeStore(residentAna, volunteerBo, organizerCy)
	svc := newTestService(fs, Dependencies{})
	handler := newTestServer(svc)
	ana := tokenFor(t, svc, residentAna)
	bo := tokenFor(t, svc, volunteerBo)
	cy := tokenFor(t, svc, organizerCy)

	cases := []struct {
		name   string
		path   string
		token  string
		status int
		code   string
	}{
		{name: "no token", path: "/api/all-tree-requests", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "garbage token", path: "/api/all-tree-requests", token: "not-a-jwt", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "resident on staff route", path: "/api/all-tree-requests", token: ana, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "volunteer on staff route", path: "/api/available-volunteers", token: bo, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "organizer on staff route", path: "/api/all-tree-requests", token: cy, status: http.StatusOK},
		{name: "resident on planting details", path: "/api/scheduled-planting-details/5", token: ana, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "volunteer on planting details", path: "/api/scheduled-planting-details/5", token: bo, status: http.StatusOK},
		{name: "volunteer on reports", path: "/api/tree-species-statistics", token: bo, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "organizer on reports", path: "/api/tree-species-statistics", token: cy, status: http.StatusOK},
		{name: "resident own requests", path: "/api/tree-requests?resident_id=1", token: ana, status: http.StatusOK},
		{name: "resident other requests", path: "/api/tree-requests?resident_id=2", token: ana, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "organizer any requests", path: "/api/tree-requests?resident_id=2", token: cy, status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, handler, http.MethodGet, tc.path, tc.token, nil)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			if tc.code != "" {
				assert.Equal(t, tc.code, decodeResponse(t, rr)["code"])
			}
		})
	}
}

func TestRegisterEndpoint(t *testing.T) {
	fs := newFakeStore()
	handler := newTestServer(newTestService(fs, Dependencies{}))

	rr := doRequest(t, handler, http.MethodPost, "/api/register", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_BODY", decodeResponse(t, rr)["code"])

	rr = doRequest(t, handler, http.MethodPost, "/api/register", "", map[string]any{"email": "dee@example.com"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, rr)["code"])

	valid := map[string]any{
		"email": "dee@example.com", "password": "correct horse", "first_name": "Dee", "last_name": "Lopez",
		"street": "12 Oak St", "zip_code": "94601", "neighborhood": "Fruitvale",
	}
	rr = doRequest(t, handler, http.MethodPost, "/api/register", "", valid)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, decodeResponse(t, rr)["id"])

	fs.createResidentFn = func(context.Context, store.NewResident) (int64, error) {
		return 0, store.NewConstraintError(store.ErrUniqueViolation, "create resident", "23505", "residents_email_key", nil)
	}
	rr = doRequest(t, handler, http.MethodPost, "/api/register", "", valid)
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	payload := decodeResponse(t, rr)
	assert.Equal(t, "UNIQUE_VIOLATION", payload["code"])
	assert.Equal(t, "residents_email_key", payload["details"].(map[string]any)["constraint"])
}

func TestLoginEndpoint(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, Dependencies{})
	handler := newTestServer(svc)

	_, err := svc.Register(context.Background(), registerRequestFor("eli@example.com"))
	require.NoError(t, err)

	rr := doRequest(t, handler, http.MethodPost, "/api/login", "", map[string]any{"email": "eli@example.com", "password": "nope-nope"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeResponse(t, rr)["code"])

	rr = doRequest(t, handler, http.MethodPost, "/api/login", "", map[string]any{"email": "eli@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	payload := decodeResponse(t, rr)
	token, _ := payload["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, false, payload["is_organization_member"])
	assert.Equal(t, "resident", payload["role"])
	assert.NotContains(t, rr.Body.String(), "password")

	rr = doRequest(t, handler, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeResponse(t, rr)["authenticated"])

	rr = doRequest(t, handler, http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, false, decodeResponse(t, rr)["authenticated"])
}

func TestRefreshEndpointRequiresKnownToken(t *testing.T) {
	handler := newTestServer(newTestService(newFakeStore(), Dependencies{Sessions: newRedisSessions(t)}))

	rr := doRequest(t, handler, http.MethodPost, "/api/session/refresh", "", map[string]any{"refresh_token": "rft_unknown"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeResponse(t, rr)["code"])
}

func TestCreateTreeRequestEndpoint(t *testing.T) {
	fs := newFakeStore(residentAna)
	svc := newTestService(fs, Dependencies{})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, residentAna)

	rr := doRequest(t, handler, http.MethodPost, "/api/tree-request", token, map[string]any{"resident_id": 1, "tree_id": 2, "site_description": "front yard"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	fs.createTreeRequestFn = func(context.Context, store.NewTreeRequest) (int64, error) {
		return 0, store.NewConstraintError(store.ErrConstraintViolation, "create tree request", "23503", "tree_requests_tree_id_fkey", nil)
	}
	rr = doRequest(t, handler, http.MethodPost, "/api/tree-request", token, map[string]any{"resident_id": 1, "tree_id": 99, "site_description": "front yard"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Equal(t, "CONSTRAINT_VIOLATION", decodeResponse(t, rr)["code"])

	fs.createTreeRequestFn = func(context.Context, store.NewTreeRequest) (int64, error) {
		return 0, fmt.Errorf("create tree request: %w", store.ErrUnavailable)
	}
	rr = doRequest(t, handler, http.MethodPost, "/api/tree-request", token, map[string]any{"resident_id": 1, "tree_id": 2, "site_description": "front yard"})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "DATABASE_UNAVAILABLE", decodeResponse(t, rr)["code"])
}

func TestTreeRequestStatusEndpoint(t *testing.T) {
	fs := newFakeStore(residentAna)
	fs.owners[7] = residentAna.ID
	fs.facts[7] = lifecycle.Facts{}
	svc := newTestService(fs, Dependencies{})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, residentAna)

	rr := doRequest(t, handler, http.MethodGet, "/api/tree-request-status?tree_request_id=7", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "needs permit", decodeResponse(t, rr)["status"])

	rr = doRequest(t, handler, http.MethodGet, "/api/tree-request-status?tree_request_id=abc", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, rr)["code"])
}

func TestDecisionEndpoints(t *testing.T) {
	fs := newFakeStore(organizerCy)
	var decisions []bool
	fs.setApprovalFn = func(_ context.Context, _ int64, approved bool) error {
		decisions = append(decisions, approved)
		return nil
	}
	svc := newTestService(fs, Dependencies{})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, organizerCy)

	rr := doRequest(t, handler, http.MethodPatch, "/api/accept-tree-request", token, map[string]any{"tree_request_id": 4})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = doRequest(t, handler, http.MethodPatch, "/api/deny-tree-request", token, map[string]any{"tree_request_id": 4})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []bool{true, false}, decisions)
}

func TestPlantingOutcomeEndpoint(t *testing.T) {
	fs := newFakeStore(organizerCy)
	svc := newTestService(fs, Dependencies{})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, organizerCy)

	rr := doRequest(t, handler, http.MethodPost, "/api/new-planting-event", token, map[string]any{"scheduled_planting_id": 3, "successful": true})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, true, decodeResponse(t, rr)["inventory_decreased"])

	fs.recordPlantingFn = func(context.Context, store.PlantingOutcome) (store.PlantingOutcomeResult, error) {
		return store.PlantingOutcomeResult{}, store.NewConstraintError(store.ErrUniqueViolation, "record planting outcome", "23505", "planting_outcomes_pkey", nil)
	}
	rr = doRequest(t, handler, http.MethodPost, "/api/new-planting-event", token, map[string]any{"scheduled_planting_id": 3, "successful": true})
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestUpdateTreeInventoryEndpoint(t *testing.T) {
	svc := newTestService(newFakeStore(organizerCy), Dependencies{})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, organizerCy)

	rr := doRequest(t, handler, http.MethodPatch, "/api/update-tree-inventory", token, map[string]any{"tree_id": 2})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, handler, http.MethodPatch, "/api/update-tree-inventory", token, map[string]any{"tree_id": 2, "inventory": 0})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 0, decodeResponse(t, rr)["inventory"])
}

func TestOutOfRangeIdentifiersAreValidationErrors(t *testing.T) {
	fs := newFakeStore(organizerCy)
	fs.facts[7] = lifecycle.Facts{}
	svc := newTestService(fs, Dependencies{})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, organizerCy)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "query id past int4", method: http.MethodGet, path: "/api/tree-request-status?tree_request_id=3000000000"},
		{name: "path id past int4", method: http.MethodGet, path: "/api/scheduled-planting-details/2147483648"},
		{name: "body id past int4", method: http.MethodPatch, path: "/api/accept-tree-request", body: map[string]any{"tree_request_id": 3000000000}},
		{name: "tree id past int4", method: http.MethodPatch, path: "/api/update-tree-inventory", body: map[string]any{"tree_id": 3000000000, "inventory": 1}},
		{name: "zero tree id", method: http.MethodPatch, path: "/api/update-tree-inventory", body: map[string]any{"tree_id": 0, "inventory": 1}},
		{name: "inventory past int4", method: http.MethodPatch, path: "/api/update-tree-inventory", body: map[string]any{"tree_id": 2, "inventory": 3000000000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, handler, tc.method, tc.path, token, tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, rr)["code"])
		})
	}

	rr := doRequest(t, handler, http.MethodGet, "/api/tree-request-status?tree_request_id=2147483647", token, nil)
	assert.NotEqual(t, http.StatusBadRequest, rr.Code)
}

func TestReportEndpoints(t *testing.T) {
	fs := newFakeStore(organizerCy)
	fs.treesPlantedFn = func(_ context.Context, neighborhood string) ([]store.TreesPlantedRow, error) {
		return []store.TreesPlantedRow{{CommonName: neighborhood + " oak", NumberOfTrees: 2}}, nil
	}
	svc := newTestService(fs, Dependencies{})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, organizerCy)

	rr := doRequest(t, handler, http.MethodGet, "/api/trees-planted", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, handler, http.MethodGet, "/api/trees-planted?neighborhood=Fruitvale", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var rows []store.TreesPlantedRow
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Fruitvale oak", rows[0].CommonName)

	rr = doRequest(t, handler, http.MethodGet, "/api/custom-report-4?min_height=1", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportExportEndpoint(t *testing.T) {
	fs := newFakeStore(organizerCy)
	exporter := &fakeExporter{}
	svc := newTestService(fs, Dependencies{Exporter: exporter})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, organizerCy)

	rr := doRequest(t, handler, http.MethodGet, "/api/report-export/trees-planted?neighborhood=Temescal&format=csv", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, `attachment; filename="top-species.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, export.FormatCSV, exporter.format)
	assert.Equal(t, "Trees Planted by Neighborhood", exporter.table.Title)
	assert.Equal(t, "neighborhood=Temescal", exporter.table.Subtitle)

	rr = doRequest(t, handler, http.MethodGet, "/api/report-export/trees-planted?neighborhood=Temescal&format=xlsx", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, handler, http.MethodGet, "/api/report-export/nope", token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	noExport := newTestServer(newTestService(fs, Dependencies{}))
	rr = doRequest(t, noExport, http.MethodGet, "/api/report-export/neighborhood-report", tokenFor(t, svc, organizerCy), nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "EXPORT_UNAVAILABLE", decodeResponse(t, rr)["code"])
}

func TestPhotoUploadAndDownload(t *testing.T) {
	photos := &fakePhotos{}
	svc := newTestService(newFakeStore(volunteerBo), Dependencies{Photos: photos})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, volunteerBo)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("kind", "planting"))
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", `form-data; name="photo"; filename="after.jpg"`)
	partHeader.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	key, _ := decodeResponse(t, rr)["key"].(string)
	require.Equal(t, "planting_1.jpg", key)

	rr = doRequest(t, handler, http.MethodGet, "/api/photos/"+key, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg-bytes", rr.Body.String())
}

func multipartPhoto(t *testing.T, kind string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("kind", kind))
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", `form-data; name="photo"; filename="upload.jpg"`)
	partHeader.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestPhotoUploadRejectsOversizedFile(t *testing.T) {
	photos := &fakePhotos{}
	svc := newTestService(newFakeStore(volunteerBo), Dependencies{Photos: photos})
	handler := newTestServer(svc)
	token := tokenFor(t, svc, volunteerBo)

	cases := map[string]int{
		"just over the limit": maxPhotoBytes + 1,
		"past the body limit": maxPhotoBytes + 2<<20,
	}
	for name, size := range cases {
		t.Run(name, func(t *testing.T) {
			body, contentType := multipartPhoto(t, "visit", bytes.Repeat([]byte{0xff}, size))
			req := httptest.NewRequest(http.MethodPost, "/api/photos", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, rr)["code"])
			assert.Empty(t, photos.saved)
		})
	}
}

func TestPhotoUploadAcceptsFileAtLimit(t *testing.T) {
	photos := &fakePhotos{}
	svc := newTestService(newFakeStore(volunteerBo), Dependencies{Photos: photos})
	handler := newTestServer(svc)

	body, contentType := multipartPhoto(t, "visit", bytes.Repeat([]byte{0xff}, maxPhotoBytes))
	req := httptest.NewRequest(http.MethodPost, "/api/photos", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, svc, volunteerBo))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Len(t, photos.saved["visit_1.jpg"], maxPhotoBytes)
}

func TestPhotoDeleteIsStaffOnly(t *testing.T) {
	photos := &fakePhotos{saved: map[string][]byte{"visit_1.jpg": []byte("jpeg")}}
	svc := newTestService(newFakeStore(volunteerBo, organizerCy), Dependencies{Photos: photos})
	handler := newTestServer(svc)

	rr := doRequest(t, handler, http.MethodDelete, "/api/photos/visit_1.jpg", tokenFor(t, svc, volunteerBo), nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, handler, http.MethodDelete, "/api/photos/visit_1.jpg", tokenFor(t, svc, organizerCy), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, photos.saved)

	rr = doRequest(t, handler, http.MethodDelete, "/api/photos/visit_1.jpg", tokenFor(t, svc, organizerCy), nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	fs := newFakeStore(organizerCy)
	metrics := &fakeMetrics{}
	svc := newTestService(fs, Dependencies{Metrics: metrics})
	handler := newTestServer(svc)

	doRequest(t, handler, http.MethodGet, "/api/health", "", nil)
	doRequest(t, handler, http.MethodGet, "/api/scheduled-planting-details/12", tokenFor(t, svc, organizerCy), nil)

	require.Len(t, metrics.requests, 2)
	assert.Equal(t, "GET /api/health", metrics.requests[0])
	assert.Equal(t, "GET /api/scheduled-planting-details/{id}", metrics.requests[1])
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/api/trees", routeLabel("GET /api/trees"))
	assert.Equal(t, "/", routeLabel("/"))
	assert.Equal(t, "", routeLabel(""))
	assert.True(t, strings.HasPrefix(routeLabel("PATCH /api/cancel-planting/{id}"), "/api/cancel-planting"))
}
