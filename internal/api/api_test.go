package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/reclaim/internal/auth"
	"github.com/erazemk/reclaim/internal/db"
	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/spreadsheet"
	"github.com/erazemk/reclaim/internal/store"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	DB    *sql.DB
	Token string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(Options{DB: database, JWTSecret: testJWTSecret})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := auth.HashPassword("password")
	if _, err := store.CreateUser(ctx, database, "Admin", "admin@example.com", hash, model.RoleAdmin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}

	// Get token.
	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}

	return &testServer{Server: server, DB: database, Token: loginResp.Token}
}

// tokenFor creates a user with role and returns a token for it.
func (s *testServer) tokenFor(t *testing.T, email, role string) string {
	t.Helper()
	hash, _ := auth.HashPassword("password")
	u, err := store.CreateUser(context.Background(), s.DB, "", email, hash, role)
	if err != nil {
		t.Fatalf("creating %s: %v", email, err)
	}
	token, err := auth.GenerateToken(testJWTSecret, u)
	if err != nil {
		t.Fatalf("token for %s: %v", email, err)
	}
	return token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends an authenticated JSON request and decodes the response into out
// when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, s.URL+path, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func deskBody() map[string]any {
	return map[string]any{
		"name":             "Desk A",
		"category":         "Furniture",
		"materialType":     "DESK",
		"condition":        "Reusable",
		"color":            "Oak",
		"width":            120,
		"height":           75,
		"depth":            60,
		"deskType":         "STRAIGHT_DESK",
		"heightAdjustable": false,
	}
}

func (s *testServer) createDesk(t *testing.T) model.MaterialRecord {
	t.Helper()
	var created model.MaterialRecord
	if status := s.do(t, "POST", "/api/materials", s.Token, deskBody(), &created); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	return created
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestLoginEndpoint(t *testing.T) {
	s := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "wrong"})
	resp, _ := http.Post(s.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Email is matched case-insensitively and the user carries its roles.
	body, _ = json.Marshal(map[string]string{"email": "Admin@Example.com", "password": "password"})
	resp, err := http.Post(s.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var login loginResponse
	json.NewDecoder(resp.Body).Decode(&login)
	if login.User.Email != "admin@example.com" || len(login.User.Roles) != 3 || login.User.Roles[0] != model.RoleAdmin {
		t.Errorf("unexpected user %+v", login.User)
	}
}

func TestMeAndLogout(t *testing.T) {
	s := setupTestServer(t)

	var me userInfo
	if status := s.do(t, "GET", "/api/auth/me", s.Token, nil, &me); status != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", status)
	}
	if me.Name != "Admin" {
		t.Errorf("me = %+v", me)
	}

	if status := s.do(t, "POST", "/api/auth/logout", s.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}

	// The revoked token is refused.
	if status := s.do(t, "GET", "/api/auth/me", s.Token, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", status)
	}
}

func TestChangePassword(t *testing.T) {
	s := setupTestServer(t)

	status := s.do(t, "PUT", "/api/auth/password", s.Token,
		map[string]string{"currentPassword": "wrong", "newPassword": "newpassword"}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong current password, got %d", status)
	}

	status = s.do(t, "PUT", "/api/auth/password", s.Token,
		map[string]string{"currentPassword": "password", "newPassword": "short"}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", status)
	}

	status = s.do(t, "PUT", "/api/auth/password", s.Token,
		map[string]string{"currentPassword": "password", "newPassword": "newpassword"}, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "newpassword"})
	resp, _ := http.Post(s.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login with new password: %d", resp.StatusCode)
	}
}

func TestRegister(t *testing.T) {
	s := setupTestServer(t)

	var u model.User
	status := s.do(t, "POST", "/api/auth/register", s.Token, map[string]string{
		"name": "Mira", "email": "mira@example.com", "password": "longenough", "role": model.RoleManager,
	}, &u)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if u.Role != model.RoleManager || u.Email != "mira@example.com" {
		t.Errorf("unexpected user %+v", u)
	}

	status = s.do(t, "POST", "/api/auth/register", s.Token, map[string]string{
		"email": "MIRA@example.com", "password": "longenough",
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", status)
	}

	status = s.do(t, "POST", "/api/auth/register", s.Token, map[string]string{
		"email": "x@example.com", "password": "longenough", "role": "owner",
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", status)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(Options{DB: database, JWTSecret: testJWTSecret})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, _ := http.Get(server.URL + "/api/materials")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(server.URL + "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from healthz, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	s := setupTestServer(t)
	userToken := s.tokenFor(t, "user1@example.com", model.RoleUser)
	managerToken := s.tokenFor(t, "manager1@example.com", model.RoleManager)

	// Regular user should not be able to create materials (manager+ required).
	if status := s.do(t, "POST", "/api/materials", userToken, deskBody(), nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for user creating material, got %d", status)
	}

	// But may read.
	if status := s.do(t, "GET", "/api/materials", userToken, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 for user listing materials, got %d", status)
	}

	if status := s.do(t, "POST", "/api/materials", managerToken, deskBody(), nil); status != http.StatusCreated {
		t.Errorf("expected 201 for manager creating material, got %d", status)
	}

	// Managers cannot register accounts or manage users.
	status := s.do(t, "POST", "/api/auth/register", managerToken,
		map[string]string{"email": "x@example.com", "password": "longenough"}, nil)
	if status != http.StatusForbidden {
		t.Errorf("expected 403 for manager registering, got %d", status)
	}
	if status := s.do(t, "GET", "/api/users", userToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", status)
	}
}

func TestCreateMaterialValidation(t *testing.T) {
	s := setupTestServer(t)

	body := deskBody()
	delete(body, "deskType")
	delete(body, "name")

	var resp validationError
	if status := s.do(t, "POST", "/api/materials", s.Token, body, &resp); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if resp.Error != "validation failed" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Fields["deskType"] != "Desk type is required" {
		t.Errorf("deskType message = %q", resp.Fields["deskType"])
	}
	if resp.Fields["name"] != "Name is required" {
		t.Errorf("name message = %q", resp.Fields["name"])
	}
}

func TestMaterialsAPIFlow(t *testing.T) {
	s := setupTestServer(t)
	created := s.createDesk(t)

	if created.ID == 0 || created.MaterialType() != "DESK" {
		t.Fatalf("unexpected created record %+v", created)
	}
	if created.DateAdded.IsZero() {
		t.Error("dateAdded should be set")
	}

	// Get.
	var got model.MaterialRecord
	if status := s.do(t, "GET", "/api/materials/"+itoa(created.ID), s.Token, nil, &got); status != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", status)
	}
	desk, ok := got.Attributes.(model.Desk)
	if !ok || desk.DeskType != "STRAIGHT_DESK" {
		t.Errorf("unexpected attributes %#v", got.Attributes)
	}

	// Partial update keeps absent fields.
	var updated model.MaterialRecord
	status := s.do(t, "PUT", "/api/materials/"+itoa(created.ID), s.Token,
		map[string]any{"color": "Walnut", "heightAdjustable": true, "maximumHeight": 120}, &updated)
	if status != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", status)
	}
	if updated.Color != "Walnut" || updated.Name != "Desk A" || updated.Width != 120 {
		t.Errorf("unexpected updated record %+v", updated)
	}
	desk, _ = updated.Attributes.(model.Desk)
	if !desk.HeightAdjustable || desk.MaximumHeight == nil || *desk.MaximumHeight != 120 {
		t.Errorf("unexpected desk attributes %+v", desk)
	}

	// Material type is immutable.
	status = s.do(t, "PUT", "/api/materials/"+itoa(created.ID), s.Token,
		map[string]any{"materialType": "DOOR"}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 when changing type, got %d", status)
	}

	// Unknown material.
	if status := s.do(t, "GET", "/api/materials/9999", s.Token, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if status := s.do(t, "GET", "/api/materials/abc", s.Token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", status)
	}

	// Audit trail has the creation and the update with its details.
	var trail []model.Activity
	if status := s.do(t, "GET", "/api/audit-trail/material/"+itoa(created.ID), s.Token, nil, &trail); status != http.StatusOK {
		t.Fatalf("audit: expected 200, got %d", status)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(trail))
	}
	var sawUpdate bool
	for _, a := range trail {
		if a.Action == model.ActionUpdated {
			sawUpdate = true
			if !strings.Contains(a.Details, "color") || !strings.Contains(a.Details, "maximumHeight") {
				t.Errorf("update details = %q", a.Details)
			}
			if a.UserName != "Admin" {
				t.Errorf("user name = %q", a.UserName)
			}
		}
	}
	if !sawUpdate {
		t.Error("missing update entry")
	}

	// Delete; the audit trail survives.
	if status := s.do(t, "DELETE", "/api/materials/"+itoa(created.ID), s.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", status)
	}
	if status := s.do(t, "DELETE", "/api/materials/"+itoa(created.ID), s.Token, nil, nil); status != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", status)
	}
	trail = nil
	s.do(t, "GET", "/api/audit-trail/material/"+itoa(created.ID), s.Token, nil, &trail)
	if len(trail) != 3 {
		t.Errorf("expected 3 audit entries after delete, got %d", len(trail))
	}
}

func TestListMaterialsEnvelopeAndFilters(t *testing.T) {
	s := setupTestServer(t)
	s.createDesk(t)

	door := map[string]any{
		"name": "Front door", "category": "Doors", "materialType": "DOOR", "condition": "Damaged",
		"color": "White", "width": 90, "height": 210, "depth": 5, "swingDirection": "LEFT",
	}
	if status := s.do(t, "POST", "/api/materials", s.Token, door, nil); status != http.StatusCreated {
		t.Fatalf("creating door: %d", status)
	}

	var page model.Page[model.MaterialRecord]
	if status := s.do(t, "GET", "/api/materials", s.Token, nil, &page); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if page.TotalElements != 2 || len(page.Content) != 2 {
		t.Errorf("unexpected page %+v", page)
	}

	page = model.Page[model.MaterialRecord]{}
	s.do(t, "GET", "/api/materials?type=DOOR", s.Token, nil, &page)
	if len(page.Content) != 1 || page.Content[0].Name != "Front door" {
		t.Errorf("type filter: %+v", page.Content)
	}

	page = model.Page[model.MaterialRecord]{}
	s.do(t, "GET", "/api/materials?query=desk%20a&condition=Reusable", s.Token, nil, &page)
	if len(page.Content) != 1 || page.Content[0].Name != "Desk A" {
		t.Errorf("query filter: %+v", page.Content)
	}

	page = model.Page[model.MaterialRecord]{}
	s.do(t, "GET", "/api/materials?size=1&page=1", s.Token, nil, &page)
	if page.TotalPages != 2 || page.Number != 1 || len(page.Content) != 1 {
		t.Errorf("pagination: %+v", page)
	}

	page = model.Page[model.MaterialRecord]{}
	if status := s.do(t, "GET", "/api/materials?size=2&page=4611686018427387904", s.Token, nil, &page); status != http.StatusOK {
		t.Errorf("huge page: expected 200, got %d", status)
	}
	if page.TotalElements != 2 || len(page.Content) != 0 {
		t.Errorf("huge page: %+v", page)
	}

	if status := s.do(t, "GET", "/api/materials?size=-1", s.Token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for negative size, got %d", status)
	}

	var stats model.Stats
	if status := s.do(t, "GET", "/api/materials/stats", s.Token, nil, &stats); status != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", status)
	}
	if stats.TotalCount != 2 || stats.TypeCounts["DOOR"] != 1 || stats.RecentAdditionsCount != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// multipartRequest builds a multipart body with an optional material JSON part
// and files under field.
func multipartRequest(t *testing.T, url, token string, material any, field string, files [][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if material != nil {
		data, _ := json.Marshal(material)
		if err := w.WriteField("material", string(data)); err != nil {
			t.Fatalf("writing material: %v", err)
		}
	}
	for i, content := range files {
		part, err := w.CreateFormFile(field, "photo"+itoa(int64(i))+".png")
		if err != nil {
			t.Fatalf("creating part: %v", err)
		}
		part.Write(content)
	}
	w.Close()

	req, _ := http.NewRequest("POST", url, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestPicturesFlow(t *testing.T) {
	s := setupTestServer(t)
	pic := pngBytes(t)

	req := multipartRequest(t, s.URL+"/api/materials", s.Token, deskBody(), "pictures", [][]byte{pic, pic})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.MaterialRecord
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decoding material: %v", err)
	}
	if len(created.Pictures) != 2 {
		t.Fatalf("expected 2 pictures, got %d", len(created.Pictures))
	}
	first, second := created.Pictures[0], created.Pictures[1]
	if !first.IsPrimary || second.IsPrimary {
		t.Errorf("first picture should be primary: %+v", created.Pictures)
	}
	if first.FileName != "photo0.png" || first.ContentType != "image/jpeg" || first.FileSize <= 0 || first.UploadDate.IsZero() {
		t.Errorf("picture metadata = %+v", first)
	}

	var raw struct {
		Pictures []map[string]json.RawMessage `json:"pictures"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("decoding raw material: %v", err)
	}
	for _, key := range []string{"id", "fileName", "contentType", "fileSize", "uploadDate", "isPrimary", "description"} {
		if _, ok := raw.Pictures[0][key]; !ok {
			t.Errorf("picture JSON missing %q: %v", key, raw.Pictures[0])
		}
	}
	for _, key := range []string{"mime", "createdAt", "materialId"} {
		if _, ok := raw.Pictures[0][key]; ok {
			t.Errorf("picture JSON has unexpected %q", key)
		}
	}

	// Pictures are re-encoded as JPEG.
	req, _ = authRequest("GET", s.URL+"/api/materials/pictures/"+itoa(first.ID), s.Token, nil)
	resp, _ = http.DefaultClient.Do(req)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" || len(data) == 0 {
		t.Errorf("picture: %d %s (%d bytes)", resp.StatusCode, resp.Header.Get("Content-Type"), len(data))
	}

	// Set primary leaves exactly one.
	path := "/api/materials/" + itoa(created.ID) + "/pictures/" + itoa(second.ID) + "/primary"
	if status := s.do(t, "PUT", path, s.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("set primary: expected 200, got %d", status)
	}
	var got model.MaterialRecord
	s.do(t, "GET", "/api/materials/"+itoa(created.ID), s.Token, nil, &got)
	if p := got.PrimaryPicture(); p == nil || p.ID != second.ID {
		t.Errorf("primary = %+v", p)
	}
	primaries := 0
	for _, p := range got.Pictures {
		if p.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Errorf("expected exactly one primary, got %d", primaries)
	}

	// Add and remove.
	req = multipartRequest(t, s.URL+"/api/materials/"+itoa(created.ID)+"/pictures", s.Token, nil, "pictures", [][]byte{pic})
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("add pictures: expected 201, got %d", resp.StatusCode)
	}
	path = "/api/materials/" + itoa(created.ID) + "/pictures/" + itoa(first.ID)
	if status := s.do(t, "DELETE", path, s.Token, nil, nil); status != http.StatusOK {
		t.Errorf("remove: expected 200, got %d", status)
	}
	if status := s.do(t, "DELETE", path, s.Token, nil, nil); status != http.StatusNotFound {
		t.Errorf("second remove: expected 404, got %d", status)
	}

	// Non-images are rejected.
	req = multipartRequest(t, s.URL+"/api/materials/"+itoa(created.ID)+"/pictures", s.Token, nil, "pictures", [][]byte{[]byte("plain text")})
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for non-image, got %d", resp.StatusCode)
	}
}

func TestImportExport(t *testing.T) {
	s := setupTestServer(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		spreadsheetHeader(),
		{"Pedestal", "Storage", "DRAWER_UNIT", "Reusable", "Grey", "", 40, 60, 50, "", "", "", "", "", "", "", "Yes"},
		{"Broken", "Storage", "DRAWER_UNIT", "Like New", "", "", "wide", 60, 50},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		f.SetSheetRow(sheet, cell, &row)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("writing workbook: %v", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, _ := w.CreateFormFile("file", "materials.xlsx")
	part.Write(buf.Bytes())
	w.Close()
	req, _ := http.NewRequest("POST", s.URL+"/api/materials/import-excel", &body)
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var summary model.ImportSummary
	json.NewDecoder(resp.Body).Decode(&summary)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if summary.Created != 1 || summary.Failed != 1 || summary.BatchID == "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rowErr := summary.Errors[0]
	if rowErr.Row != 3 {
		t.Errorf("error row = %d, want 3", rowErr.Row)
	}
	if rowErr.Fields["width"] != "Width must be a number" || rowErr.Fields["condition"] != "Invalid condition" {
		t.Errorf("unexpected row errors %v", rowErr.Fields)
	}

	// Export returns a workbook holding the imported row.
	req, _ = authRequest("GET", s.URL+"/api/materials/export-excel", s.Token, nil)
	resp, _ = http.DefaultClient.Do(req)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.Header.Get("Content-Type") != spreadsheet.ContentType {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	parsed, err := spreadsheet.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parsing export: %v", err)
	}
	if len(parsed) != 1 || parsed[0].Draft.Name != "Pedestal" {
		t.Errorf("unexpected export rows %+v", parsed)
	}

	req, _ = authRequest("GET", s.URL+"/api/materials/excel-template", s.Token, nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Disposition"), "template") {
		t.Errorf("template: %d %q", resp.StatusCode, resp.Header.Get("Content-Disposition"))
	}
}

func spreadsheetHeader() []any {
	var out []any
	for _, h := range spreadsheet.Headers() {
		out = append(out, h)
	}
	return out
}

func TestRecentActivityLimit(t *testing.T) {
	database := db.NewTestDB(t)
	hash, _ := auth.HashPassword("password")
	u, _ := store.CreateUser(context.Background(), database, "Admin", "admin@example.com", hash, model.RoleAdmin)
	token, _ := auth.GenerateToken(testJWTSecret, u)

	server := httptest.NewServer(NewRouter(Options{DB: database, JWTSecret: testJWTSecret, RecentActivityLimit: 2}))
	t.Cleanup(server.Close)
	s := &testServer{Server: server, DB: database, Token: token}

	for i := 0; i < 3; i++ {
		s.createDesk(t)
	}

	var recent []model.Activity
	if status := s.do(t, "GET", "/api/audit-trail", token, nil, &recent); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(recent) != 2 {
		t.Errorf("expected 2 entries, got %d", len(recent))
	}

	var mine []model.Activity
	s.do(t, "GET", "/api/audit-trail/user/"+itoa(u.ID), token, nil, &mine)
	if len(mine) != 3 {
		t.Errorf("expected 3 entries for user, got %d", len(mine))
	}
}

func TestUsersAdmin(t *testing.T) {
	s := setupTestServer(t)
	s.tokenFor(t, "user1@example.com", model.RoleUser)

	var users []model.User
	if status := s.do(t, "GET", "/api/users", s.Token, nil, &users); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	var target int64
	for _, u := range users {
		if u.Email == "user1@example.com" {
			target = u.ID
		}
	}

	status := s.do(t, "PUT", "/api/users/"+itoa(target)+"/password", s.Token, map[string]string{"password": "resetpass"}, nil)
	if status != http.StatusOK {
		t.Errorf("reset: expected 200, got %d", status)
	}
	if status := s.do(t, "DELETE", "/api/users/"+itoa(target), s.Token, nil, nil); status != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", status)
	}
	var me userInfo
	s.do(t, "GET", "/api/auth/me", s.Token, nil, &me)
	if status := s.do(t, "DELETE", "/api/users/"+itoa(me.ID), s.Token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for self-delete, got %d", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	s.createDesk(t)

	resp, err := http.Get(s.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), `reclaim_material_operations_total{operation="create"} 1`) {
		t.Error("create operation not counted")
	}
	if !strings.Contains(string(data), `path="/api/materials"`) {
		t.Error("request metrics should be labelled by route pattern")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
