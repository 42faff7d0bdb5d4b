package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portalautarca/portal/internal/app"
	"github.com/portalautarca/portal/internal/config"
	"github.com/portalautarca/portal/internal/db"
	"github.com/portalautarca/portal/internal/service"
	"github.com/portalautarca/portal/internal/storage"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	database, err := db.Init("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))
	require.NoError(t, db.Seed(database))

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		AppName:         "Portal do Autarca",
		AppEnv:          "development",
		JWTSecret:       "test-secret",
		JWTExpiry:       time.Hour,
		LoginRateLimit:  5,
		LoginRateWindow: time.Minute,
		UploadMaxBytes:  1 << 20,
		CoverMaxWidth:   800,
	}

	return &testServer{t: t, handler: SetupRoutes(app.Wire(cfg, database, local))}
}

func (s *testServer) do(method, path string, body io.Reader, contentType string, cookie *http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(data)
	}
	return s.do(method, path, r, "application/json", cookie)
}

func (s *testServer) login(email, password string) *http.Cookie {
	s.t.Helper()
	rec := s.json(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == service.SessionCookie {
			return c
		}
	}
	s.t.Fatal("login did not set a session cookie")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createInitiative(cookie *http.Cookie, body map[string]any) int64 {
	s.t.Helper()
	rec := s.json(http.MethodPost, "/api/backoffice/parish/initiatives", body, cookie)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[struct {
		ID      int64 `json:"id"`
		Success bool  `json:"success"`
	}](s.t, rec)
	require.True(s.t, out.Success)
	return out.ID
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", nil, "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"missing password", map[string]string{"email": "admin@portal.pt"}, http.StatusBadRequest},
		{"wrong password", map[string]string{"email": "admin@portal.pt", "password": "nope"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "ghost@portal.pt", "password": "admin123"}, http.StatusUnauthorized},
		{"valid", map[string]string{"email": "admin@portal.pt", "password": "admin123"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.json(http.MethodPost, "/api/auth/login", tt.body, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("parque@portal.pt", "parish123")

	rec := s.do(http.MethodGet, "/api/auth/me", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}](t, rec)
	assert.Equal(t, "parque@portal.pt", me.User.Email)
	assert.Equal(t, "parish", me.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(http.MethodPost, "/api/auth/logout", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Equal(t, service.SessionCookie, cleared[0].Name)
	assert.Less(t, cleared[0].MaxAge, 0)

	rec = s.do(http.MethodGet, "/api/auth/me", nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t)
	body := map[string]string{"email": "admin@portal.pt", "password": "wrong"}

	for range 5 {
		rec := s.json(http.MethodPost, "/api/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := s.json(http.MethodPost, "/api/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"admin@portal.pt","password":"wrong"}`

	attempt := func(i int) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	for i := range 5 {
		require.Equal(t, http.StatusUnauthorized, attempt(i).Code)
	}

	rec := attempt(99)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestAccessGuard(t *testing.T) {
	s := newTestServer(t)
	adminCookie := s.login("admin@portal.pt", "admin123")
	parishCookie := s.login("parque@portal.pt", "parish123")

	tests := []struct {
		name   string
		path   string
		cookie *http.Cookie
		want   int
	}{
		{"backoffice page redirects", "/backoffice/initiatives", nil, http.StatusFound},
		{"backoffice api anonymous", "/api/backoffice/initiatives", nil, http.StatusUnauthorized},
		{"backoffice api parish", "/api/backoffice/initiatives", parishCookie, http.StatusOK},
		{"admin api anonymous", "/api/admin/users", nil, http.StatusUnauthorized},
		{"admin api parish", "/api/admin/users", parishCookie, http.StatusForbidden},
		{"admin api admin", "/api/admin/users", adminCookie, http.StatusOK},
		{"public list", "/api/initiatives", nil, http.StatusOK},
		{"garbage cookie", "/api/backoffice/initiatives", &http.Cookie{Name: service.SessionCookie, Value: "garbage"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, tt.path, nil, "", tt.cookie)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusFound {
				assert.Equal(t, "/login", rec.Header().Get("Location"))
			}
		})
	}
}

func TestInitiativeLifecycle(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("parque@portal.pt", "parish123")

	id := s.createInitiative(cookie, map[string]any{
		"title":   "Requalificação da Praça",
		"content": "# Proposta\n\nTexto **forte**.",
		"status":  "approved",
		"tags":    []any{"Mobilidade"},
		"votes": []map[string]string{
			{"voter_name": "PS", "vote": "favor"},
			{"voter_name": "PSD", "vote": "favor"},
			{"voter_name": "CDU", "vote": "favor"},
		},
	})

	rec := s.do(http.MethodGet, "/api/initiatives?search=pra%C3%A7a", nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Initiatives []struct {
			ID     int64 `json:"id"`
			Result struct {
				Status string `json:"status"`
			} `json:"result"`
			Tags []struct {
				Name string `json:"name"`
			} `json:"tags"`
		} `json:"initiatives"`
		TotalCount  int `json:"totalCount"`
		TotalPages  int `json:"totalPages"`
		CurrentPage int `json:"currentPage"`
		PerPage     int `json:"perPage"`
	}](t, rec)
	require.Len(t, page.Initiatives, 1)
	assert.Equal(t, id, page.Initiatives[0].ID)
	assert.Equal(t, "unanimous", page.Initiatives[0].Result.Status)
	require.Len(t, page.Initiatives[0].Tags, 1)
	assert.Equal(t, "Mobilidade", page.Initiatives[0].Tags[0].Name)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, service.PublicPageSize, page.PerPage)

	detailPath := fmt.Sprintf("/api/initiatives/%d", id)
	rec = s.do(http.MethodGet, detailPath, nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		ContentHTML string `json:"content_html"`
		Statistics  struct {
			Favor        int `json:"favor"`
			Total        int `json:"total"`
			FavorPercent int `json:"favorPercentage"`
		} `json:"statistics"`
	}](t, rec)
	assert.Contains(t, detail.ContentHTML, "<strong>forte</strong>")
	assert.Equal(t, 3, detail.Statistics.Favor)
	assert.Equal(t, 100, detail.Statistics.FavorPercent)
	assert.NotContains(t, rec.Body.String(), "created_by_email")

	// Moving back to draft hides it from the public portal.
	rec = s.json(http.MethodPut, fmt.Sprintf("/api/backoffice/parish/initiatives/%d", id), map[string]any{
		"title":  "Requalificação da Praça",
		"status": "draft",
		"tags":   []any{},
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, detailPath, nil, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/backoffice/initiatives/%d", id), nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"draft"`)
	// Votes were not resent, so they survive the update.
	assert.Contains(t, rec.Body.String(), `"voter_name":"CDU"`)
}

func TestInitiativeValidation(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("parque@portal.pt", "parish123")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"status": "draft"}},
		{"bad status", map[string]any{"title": "X", "status": "archived"}},
		{"bad meeting date", map[string]any{"title": "X", "meeting_date": "12/03/2024"}},
		{"bad vote", map[string]any{"title": "X", "votes": []map[string]string{{"voter_name": "PS", "vote": "maybe"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.json(http.MethodPost, "/api/backoffice/parish/initiatives", tt.body, cookie)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	rec := s.do(http.MethodGet, "/api/initiatives/abc", nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMultipartCreateAndServeUpload(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("parque@portal.pt", "parish123")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Orçamento Participativo"))
	require.NoError(t, mw.WriteField("status", "approved"))
	require.NoError(t, mw.WriteField("meetingDate", "2024-03-12"))
	require.NoError(t, mw.WriteField("tags", `["Finanças"]`))
	require.NoError(t, mw.WriteField("votes", `[{"voter_name":"PS","vote":"against"}]`))
	part, err := mw.CreateFormFile("document", "acta.pdf")
	require.NoError(t, err)
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	_, err = part.Write(pdf)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := s.do(http.MethodPost, "/api/backoffice/parish/initiatives", &body, mw.FormDataContentType(), cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[struct {
		ID int64 `json:"id"`
	}](t, rec).ID

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/initiatives/%d", id), nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		MeetingDate *string `json:"meeting_date"`
		Result      struct {
			Status string `json:"status"`
		} `json:"result"`
		Documents []struct {
			Filename         string `json:"filename"`
			OriginalFilename string `json:"original_filename"`
		} `json:"documents"`
	}](t, rec)
	require.NotNil(t, detail.MeetingDate)
	assert.Equal(t, "2024-03-12", *detail.MeetingDate)
	assert.Equal(t, "rejected", detail.Result.Status)
	require.Len(t, detail.Documents, 1)
	assert.Equal(t, "acta.pdf", detail.Documents[0].OriginalFilename)

	rec = s.do(http.MethodGet, "/api/uploads/"+detail.Documents[0].Filename, nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdf, rec.Body.Bytes())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"), "pdfs open inline")

	rec = s.do(http.MethodGet, "/api/uploads/missing.pdf", nil, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartFile(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadRejectsMarkup(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("admin@portal.pt", "admin123")
	id := s.createInitiative(cookie, map[string]any{"title": "Anexos", "parish_id": 1})
	path := fmt.Sprintf("/api/backoffice/parish/initiatives/%d/documents", id)
	page := []byte("<html><body><script>fetch('/api/auth/me')</script></body></html>")

	for _, name := range []string{"x.html", "x.txt", "x.pdf", "x.svg"} {
		body, contentType := multipartFile(t, "document", name, "text/html", page)
		rec := s.do(http.MethodPost, path, body, contentType, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestTextUploadServedAsAttachment(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("admin@portal.pt", "admin123")
	id := s.createInitiative(cookie, map[string]any{"title": "Notas", "parish_id": 1})

	body, contentType := multipartFile(t, "document", "nota.txt", "text/html", []byte("reunião às 18h"))
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/backoffice/parish/initiatives/%d/documents", id), body, contentType, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[struct {
		Document struct {
			Filename string `json:"filename"`
		} `json:"document"`
	}](t, rec).Document

	rec = s.do(http.MethodGet, "/api/uploads/"+doc.Filename, nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=nota.txt`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "sandbox", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSubCollections(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("admin@portal.pt", "admin123")
	id := s.createInitiative(cookie, map[string]any{"title": "Ciclovia", "parish_id": 1, "status": "approved"})
	base := fmt.Sprintf("/api/backoffice/initiatives/%d", id)

	rec := s.json(http.MethodPost, base+"/votes", map[string]string{"voter_name": "BE", "vote": "favor"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	vote := decode[struct {
		Vote struct {
			ID int64 `json:"id"`
		} `json:"vote"`
	}](t, rec)

	rec = s.json(http.MethodPut, base+"/tags/1", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, base, nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"voter_name":"BE"`)
	assert.Contains(t, rec.Body.String(), `"tags":[{`)

	rec = s.do(http.MethodDelete, fmt.Sprintf("%s/votes/%d", base, vote.Vote.ID), nil, "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodDelete, fmt.Sprintf("%s/votes/%d", base, vote.Vote.ID), nil, "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, base+"/tags/1", nil, "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImport(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("parque@portal.pt", "parish123")

	text := "title;parish;status;tags\n" +
		"Nova Creche;lumiar;approved;Habitação, Segurança\n" +
		";lumiar;approved;\n" +
		"\"Jardim; fase 2\";nowhere;draft;\n"

	rec := s.do(http.MethodPost, "/api/backoffice/initiatives/import", strings.NewReader(text), "text/csv", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[struct {
		Created int `json:"created"`
		Errors  []struct {
			Line  int    `json:"line"`
			Error string `json:"error"`
		} `json:"errors"`
	}](t, rec)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 3, result.Errors[0].Line)
	assert.Equal(t, 4, result.Errors[1].Line)

	rec = s.do(http.MethodGet, "/api/initiatives?tag=Habita%C3%A7%C3%A3o", nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalCount":1`)

	rec = s.do(http.MethodPost, "/api/backoffice/initiatives/import", strings.NewReader("name\nx\n"), "text/csv", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkDelete(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login("parque@portal.pt", "parish123")
	a := s.createInitiative(cookie, map[string]any{"title": "A"})
	b := s.createInitiative(cookie, map[string]any{"title": "B"})
	s.createInitiative(cookie, map[string]any{"title": "C"})

	rec := s.json(http.MethodPost, "/api/backoffice/initiatives/delete", map[string]any{"ids": []int64{a, b, 9999}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"deletedCount":2`)

	rec = s.json(http.MethodPost, "/api/backoffice/initiatives/delete", map[string]any{"ids": []int64{}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/backoffice/initiatives", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":1`)

	rec = s.do(http.MethodGet, "/api/backoffice/initiatives", nil, "", cookie)
	assert.Contains(t, rec.Body.String(), `"totalCount":0`)
}

func TestTags(t *testing.T) {
	s := newTestServer(t)

	rec := s.json(http.MethodPost, "/api/tags", map[string]string{"name": "Cultura"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := s.login("parque@portal.pt", "parish123")
	rec = s.json(http.MethodPost, "/api/tags", map[string]string{"name": "Cultura", "color": "#10B981"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.json(http.MethodPost, "/api/tags", map[string]string{"name": "Mobilidade"}, cookie)
	require.Equal(t, http.StatusConflict, rec.Code)
	dup := decode[struct {
		Error string `json:"error"`
		Tag   struct {
			Name string `json:"name"`
		} `json:"tag"`
	}](t, rec)
	assert.NotEmpty(t, dup.Error)
	assert.Equal(t, "Mobilidade", dup.Tag.Name)

	rec = s.do(http.MethodGet, "/api/tags", nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Cultura"`)
}

func TestAdminParishes(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@portal.pt", "admin123")
	parish := s.login("parque@portal.pt", "parish123")

	rec := s.json(http.MethodPost, "/api/admin/parishes", map[string]string{"name": "São Vicente"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"code":"sao-vicente"`)

	rec = s.json(http.MethodPost, "/api/admin/parishes", map[string]string{"name": "São Vicente"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	s.createInitiative(parish, map[string]any{"title": "Referencing Lumiar"})
	rec = s.do(http.MethodDelete, "/api/admin/parishes/1", nil, "", admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, "/api/admin/parishes/999", nil, "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUsers(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@portal.pt", "admin123")

	create := map[string]any{"email": "Junta@Portal.pt", "password": "s3gura-longa", "role": "parish", "parish_id": 1}
	rec := s.json(http.MethodPost, "/api/admin/users", create, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}](t, rec)
	assert.Equal(t, "junta@portal.pt", created.User.Email)

	rec = s.json(http.MethodPost, "/api/admin/users", create, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	userPath := fmt.Sprintf("/api/admin/users/%d", created.User.ID)
	rec = s.json(http.MethodPatch, userPath, map[string]any{"role": "admin"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)

	rec = s.do(http.MethodDelete, userPath, nil, "", admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.json(http.MethodPost, "/api/auth/login", map[string]string{"email": "junta@portal.pt", "password": "s3gura-longa"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodDelete, "/api/admin/users/1", nil, "", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
