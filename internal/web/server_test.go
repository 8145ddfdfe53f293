package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/cache"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/config"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type account struct {
	password string
	token    string
	role     string
}

type mutation struct {
	Method string
	Path   string
	Auth   string
	Form   url.Values
	File   string
}

// backend fakes the content API.
type backend struct {
	mu          sync.Mutex
	data        map[string]string
	accounts    map[string]account
	gets        map[string]int
	mutations   []mutation
	contacts    []api.ContactMessage
	down        bool
	contactFail bool
	reject      bool
}

func newBackend() *backend {
	return &backend{
		data: map[string]string{
			"news": `[
				{"_id":"n1","title":"Best Paper Award","slug":"best-paper-award","category":"Award","date":"2024-05-01","summary":"Our storm paper won."},
				{"_id":"n2","title":"Keynote at AGU","slug":"keynote-at-agu","category":"Talk","date":"2023-12-10","summary":"A talk on lightning."}
			]`,
			"projects": `[
				{"_id":"p1","title":"Lightning Mapper","slug":"lightning-mapper","category":"Research","date":"2024-01-01","description":"Maps lightning.","tags":["radar","go"]}
			]`,
			"publications": `[
				{"_id":"u1","title":"Storm Cells","slug":"storm-cells","date":"2022-03-01","abstract":"<p>Cells.</p>","venue":"JGR","authors":["A. Author","B. Author"],"tags":["Journal"],"doi":"10.1000/xyz"},
				{"_id":"u2","title":"Radar Notes","slug":"radar-notes","date":"2021-03-01","abstract":"<p>Notes.</p>","venue":"AMS","authors":["A. Author"],"tags":["Conference"]}
			]`,
			"gallery": `[
				{"_id":"g1","title":"Field day","slug":"field-day","category":"Field","date":"2024-06-01","image":"/img/g1.jpg"}
			]`,
			"news/best-paper-award": `{"_id":"n1","title":"Best Paper Award","slug":"best-paper-award","category":"Award","date":"2024-05-01","summary":"Our storm paper won.","content":"<p>Full <b>story</b><script>alert(1)</script></p>"}`,
			"publications/storm-cells": `{"_id":"u1","title":"Storm Cells","slug":"storm-cells","date":"2022-03-01","abstract":"<p>Cells.</p>","venue":"JGR","authors":["A. Author","B. Author"],"tags":["Journal"],"doi":"10.1000/xyz"}`,
		},
		accounts: map[string]account{
			"admin@example.org":  {password: "secret", token: "tok-admin", role: "admin"},
			"reader@example.org": {password: "secret", token: "tok-reader", role: "user"},
		},
		gets: make(map[string]int),
	}
}

func (b *backend) reply(w http.ResponseWriter, status int, data string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status >= 300 {
		_, _ = w.Write([]byte(`{"success":false,"message":"` + data + `"}`))
		return
	}
	_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":` + data + `}`))
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case path == "auth/signin":
		var in struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		acct, ok := b.accounts[in.Email]
		if !ok || acct.password != in.Password {
			b.reply(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		user, _ := json.Marshal(api.Account{ID: "u-" + acct.role, Name: "Admin", Email: in.Email, Role: acct.role})
		b.reply(w, http.StatusOK, `{"token":"`+acct.token+`","user":`+string(user)+`}`)
	case path == "contact":
		if b.contactFail {
			b.reply(w, http.StatusInternalServerError, "mailer down")
			return
		}
		var msg api.ContactMessage
		_ = json.NewDecoder(r.Body).Decode(&msg)
		b.contacts = append(b.contacts, msg)
		b.reply(w, http.StatusOK, `{}`)
	case r.Method == http.MethodGet:
		b.gets[path]++
		if b.down {
			b.reply(w, http.StatusServiceUnavailable, "down")
			return
		}
		data, ok := b.data[path]
		if !ok {
			b.reply(w, http.StatusNotFound, "not found")
			return
		}
		b.reply(w, http.StatusOK, data)
	default:
		m := mutation{Method: r.Method, Path: path, Auth: r.Header.Get("Authorization")}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			m.Form = url.Values(r.MultipartForm.Value)
			if files := r.MultipartForm.File["image"]; len(files) > 0 {
				m.File = files[0].Filename
			}
		}
		b.mutations = append(b.mutations, m)
		if b.reject {
			b.reply(w, http.StatusUnauthorized, "token expired")
			return
		}
		b.reply(w, http.StatusOK, `{}`)
	}
}

func (b *backend) getCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets[path]
}

func (b *backend) recorded() []mutation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]mutation(nil), b.mutations...)
}

type harness struct {
	t       *testing.T
	server  *Server
	backend *backend
}

func newHarness(t *testing.T, loginRate int) *harness {
	t.Helper()
	be := newBackend()
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL+"/api", 5*time.Second)
	require.NoError(t, err)

	db, err := cache.Open(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{Addr: "127.0.0.1:0", SessionTTL: "1h", LoginRate: loginRate},
		Site: config.SiteConfig{
			Name:     "Test Lab",
			Tagline:  "Storm research",
			URL:      "https://example.org",
			Author:   "Test Author",
			Keywords: []string{"storms"},
			About:    "<p>About the lab.</p>",
		},
	}
	metrics := NewMetrics()
	src := feed.NewSource(client, db, time.Hour, feed.WithObserver(metrics))
	s, err := New(cfg, src, client, nil, metrics)
	require.NoError(t, err)
	return &harness{t: t, server: s, backend: be}
}

func (h *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

func (h *harness) post(target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req, cookies...)
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// login signs in as the admin account and returns the session cookie.
func (h *harness) login() *http.Cookie {
	h.t.Helper()
	rec := h.post("/admin/login", url.Values{"email": {"admin@example.org"}, "password": {"secret"}})
	require.Equal(h.t, http.StatusSeeOther, rec.Code)
	c := cookieNamed(rec, sessionCookie)
	require.NotNil(h.t, c)
	return c
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, 100)
	rec := h.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := h.do(req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestHomeShowsFeaturedSections(t *testing.T) {
	h := newHarness(t, 100)
	rec := h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Best Paper Award")
	assert.Contains(t, body, "Lightning Mapper")
	assert.Contains(t, body, "Storm Cells")
	assert.Contains(t, body, `<link rel="canonical" href="https://example.org/">`)
}

func TestHomeFailsOnlyWhenEverythingFails(t *testing.T) {
	h := newHarness(t, 100)
	h.backend.mu.Lock()
	delete(h.backend.data, "projects")
	h.backend.mu.Unlock()

	rec := h.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No projects yet.")

	h2 := newHarness(t, 100)
	h2.backend.down = true
	assert.Equal(t, http.StatusBadGateway, h2.get("/").Code)
}

func TestAboutRendersSiteText(t *testing.T) {
	h := newHarness(t, 100)
	rec := h.get("/about")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>About the lab.</p>")
	assert.Contains(t, rec.Body.String(), "<title>About | Test Lab</title>")
}

func TestListFilters(t *testing.T) {
	h := newHarness(t, 100)

	tests := []struct {
		name     string
		target   string
		count    string
		contains []string
		missing  []string
	}{
		{
			name:     "default shows everything newest first",
			target:   "/news",
			count:    "2 result(s) found",
			contains: []string{"Best Paper Award", "Keynote at AGU"},
			missing:  []string{"Clear filters"},
		},
		{
			name:     "category",
			target:   "/news?category=Talk",
			count:    "1 result(s) found",
			contains: []string{"Keynote at AGU", "Clear filters"},
			missing:  []string{"Best Paper Award"},
		},
		{
			name:     "search matches summary",
			target:   "/news?q=storm",
			count:    "1 result(s) found",
			contains: []string{"Best Paper Award"},
			missing:  []string{"Keynote at AGU"},
		},
		{
			name:     "no match",
			target:   "/news?q=zzz",
			count:    "0 result(s) found",
			contains: []string{"No results"},
		},
		{
			name:     "publication categories come from tags",
			target:   "/publications?category=Journal",
			count:    "1 result(s) found",
			contains: []string{"Storm Cells", "A. Author, B. Author"},
			missing:  []string{"Radar Notes"},
		},
		{
			name:     "project tags are searchable",
			target:   "/projects?q=radar",
			count:    "1 result(s) found",
			contains: []string{"Lightning Mapper"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.get(tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, tt.count)
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.missing {
				assert.NotContains(t, body, s)
			}
		})
	}
}

func TestListSortByTitle(t *testing.T) {
	h := newHarness(t, 100)
	body := h.get("/news?sort=title-desc").Body.String()
	assert.Less(t, strings.Index(body, "Keynote at AGU"), strings.Index(body, "Best Paper Award"))
	assert.Contains(t, body, `<option value="title-desc" selected>`)
}

func TestStaleCategoryFallsBackToAll(t *testing.T) {
	h := newHarness(t, 100)
	rec := h.get("/news?category=Retired")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2 result(s) found")
	assert.Contains(t, rec.Body.String(), `<option value="all" selected>`)
}

func TestGalleryFilter(t *testing.T) {
	h := newHarness(t, 100)
	rec := h.get("/gallery?category=Field")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 result(s) found")
	assert.Contains(t, rec.Body.String(), `src="/img/g1.jpg"`)
}

func TestListCachesUntilInvalidated(t *testing.T) {
	h := newHarness(t, 100)
	h.get("/news")
	h.get("/news?q=award")
	assert.Equal(t, 1, h.backend.getCount("news"))
}

func TestDetail(t *testing.T) {
	h := newHarness(t, 100)

	rec := h.get("/news/best-paper-award")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Best Paper Award | Test Lab</title>")
	assert.Contains(t, body, `<meta property="og:type" content="article">`)
	assert.Contains(t, body, "Full <b>story</b>")
	assert.NotContains(t, body, "alert(1)")

	rec = h.get("/publications/storm-cells")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="https://doi.org/10.1000/xyz"`)
}

func TestDetailNotFound(t *testing.T) {
	h := newHarness(t, 100)
	rec := h.get("/news/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error 404")

	assert.Equal(t, http.StatusNotFound, h.get("/nowhere").Code)
}

func TestContentUnavailable(t *testing.T) {
	h := newHarness(t, 100)
	h.backend.down = true
	rec := h.get("/projects")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Content unavailable")
}

func TestAdminRequiresLogin(t *testing.T) {
	h := newHarness(t, 100)
	for _, target := range []string{"/admin", "/admin/news", "/admin/gallery/new"} {
		rec := h.get(target)
		assert.Equal(t, http.StatusFound, rec.Code, target)
		assert.Equal(t, "/admin/login?next="+url.QueryEscape(target), rec.Header().Get("Location"))
		assert.NotContains(t, rec.Body.String(), "Dashboard")
	}

	bogus := &http.Cookie{Name: sessionCookie, Value: "not-a-session"}
	assert.Equal(t, http.StatusFound, h.get("/admin", bogus).Code)
}

func TestLogin(t *testing.T) {
	h := newHarness(t, 100)

	rec := h.post("/admin/login", url.Values{
		"email":    {"admin@example.org"},
		"password": {"secret"},
		"next":     {"/admin/projects"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/projects", rec.Header().Get("Location"))
	sess := cookieNamed(rec, sessionCookie)
	require.NotNil(t, sess)
	assert.True(t, sess.HttpOnly)

	flashC := cookieNamed(rec, flashCookie)
	require.NotNil(t, flashC)
	dash := h.get("/admin", sess, flashC)
	require.Equal(t, http.StatusOK, dash.Code)
	assert.Contains(t, dash.Body.String(), "Dashboard")
	assert.Contains(t, dash.Body.String(), "Welcome back, Admin.")
	assert.Contains(t, dash.Body.String(), "Signed in as Admin (admin)")

	// the login page bounces a signed-in user
	again := h.get("/admin/login", sess)
	assert.Equal(t, http.StatusFound, again.Code)
	assert.Equal(t, "/admin", again.Header().Get("Location"))
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t, 100)

	rec := h.post("/admin/login", url.Values{"email": {"admin@example.org"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password.")
	assert.Nil(t, cookieNamed(rec, sessionCookie))

	rec = h.post("/admin/login", url.Values{"email": {"reader@example.org"}, "password": {"secret"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot access the admin area")
	assert.Nil(t, cookieNamed(rec, sessionCookie))

	rec = h.post("/admin/login", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid email address.")
	assert.Contains(t, rec.Body.String(), "This field is required.")
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newHarness(t, 2)
	form := url.Values{"email": {"admin@example.org"}, "password": {"wrong"}}
	assert.Equal(t, http.StatusUnauthorized, h.post("/admin/login", form).Code)
	assert.Equal(t, http.StatusUnauthorized, h.post("/admin/login", form).Code)

	rec := h.post("/admin/login", form)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many attempts")
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	h := newHarness(t, 1)
	form := url.Values{"email": {"admin@example.org"}, "password": {"wrong"}}

	var codes []int
	for i := range 5 {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		codes = append(codes, h.do(req).Code)
	}
	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestLogout(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()

	rec := h.post("/admin/logout", nil, sess)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	assert.Equal(t, http.StatusFound, h.get("/admin", sess).Code)
}

func multipartRequest(t *testing.T, target string, fields map[string]string, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, _ = fw.Write([]byte("\x89PNG fake"))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateNews(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()
	h.get("/news")
	require.Equal(t, 1, h.backend.getCount("news"))

	req := multipartRequest(t, "/admin/news", map[string]string{
		"title":    "New Grant",
		"category": "Award",
		"date":     "2024-09-01",
		"summary":  "Funding secured.",
		"content":  "<p>Details</p><script>x()</script>",
	}, "grant.png")
	rec := h.do(req, sess)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/admin/news", rec.Header().Get("Location"))

	muts := h.backend.recorded()
	require.Len(t, muts, 1)
	m := muts[0]
	assert.Equal(t, http.MethodPost, m.Method)
	assert.Equal(t, "news", m.Path)
	assert.Equal(t, "Bearer tok-admin", m.Auth)
	assert.Equal(t, "new-grant", m.Form.Get("slug"))
	assert.Equal(t, "<p>Details</p>", m.Form.Get("content"))
	assert.Equal(t, "grant.png", m.File)

	// the cached list was dropped, so the next read goes to the API
	h.get("/news")
	assert.Equal(t, 2, h.backend.getCount("news"))
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()

	rec := h.post("/admin/news", url.Values{"category": {"Award"}, "date": {"yesterday"}, "slug": {"Bad Slug"}}, sess)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Please fix the highlighted fields.")
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, "Use a date like 2024-05-31.")
	assert.Contains(t, body, "Use lowercase letters, digits and dashes.")
	assert.Empty(t, h.backend.recorded())
}

func TestGalleryCreateNeedsImage(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()

	req := multipartRequest(t, "/admin/gallery", map[string]string{
		"title":    "Radar site",
		"category": "Field",
	}, "")
	rec := h.do(req, sess)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "An image is required.")
	assert.Empty(t, h.backend.recorded())
}

func TestEditForm(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()

	rec := h.get("/admin/projects/p1/edit", sess)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Edit project")
	assert.Contains(t, body, `value="Lightning Mapper"`)
	assert.Contains(t, body, `value="radar, go"`)
	assert.Contains(t, body, `action="/admin/projects/p1"`)

	assert.Equal(t, http.StatusNotFound, h.get("/admin/projects/nope/edit", sess).Code)
}

func TestUpdateProject(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()

	rec := h.post("/admin/projects/p1", url.Values{
		"title":       {"Lightning Mapper"},
		"slug":        {"lightning-mapper"},
		"category":    {"Research"},
		"date":        {"2024-01-01"},
		"description": {"Maps lightning."},
		"tags":        {"radar, go , ,maps"},
	}, sess)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	muts := h.backend.recorded()
	require.Len(t, muts, 1)
	assert.Equal(t, http.MethodPatch, muts[0].Method)
	assert.Equal(t, "projects/p1", muts[0].Path)
	assert.Equal(t, []string{"radar", "go", "maps"}, muts[0].Form["tags"])
}

func TestToolbarFormatsWithoutSaving(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()

	base := url.Values{"title": {"Draft"}, "category": {"Award"}, "date": {"2024-01-01"}}
	form := url.Values{}
	for k, v := range base {
		form[k] = v
	}
	form.Set("content", "hello world")
	form.Set("_command", "bold")
	form.Set("_start", "0")
	form.Set("_end", "5")

	rec := h.post("/admin/news", form, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>hello</strong> world")
	assert.Empty(t, h.backend.recorded())

	form.Set("content", "<strong>hello</strong> world")
	form.Set("_command", "undo")
	rec = h.post("/admin/news", form, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-rich>hello world</textarea>")

	form.Set("content", "hello world")
	form.Set("_command", "bold")
	form.Set("_start", "3")
	form.Set("_end", "500")
	rec = h.post("/admin/news", form, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The selection is out of range.")
}

func TestDelete(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()

	rec := h.post("/admin/news/n1/delete", nil, sess)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/news", rec.Header().Get("Location"))

	muts := h.backend.recorded()
	require.Len(t, muts, 1)
	assert.Equal(t, http.MethodDelete, muts[0].Method)
	assert.Equal(t, "news/n1", muts[0].Path)

	flashC := cookieNamed(rec, flashCookie)
	require.NotNil(t, flashC)
	list := h.get("/admin/news", sess, flashC)
	assert.Contains(t, list.Body.String(), "News item deleted.")
}

func TestRejectedTokenSignsOut(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()
	h.backend.mu.Lock()
	h.backend.reject = true
	h.backend.mu.Unlock()

	rec := h.post("/admin/news/n1/delete", nil, sess)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login?next="+url.QueryEscape("/admin/news"), rec.Header().Get("Location"))
	assert.Equal(t, http.StatusFound, h.get("/admin", sess).Code)
}

func TestAdminList(t *testing.T) {
	h := newHarness(t, 100)
	sess := h.login()

	rec := h.get("/admin/publications?category=Conference", sess)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "1 result(s) found")
	assert.Contains(t, body, `action="/admin/publications/u2/delete"`)
	assert.Contains(t, body, `href="/admin/publications/u2/edit"`)
}

func TestContact(t *testing.T) {
	h := newHarness(t, 100)

	rec := h.post("/contact", url.Values{"name": {"Ann"}, "email": {"bad"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid email address.")
	assert.Contains(t, rec.Body.String(), `value="Ann"`)

	rec = h.post("/contact", url.Values{
		"name":    {"Ann"},
		"email":   {"ann@example.org"},
		"subject": {"Collaboration"},
		"message": {"Hello there"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contact", rec.Header().Get("Location"))
	require.Len(t, h.backend.contacts, 1)
	assert.Equal(t, "Collaboration", h.backend.contacts[0].Subject)

	flashC := cookieNamed(rec, flashCookie)
	require.NotNil(t, flashC)
	page := h.get("/contact", flashC)
	assert.Contains(t, page.Body.String(), "Thanks! Your message has been sent.")
	cleared := cookieNamed(page, flashCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestContactAPIFailure(t *testing.T) {
	h := newHarness(t, 100)
	h.backend.contactFail = true
	rec := h.post("/contact", url.Values{
		"name":    {"Ann"},
		"email":   {"ann@example.org"},
		"subject": {"Hi"},
		"message": {"Hello"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not be sent")
	assert.Contains(t, rec.Body.String(), "Hello</textarea>")
}

func TestMetrics(t *testing.T) {
	h := newHarness(t, 100)
	h.get("/news")
	h.get("/news")

	rec := h.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `portfolio_http_requests_total{method="GET",route="/news",status="200"} 2`)
	assert.Contains(t, body, `portfolio_content_cache_results_total{kind="news",result="miss"} 1`)
	assert.Contains(t, body, `portfolio_content_cache_results_total{kind="news",result="hit"} 1`)
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/admin"},
		{"/admin/news", "/admin/news"},
		{"/admin/news?q=x", "/admin/news?q=x"},
		{"https://evil.example", "/admin"},
		{"//evil.example/admin", "/admin"},
		{"/news", "/admin"},
		{"/admin/login", "/admin"},
		{"/admin\\..\\evil", "/admin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.next), "safeNext(%q)", tt.next)
	}
}

func TestLimiterSweep(t *testing.T) {
	l := newLimiter(1)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	l.sweep(time.Now().Add(time.Minute))
	assert.True(t, l.allow("a"))
}
