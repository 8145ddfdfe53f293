package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 300,
		"message": message,
		"data":    data,
	})
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/", 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestListDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/news", r.URL.Path)
		writeEnvelope(w, http.StatusOK, []content.News{
			{ID: "1", Title: "Award", Slug: "award", Category: "Award", Date: "2024-01-01"},
		}, "ok")
	})

	var news []content.News
	require.NoError(t, c.List(context.Background(), content.KindNews, &news))
	require.Len(t, news, 1)
	assert.Equal(t, "award", news[0].Slug)
}

func TestGetEscapesSlugAndMapsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/a%20b", r.URL.EscapedPath())
		writeEnvelope(w, http.StatusNotFound, nil, "project not found")
	})

	var p content.Project
	err := c.Get(context.Background(), content.KindProjects, "a b", &p)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "project not found")
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.ListRaw(context.Background(), content.KindGallery)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Message, "upstream exploded")
}

func TestTokenIsForwarded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "unauthorized")
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"success":true,"message":"deleted","data":null}`)
	})

	err := c.Delete(context.Background(), content.KindNews, "n1")
	assert.True(t, IsUnauthorized(err))

	require.NoError(t, c.WithToken("secret").Delete(context.Background(), content.KindNews, "n1"))
	// WithToken does not mutate the original client
	assert.True(t, IsUnauthorized(c.Delete(context.Background(), content.KindNews, "n1")))
}

func TestCreateSendsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/publications", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Storm cells", r.FormValue("title"))
		assert.Equal(t, []string{"ml", "climate"}, r.MultipartForm.Value["tags"])

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "cover.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(body))

		writeEnvelope(w, http.StatusCreated, map[string]string{"_id": "p9"}, "created")
	})

	form := NewForm().
		Set("title", "Storm cells").
		Add("tags", "ml", "climate").
		Attach(File{Field: "image", Filename: "cover.png", Data: strings.NewReader("PNGDATA")})

	data, err := c.WithToken("t").Create(context.Background(), content.KindPublications, form)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"p9"}`, string(data))
}

func TestUpdateUsesPatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/gallery/g1", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]string{"_id": "g1"}, "updated")
	})
	_, err := c.Update(context.Background(), content.KindGallery, "g1", NewForm().Set("title", "x"))
	require.NoError(t, err)
}

func TestSignInAndSelf(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signin":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "hunter2" {
				writeEnvelope(w, http.StatusUnauthorized, nil, "invalid credentials")
				return
			}
			writeEnvelope(w, http.StatusOK, SignInResult{
				Token: "tok",
				User:  Account{ID: "u1", Email: body["email"], Role: "admin"},
			}, "")
		case "/api/users/self":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeEnvelope(w, http.StatusOK, Account{ID: "u1", Role: "admin"}, "")
		default:
			http.NotFound(w, r)
		}
	})

	_, err := c.SignIn(context.Background(), "a@b.c", "wrong")
	assert.True(t, IsUnauthorized(err))

	res, err := c.SignIn(context.Background(), "a@b.c", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "admin", res.User.Role)

	acct, err := c.Self(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", acct.ID)
}

func TestSignInWithoutTokenFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"user": map[string]string{"_id": "u1"}}, "")
	})
	_, err := c.SignIn(context.Background(), "a@b.c", "pw")
	assert.Error(t, err)
}

func TestSendContact(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/contact", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var msg ContactMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "Hello", msg.Subject)
		writeEnvelope(w, http.StatusOK, nil, "sent")
	})
	require.NoError(t, c.SendContact(context.Background(), ContactMessage{Name: "n", Email: "e@x.y", Subject: "Hello", Message: "m"}))
}

func TestNewRejectsBadScheme(t *testing.T) {
	_, err := New("ftp://example.org", time.Second)
	assert.Error(t, err)
}
