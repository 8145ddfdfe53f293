package web

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/richtext"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errItemNotFound = &api.Error{Status: http.StatusNotFound, Message: "item not found"}

type loginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type loginBody struct {
	Email  string
	Next   string
	Error  string
	Errors map[string]string
}

func (s *Server) loginForm(c *gin.Context) {
	if sess := sessionFrom(c); sess != nil && session.Allowed(sess.User()) {
		c.Redirect(http.StatusFound, safeNext(c.Query("next")))
		return
	}
	s.render(c, http.StatusOK, "login", s.meta(c, "Sign in", ""), loginBody{Next: c.Query("next")})
}

func (s *Server) loginSubmit(c *gin.Context) {
	var in loginInput
	_ = c.ShouldBind(&in)
	body := loginBody{Email: in.Email, Next: in.Next}
	if errs := validationErrors(validate.Struct(in)); len(errs) > 0 {
		body.Errors = errs
		s.render(c, http.StatusUnprocessableEntity, "login", s.meta(c, "Sign in", ""), body)
		return
	}

	// a fresh session on every sign-in; the old one is dropped
	if old, err := c.Cookie(sessionCookie); err == nil {
		s.sessions.Remove(old)
	}
	id, sess := s.sessions.Create()
	user, err := sess.Login(c.Request.Context(), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		s.sessions.Remove(id)
		status := http.StatusBadGateway
		body.Error = "Sign-in is unavailable right now. Please try again later."
		if api.IsUnauthorized(err) {
			status = http.StatusUnauthorized
			body.Error = "Invalid email or password."
		}
		s.logger.Warn("sign in failed", zap.String("email", in.Email), zap.Error(err))
		s.render(c, status, "login", s.meta(c, "Sign in", ""), body)
		return
	}
	if !session.Allowed(user) {
		s.sessions.Remove(id)
		body.Error = "Your account cannot access the admin area."
		s.render(c, http.StatusForbidden, "login", s.meta(c, "Sign in", ""), body)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL() / time.Second),
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	setFlash(c, flashSuccess, "Welcome back, "+firstNonEmpty(user.Info.Name, user.Info.Email)+".")
	c.Redirect(http.StatusSeeOther, safeNext(in.Next))
}

func (s *Server) clearSession(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		s.sessions.Remove(id)
		s.dropDrafts(id)
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (s *Server) logout(c *gin.Context) {
	s.clearSession(c)
	setFlash(c, flashSuccess, "You have been signed out.")
	c.Redirect(http.StatusSeeOther, "/admin/login")
}

type dashboardRow struct {
	Kind  content.Kind
	Count int
	Error bool
}

func (s *Server) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	counters := []struct {
		kind  content.Kind
		count func(context.Context) (int, error)
	}{
		{content.KindNews, func(ctx context.Context) (int, error) { v, err := s.content.News(ctx); return len(v), err }},
		{content.KindProjects, func(ctx context.Context) (int, error) { v, err := s.content.Projects(ctx); return len(v), err }},
		{content.KindPublications, func(ctx context.Context) (int, error) { v, err := s.content.Publications(ctx); return len(v), err }},
		{content.KindGallery, func(ctx context.Context) (int, error) { v, err := s.content.Gallery(ctx); return len(v), err }},
	}

	rows := make([]dashboardRow, len(counters))
	var g errgroup.Group
	for i, ct := range counters {
		g.Go(func() error {
			n, err := ct.count(ctx)
			rows[i] = dashboardRow{Kind: ct.kind, Count: n, Error: err != nil}
			if err != nil {
				s.logger.Warn("dashboard count", zap.String("kind", string(ct.kind)), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	s.render(c, http.StatusOK, "dashboard", s.meta(c, "Dashboard", ""), rows)
}

// adminKind serves the CRUD pages of one content kind.
type adminKind struct {
	s    *Server
	kind content.Kind
}

type toolButton struct {
	Name  string
	Label string
}

var toolbar = []toolButton{
	{richtext.Bold, "B"},
	{richtext.Italic, "I"},
	{richtext.Underline, "U"},
	{richtext.H1, "H1"},
	{richtext.H2, "H2"},
	{richtext.H3, "H3"},
	{richtext.Paragraph, "¶"},
	{richtext.BulletList, "• List"},
	{richtext.NumberList, "1. List"},
	{richtext.Link, "Link"},
	{richtext.Undo, "Undo"},
	{richtext.Redo, "Redo"},
}

type formBody struct {
	Kind          content.Kind
	Heading       string
	Action        string
	Fields        []formField
	Image         string
	ImageRequired bool
	Toolbar       []toolButton
	Error         string
}

func (h *adminKind) base() string {
	return "/admin/" + h.kind.Path()
}

func (h *adminKind) list(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		body listing
		err  error
	)
	switch h.kind {
	case content.KindNews:
		var items []content.News
		if items, err = h.s.content.News(ctx); err == nil {
			body = buildListing(c, h.kind, content.NewsSpec, items, newsCard)
		}
	case content.KindProjects:
		var items []content.Project
		if items, err = h.s.content.Projects(ctx); err == nil {
			body = buildListing(c, h.kind, content.ProjectSpec, items, projectCard)
		}
	case content.KindPublications:
		var items []content.Publication
		if items, err = h.s.content.Publications(ctx); err == nil {
			body = buildListing(c, h.kind, content.PublicationSpec, items, publicationCard)
		}
	case content.KindGallery:
		var items []content.GalleryItem
		if items, err = h.s.content.Gallery(ctx); err == nil {
			body = buildListing(c, h.kind, content.GallerySpec, items, galleryCard)
		}
	}
	if err != nil {
		h.s.fail(c, err)
		return
	}
	body.Action = h.base()
	h.s.render(c, http.StatusOK, "admin_list", h.s.meta(c, "Manage "+h.kind.Label(), ""), body)
}

func findByID[T any](items []T, id string, idOf func(T) string) (T, bool) {
	for _, it := range items {
		if idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// find loads the item with id as a bound form, plus its current image.
func (h *adminKind) find(ctx context.Context, id string) (itemInput, string, error) {
	switch h.kind {
	case content.KindNews:
		items, err := h.s.content.News(ctx)
		if err != nil {
			return nil, "", err
		}
		if n, ok := findByID(items, id, func(n content.News) string { return n.ID }); ok {
			return newsFrom(n), n.Image, nil
		}
	case content.KindProjects:
		items, err := h.s.content.Projects(ctx)
		if err != nil {
			return nil, "", err
		}
		if p, ok := findByID(items, id, func(p content.Project) string { return p.ID }); ok {
			return projectFrom(p), p.Image, nil
		}
	case content.KindPublications:
		items, err := h.s.content.Publications(ctx)
		if err != nil {
			return nil, "", err
		}
		if p, ok := findByID(items, id, func(p content.Publication) string { return p.ID }); ok {
			return publicationFrom(p), p.Image, nil
		}
	case content.KindGallery:
		items, err := h.s.content.Gallery(ctx)
		if err != nil {
			return nil, "", err
		}
		if g, ok := findByID(items, id, func(g content.GalleryItem) string { return g.ID }); ok {
			return galleryFrom(g), g.Image, nil
		}
	}
	return nil, "", errItemNotFound
}

func (h *adminKind) renderForm(c *gin.Context, status int, in itemInput, id, image string, errs map[string]string, msg string) {
	body := formBody{
		Kind:          h.kind,
		Heading:       "New " + h.kind.Singular(),
		Action:        h.base(),
		Image:         image,
		ImageRequired: h.kind == content.KindGallery && id == "",
		Toolbar:       toolbar,
		Error:         msg,
	}
	if id != "" {
		body.Heading = "Edit " + h.kind.Singular()
		body.Action = h.base() + "/" + url.PathEscape(id)
	}
	for _, f := range in.fields() {
		f.Error = errs[f.Name]
		body.Fields = append(body.Fields, f)
	}
	h.s.render(c, status, "admin_form", h.s.meta(c, body.Heading, ""), body)
}

func (h *adminKind) newForm(c *gin.Context) {
	h.renderForm(c, http.StatusOK, newInput(h.kind), "", "", nil, "")
}

func (h *adminKind) editForm(c *gin.Context) {
	in, image, err := h.find(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.s.fail(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, in, c.Param("id"), image, nil, "")
}

func (h *adminKind) create(c *gin.Context) {
	h.save(c, "")
}

func (h *adminKind) update(c *gin.Context) {
	h.save(c, c.Param("id"))
}

// save handles both a formatting command from the toolbar and the final
// submit of a new or edited item.
func (h *adminKind) save(c *gin.Context, id string) {
	in := newInput(h.kind)
	_ = c.ShouldBind(in)
	image := c.PostForm("current_image")
	draftKey := strings.Join([]string{c.GetString(ctxSessionID), string(h.kind), id}, "|")

	if cmd := c.PostForm("_command"); cmd != "" {
		h.format(c, in, id, image, draftKey, cmd)
		return
	}

	errs := validationErrors(validate.Struct(in))
	file, hasFile, err := upload(c)
	if err != nil {
		errs = mergeErr(errs, "image", "The upload could not be read.")
	}
	if hasFile {
		defer file.Close()
	}
	if h.kind == content.KindGallery && id == "" && !hasFile {
		errs = mergeErr(errs, "image", "An image is required.")
	}
	if len(errs) > 0 {
		h.renderForm(c, http.StatusUnprocessableEntity, in, id, image, errs, "Please fix the highlighted fields.")
		return
	}

	in.clean()
	form := in.apiForm()
	if hasFile {
		hdr, _ := c.FormFile("image")
		form.Attach(api.File{Field: "image", Filename: hdr.Filename, Data: file})
	}

	client := h.s.api.WithToken(sessionFrom(c).Token())
	ctx := c.Request.Context()
	verb := "created"
	if id == "" {
		_, err = client.Create(ctx, h.kind, form)
	} else {
		verb = "updated"
		_, err = client.Update(ctx, h.kind, id, form)
	}
	if err != nil {
		h.mutationFailed(c, err, func(msg string) {
			h.renderForm(c, http.StatusBadGateway, in, id, image, nil, msg)
		})
		return
	}

	h.s.dropDraft(draftKey)
	h.invalidate()
	h.s.logger.Info("content "+verb, zap.String("kind", string(h.kind)), zap.String("id", id))
	setFlash(c, flashSuccess, fmt.Sprintf("%s %s.", capitalize(h.kind.Singular()), verb))
	c.Redirect(http.StatusSeeOther, h.base())
}

// format applies one toolbar command to the rich-text field and shows the
// form again without saving.
func (h *adminKind) format(c *gin.Context, in itemInput, id, image, draftKey, cmd string) {
	target := in.richText()
	if target == nil {
		h.renderForm(c, http.StatusUnprocessableEntity, in, id, image, nil, "This form has no formatted text.")
		return
	}
	start, _ := strconv.Atoi(c.PostForm("_start"))
	end, _ := strconv.Atoi(c.PostForm("_end"))

	ed := h.s.draft(draftKey, normalizeNewlines(*target))
	var errs map[string]string
	if err := ed.Apply(richtext.Command{
		Name:  cmd,
		Value: c.PostForm("_link"),
		Start: start,
		End:   end,
	}); err != nil {
		errs = map[string]string{richFieldName(in): formatError(err)}
	}
	*target = ed.Content()
	h.renderForm(c, http.StatusOK, in, id, image, errs, "")
}

func richFieldName(in itemInput) string {
	for _, f := range in.fields() {
		if f.Type == "richtext" {
			return f.Name
		}
	}
	return ""
}

func formatError(err error) string {
	switch {
	case errors.Is(err, richtext.ErrSplitsTag):
		return "The selection cuts through existing formatting. Select whole elements."
	case errors.Is(err, richtext.ErrSelection):
		return "The selection is out of range."
	case errors.Is(err, richtext.ErrLinkURL):
		return "Enter an http, https or mailto address for the link."
	}
	return err.Error()
}

func (h *adminKind) remove(c *gin.Context) {
	id := c.Param("id")
	client := h.s.api.WithToken(sessionFrom(c).Token())
	if err := client.Delete(c.Request.Context(), h.kind, id); err != nil {
		h.mutationFailed(c, err, func(msg string) {
			setFlash(c, flashError, msg)
			c.Redirect(http.StatusSeeOther, h.base())
		})
		return
	}
	h.invalidate()
	h.s.logger.Info("content deleted", zap.String("kind", string(h.kind)), zap.String("id", id))
	setFlash(c, flashSuccess, capitalize(h.kind.Singular())+" deleted.")
	c.Redirect(http.StatusSeeOther, h.base())
}

func (h *adminKind) invalidate() {
	if err := h.s.content.Invalidate(h.kind); err != nil {
		h.s.logger.Warn("invalidating cache", zap.String("kind", string(h.kind)), zap.Error(err))
	}
}

// mutationFailed signs the user out when the API rejects the token and
// otherwise hands a message to show.
func (h *adminKind) mutationFailed(c *gin.Context, err error, show func(msg string)) {
	h.s.logger.Error("content mutation", zap.String("kind", string(h.kind)), zap.Error(err))
	if api.IsUnauthorized(err) {
		h.s.clearSession(c)
		setFlash(c, flashError, "Your session has expired. Please sign in again.")
		c.Redirect(http.StatusFound, "/admin/login?next="+url.QueryEscape(h.base()))
		return
	}
	msg := "The content service rejected the change."
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg += " " + apiErr.Message
	}
	show(msg)
}

func upload(c *gin.Context) (multipart.File, bool, error) {
	hdr, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	f, err := hdr.Open()
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func mergeErr(errs map[string]string, field, msg string) map[string]string {
	if errs == nil {
		errs = make(map[string]string)
	}
	errs[field] = msg
	return errs
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type draft struct {
	buf     *richtext.Buffer
	touched time.Time
}

// draft returns the formatting buffer for key, syncing it to submitted when
// the text was edited by hand since the last command.
func (s *Server) draft(key, submitted string) richtext.Editor {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()
	d, ok := s.drafts[key]
	if !ok {
		d = &draft{buf: richtext.NewBuffer(submitted, nil)}
		s.drafts[key] = d
	} else if d.buf.Content() != submitted {
		d.buf.SetContent(submitted)
	}
	d.touched = time.Now()
	return d.buf
}

func (s *Server) dropDraft(key string) {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()
	delete(s.drafts, key)
}

// dropDrafts forgets every draft of a session.
func (s *Server) dropDrafts(sessionID string) {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()
	for k := range s.drafts {
		if strings.HasPrefix(k, sessionID+"|") {
			delete(s.drafts, k)
		}
	}
}

func (s *Server) sweepDrafts(cutoff time.Time) int {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()
	n := 0
	for k, d := range s.drafts {
		if d.touched.Before(cutoff) {
			delete(s.drafts, k)
			n++
		}
	}
	return n
}
