package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const flashCookie = "portfolio_flash"

const (
	flashSuccess = "success"
	flashError   = "error"
)

// flash is a one-shot toast carried to the next page in a cookie.
type flash struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

const ctxFlash = "flash"

func setFlash(c *gin.Context, kind, msg string) {
	b, _ := json.Marshal(flash{Kind: kind, Message: msg})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// nowFlash shows a toast on the page rendered by this request.
func nowFlash(c *gin.Context, kind, msg string) {
	c.Set(ctxFlash, &flash{Kind: kind, Message: msg})
}

// takeFlash returns the pending toast, if any, and clears the cookie so it is
// shown once.
func takeFlash(c *gin.Context) *flash {
	if v, ok := c.Get(ctxFlash); ok {
		if f, ok := v.(*flash); ok {
			return f
		}
	}
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:   flashCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var f flash
	if err := json.Unmarshal(b, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}
