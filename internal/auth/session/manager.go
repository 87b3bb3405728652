package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/config"
)

const CookieName = "_sid"

// Manager carries access tokens in an HTTP-only cookie.
type Manager struct {
	secure bool
	clock  clock.Clock
}

func NewManager(cfg config.Config, clk clock.Clock) *Manager {
	return &Manager{secure: cfg.AuthCookieSecure, clock: clk}
}

// Token returns the access token of the request, preferring the bearer
// header over the cookie.
func (m *Manager) Token(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
	}
	token, err := c.Cookie(CookieName)
	if err != nil || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := max(int(expiresAt.Sub(m.clock.Now()).Seconds()), 0)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.secure, true)
}
