// Package credential moves access tokens between the server and clients.
// Exactly one Transport is active, chosen from configuration at startup.
package credential

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PitokDf/express-app-useable/internal/config"
)

// Transport carries a token on requests and responses.
type Transport interface {
	Name() string
	// Extract returns the token presented by the request, or "".
	Extract(r *http.Request) string
	// Attach hands a freshly issued token to the client.
	Attach(w http.ResponseWriter, token string, expiresAt time.Time)
	// Clear tells the client to discard its token.
	Clear(w http.ResponseWriter)
}

// New returns the transport selected by cfg.Transport.
func New(cfg config.AuthConfig) (Transport, error) {
	switch cfg.Transport {
	case "cookie":
		return NewCookieTransport(cfg.CookieName, cfg.CookieDomain, cfg.CrossSiteCookies), nil
	case "header":
		return HeaderTransport{}, nil
	default:
		return nil, fmt.Errorf("unknown credential transport %q", cfg.Transport)
	}
}

// CookieTransport keeps the token in an HttpOnly cookie.
type CookieTransport struct {
	name      string
	domain    string
	crossSite bool
}

// NewCookieTransport creates a cookie transport. Cookies are Secure only
// when a domain is configured; cross-site cookies use SameSite=None.
func NewCookieTransport(name, domain string, crossSite bool) *CookieTransport {
	return &CookieTransport{name: name, domain: domain, crossSite: crossSite}
}

func (t *CookieTransport) Name() string { return "cookie" }

func (t *CookieTransport) Extract(r *http.Request) string {
	c, err := r.Cookie(t.name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (t *CookieTransport) Attach(w http.ResponseWriter, token string, expiresAt time.Time) {
	c := t.cookie(token)
	c.Expires = expiresAt.UTC()
	c.MaxAge = int(time.Until(expiresAt).Seconds())
	if c.MaxAge <= 0 {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

func (t *CookieTransport) Clear(w http.ResponseWriter) {
	c := t.cookie("")
	c.Expires = time.Unix(0, 0).UTC()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (t *CookieTransport) cookie(value string) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if t.crossSite {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     t.name,
		Value:    value,
		Path:     "/",
		Domain:   t.domain,
		HttpOnly: true,
		Secure:   t.domain != "",
		SameSite: sameSite,
	}
}

// HeaderTransport uses "Authorization: Bearer <token>".
type HeaderTransport struct{}

func (HeaderTransport) Name() string { return "header" }

func (HeaderTransport) Extract(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (HeaderTransport) Attach(w http.ResponseWriter, token string, _ time.Time) {
	w.Header().Set("Authorization", "Bearer "+token)
}

// Clear is a no-op: the server cannot remove a header the client stores.
func (HeaderTransport) Clear(http.ResponseWriter) {}
