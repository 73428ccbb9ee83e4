package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/warp/repboard/generic"
)

// CookieName names the active-session cookie.
const CookieName = "active_session"

// CookieMaxAge is how long an activation lasts.
const CookieMaxAge = 30 * 24 * time.Hour

// CookieConfig holds the signing keys. HashKey is required (32 or 64 bytes
// recommended); BlockKey, when set, also encrypts the value.
type CookieConfig struct {
	HashKey  []byte
	BlockKey []byte
	Secure   bool
}

// Cookies issues and reads the signed active-session cookie.
type Cookies struct {
	codec  *securecookie.SecureCookie
	secure bool
}

func NewCookies(cfg CookieConfig) (*Cookies, error) {
	if len(cfg.HashKey) == 0 {
		return nil, errors.New("session cookie: hash key is required")
	}
	var block []byte
	if len(cfg.BlockKey) > 0 {
		block = cfg.BlockKey
	}
	codec := securecookie.New(cfg.HashKey, block)
	codec.MaxAge(int(CookieMaxAge.Seconds()))
	return &Cookies{codec: codec, secure: cfg.Secure}, nil
}

// Issue writes an HttpOnly, SameSite=Strict cookie naming the session.
func (c *Cookies) Issue(w http.ResponseWriter, id generic.SessionID) error {
	value, err := c.codec.Encode(CookieName, int64(id))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		Expires:  time.Now().Add(CookieMaxAge),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Clear expires the cookie on the client.
func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ActiveID decodes the cookie. Missing, expired or tampered cookies all
// return nil.
func (c *Cookies) ActiveID(r *http.Request) *generic.SessionID {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	var raw int64
	if err := c.codec.Decode(CookieName, cookie.Value, &raw); err != nil || raw <= 0 {
		return nil
	}
	id := generic.SessionID(raw)
	return &id
}
