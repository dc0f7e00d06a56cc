package locale

import (
	"net/http"
	"time"
)

const cookieMaxAge = int(365 * 24 * time.Hour / time.Second)

// SetCookie persists the visitor's locale choice for one year. The Secure
// flag is set only for production deployments so that local development over
// plain HTTP still round-trips the cookie.
func SetCookie(w http.ResponseWriter, code Locale, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(code),
		Path:     "/",
		MaxAge:   cookieMaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}
