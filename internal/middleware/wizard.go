package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/magnogrupo/portal/internal/ctxkeys"
)

const wizardCookieName = "wizard_session"

// WizardSession gives every visitor a stable session id for the submission
// wizard. Guests need it so their staged uploads survive across steps.
func WizardSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session string

		cookie, err := r.Cookie(wizardCookieName)
		if err == nil && cookie.Value != "" {
			session = cookie.Value
		} else {
			session = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     wizardCookieName,
				Value:    session,
				Path:     "/",
				Expires:  time.Now().Add(24 * time.Hour),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := ctxkeys.WithWizardSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
