package handlers

import (
	"net/http"

	"github.com/example/movie-platform/internal/platform/signing"
)

// Playback handles GET /v1/playback. It verifies the signed params issued
// by GetStreamingLinks and redirects the player to the provider URL.
// Anything invalid or expired gets an opaque 403.
func Playback(s *signing.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL, uid, exp, sig, err := signing.ExtractSigned(r.URL.Query())
		if err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if !s.Verify(rawURL, uid, exp, sig) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		http.Redirect(w, r, rawURL, http.StatusFound)
	}
}
