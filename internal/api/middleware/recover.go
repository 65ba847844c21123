package middleware

import (
	"fmt"
	"net/http"

	"github.com/PitokDf/express-app-useable/internal/api"
)

// Recover turns a handler panic into a 500 envelope via the error
// classifier, which logs the stack. http.ErrAbortHandler is re-panicked so
// net/http can abort the connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			api.HandleAPIError(w, r, fmt.Errorf("panic: %v", rec))
		}()
		next.ServeHTTP(w, r)
	})
}

// APIVersion sets the X-API-Version header on every response.
func APIVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", api.APIVersion)
		next.ServeHTTP(w, r)
	})
}
