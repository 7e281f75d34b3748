package requestid

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const Header = "X-Request-ID"

type ctxKey struct{}

var newV7 = uuid.NewV7

var acceptable = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// New returns a time-ordered UUIDv7 string.
func New() (string, error) {
	u, err := newV7()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware keeps a well-formed inbound request id, otherwise assigns a new
// one, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !acceptable.MatchString(id) {
			generated, err := New()
			if err != nil {
				http.Error(w, "request id unavailable", http.StatusInternalServerError)
				return
			}
			id = generated
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}
