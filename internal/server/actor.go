package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/marcochiesi/editorial-access-manager/internal/routing"
)

type actorCtxKey struct{}

func withActorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, id)
}

func currentActor(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorCtxKey{}).(int64)
	return id, ok
}

// withActor takes the acting user from the header set by the trusted
// upstream. Ops and static routes are served without one.
func withActor(classifier *routing.Classifier, header string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := classifier.Classify(r.URL.Path)
		if rc == routing.RouteClassOps || rc == routing.RouteClassStatic {
			next.ServeHTTP(w, r)
			return
		}

		raw := strings.TrimSpace(r.Header.Get(header))
		if raw == "" {
			routing.WriteError(w, r, rc, http.StatusUnauthorized, "unauthenticated", "actor required")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			routing.WriteError(w, r, rc, http.StatusUnauthorized, "unauthenticated", "invalid actor")
			return
		}
		next.ServeHTTP(w, r.WithContext(withActorID(r.Context(), id)))
	})
}
