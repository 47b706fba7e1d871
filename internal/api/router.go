package api

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/user/termdemo/internal/db"
	"github.com/user/termdemo/internal/hub"
	"github.com/user/termdemo/internal/scenario"
	"github.com/user/termdemo/internal/session"
)

type controller interface {
	Scenarios() []scenario.Scenario
	Status() session.Status
	Control(msg hub.ClientMessage) error
}

type handler struct {
	ctrl     controller
	castRepo *db.CastRepo
}

// NewRouter serves the demo API. conn may be nil, in which case the cast
// endpoints answer 503.
func NewRouter(ctrl controller, conn *sql.DB, token string) http.Handler {
	handler := &handler{ctrl: ctrl}
	if conn != nil {
		handler.castRepo = db.NewCastRepo(conn)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/scenarios", handler.listScenarios)
	mux.HandleFunc("GET /api/scenarios/{index}", handler.getScenario)
	mux.HandleFunc("GET /api/status", handler.getStatus)
	mux.HandleFunc("POST /api/control", handler.postControl)

	mux.HandleFunc("GET /api/casts", handler.listCasts)
	mux.HandleFunc("GET /api/casts/{id}", handler.getCast)
	mux.HandleFunc("GET /api/casts/{id}/download", handler.downloadCast)
	mux.HandleFunc("DELETE /api/casts/{id}", handler.deleteCast)

	wrapped := authMiddleware(token)(jsonMiddleware(corsMiddleware(mux)))
	return wrapped
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			jsonError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}
