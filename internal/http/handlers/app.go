package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/mediagen"
	"server/internal/middleware"
	"server/internal/storage"
)

// App is the handler container. All endpoints hang off it so routing stays a
// pure wiring concern.
type App struct {
	Orchestrator *mediagen.Orchestrator
	Repo         domain.MediaRepository
	Store        storage.ObjectStore
	Logger       *infra.Logger
}

func NewApp(orchestrator *mediagen.Orchestrator, repo domain.MediaRepository, store storage.ObjectStore, logger *infra.Logger) *App {
	return &App{Orchestrator: orchestrator, Repo: repo, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
