package api

import (
	"net/http"
	"strconv"

	"github.com/user/termdemo/internal/archive"
	"github.com/user/termdemo/internal/db"
)

func (h *handler) requireCasts(w http.ResponseWriter) bool {
	if h.castRepo == nil {
		jsonError(w, http.StatusServiceUnavailable, "cast archive unavailable")
		return false
	}
	return true
}

func (h *handler) listCasts(w http.ResponseWriter, r *http.Request) {
	if !h.requireCasts(w) {
		return
	}
	filter := db.CastFilter{Title: r.URL.Query().Get("title")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			jsonError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	casts, err := h.castRepo.List(r.Context(), filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, casts)
}

func (h *handler) getCast(w http.ResponseWriter, r *http.Request) {
	if !h.requireCasts(w) {
		return
	}
	cast, err := h.castRepo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cast == nil {
		jsonError(w, http.StatusNotFound, "cast not found")
		return
	}
	jsonResponse(w, http.StatusOK, cast)
}

func (h *handler) downloadCast(w http.ResponseWriter, r *http.Request) {
	if !h.requireCasts(w) {
		return
	}
	id := r.PathValue("id")
	cast, err := h.castRepo.Get(r.Context(), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cast == nil {
		jsonError(w, http.StatusNotFound, "cast not found")
		return
	}
	w.Header().Set("Content-Type", "application/x-asciicast")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.cast"`)
	// Headers go out with the first write, so a late failure only truncates the body.
	_ = archive.Export(r.Context(), h.castRepo, id, w)
}

func (h *handler) deleteCast(w http.ResponseWriter, r *http.Request) {
	if !h.requireCasts(w) {
		return
	}
	id := r.PathValue("id")
	cast, err := h.castRepo.Get(r.Context(), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cast == nil {
		jsonError(w, http.StatusNotFound, "cast not found")
		return
	}
	if err := h.castRepo.Delete(r.Context(), id); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}
