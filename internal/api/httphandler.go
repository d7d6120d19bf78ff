package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"profiledir/internal/directory"
	"profiledir/internal/teams"
	"profiledir/internal/templates"
	"profiledir/internal/types"
)

type Handler struct {
	Directory *directory.Directory
	Registry  *teams.Registry
	Endpoints *teams.EndpointStore
	Templates *templates.Store
}

func NewHandler(dir *directory.Directory, reg *teams.Registry, eps *teams.EndpointStore, tpl *templates.Store) *Handler {
	return &Handler{
		Directory: dir,
		Registry:  reg,
		Endpoints: eps,
		Templates: tpl,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /profile", h.handleGetProfile)
	mux.HandleFunc("POST /profile", h.handleUpdateProfile)
	mux.HandleFunc("DELETE /profile", h.handleRemoveProfile)
	mux.HandleFunc("GET /profile/can-update", h.handleCanUpdate)
	mux.HandleFunc("GET /bot", h.handleGetBot)
	mux.HandleFunc("POST /bot", h.handleSaveBot)
	mux.HandleFunc("GET /bots", h.handleAllBots)
	mux.HandleFunc("GET /teams", h.handleGetTeam)
	mux.HandleFunc("GET /teams/all", h.handleAllTeams)
	mux.HandleFunc("POST /teams", h.handleSaveTeam)
	mux.HandleFunc("POST /teams/leave", h.handleLeaveTeam)
	mux.HandleFunc("DELETE /teams", h.handleDissolveTeam)
	mux.HandleFunc("GET /templates", h.handleAllTemplates)
	mux.HandleFunc("GET /templates/search", h.handleSearchTemplates)
	mux.HandleFunc("POST /templates", h.handleSaveTemplate)
	mux.HandleFunc("DELETE /templates", h.handleDeleteTemplate)
	mux.HandleFunc("POST /webhooks", h.handleSaveWebhook)
	mux.HandleFunc("DELETE /webhooks", h.handleDeleteWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// statusFor maps the error taxonomy onto HTTP codes: not-found 404, capacity
// 429, validation 400, authorization 403, feature-disabled 403, store 500.
func statusFor(err error) int {
	var taken *types.MemberTakenError
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDailyBudget):
		return http.StatusTooManyRequests
	case errors.Is(err, types.ErrSlotOutOfRange),
		errors.Is(err, types.ErrInvalidRoster),
		errors.As(err, &taken):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotCaptain),
		errors.Is(err, types.ErrFeatureDisabled):
		return http.StatusForbidden
	case errors.Is(err, types.ErrMultipleTeams):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		// operational failure, keep the body generic
		http.Error(w, "internal error", code)
		return
	}
	http.Error(w, err.Error(), code)
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Body.Close()
	}()
	return json.Unmarshal(body, v)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p *types.Profile
	var err error
	if id := r.URL.Query().Get("id"); id != "" {
		p, err = h.Directory.ProfileByID(ctx, id)
	} else {
		p, err = h.Directory.Profile(ctx, r.URL.Query().Get("user"))
	}
	if err != nil {
		fail(w, err)
		return
	}
	if p == nil {
		fail(w, types.ErrNotFound)
		return
	}
	_ = writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string               `json:"userId"`
		Changes     types.ProfileChanges `json:"changes"`
		BumpVersion bool                 `json:"bumpVersion"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	id, err := h.Directory.UpdateProfile(r.Context(), req.UserID, req.Changes, req.BumpVersion)
	if err != nil {
		fail(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) handleRemoveProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.RemoveProfile(r.Context(), r.URL.Query().Get("user")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCanUpdate(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Directory.CanUpdate(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		fail(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{"canUpdate": ok})
}

func (h *Handler) handleGetBot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var b *types.BotRecord
	var err error
	if id := r.URL.Query().Get("id"); id != "" {
		b, err = h.Directory.Bot(ctx, id)
	} else {
		b, err = h.Directory.BotByKey(ctx, r.URL.Query().Get("user"))
	}
	if err != nil {
		fail(w, err)
		return
	}
	if b == nil {
		fail(w, types.ErrNotFound)
		return
	}
	_ = writeJSON(w, http.StatusOK, b)
}

func (h *Handler) handleSaveBot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string           `json:"userId"`
		Changes     types.BotChanges `json:"changes"`
		BumpVersion bool             `json:"bumpVersion"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	id, err := h.Directory.SaveBot(r.Context(), req.UserID, req.Changes, req.BumpVersion)
	if err != nil {
		fail(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) handleAllBots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.Directory.AllBots(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, bots)
}

func (h *Handler) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	t, err := h.Registry.Team(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		fail(w, err)
		return
	}
	if t == nil {
		fail(w, types.ErrNotFound)
		return
	}
	_ = writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleAllTeams(w http.ResponseWriter, r *http.Request) {
	list, err := h.Registry.All(r.Context(), r.URL.Query().Get("tournament"))
	if err != nil {
		fail(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleSaveTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string   `json:"userId"`
		Team       []string `json:"team"`
		Captain    string   `json:"captain"`
		Name       string   `json:"name"`
		Tournament string   `json:"tournament"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.Registry.Save(r.Context(), req.UserID, req.Team, req.Captain, req.Name, req.Tournament); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleLeaveTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.Registry.Leave(r.Context(), req.UserID); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleDissolveTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.Dissolve(r.Context(), r.URL.Query().Get("captain")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleAllTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.Templates.All(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleSearchTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.Templates.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		fail(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID          string   `json:"userId"`
		Slot            string   `json:"slot"`
		URL             string   `json:"url"`
		DeleteHash      string   `json:"deleteHash"`
		Name            string   `json:"name"`
		Keywords        []string `json:"keywords"`
		FriendCodeColor string   `json:"color_friendcode"`
		NameColor       string   `json:"color_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	t, err := h.Templates.Update(r.Context(), req.UserID, req.Slot, req.URL, req.DeleteHash, req.Name, req.Keywords, req.FriendCodeColor, req.NameColor)
	if err != nil {
		fail(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.Templates.Delete(r.Context(), q.Get("user"), q.Get("slot")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSaveWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		URL    string `json:"url"`
		Filter string `json:"filter"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.URL == "" {
		http.Error(w, "userId and url are required", http.StatusBadRequest)
		return
	}
	if err := h.Endpoints.Save(r.Context(), req.UserID, req.URL, req.Filter); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.Endpoints.Delete(r.Context(), r.URL.Query().Get("user")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
