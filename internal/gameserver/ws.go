package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/cory-johannsen/nightfall/internal/game/session"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
	"github.com/cory-johannsen/nightfall/internal/storage/postgres"
)

// maxSettingsBytes bounds the settings document accepted by POST /rooms.
const maxSettingsBytes = 64 << 10

// Checker reports whether a dependency is healthy.
type Checker interface {
	Check(ctx context.Context) error
}

// History serves finished games from the statistics store.
type History interface {
	Recent(ctx context.Context, limit int) ([]postgres.GameRecord, error)
	Get(ctx context.Context, id string) (postgres.GameRecord, error)
}

// Handler serves the HTTP and websocket surface of the room manager.
type Handler struct {
	rooms   *Manager
	checks  map[string]Checker
	history History
	origins []string
	log     *zap.Logger
}

// NewHandler creates a Handler. history may be nil when statistics are not
// persisted.
//
// Precondition: rooms and logger must be non-nil.
func NewHandler(rooms *Manager, checks map[string]Checker, history History, origins []string, logger *zap.Logger) *Handler {
	return &Handler{rooms: rooms, checks: checks, history: history, origins: origins, log: logger}
}

// Routes returns the router for every endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", h.listRooms)
		r.Post("/", h.createRoom)
		r.Get("/{roomID}/ws", h.connect)
	})
	r.Route("/games", func(r chi.Router) {
		r.Get("/", h.recentGames)
		r.Get("/{gameID}", h.getGame)
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			h.log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type result struct {
		Status string `json:"status"`
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]result{"rooms": {Status: "ok"}}
	status := http.StatusOK
	for name, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.log.Error("health check failed", zap.String("name", name), zap.Error(err))
			checks[name] = result{Status: "error"}
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = result{Status: "ok"}
	}
	writeJSON(w, status, checks)
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rooms.List(r.Context()))
}

// createRoom opens a room. The optional body is a settings YAML document.
func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	var s *settings.Settings
	if len(body) > 0 {
		s, err = settings.Parse(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	room, err := h.rooms.Create(s)
	switch {
	case errors.Is(err, ErrTooManyRooms):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.log.Warn("creating room", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": room.ID()})
}

// connect upgrades to a websocket. ?name= joins the lobby; ?token=
// reattaches an existing seat.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	token := r.URL.Query().Get("token")
	name := r.URL.Query().Get("name")
	var e *session.Entity
	switch {
	case token != "":
		e, err = room.Connect(r.Context(), token)
	case name != "":
		var sess session.Session
		sess, e, err = room.Join(r.Context(), name)
		token = sess.Token
	default:
		writeError(w, http.StatusBadRequest, "name or token is required")
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn("websocket accept failed", zap.Error(err))
		room.Disconnect(token, e)
		return
	}
	defer conn.CloseNow()

	h.serve(r.Context(), conn, room, token, e)
}

// serve pumps the entity's packets to the client and the client's messages
// to the room until either side goes away.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, room *Room, token string, e *session.Entity) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		for data := range e.Events() {
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				h.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug("websocket read ended", zap.Error(err))
			room.Disconnect(token, e)
			return
		}
		if err := room.Message(ctx, token, data); err != nil {
			room.Disconnect(token, e)
			return
		}
	}
}

func (h *Handler) recentGames(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "statistics are not persisted")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	games, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("listing games", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing games")
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "statistics are not persisted")
		return
	}
	game, err := h.history.Get(r.Context(), chi.URLParam(r, "gameID"))
	switch {
	case errors.Is(err, postgres.ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.log.Error("loading game", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "loading game")
	default:
		writeJSON(w, http.StatusOK, game)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRoomClosed):
		return http.StatusGone
	default:
		return http.StatusConflict
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
