package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"gameshow-quiz-service/internal/domain"
	"gameshow-quiz-service/internal/engine"
)

// Handler exposes the engine as JSON-over-HTTP. Player endpoints are
// poll-only and side-effect free on reads; driver endpoints advance phases.
type Handler struct {
	engine          *engine.Engine
	leaderboardSize int
}

// NewHandler wires the engine behind the REST API. leaderboardSize caps how
// many ranked rows are shown (0 = all); ranking itself always covers every
// player.
func NewHandler(e *engine.Engine, leaderboardSize int) *Handler {
	return &Handler{engine: e, leaderboardSize: leaderboardSize}
}

// Register attaches all routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	// Player-facing.
	mux.HandleFunc("/api/player/join", h.method(http.MethodPost, h.handleJoin))
	mux.HandleFunc("/api/player/answer", h.method(http.MethodPost, h.handleAnswer))
	mux.HandleFunc("/api/player/status", h.method(http.MethodGet, h.handlePlayerStatus))

	// Driver-facing (admin UI or show robot).
	mux.HandleFunc("/api/status", h.method(http.MethodGet, h.handleStatus))
	mux.HandleFunc("/api/players", h.method(http.MethodGet, h.handlePlayers))
	mux.HandleFunc("/api/start", h.method(http.MethodPost, h.handleStart))
	mux.HandleFunc("/api/reveal_options", h.method(http.MethodPost, h.handleRevealOptions))
	mux.HandleFunc("/api/show_answers", h.method(http.MethodPost, h.handleShowAnswers))
	mux.HandleFunc("/api/show_leaderboard", h.method(http.MethodPost, h.handleShowLeaderboard))
	mux.HandleFunc("/api/leaderboard", h.method(http.MethodGet, h.handleLeaderboard))
	mux.HandleFunc("/api/next", h.method(http.MethodPost, h.handleNext))
	mux.HandleFunc("/api/results", h.method(http.MethodGet, h.handleResults))
	mux.HandleFunc("/api/reset", h.method(http.MethodPost, h.handleReset))
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type answerRequest struct {
	PlayerID string `json:"player_id"`
	Answer   *int   `json:"answer"`
}

type answerResponse struct {
	Success bool `json:"success"`
	Points  int  `json:"points"`
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type revealResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	WindowStart time.Time `json:"window_start"`
}

type showAnswersResponse struct {
	Success bool `json:"success"`
	domain.QuestionResults
}

type leaderboardResponse struct {
	Success     bool                      `json:"success,omitempty"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type nextResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Phase   domain.Phase `json:"phase"`
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id, err := h.engine.Join(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	player, err := h.engine.Player(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{PlayerID: id, PlayerName: player.Name})
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Answer == nil {
		writeErrorMessage(w, http.StatusBadRequest, "missing answer")
		return
	}
	points, err := h.engine.SubmitAnswer(req.PlayerID, *req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Success: true, Points: points})
}

func (h *Handler) handlePlayerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status(r.URL.Query().Get("player_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := h.engine.Status("")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handlePlayers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.PlayerNames())
}

func (h *Handler) handleStart(w http.ResponseWriter, _ *http.Request) {
	if err := h.engine.Start(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Success: true, Message: "quiz started"})
}

func (h *Handler) handleRevealOptions(w http.ResponseWriter, _ *http.Request) {
	start, err := h.engine.RevealOptions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revealResponse{Success: true, Message: "options revealed", WindowStart: start})
}

func (h *Handler) handleShowAnswers(w http.ResponseWriter, _ *http.Request) {
	results, err := h.engine.ShowAnswers()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, showAnswersResponse{Success: true, QuestionResults: results})
}

func (h *Handler) handleShowLeaderboard(w http.ResponseWriter, _ *http.Request) {
	entries, err := h.engine.ShowLeaderboard()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Success: true, Leaderboard: h.trim(entries)})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: h.trim(h.engine.Leaderboard())})
}

func (h *Handler) handleNext(w http.ResponseWriter, _ *http.Request) {
	phase, err := h.engine.Next()
	if err != nil {
		writeError(w, err)
		return
	}
	message := "next question"
	if phase == domain.PhaseFinished {
		message = "quiz finished"
	}
	writeJSON(w, http.StatusOK, nextResponse{Success: true, Message: message, Phase: phase})
}

func (h *Handler) handleResults(w http.ResponseWriter, _ *http.Request) {
	results, err := h.engine.Results()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Success: true, Message: "quiz reset"})
}

func (h *Handler) trim(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	if h.leaderboardSize > 0 && len(entries) > h.leaderboardSize {
		return entries[:h.leaderboardSize]
	}
	return entries
}

func (h *Handler) method(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// clientErrors are the caller-correctable conditions; everything else is a
// server fault.
var clientErrors = []error{
	domain.ErrInvalidName,
	domain.ErrUnknownPlayer,
	domain.ErrInvalidOption,
	domain.ErrDuplicateAnswer,
	domain.ErrNotAnswering,
	domain.ErrInvalidTransition,
	domain.ErrTooFewPlayers,
	domain.ErrWrongPhase,
}

func writeError(w http.ResponseWriter, err error) {
	for _, sentinel := range clientErrors {
		if errors.Is(err, sentinel) {
			writeErrorMessage(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	log.Printf("internal error: %v", err)
	writeErrorMessage(w, http.StatusInternalServerError, "internal error")
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
