package http

import (
	"log"
	"net/http"

	"gameshow-quiz-service/internal/domain"
	"gameshow-quiz-service/internal/engine"

	"github.com/gorilla/websocket"
)

// ControlHandler gives the show driver (admin console or robot controller) a
// persistent command channel. Every inbound command gets exactly one reply;
// nothing is pushed unsolicited, so the player-facing contract stays
// poll-only.
type ControlHandler struct {
	engine          *engine.Engine
	leaderboardSize int
	upgrader        websocket.Upgrader
}

func NewControlHandler(e *engine.Engine, leaderboardSize int) *ControlHandler {
	return &ControlHandler{
		engine:          e,
		leaderboardSize: leaderboardSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type controlCommand struct {
	Type string `json:"type"`
}

type controlReply struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type controlError struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and runs the command loop. Commands are
// handled sequentially on this connection; the engine's own guard serializes
// them against concurrent HTTP traffic.
func (h *ControlHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("control ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var cmd controlCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		reply := h.dispatch(r, cmd)
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("control ws write error: %v", err)
			return
		}
	}
}

func (h *ControlHandler) dispatch(r *http.Request, cmd controlCommand) controlReply {
	switch cmd.Type {
	case "status":
		status, err := h.engine.Status("")
		if err != nil {
			return errorReply(err)
		}
		return controlReply{Type: "status", Payload: status}
	case "players":
		return controlReply{Type: "players", Payload: map[string][]string{"players": h.engine.PlayerNames()}}
	case "start":
		if err := h.engine.Start(); err != nil {
			return errorReply(err)
		}
		return controlReply{Type: "started"}
	case "reveal_options":
		start, err := h.engine.RevealOptions()
		if err != nil {
			return errorReply(err)
		}
		return controlReply{Type: "options_revealed", Payload: revealResponse{Success: true, Message: "options revealed", WindowStart: start}}
	case "show_answers":
		results, err := h.engine.ShowAnswers()
		if err != nil {
			return errorReply(err)
		}
		return controlReply{Type: "answers", Payload: results}
	case "show_leaderboard":
		entries, err := h.engine.ShowLeaderboard()
		if err != nil {
			return errorReply(err)
		}
		return controlReply{Type: "leaderboard", Payload: leaderboardResponse{Success: true, Leaderboard: h.trimEntries(entries)}}
	case "leaderboard":
		return controlReply{Type: "leaderboard", Payload: leaderboardResponse{Leaderboard: h.trimEntries(h.engine.Leaderboard())}}
	case "next":
		phase, err := h.engine.Next()
		if err != nil {
			return errorReply(err)
		}
		return controlReply{Type: "phase", Payload: map[string]domain.Phase{"phase": phase}}
	case "results":
		results, err := h.engine.Results()
		if err != nil {
			return errorReply(err)
		}
		return controlReply{Type: "results", Payload: results}
	case "reset":
		if err := h.engine.Reset(r.Context()); err != nil {
			return errorReply(err)
		}
		return controlReply{Type: "reset"}
	default:
		return controlReply{Type: "error", Payload: controlError{Message: "unsupported command type"}}
	}
}

func (h *ControlHandler) trimEntries(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	if h.leaderboardSize > 0 && len(entries) > h.leaderboardSize {
		return entries[:h.leaderboardSize]
	}
	return entries
}

func errorReply(err error) controlReply {
	return controlReply{Type: "error", Payload: controlError{Message: err.Error()}}
}
