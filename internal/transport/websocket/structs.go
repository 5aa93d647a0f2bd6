package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type UserRequest struct {
	Username string `json:"username"`
}

type ChallengeRequest struct {
	Sender   string `json:"sender"`
	Opponent string `json:"opponent"`
}

type PairRequest struct {
	Challenger string `json:"challenger"`
	Challengee string `json:"challengee"`
}

type MoveRequest struct {
	SessionID string      `json:"sessionId"`
	Mover     string      `json:"mover"`
	Line      entity.Line `json:"line"`
}

// DoneTurnRequest carries the client's view of the turn, the server only trusts the session id.
type DoneTurnRequest struct {
	SessionID    string       `json:"sessionId"`
	Line         *entity.Line `json:"line,omitempty"`
	UpdatedScore *int         `json:"updatedScore,omitempty"`
}

type RestartRequest struct {
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type ChatRequest struct {
	Text string `json:"text"`
}
