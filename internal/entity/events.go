package entity

import "time"

// outbound event names.
const (
	EventUserOnline               = "userOnline"
	EventUserOffline              = "userOffline"
	EventNowOnlineData            = "nowOnlineData"
	EventPendingChallenge         = "pendingChallenge"
	EventPendingChallengeRejected = "pendingChallengeRejected"
	EventChallengeUser            = "challengeUser"
	EventInitializeGame           = "initializeGame"
	EventValidMove                = "validMove"
	EventInvalidMove              = "invalidMove"
	EventMyTurn                   = "myTurn"
	EventGameOver                 = "gameOver"
	EventUserDoneGame             = "userDoneGame"
	EventOpponentLeftGame         = "opponentLeftGame"
	EventPromptRestartGame        = "promptRestartGame"
	EventInitiateRestartGame      = "initiateRestartGame"
	EventRestartRequestRejected   = "restartRequestRejected"
	EventNewChatMessage           = "newChatMessage"
	EventError                    = "error"
)

type UserPayload struct {
	Username string `json:"username"`
}

type OnlineUser struct {
	Username string `json:"username"`
	InGame   bool   `json:"inGame"`
}

type NowOnlinePayload struct {
	Users []OnlineUser `json:"users"`
}

type PairPayload struct {
	Users []string `json:"users"`
}

type ChallengePayload struct {
	Challenger string `json:"challenger"`
}

type InitializeGamePayload struct {
	SessionID string   `json:"sessionId"`
	Players   []string `json:"players"`
	FirstTurn string   `json:"firstTurn"`
}

type ScoreUpdate struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}

type ValidMovePayload struct {
	SessionID   string       `json:"sessionId"`
	Mover       string       `json:"mover"`
	Line        Line         `json:"line"`
	UpdateScore *ScoreUpdate `json:"updateScore"`
}

type InvalidMovePayload struct {
	Line   Line   `json:"line"`
	Reason string `json:"reason"`
}

type MyTurnPayload struct {
	SessionID      string `json:"sessionId"`
	OpponentsMove  *Line  `json:"opponentsMove"`
	OpponentsScore int    `json:"opponentsScore"`
}

type GameOverPayload struct {
	SessionID string       `json:"sessionId"`
	Winner    *string      `json:"winner"`
	Scores    []PlayerSlot `json:"scores"`
}

type OpponentLeftPayload struct {
	SessionID string `json:"sessionId"`
	Leaver    string `json:"leaver"`
	Winner    string `json:"winner"`
}

type RestartRequestPayload struct {
	SessionID string `json:"sessionId"`
	Requester string `json:"requester"`
}

type RestartPayload struct {
	SessionID string `json:"sessionId"`
}

type RestartRejectedPayload struct {
	SessionID string `json:"sessionId"`
	Rejecter  string `json:"rejecter"`
}

type ChatPayload struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

type ErrorPayload struct {
	Action  string `json:"action"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
