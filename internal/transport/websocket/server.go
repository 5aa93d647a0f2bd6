package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"nhooyr.io/websocket"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/config"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/pkg"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/room"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/service"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/usecase"
)

type uLobby interface {
	GoOnline(ctx context.Context, username, connID string) error
	SendChat(sender, text string) error
}

type uNegotiator interface {
	ProposeChallenge(ctx context.Context, challenger, opponent string) (*entity.GameSession, error)
	AcceptChallenge(ctx context.Context, challenger, challengee string) (*entity.GameSession, error)
	RejectChallenge(ctx context.Context, challenger, challengee string) error
}

type uGame interface {
	SubmitMove(ctx context.Context, sessionID, mover string, line entity.Line) (*usecase.MoveResult, error)
	CompleteTurn(ctx context.Context, sessionID, caller string) (*entity.GameSession, error)
	RequestRestart(ctx context.Context, sessionID, requester string) error
	RestartSession(ctx context.Context, sessionID, acceptor string) (*entity.GameSession, error)
	RejectRestart(ctx context.Context, sessionID, rejecter string) error
	LeaveSession(ctx context.Context, sessionID, leaver string) (*entity.GameSession, error)
}

type uDisconnect interface {
	HandleDisconnect(ctx context.Context, connID string) error
}

type connections interface {
	Add(conn room.Conn)
	Remove(connID string)
}

type identities interface {
	LookupByConnection(connID string) (string, error)
}

type authService interface {
	Subject(token string) (string, error)
}

// UseCases - the session protocol operations behind the socket.
type UseCases struct {
	Lobby      uLobby
	Negotiator uNegotiator
	Games      uGame
	Disconnect uDisconnect
}

type handlerFunc func(ctx context.Context, client *client, message *Message) error

type Server struct {
	logger *slog.Logger

	// auth is nil when upgrades are not authenticated
	auth       authService
	router     connections
	identities identities
	uc         UseCases

	sendBuffer   int
	writeTimeout time.Duration

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, conf *config.Config, auth authService, router connections, identities identities, uc UseCases) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),

		auth:       auth,
		router:     router,
		identities: identities,
		uc:         uc,

		sendBuffer:   conf.WebSocket.SendBuffer,
		writeTimeout: conf.WebSocket.WriteTimeout,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers["goOnline"] = server.handleGoOnline
	server.handlers["sendChatMessage"] = server.handleSendChatMessage
	server.handlers["challengeRequest"] = server.handleChallengeRequest
	server.handlers["challengeAccepted"] = server.handleChallengeAccepted
	server.handlers["challengeRejected"] = server.handleChallengeRejected
	server.handlers["checkMove"] = server.handleCheckMove
	server.handlers["doneTurn"] = server.handleDoneTurn
	server.handlers["requestRestartGame"] = server.handleRequestRestartGame
	server.handlers["acceptRestartGame"] = server.handleAcceptRestartGame
	server.handlers["rejectRestartGame"] = server.handleRejectRestartGame
	server.handlers["leaveGame"] = server.handleLeaveGame

	return server
}

// Handler - routes /ws, connections live until the client leaves or ctx is done.
func (that *Server) Handler(ctx context.Context) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return router
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - authenticates the request, upgrades it and serves the connection.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket", "requestID", middleware.GetReqID(req.Context()))

	var subject string
	if that.auth != nil {
		var err error
		if subject, err = that.auth.Subject(tokenFromRequest(req)); err != nil {
			if !service.IsUnauthorized(err) {
				log.Error("failed to authenticate upgrade", "error", err)
				http.Error(writer, "internal error", http.StatusInternalServerError)
				return
			}

			log.Warn("upgrade rejected", "error", err)
			http.Error(writer, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(writer, req, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Error("failed to accept websocket", "error", err)
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := newClient(that.logger, pkg.GenerateConnectionID(), conn, subject, that.sendBuffer, that.writeTimeout, cancel)
	log = log.With("connectionID", client.ID())

	that.router.Add(client)
	go client.writePump(connCtx)

	log.Info("WebSocket connection established")

	defer func() {
		if err = that.uc.Disconnect.HandleDisconnect(context.WithoutCancel(connCtx), client.ID()); err != nil {
			log.Error("failed to handle disconnect", "error", err)
		}

		that.router.Remove(client.ID())
		client.close()

		_ = conn.Close(websocket.StatusNormalClosure, "")

		log.Info("WebSocket connection closed")
	}()

	that.handleMessages(connCtx, client)
}

// handleMessages - processes messages from the client until the connection fails.
func (that *Server) handleMessages(ctx context.Context, client *client) {
	log := that.logger.With("method", "handleMessages", "connectionID", client.ID())

	for {
		_, data, err := client.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				log.Debug("connection closed", "status", status)
			} else {
				log.Warn("failed to read message", "error", err)
			}

			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to decode message", "error", err)
			that.sendError(client, "", fmt.Errorf("%w: %w", apperror.ErrMalformedPayload, err))
			continue
		}

		that.dispatch(ctx, client, &message)
	}
}

func (that *Server) dispatch(ctx context.Context, client *client, message *Message) {
	log := that.logger.With("method", "dispatch", "connectionID", client.ID(), "action", message.Action)

	handler, ok := that.handlers[message.Action]
	if !ok {
		that.sendError(client, message.Action, fmt.Errorf("%w: %q", apperror.ErrUnknownAction, message.Action))
		return
	}

	if err := handler(ctx, client, message); err != nil {
		log.Warn("action failed", "error", err)
		that.sendError(client, message.Action, err)
	}
}

// sendError reports a failed action to the originating connection only.
func (that *Server) sendError(client *client, action string, err error) {
	kind := apperror.Kind(err)

	text := err.Error()
	if kind == apperror.KindInternal {
		text = "internal error"
	}

	envelope := room.Envelope{
		Event:   entity.EventError,
		Payload: entity.ErrorPayload{Action: action, Kind: kind, Message: text},
	}

	if sendErr := client.Send(envelope); sendErr != nil {
		that.logger.Warn("failed to send error", "connectionID", client.ID(), "error", sendErr)
	}
}

// tokenFromRequest - reads the token from the query or the bearer header.
func tokenFromRequest(req *http.Request) string {
	if token := req.URL.Query().Get("token"); token != "" {
		return token
	}

	header := req.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}
