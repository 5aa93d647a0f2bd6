package room

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
)

// Envelope - one outbound event.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Conn - a live client connection. Send must not block.
type Conn interface {
	ID() string
	Send(envelope Envelope) error
}

// Router delivers events to single connections, to session groups and to everyone.
type Router struct {
	logger *slog.Logger

	mu          sync.RWMutex
	connections map[string]Conn
	groups      map[string]map[string]struct{}
	memberships map[string]map[string]struct{}
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		logger: logger.With("component", "router"),

		connections: make(map[string]Conn),
		groups:      make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
	}
}

func (that *Router) Add(conn Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.connections[conn.ID()] = conn
}

// Remove forgets the connection and takes it out of every group.
func (that *Router) Remove(connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for group := range that.memberships[connID] {
		that.leaveLocked(connID, group)
	}

	delete(that.memberships, connID)
	delete(that.connections, connID)
}

func (that *Router) Join(connID, group string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.connections[connID]; !ok {
		return fmt.Errorf("%w: %s", apperror.ErrConnectionNotFound, connID)
	}

	if that.groups[group] == nil {
		that.groups[group] = make(map[string]struct{})
	}
	that.groups[group][connID] = struct{}{}

	if that.memberships[connID] == nil {
		that.memberships[connID] = make(map[string]struct{})
	}
	that.memberships[connID][group] = struct{}{}

	return nil
}

func (that *Router) Leave(connID, group string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.leaveLocked(connID, group)
}

func (that *Router) leaveLocked(connID, group string) {
	if members, ok := that.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(that.groups, group)
		}
	}

	if groups, ok := that.memberships[connID]; ok {
		delete(groups, group)
	}
}

// Members returns the connection ids currently in the group.
func (that *Router) Members(group string) []string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	members := make([]string, 0, len(that.groups[group]))
	for connID := range that.groups[group] {
		members = append(members, connID)
	}

	return members
}

func (that *Router) SendToOne(connID, event string, payload any) error {
	that.mu.RLock()
	conn, ok := that.connections[connID]
	that.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrConnectionNotFound, connID)
	}

	if err := conn.Send(Envelope{Event: event, Payload: payload}); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", event, connID, err)
	}

	return nil
}

func (that *Router) BroadcastToGroup(group, event string, payload any) {
	that.mu.RLock()
	targets := make([]Conn, 0, len(that.groups[group]))
	for connID := range that.groups[group] {
		targets = append(targets, that.connections[connID])
	}
	that.mu.RUnlock()

	that.deliver(targets, Envelope{Event: event, Payload: payload})
}

func (that *Router) BroadcastGlobal(event string, payload any) {
	that.BroadcastOthers("", event, payload)
}

// BroadcastOthers sends to every connection except exceptConnID.
func (that *Router) BroadcastOthers(exceptConnID, event string, payload any) {
	that.mu.RLock()
	targets := make([]Conn, 0, len(that.connections))
	for connID, conn := range that.connections {
		if connID != exceptConnID {
			targets = append(targets, conn)
		}
	}
	that.mu.RUnlock()

	that.deliver(targets, Envelope{Event: event, Payload: payload})
}

func (that *Router) deliver(targets []Conn, envelope Envelope) {
	for _, conn := range targets {
		if err := conn.Send(envelope); err != nil {
			that.logger.Warn("failed to deliver event", "event", envelope.Event, "connectionID", conn.ID(), "error", err)
		}
	}
}
