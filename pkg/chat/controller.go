package chat

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/akashbera009/kichu-kotha/pkg/auth"
	"github.com/akashbera009/kichu-kotha/pkg/chat/proto"
	"github.com/akashbera009/kichu-kotha/pkg/notify"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

const presenceSubject = "kichukotha.chat.v1.presence"

type presenceStatus string

const (
	presenceOnline  presenceStatus = "ONLINE"
	presenceOffline presenceStatus = "OFFLINE"
)

type presenceEvent struct {
	UserID    string         `json:"userId"`
	Status    presenceStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}

// Controller owns the live chat state: the presence registry, the message
// relay, the call coordinator and the sweeper behind it. Connection
// lifecycles funnel through Connect and Disconnect so presence, calls and
// the persisted online flag never drift apart.
type Controller struct {
	registry *Registry
	relay    *Relay
	calls    *CallCoordinator
	sweeper  *Sweeper

	store storage.Interface
	nc    *nats.Conn
}

func NewController(nc *nats.Conn, store storage.Interface, notifier notify.Dispatcher,
	ringTimeout, sweepInterval time.Duration) *Controller {
	registry := NewRegistry()
	calls := NewCallCoordinator(registry, ringTimeout)

	return &Controller{
		registry: registry,
		relay:    NewRelay(registry, store, notifier),
		calls:    calls,
		sweeper:  NewSweeper(calls, sweepInterval),
		store:    store,
		nc:       nc,
	}
}

func (c *Controller) Start() {
	c.sweeper.Start()
}

func (c *Controller) Shutdown() {
	c.sweeper.Stop()
}

func (c *Controller) Registry() *Registry     { return c.registry }
func (c *Controller) Relay() *Relay           { return c.relay }
func (c *Controller) Calls() *CallCoordinator { return c.calls }

// Connect binds an authenticated connection to the live state. A second
// connection for the same user supersedes the first: the old connection's
// call is reclaimed and its socket closed before the new session is
// registered.
func (c *Controller) Connect(identity *auth.Identity, sender Sender) *Session {
	sess, prior := c.registry.Register(identity.UserID, identity.Username, sender)
	if prior != nil {
		log.WithField("user", identity.UserID).Info("superseding existing session")
		c.calls.HandleDisconnect(prior)
		prior.Shutdown()
	}

	if err := c.store.Users().SetOnline(identity.UserID, true, time.Now().UTC()); err != nil {
		log.Errorf("failed to persist online flag for %s: %v", identity.UserID, err)
	}

	c.publishPresence(identity.UserID, presenceOnline)
	c.registry.BroadcastUsersList()

	log.WithFields(log.Fields{
		"user":   identity.UserID,
		"online": c.registry.Count(),
	}).Info("user connected")

	return sess
}

// Disconnect tears a session down. The order matters: the call is reclaimed
// while the session is still registered, then the session leaves the
// registry, then everyone gets the fresh snapshot.
func (c *Controller) Disconnect(sess *Session) {
	c.calls.HandleDisconnect(sess)

	if !c.registry.Remove(sess) {
		// A newer connection for this user already took over.
		return
	}

	if err := c.store.Users().SetOnline(sess.UserID, false, time.Now().UTC()); err != nil {
		log.Errorf("failed to persist offline flag for %s: %v", sess.UserID, err)
	}

	c.publishPresence(sess.UserID, presenceOffline)
	c.registry.BroadcastUsersList()

	log.WithFields(log.Fields{
		"user":   sess.UserID,
		"online": c.registry.Count(),
	}).Info("user disconnected")
}

// RegisterForCalls refreshes the session's display name and reconfirms the
// snapshot to everyone.
func (c *Controller) RegisterForCalls(sess *Session, req *proto.RegisterForCalls) {
	if req.DisplayName != "" {
		c.registry.UpdateName(sess.UserID, req.DisplayName)
	}
	c.registry.BroadcastUsersList()
}

func (c *Controller) OnlineUsers() []proto.UserEntry { return c.registry.Snapshot() }
func (c *Controller) ActiveCalls() int               { return c.calls.ActiveCalls() }

func (c *Controller) publishPresence(userID string, status presenceStatus) {
	if c.nc == nil {
		return
	}

	data, err := json.Marshal(presenceEvent{
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Errorf("failed to marshal presence event: %v", err)
		return
	}

	if err := c.nc.Publish(presenceSubject, data); err != nil {
		log.Errorf("failed to publish presence event: %v", err)
	}
}
