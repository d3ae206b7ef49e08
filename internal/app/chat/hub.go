package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/metrics"
)

const (
	defaultMaxMessageBytes  = 5000
	defaultPersistQueueSize = 256

	// persistTimeout bounds one durable presence update.
	persistTimeout = 5 * time.Second

	sessionReplacedText = "Session replaced by new connection. Check other tabs."
)

// PresenceStore receives best-effort durable presence updates.
type PresenceStore interface {
	SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
}

// HubConfig tunes a Hub. Zero values select defaults.
type HubConfig struct {
	MaxMessageBytes  int
	PersistQueueSize int
}

type presenceUpdate struct {
	identityID string
	online     bool
	at         time.Time
}

// Hub drives each connection through admission, room assignment and teardown. It
// owns the Registry and the Directory; neither lock is ever held while the other is
// taken, and frames are sent from snapshots.
type Hub struct {
	registry  *Registry
	directory *Directory
	router    *Router

	store      PresenceStore
	persist    chan presenceUpdate
	persistMu  sync.Mutex
	persistOff bool
	wg         sync.WaitGroup

	maxMessageBytes int
	now             func() time.Time

	logger zerolog.Logger
}

// NewHub creates a Hub and starts its presence persistence worker. store may be nil.
func NewHub(store PresenceStore, cfg HubConfig) *Hub {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaultMaxMessageBytes
	}
	if cfg.PersistQueueSize <= 0 {
		cfg.PersistQueueSize = defaultPersistQueueSize
	}

	dir := NewDirectory()
	h := &Hub{
		registry:        NewRegistry(),
		directory:       dir,
		router:          NewRouter(dir),
		store:           store,
		persist:         make(chan presenceUpdate, cfg.PersistQueueSize),
		maxMessageBytes: cfg.MaxMessageBytes,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logx.Component("hub"),
	}

	h.wg.Add(1)
	go h.runPersistLoop()

	return h
}

// Registry returns the presence registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Directory returns the room directory.
func (h *Hub) Directory() *Directory { return h.directory }

// Admit registers an authenticated connection, evicting an older connection of the
// same identity, and announces the new presence list and connection count.
func (h *Hub) Admit(c *Client) {
	id := c.Identity()

	if prev, ok := h.registry.Lookup(id.ID); ok && prev.Client != c {
		h.evict(prev.Client)
	}

	if _, replaced := h.registry.Register(c); replaced != nil {
		h.evict(replaced)
	}

	h.enqueuePresence(id.ID, true)

	c.logger.Info().Int("online", h.registry.Len()).Msg("connection admitted")

	h.broadcastPresence()
	h.broadcastClientsTotal()
}

// evict kicks a connection displaced by a newer login and tears it down.
func (h *Hub) evict(old *Client) {
	old.SendError(errs.NewError(errs.ErrSessionReplaced))
	old.Kick(sessionReplacedText)
	h.Disconnect(old)
}

// HandleInbound decodes and dispatches one frame from c. Frames from one connection
// are handled in the order they arrive.
func (h *Hub) HandleInbound(c *Client, raw []byte) {
	msg, cerr := decodeInbound(raw)
	if cerr != nil {
		c.logger.Debug().Int("code", cerr.Code).Str("reason", cerr.Message).Msg("rejected inbound frame")
		c.SendError(cerr)
		return
	}

	switch m := msg.(type) {
	case *getOnlineUsersRequest:
		h.sendPresence(c)

	case *startPrivateChatsRequest:
		h.StartPrivateChats(c, m.TargetIdentityIDs)

	case *privateMessageRequest:
		if h.tooLong(c, m.Message) {
			return
		}
		if m.TargetIdentityID != "" && PrivateChatID(c.Identity().ID, m.TargetIdentityID) != m.ChatID {
			c.SendError(errs.NewError(errs.ErrInvalidPayload, "targetIdentityId does not match chatId"))
			return
		}
		if _, err := h.router.RoutePrivateMessage(c, m.ChatID, m.Message); err != nil {
			c.logger.Debug().Err(err).Str("chat_id", m.ChatID).Msg("private message dropped")
		}

	case *joinChatRequest:
		h.Join(c, m.ChatType)

	case *roomMessageRequest:
		if h.tooLong(c, m.Message) {
			return
		}
		if _, err := h.router.RouteRoomMessage(c, m.Message); err != nil {
			c.logger.Debug().Err(err).Msg("room message dropped")
		}

	case *feedbackRequest:
		if _, err := h.router.RouteTypingFeedback(c, m.Feedback); err != nil {
			c.logger.Debug().Err(err).Msg("feedback dropped")
		}
	}
}

func (h *Hub) tooLong(c *Client, text string) bool {
	if len(text) <= h.maxMessageBytes {
		return false
	}
	c.SendError(errs.NewError(errs.ErrMessageTooLong))
	return true
}

// Join assigns c to the group room or a solo room and notifies both c and its new
// room-mates. Leaving a previous room notifies the mates left behind.
func (h *Hub) Join(c *Client, kind RoomKind) {
	var (
		asg Assignment
		err error
	)

	switch kind {
	case KindGroup:
		asg, err = h.directory.JoinGroup(c)
	case KindSolo:
		asg, err = h.directory.JoinSolo(c)
	default:
		c.SendError(errs.NewError(errs.ErrRoomTypeInvalid))
		return
	}

	if err != nil {
		if errors.Is(err, ErrRoomFull) {
			_ = c.Emit(EventRoomFull, roomFullPayload{Message: errs.NewError(errs.ErrRoomFull).Message})
			return
		}
		c.logger.Debug().Err(err).Str("chat_type", string(kind)).Msg("join aborted")
		return
	}

	id := c.Identity()
	public := id.Public()

	if asg.Left != nil {
		h.notifyLeft(public, *asg.Left)
	}

	if !asg.AlreadyMember {
		h.sendAll(asg.Mates, EventUserJoined, membershipPayload{
			User:    public,
			Message: joinedText(id.Username, asg.Kind),
			Room:    asg.Key,
		})
	}

	_ = c.Emit(EventChatJoined, chatJoinedPayload{
		Room:        asg.Key,
		Type:        asg.Kind,
		User:        public,
		RoomMembers: asg.Members,
	})

	c.logger.Info().Str("room", asg.Key).Str("chat_type", string(asg.Kind)).Msg("joined chat")

	h.broadcastClientsTotal()
}

func joinedText(username string, kind RoomKind) string {
	if kind == KindGroup {
		return username + " joined the group chat"
	}
	return username + " joined the chat"
}

// StartPrivateChats opens a private chat between c and each online target. Offline
// or unknown targets are skipped. Both sides are told the chat identifier.
func (h *Hub) StartPrivateChats(c *Client, targetIDs []string) {
	seen := make(map[string]struct{}, len(targetIDs))
	targets := make([]PresenceEntry, 0, len(targetIDs))

	for _, id := range targetIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if entry, ok := h.registry.Lookup(id); ok {
			targets = append(targets, entry)
		}
	}

	joins, err := h.directory.JoinPrivate(c, targets)
	if err != nil {
		c.logger.Debug().Err(err).Msg("private chats aborted")
		return
	}

	chats := make([]PrivateChat, 0, len(joins))
	self := c.Identity().Member()

	for _, j := range joins {
		chats = append(chats, PrivateChat{ChatID: j.ChatID, TargetUser: j.Target})

		_ = j.TargetClient.Emit(EventPrivateChatsCreated, privateChatsCreatedPayload{
			Chats: []PrivateChat{{ChatID: j.ChatID, TargetUser: self}},
		})
	}

	_ = c.Emit(EventPrivateChatsCreated, privateChatsCreatedPayload{Chats: chats})

	c.logger.Info().
		Int("requested", len(targetIDs)).
		Int("created", len(chats)).
		Msg("private chats started")
}

// Disconnect tears c down. Every step runs even if an earlier one fails, and calls
// after the first are no-ops.
func (h *Hub) Disconnect(c *Client) {
	if !c.markGone() {
		return
	}

	id := c.Identity()
	owned := h.registry.Owns(id.ID, c)

	h.step(c, "persist-offline", func() {
		if owned {
			h.enqueuePresence(id.ID, false)
		}
	})

	h.step(c, "deregister", func() {
		h.registry.Deregister(id.ID, c)
	})

	h.step(c, "leave-rooms", func() {
		public := id.Public()
		public.IsOnline = false
		for _, dep := range h.directory.Leave(c) {
			h.notifyLeft(public, dep)
		}
	})

	h.step(c, "broadcast-presence", h.broadcastPresence)
	h.step(c, "broadcast-clients-total", h.broadcastClientsTotal)

	c.Close()

	c.logger.Info().Bool("owned_presence", owned).Msg("connection torn down")
}

// step runs one teardown step, containing panics so later steps still run.
func (h *Hub) step(c *Client, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error().
				Err(fmt.Errorf("panic: %v", rec)).
				Str("step", name).
				Msg("teardown step failed")
		}
	}()
	fn()
}

func (h *Hub) notifyLeft(who user.PublicProfile, dep Departure) {
	h.sendAll(dep.Mates, EventUserLeft, membershipPayload{
		User:    who,
		Message: who.Username + " left the chat",
		Room:    dep.Key,
	})
}

// PresenceSnapshot returns the online list and the connection count.
func (h *Hub) PresenceSnapshot() ([]OnlineUser, int) {
	return h.onlineUsers(), h.registry.ConnectionCount()
}

func (h *Hub) onlineUsers() []OnlineUser {
	entries := h.registry.List()
	out := make([]OnlineUser, len(entries))
	for i, e := range entries {
		out[i] = e.View()
	}
	return out
}

func (h *Hub) sendPresence(c *Client) {
	_ = c.Emit(EventOnlineUsers, h.onlineUsers())
}

func (h *Hub) broadcastPresence() {
	h.sendAll(h.registry.Connections(), EventOnlineUsers, h.onlineUsers())
}

func (h *Hub) broadcastClientsTotal() {
	h.sendAll(h.registry.Connections(), EventClientsTotal, clientsTotalPayload{Count: h.registry.ConnectionCount()})
}

func (h *Hub) sendAll(clients []*Client, event string, data any) {
	if len(clients) == 0 {
		return
	}
	frame, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("encode broadcast")
		return
	}
	deliver("broadcast", clients, frame)
}

// enqueuePresence hands a durable presence update to the worker without blocking.
// Updates are dropped when the queue is full or the hub is shutting down.
func (h *Hub) enqueuePresence(identityID string, online bool) {
	if h.store == nil {
		return
	}

	h.persistMu.Lock()
	defer h.persistMu.Unlock()

	if h.persistOff {
		return
	}

	select {
	case h.persist <- presenceUpdate{identityID: identityID, online: online, at: h.now()}:
	default:
		metrics.PersistenceFailures.Inc()
		h.logger.Warn().Str("user_id", identityID).Bool("online", online).Msg("presence queue full, update dropped")
	}
}

func (h *Hub) runPersistLoop() {
	defer h.wg.Done()

	for u := range h.persist {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := h.store.SetPresence(ctx, u.identityID, u.online, u.at)
		cancel()

		if err != nil {
			metrics.PersistenceFailures.Inc()
			h.logger.Error().Err(err).
				Str("user_id", u.identityID).
				Bool("online", u.online).
				Msg("durable presence update failed")
		}
	}
}

// Shutdown disconnects every connection, flushes pending presence updates and stops
// the worker.
func (h *Hub) Shutdown() {
	h.logger.Info().Int("connections", h.registry.ConnectionCount()).Msg("hub shutting down")

	for _, c := range h.registry.Connections() {
		h.Disconnect(c)
	}

	h.persistMu.Lock()
	if !h.persistOff {
		h.persistOff = true
		close(h.persist)
	}
	h.persistMu.Unlock()

	h.wg.Wait()
	h.logger.Info().Msg("hub shutdown complete")
}
