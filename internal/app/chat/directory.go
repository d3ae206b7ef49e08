package chat

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/metrics"
	"lobbychat/internal/pkg/randx"
)

// RoomKind is the kind of a chat room.
type RoomKind string

const (
	KindSolo    RoomKind = "solo"
	KindGroup   RoomKind = "group"
	KindPrivate RoomKind = "private"
)

const (
	// GroupRoomKey is the key of the single group room.
	GroupRoomKey = "group-room"

	// SoloCapacity is the number of members a solo room holds.
	SoloCapacity = 2
)

// PrivateChatID returns the identifier shared by the private chat between a and b.
// It does not depend on argument order.
func PrivateChatID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("private_%s_%s", a, b)
}

type member struct {
	client *Client
	info   user.Member
}

type room struct {
	key     string
	kind    RoomKind
	members []member
}

func (r *room) indexOf(c *Client) int {
	for i, m := range r.members {
		if m.client == c {
			return i
		}
	}
	return -1
}

func (r *room) remove(c *Client) bool {
	i := r.indexOf(c)
	if i < 0 {
		return false
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	return true
}

func (r *room) clients(except *Client) []*Client {
	out := make([]*Client, 0, len(r.members))
	for _, m := range r.members {
		if m.client != except {
			out = append(out, m.client)
		}
	}
	return out
}

func (r *room) memberInfos() []user.Member {
	out := make([]user.Member, len(r.members))
	for i, m := range r.members {
		out[i] = m.info
	}
	return out
}

// Departure describes a room a connection just left.
type Departure struct {
	Key  string
	Kind RoomKind

	// Mates are the members still in the room.
	Mates []*Client
}

// Assignment is the result of joining a solo or group room.
type Assignment struct {
	Key     string
	Kind    RoomKind
	Members []user.Member

	// Mates are the other members at the time of the join.
	Mates []*Client

	// AlreadyMember is set when the connection was already in this room.
	AlreadyMember bool

	// Left is the solo or group room the connection left to make this join, if any.
	Left *Departure
}

// PrivateJoin is one private chat established by JoinPrivate.
type PrivateJoin struct {
	ChatID       string
	Target       user.Member
	TargetClient *Client
}

// Directory tracks the group room, the solo rooms and the private rooms, and which
// of them each connection belongs to. A connection is in at most one solo-or-group
// room and any number of private rooms.
type Directory struct {
	mu sync.RWMutex

	group     *room
	solo      map[string]*room
	soloOrder []string
	private   map[string]*room

	current  map[*Client]*room
	privates map[*Client]map[string]*room

	newSoloKey func() string

	logger zerolog.Logger
}

// NewDirectory returns a Directory holding only the empty group room.
func NewDirectory() *Directory {
	d := &Directory{
		group:      &room{key: GroupRoomKey, kind: KindGroup},
		solo:       make(map[string]*room),
		private:    make(map[string]*room),
		current:    make(map[*Client]*room),
		privates:   make(map[*Client]map[string]*room),
		newSoloKey: randx.SoloRoomKey,
		logger:     logx.Component("rooms"),
	}
	d.observe()
	return d
}

// JoinGroup puts c into the group room, leaving its current solo room first.
func (d *Directory) JoinGroup(c *Client) (Assignment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c.isGone() {
		return Assignment{}, ErrConnClosed
	}

	return d.assign(c, d.group)
}

// JoinSolo puts c into the first solo room with a free seat, creating a new one when
// all are full. A connection already in a solo room stays there.
func (d *Directory) JoinSolo(c *Client) (Assignment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c.isGone() {
		return Assignment{}, ErrConnClosed
	}

	if cur := d.current[c]; cur != nil && cur.kind == KindSolo {
		return d.assign(c, cur)
	}

	var target *room
	for _, key := range d.soloOrder {
		if r := d.solo[key]; len(r.members) < SoloCapacity {
			target = r
			break
		}
	}

	if target == nil {
		key := d.newSoloKey()
		for d.solo[key] != nil {
			key = d.newSoloKey()
		}
		target = &room{key: key, kind: KindSolo}
		d.solo[key] = target
		d.soloOrder = append(d.soloOrder, key)
		d.logger.Debug().Str("room", key).Msg("solo room created")
	}

	asg, err := d.assign(c, target)
	if err != nil {
		d.deleteSoloIfEmpty(target)
	}
	return asg, err
}

// assign moves c into r. It must be called with mu held.
func (d *Directory) assign(c *Client, r *room) (Assignment, error) {
	if r.indexOf(c) >= 0 {
		return Assignment{
			Key:           r.key,
			Kind:          r.kind,
			Members:       r.memberInfos(),
			Mates:         r.clients(c),
			AlreadyMember: true,
		}, nil
	}

	if r.kind == KindSolo && len(r.members) >= SoloCapacity {
		return Assignment{}, fmt.Errorf("join %s: %w", r.key, ErrRoomFull)
	}

	var left *Departure
	if prev := d.current[c]; prev != nil {
		left = d.leaveRoom(c, prev)
	}

	mates := r.clients(nil)
	r.members = append(r.members, member{client: c, info: c.Identity().Member()})
	d.current[c] = r
	d.observe()

	d.logger.Debug().
		Str("room", r.key).
		Str("conn_id", c.ID).
		Int("members", len(r.members)).
		Msg("joined room")

	return Assignment{
		Key:     r.key,
		Kind:    r.kind,
		Members: r.memberInfos(),
		Mates:   mates,
		Left:    left,
	}, nil
}

// JoinPrivate adds self and each target connection to the private room for that pair.
// Targets naming self are skipped.
func (d *Directory) JoinPrivate(self *Client, targets []PresenceEntry) ([]PrivateJoin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if self.isGone() {
		return nil, ErrConnClosed
	}

	selfID := self.Identity().ID
	joins := make([]PrivateJoin, 0, len(targets))

	for _, t := range targets {
		if t.Identity.ID == selfID {
			continue
		}

		chatID := PrivateChatID(selfID, t.Identity.ID)
		r := d.private[chatID]
		if r == nil {
			r = &room{key: chatID, kind: KindPrivate}
			d.private[chatID] = r
			d.logger.Debug().Str("room", chatID).Msg("private room created")
		}

		d.addPrivate(self, r)
		if !t.Client.isGone() {
			d.addPrivate(t.Client, r)
		}

		joins = append(joins, PrivateJoin{
			ChatID:       chatID,
			Target:       t.Identity.Member(),
			TargetClient: t.Client,
		})
	}

	d.observe()
	return joins, nil
}

func (d *Directory) addPrivate(c *Client, r *room) {
	if r.indexOf(c) >= 0 {
		return
	}
	r.members = append(r.members, member{client: c, info: c.Identity().Member()})

	set := d.privates[c]
	if set == nil {
		set = make(map[string]*room)
		d.privates[c] = set
	}
	set[r.key] = r
}

// Leave removes c from every room it belongs to. Empty solo and private rooms are
// deleted; the group room is kept.
func (d *Directory) Leave(c *Client) []Departure {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Departure

	if cur := d.current[c]; cur != nil {
		out = append(out, *d.leaveRoom(c, cur))
	}

	for key, r := range d.privates[c] {
		r.remove(c)
		out = append(out, Departure{Key: key, Kind: KindPrivate, Mates: r.clients(nil)})
		if len(r.members) == 0 {
			delete(d.private, key)
			d.logger.Debug().Str("room", key).Msg("private room deleted")
		}
	}
	delete(d.privates, c)

	d.observe()
	return out
}

// leaveRoom removes c from its solo or group room. It must be called with mu held.
func (d *Directory) leaveRoom(c *Client, r *room) *Departure {
	r.remove(c)
	delete(d.current, c)

	dep := &Departure{Key: r.key, Kind: r.kind, Mates: r.clients(nil)}
	if r.kind == KindSolo {
		d.deleteSoloIfEmpty(r)
	}
	return dep
}

func (d *Directory) deleteSoloIfEmpty(r *room) {
	if len(r.members) > 0 {
		return
	}
	delete(d.solo, r.key)
	for i, key := range d.soloOrder {
		if key == r.key {
			d.soloOrder = append(d.soloOrder[:i], d.soloOrder[i+1:]...)
			break
		}
	}
	d.logger.Debug().Str("room", r.key).Msg("solo room deleted")
}

// MembersOf returns the members of roomKey in join order.
func (d *Directory) MembersOf(roomKey string) ([]user.Member, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r := d.lookup(roomKey)
	if r == nil {
		return nil, false
	}
	return r.memberInfos(), true
}

// CurrentRoom returns the solo or group room c is assigned to.
func (d *Directory) CurrentRoom(c *Client) (key string, kind RoomKind, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r := d.current[c]
	if r == nil {
		return "", "", false
	}
	return r.key, r.kind, true
}

// PrivateChatsOf returns the private chat ids c belongs to.
func (d *Directory) PrivateChatsOf(c *Client) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.privates[c]))
	for key := range d.privates[c] {
		out = append(out, key)
	}
	return out
}

// RoomCounts returns the number of live solo and private rooms.
func (d *Directory) RoomCounts() (solo, private int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.solo), len(d.private)
}

// recipients returns the members of c's current room other than c.
func (d *Directory) recipients(c *Client) (string, []*Client, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r := d.current[c]
	if r == nil {
		return "", nil, false
	}
	return r.key, r.clients(c), true
}

// privateRecipients returns the members of chatID other than c, provided c is one.
func (d *Directory) privateRecipients(c *Client, chatID string) ([]*Client, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r := d.private[chatID]
	if r == nil || r.indexOf(c) < 0 {
		return nil, false
	}
	return r.clients(c), true
}

func (d *Directory) lookup(key string) *room {
	if key == GroupRoomKey {
		return d.group
	}
	if r := d.solo[key]; r != nil {
		return r
	}
	return d.private[key]
}

// observe must be called with mu held.
func (d *Directory) observe() {
	metrics.Rooms.WithLabelValues(string(KindGroup)).Set(1)
	metrics.Rooms.WithLabelValues(string(KindSolo)).Set(float64(len(d.solo)))
	metrics.Rooms.WithLabelValues(string(KindPrivate)).Set(float64(len(d.private)))
}
