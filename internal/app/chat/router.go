package chat

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/metrics"
	"lobbychat/internal/pkg/randx"
)

// Router delivers chat messages and typing feedback to room members. The sender is
// never among the recipients, and delivery to one recipient never waits on another.
type Router struct {
	dir    *Directory
	now    func() time.Time
	logger zerolog.Logger
}

// NewRouter creates a Router over dir.
func NewRouter(dir *Directory) *Router {
	return &Router{
		dir:    dir,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logx.Component("router"),
	}
}

// RouteRoomMessage delivers text to the other members of sender's solo or group room.
// It returns the number of recipients the frame was queued for, or ErrNoActiveRoom.
func (rt *Router) RouteRoomMessage(sender *Client, text string) (int, error) {
	key, recipients, ok := rt.dir.recipients(sender)
	if !ok {
		metrics.MessagesRouted.WithLabelValues("room", "no_room").Inc()
		return 0, ErrNoActiveRoom
	}

	id := sender.Identity()
	n, err := rt.emit("room", recipients, EventChatMessage, chatMessagePayload{
		ID:       randx.MessageID(),
		Message:  text,
		Name:     id.Username,
		UserID:   id.ID,
		DateTime: rt.now(),
		Room:     key,
	})

	rt.logger.Debug().Str("room", key).Str("conn_id", sender.ID).Int("recipients", n).Msg("room message routed")
	return n, err
}

// RoutePrivateMessage delivers text to the other members of chatID. The sender must
// be a member of the chat.
func (rt *Router) RoutePrivateMessage(sender *Client, chatID, text string) (int, error) {
	recipients, ok := rt.dir.privateRecipients(sender, chatID)
	if !ok {
		metrics.MessagesRouted.WithLabelValues("private", "not_joined").Inc()
		return 0, ErrChatNotJoined
	}

	id := sender.Identity()
	n, err := rt.emit("private", recipients, EventPrivateMessage, privateMessagePayload{
		ID:            randx.MessageID(),
		ChatID:        chatID,
		Message:       text,
		SenderName:    id.Username,
		SenderID:      id.ID,
		SenderProfile: id.Profile,
		DateTime:      rt.now(),
	})

	rt.logger.Debug().Str("room", chatID).Str("conn_id", sender.ID).Int("recipients", n).Msg("private message routed")
	return n, err
}

// RouteTypingFeedback tells the other members of sender's solo or group room that the
// sender is typing. A blank text clears the indicator.
func (rt *Router) RouteTypingFeedback(sender *Client, text string) (int, error) {
	key, recipients, ok := rt.dir.recipients(sender)
	if !ok {
		return 0, ErrNoActiveRoom
	}

	feedback := ""
	if text != "" {
		feedback = TypingFeedback(sender.Identity().Username)
	}

	return rt.emit("feedback", recipients, EventFeedback, feedbackPayload{Feedback: feedback, Room: key})
}

// TypingFeedback is the indicator text shown while username types.
func TypingFeedback(username string) string {
	return username + " is typing a message"
}

func (rt *Router) emit(kind string, recipients []*Client, event string, data any) (int, error) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		rt.logger.Error().Err(err).Str("event", event).Msg("encode frame")
		return 0, err
	}
	return deliver(kind, recipients, frame), nil
}

// deliver queues frame for every recipient and returns how many accepted it.
func deliver(kind string, recipients []*Client, frame []byte) int {
	n := 0
	for _, c := range recipients {
		if err := c.Send(frame); err != nil {
			if !errors.Is(err, ErrConnClosed) {
				metrics.MessagesRouted.WithLabelValues(kind, "dropped").Inc()
			}
			continue
		}
		n++
	}
	metrics.MessagesRouted.WithLabelValues(kind, "delivered").Add(float64(n))
	return n
}
