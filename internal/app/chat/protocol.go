package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/errs"
)

// Inbound event names.
const (
	EventGetOnlineUsers    = "get-online-users"
	EventStartPrivateChats = "start-private-chats"
	EventPrivateMessage    = "private-message"
	EventJoinChat          = "join-chat"
	EventMessage           = "message"
	EventFeedback          = "feedback"
)

// Outbound event names.
const (
	EventOnlineUsers         = "online-users"
	EventPrivateChatsCreated = "private-chats-created"
	EventChatJoined          = "chat-joined"
	EventUserJoined          = "user-joined"
	EventUserLeft            = "user-left"
	EventChatMessage         = "chat-message"
	EventRoomFull            = "room-full"
	EventClientsTotal        = "clients-total"
	EventError               = "error"
)

// maxPrivateTargets bounds a single start-private-chats request.
const maxPrivateTargets = 50

// Frame is the envelope of every WebSocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type inbound interface {
	Validate() *errs.CustomError
}

type getOnlineUsersRequest struct{}

func (getOnlineUsersRequest) Validate() *errs.CustomError { return nil }

type startPrivateChatsRequest struct {
	TargetIdentityIDs []string `json:"targetIdentityIds"`
}

func (r startPrivateChatsRequest) Validate() *errs.CustomError {
	if len(r.TargetIdentityIDs) == 0 {
		return errs.NewError(errs.ErrInvalidPayload, "targetIdentityIds is required")
	}
	if len(r.TargetIdentityIDs) > maxPrivateTargets {
		return errs.NewError(errs.ErrInvalidPayload, "too many targetIdentityIds")
	}
	for _, id := range r.TargetIdentityIDs {
		if strings.TrimSpace(id) == "" {
			return errs.NewError(errs.ErrInvalidPayload, "targetIdentityIds contains an empty id")
		}
	}
	return nil
}

type privateMessageRequest struct {
	ChatID           string `json:"chatId"`
	Message          string `json:"message"`
	TargetIdentityID string `json:"targetIdentityId"`
}

func (r privateMessageRequest) Validate() *errs.CustomError {
	if r.ChatID == "" {
		return errs.NewError(errs.ErrInvalidPayload, "chatId is required")
	}
	if strings.TrimSpace(r.Message) == "" {
		return errs.NewError(errs.ErrInvalidPayload, "message is required")
	}
	return nil
}

type joinChatRequest struct {
	ChatType RoomKind `json:"chatType"`
}

func (r joinChatRequest) Validate() *errs.CustomError {
	if r.ChatType != KindSolo && r.ChatType != KindGroup {
		return errs.NewError(errs.ErrRoomTypeInvalid)
	}
	return nil
}

type roomMessageRequest struct {
	Message string `json:"message"`
}

func (r roomMessageRequest) Validate() *errs.CustomError {
	if strings.TrimSpace(r.Message) == "" {
		return errs.NewError(errs.ErrInvalidPayload, "message is required")
	}
	return nil
}

// feedbackRequest with an empty Feedback clears the indicator on the other side.
type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (feedbackRequest) Validate() *errs.CustomError { return nil }

// decodeInbound parses a raw frame into its tagged variant. Unknown events, unknown
// fields and missing required fields are rejected.
func decodeInbound(raw []byte) (inbound, *errs.CustomError) {
	var frame Frame
	if err := strictUnmarshal(raw, &frame); err != nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	var msg inbound
	switch frame.Event {
	case EventGetOnlineUsers:
		msg = &getOnlineUsersRequest{}
	case EventStartPrivateChats:
		msg = &startPrivateChatsRequest{}
	case EventPrivateMessage:
		msg = &privateMessageRequest{}
	case EventJoinChat:
		msg = &joinChatRequest{}
	case EventMessage:
		msg = &roomMessageRequest{}
	case EventFeedback:
		msg = &feedbackRequest{}
	case "":
		return nil, errs.NewError(errs.ErrInvalidPayload, "event is required")
	default:
		return nil, errs.NewError(errs.ErrUnknownEvent, frame.Event)
	}

	if len(frame.Data) > 0 && !bytes.Equal(bytes.TrimSpace(frame.Data), []byte("null")) {
		if err := strictUnmarshal(frame.Data, msg); err != nil {
			return nil, errs.NewError(errs.ErrInvalidPayload, err.Error())
		}
	}

	if cerr := msg.Validate(); cerr != nil {
		return nil, cerr
	}

	return msg, nil
}

func strictUnmarshal(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after payload")
	}
	return nil
}

// encodeFrame marshals an outbound event.
func encodeFrame(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: payload})
}

// OnlineUser is one element of the online-users list.
type OnlineUser struct {
	ID           string            `json:"id"`
	Username     string            `json:"username"`
	Profile      user.Profile      `json:"profile"`
	Verification user.Verification `json:"verification"`
	ConnectionID string            `json:"connectionId"`
	ConnectedAt  time.Time         `json:"connectedAt"`
}

// PrivateChat describes a private chat from one participant's point of view.
type PrivateChat struct {
	ChatID     string      `json:"chatId"`
	TargetUser user.Member `json:"targetUser"`
}

type privateChatsCreatedPayload struct {
	Chats []PrivateChat `json:"chats"`
}

type chatJoinedPayload struct {
	Room        string             `json:"room"`
	Type        RoomKind           `json:"type"`
	User        user.PublicProfile `json:"user"`
	RoomMembers []user.Member      `json:"roomMembers"`
}

type membershipPayload struct {
	User    user.PublicProfile `json:"user"`
	Message string             `json:"message"`
	Room    string             `json:"room"`
}

type chatMessagePayload struct {
	ID       string    `json:"id"`
	Message  string    `json:"message"`
	Name     string    `json:"name"`
	UserID   string    `json:"userId"`
	DateTime time.Time `json:"dateTime"`
	Room     string    `json:"room"`
}

type privateMessagePayload struct {
	ID            string       `json:"id"`
	ChatID        string       `json:"chatId"`
	Message       string       `json:"message"`
	SenderName    string       `json:"senderName"`
	SenderID      string       `json:"senderId"`
	SenderProfile user.Profile `json:"senderProfile"`
	DateTime      time.Time    `json:"dateTime"`
}

type feedbackPayload struct {
	Feedback string `json:"feedback"`
	Room     string `json:"room"`
}

type roomFullPayload struct {
	Message string `json:"message"`
}

type clientsTotalPayload struct {
	Count int `json:"count"`
}

type errorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
