package chat

import (
	"encoding/json"
	"testing"
	"time"

	"lobbychat/internal/app/user"
)

func newIdentity(username string) user.Identity {
	return user.Identity{
		ID:           "id-" + username,
		Username:     username,
		Email:        username + "@example.com",
		Profile:      user.DefaultProfile(username),
		Verification: user.Verification{Badge: user.BadgeNone},
		IsActive:     true,
	}
}

func newTestClient(username string) *Client {
	return NewClient(nil, newIdentity(username))
}

// mustEvent reads frames queued for c until one named event arrives.
func mustEvent(t *testing.T, c *Client, event string) Frame {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case raw, ok := <-c.send:
			if !ok {
				t.Fatalf("%s: connection closed before %q arrived", c.identity.Username, event)
			}
			var f Frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			if f.Event == event {
				return f
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("%s: expected event %q not received", c.identity.Username, event)
	return Frame{}
}

// noEvent asserts that nothing named event is queued for c.
func noEvent(t *testing.T, c *Client, event string) {
	t.Helper()

	for _, f := range drain(t, c) {
		if f.Event == event {
			t.Fatalf("%s: unexpected %q: %s", c.identity.Username, event, f.Data)
		}
	}
}

// drain returns every frame currently queued for c.
func drain(t *testing.T, c *Client) []Frame {
	t.Helper()

	var out []Frame
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return out
			}
			var f Frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

func decodeData[T any](t *testing.T, f Frame) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(f.Data, &v); err != nil {
		t.Fatalf("decode %s data: %v", f.Event, err)
	}
	return v
}

func sendRaw(h *Hub, c *Client, raw string) {
	h.HandleInbound(c, []byte(raw))
}
