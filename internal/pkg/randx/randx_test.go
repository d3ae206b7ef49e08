package randx

import (
	"strings"
	"testing"
)

func TestSoloRoomKeyIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		k := SoloRoomKey()
		if !strings.HasPrefix(k, "solo-") || len(k) != len("solo-")+SoloTokenLength {
			t.Fatalf("unexpected key shape %q", k)
		}
		if _, dup := seen[k]; dup {
			t.Fatalf("duplicate solo key %q", k)
		}
		seen[k] = struct{}{}
	}
}

func TestBase62Alphabet(t *testing.T) {
	s, err := Base62(64)
	if err != nil {
		t.Fatalf("Base62() error = %v", err)
	}
	for _, c := range s {
		if !strings.ContainsRune(Base62Chars, c) {
			t.Fatalf("character %q outside alphabet", c)
		}
	}
}

func TestAvatarURL(t *testing.T) {
	got := AvatarURL("alice")
	if !strings.Contains(got, "name=alice") || !strings.HasPrefix(got, "https://ui-avatars.com/api/?") {
		t.Fatalf("unexpected avatar url %q", got)
	}
}
