package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// AvatarPrefix is the key prefix under which avatars are stored.
	AvatarPrefix = "avatars"

	// MaxAvatarBytes is the largest accepted avatar.
	MaxAvatarBytes = 2 << 20
)

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AvatarKey returns a fresh object key for userID's avatar of the given MIME type.
func AvatarKey(userID, mimeType string) (string, error) {
	ext, ok := avatarExtensions[strings.ToLower(mimeType)]
	if !ok {
		return "", fmt.Errorf("unsupported avatar type %q", mimeType)
	}
	return fmt.Sprintf("%s/%s/%s%s", AvatarPrefix, userID, uuid.NewString(), ext), nil
}

// OwnsAvatarKey reports whether key lives under userID's avatar prefix.
func OwnsAvatarKey(userID, key string) bool {
	return strings.HasPrefix(key, AvatarPrefix+"/"+userID+"/") && !strings.Contains(key, "..")
}

// AllowedAvatarType reports whether mimeType is an accepted avatar format.
func AllowedAvatarType(mimeType string) bool {
	_, ok := avatarExtensions[strings.ToLower(mimeType)]
	return ok
}
