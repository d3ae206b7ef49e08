package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lobbychat/internal/app/storage"
	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/auth/jwt"
	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/req"
	"lobbychat/internal/pkg/resp"
)

const (
	presignDuration      = 5 * time.Minute
	avatarCleanupTimeout = 10 * time.Second
)

// requireAccount loads the signed-in account, writing an error response when there is none.
func requireAccount(w http.ResponseWriter, r *http.Request, deps *AppDeps) (user.Identity, bool) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return user.Identity{}, false
	}

	account, err := deps.Users.GetByID(r.Context(), payload.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return user.Identity{}, false
		}
		logx.Error(err, "failed to load account", "user_id", payload.UserID)
		resp.RespondError(w, r, errs.NewError(errs.ErrServerError))
		return user.Identity{}, false
	}

	if !account.IsActive {
		resp.RespondError(w, r, errs.NewError(errs.ErrAccountDisabled))
		return user.Identity{}, false
	}

	return account, true
}

// HandleGetUserProfile returns the signed-in user's own profile.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(w, r, deps)
		if !ok {
			return
		}
		resp.RespondSuccess(w, r, map[string]any{"user": account})
	}
}

// HandleGetPublicProfile returns the public view of any active account by username.
func HandleGetPublicProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		account, err := deps.Users.GetByUsername(r.Context(), username)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "failed to load public profile", "username", username)
			resp.RespondError(w, r, errs.NewError(errs.ErrServerError))
			return
		}

		if !account.IsActive {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": account.Public()})
	}
}

type UpdateProfileInput struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	AvatarKey   *string `json:"avatarKey"`
}

// HandleUpdateUserProfile applies a partial profile update. An avatarKey must name an
// object already uploaded under the caller's avatar prefix.
func HandleUpdateUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(w, r, deps)
		if !ok {
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var update user.ProfileUpdate

		if input.DisplayName != nil {
			name := strings.TrimSpace(*input.DisplayName)
			if customErr := user.ValidateDisplayName(name); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			update.DisplayName = &name
		}

		if input.Bio != nil {
			bio := strings.TrimSpace(*input.Bio)
			if customErr := user.ValidateBio(bio); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			update.Bio = &bio
		}

		if input.AvatarKey != nil {
			if deps.Storage == nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
				return
			}

			key := strings.TrimSpace(*input.AvatarKey)
			if !storage.OwnsAvatarKey(account.ID, key) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}

			info, err := deps.Storage.Stat(r.Context(), key)
			if err != nil {
				if errors.Is(err, storage.ErrObjectNotFound) {
					resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
					return
				}
				logx.Error(err, "failed to stat uploaded avatar", "key", key)
				resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
				return
			}

			if !storage.AllowedAvatarType(info.ContentType) || info.Size > storage.MaxAvatarBytes {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}

			url := deps.Storage.PublicURL(key)
			update.Avatar = &url
		}

		updated, err := deps.Users.UpdateProfile(r.Context(), account.ID, update)
		if err != nil {
			logx.Error(err, "failed to update profile", "user_id", account.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrServerError))
			return
		}

		if update.Avatar != nil {
			deleteOldAvatar(deps, account.Profile.Avatar, *update.Avatar)
		}

		resp.RespondSuccess(w, r, map[string]any{"user": updated})
	}
}

type PresignAvatarInput struct {
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAvatarURL returns a presigned PUT URL for a new avatar object.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(w, r, deps)
		if !ok {
			return
		}

		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !storage.AllowedAvatarType(input.MimeType) || input.FileSize <= 0 || input.FileSize > storage.MaxAvatarBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		key, err := storage.AvatarKey(account.ID, input.MimeType)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.Storage.PresignUpload(r.Context(), key, input.MimeType, input.FileSize, presignDuration)
		if err != nil {
			logx.Error(err, "failed to generate presigned url", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{
			"presignedUrl": url,
			"avatarKey":    key,
		})
	}
}

// HandleUploadAvatar accepts a multipart "avatar" file, stores it and points the
// profile at it.
func HandleUploadAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(w, r, deps)
		if !ok {
			return
		}

		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAvatarBytes+64<<10)
		file, header, err := r.FormFile("avatar")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		mimeType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
		if err != nil || !storage.AllowedAvatarType(mimeType) || header.Size > storage.MaxAvatarBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		key, err := storage.AvatarKey(account.ID, mimeType)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Storage.Upload(r.Context(), key, mimeType, file); err != nil {
			logx.Error(err, "failed to upload avatar", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		url := deps.Storage.PublicURL(key)
		updated, err := deps.Users.UpdateProfile(r.Context(), account.ID, user.ProfileUpdate{Avatar: &url})
		if err != nil {
			logx.Error(err, "failed to save avatar", "user_id", account.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrServerError))
			return
		}

		deleteOldAvatar(deps, account.Profile.Avatar, url)

		resp.RespondSuccess(w, r, map[string]any{"user": updated})
	}
}

// deleteOldAvatar removes the previous avatar object in the background when it was
// one of ours and has been replaced.
func deleteOldAvatar(deps *AppDeps, oldURL, newURL string) {
	if oldURL == "" || oldURL == newURL {
		return
	}

	key, ok := deps.Storage.KeyFromURL(oldURL)
	if !ok {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), avatarCleanupTimeout)
		defer cancel()

		if err := deps.Storage.Delete(ctx, key); err != nil {
			logx.Error(err, "failed to delete old avatar", "key", key)
		}
	}()
}
