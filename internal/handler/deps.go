package handler

import (
	"lobbychat/internal/app/chat"
	"lobbychat/internal/app/storage"
	"lobbychat/internal/app/user"
	"lobbychat/internal/configs"
	"lobbychat/internal/pkg/pow"
)

// AppDeps carries everything the HTTP handlers need.
type AppDeps struct {
	Config *configs.AppConfig
	Hub    *chat.Hub
	Users  user.Store
	Gate   *user.Gate
	Pow    *pow.Manager

	// Storage is nil when avatar uploads are not configured.
	Storage storage.StorageService
}
