package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/auth/jwt"
	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/req"
	"lobbychat/internal/pkg/resp"
)

type SignupInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type authResponse struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}

// HandleSignup creates an account and signs the user in.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SignupInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Username = strings.TrimSpace(input.Username)
		if customErr := user.ValidateUsername(input.Username); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		email, customErr := user.NormalizeEmail(input.Email)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := user.ValidatePassword(input.Password); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Password != input.ConfirmPassword {
			resp.RespondError(w, r, errs.NewError(errs.ErrPasswordMismatch))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			logx.Error(err, "signup: hash password")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		created, err := deps.Users.Create(r.Context(), user.CreateParams{
			Username:     input.Username,
			Email:        email,
			PasswordHash: string(hash),
			Profile:      user.DefaultProfile(input.Username),
		})
		if err != nil {
			switch {
			case errors.Is(err, user.ErrUsernameTaken):
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
			case errors.Is(err, user.ErrEmailTaken):
				resp.RespondError(w, r, errs.NewError(errs.ErrEmailAlreadyUsed))
			default:
				logx.Error(err, "signup: create user", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrServerError))
			}
			return
		}

		respondWithToken(w, r, deps, created, resp.RespondCreated)
	}
}

type LoginInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// HandleLogin verifies credentials given as email or username and issues a token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Identifier = strings.TrimSpace(input.Identifier)
		if input.Identifier == "" || input.Password == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		account, err := deps.Users.GetByIdentifier(r.Context(), input.Identifier)
		if err != nil {
			if !errors.Is(err, user.ErrNotFound) {
				logx.Error(err, "login: user lookup")
				resp.RespondError(w, r, errs.NewError(errs.ErrServerError))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if !account.IsActive {
			resp.RespondError(w, r, errs.NewError(errs.ErrAccountDisabled))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "user_id", account.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		now := time.Now().UTC()
		if err := deps.Users.UpdateLastLogin(r.Context(), account.ID, now); err != nil {
			logx.Error(err, "login: failed to update last login", "user_id", account.ID)
		} else {
			account.LastLogin = &now
		}

		respondWithToken(w, r, deps, account, resp.RespondSuccess)
	}
}

type VerifyTokenInput struct {
	Token string `json:"token"`
}

// HandleVerifyToken resolves a token to the account it belongs to.
func HandleVerifyToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input VerifyTokenInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, err := deps.Gate.Authenticate(r.Context(), input.Token)
		if err != nil {
			resp.RespondError(w, r, user.GateError(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": account})
	}
}

func respondWithToken(
	w http.ResponseWriter,
	r *http.Request,
	deps *AppDeps,
	account user.Identity,
	respond func(http.ResponseWriter, *http.Request, any),
) {
	token, err := jwt.GenerateToken(account.ID, deps.Config.JWTSecret, deps.Config.JWTExpiresIn)
	if err != nil {
		logx.Error(err, "failed to generate token", "user_id", account.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}

	respond(w, r, authResponse{Token: token, User: account})
}
