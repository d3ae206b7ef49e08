package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"lobbychat/internal/app/user"
)

const userColumns = `id::text, username, email, password_hash, display_name, bio, avatar, joined_date,
	is_verified, verification_badge, is_active, is_online, last_login, last_seen, created_at, updated_at`

// UserRepo implements user.Store on PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a UserRepo over pool.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (user.Identity, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1::uuid`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (user.Identity, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (user.Identity, error) {
	return r.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1) OR username = $1 LIMIT 1`,
		identifier,
	)
}

func (r *UserRepo) Create(ctx context.Context, p user.CreateParams) (user.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, display_name, bio, avatar)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		p.Username, p.Email, p.PasswordHash, p.Profile.DisplayName, p.Profile.Bio, p.Profile.Avatar,
	)

	u, err := scanIdentity(row)
	if err != nil {
		if IsUniqueViolation(err) {
			if strings.Contains(violatedConstraint(err), "email") {
				return user.Identity{}, user.ErrEmailTaken
			}
			return user.Identity{}, user.ErrUsernameTaken
		}
		return user.Identity{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1::uuid`,
		id, online, lastSeen,
	)
}

// ResetPresence clears online flags left behind by a previous process. Presence is
// process-local, so nobody is online when the server starts.
func (r *UserRepo) ResetPresence(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_online = FALSE, last_seen = NOW() WHERE is_online`)
	if err != nil {
		return 0, fmt.Errorf("reset presence: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET last_login = $2, updated_at = NOW() WHERE id = $1::uuid`,
		id, at,
	)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, up user.ProfileUpdate) (user.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			display_name = COALESCE($2, display_name),
			bio          = COALESCE($3, bio),
			avatar       = COALESCE($4, avatar),
			updated_at   = NOW()
		WHERE id = $1::uuid
		RETURNING `+userColumns,
		id, textParam(up.DisplayName), textParam(up.Bio), textParam(up.Avatar),
	)

	u, err := scanIdentity(row)
	if err != nil {
		return user.Identity{}, notFound(err, "update profile")
	}
	return u, nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (user.Identity, error) {
	u, err := scanIdentity(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return user.Identity{}, notFound(err, "select user")
	}
	return u, nil
}

func (r *UserRepo) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return notFound(err, "update user")
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanIdentity(row pgx.Row) (user.Identity, error) {
	var (
		u         user.Identity
		badge     string
		lastLogin pgtype.Timestamptz
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Profile.DisplayName, &u.Profile.Bio, &u.Profile.Avatar, &u.Profile.JoinedDate,
		&u.Verification.IsVerified, &badge, &u.IsActive, &u.IsOnline,
		&lastLogin, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return user.Identity{}, err
	}

	u.Verification.Badge = user.Badge(badge)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

func textParam(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return user.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ user.Store = (*UserRepo)(nil)
