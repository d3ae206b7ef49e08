package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"lobbychat/internal/app/user"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	if !IsUniqueViolation(fmt.Errorf("insert: %w", dup)) {
		t.Fatal("wrapped 23505 not detected")
	}
	if violatedConstraint(dup) != "users_email_key" {
		t.Fatalf("violatedConstraint() = %q", violatedConstraint(dup))
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation reported as unique")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error reported as unique")
	}
}

func TestNotFoundMapping(t *testing.T) {
	if !errors.Is(notFound(pgx.ErrNoRows, "select"), user.ErrNotFound) {
		t.Fatal("ErrNoRows should map to user.ErrNotFound")
	}
	if !errors.Is(notFound(&pgconn.PgError{Code: "22P02"}, "select"), user.ErrNotFound) {
		t.Fatal("malformed uuid should map to user.ErrNotFound")
	}

	boom := errors.New("boom")
	if err := notFound(boom, "select"); !errors.Is(err, boom) || errors.Is(err, user.ErrNotFound) {
		t.Fatalf("notFound(boom) = %v", err)
	}
}

func TestTextParam(t *testing.T) {
	if textParam(nil).Valid {
		t.Fatal("nil should be NULL")
	}
	s := ""
	if p := textParam(&s); !p.Valid || p.String != "" {
		t.Fatalf("textParam(&\"\") = %+v", p)
	}
}
