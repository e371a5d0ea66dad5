package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgErrUniqueViolation})
	fk := &pgconn.PgError{Code: pgErrForeignKeyViolation}

	if !isDuplicateKeyError(unique) {
		t.Error("expected wrapped unique violation to be a duplicate key error")
	}
	if isDuplicateKeyError(fk) || isDuplicateKeyError(errors.New("23505")) || isDuplicateKeyError(nil) {
		t.Error("unexpected duplicate key classification")
	}
	if !isForeignKeyError(fk) {
		t.Error("expected foreign key violation")
	}
	if !isNotFoundError(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to be not found")
	}
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"plain": "plain",
		"50%":   `50\%`,
		"a_b":   `a\_b`,
		`back\`: `back\\`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
