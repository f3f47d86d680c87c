package roles

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/araxson/enorae-sub010/internal/shared"
)

func TestTranslateWriteError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"duplicate key", &pgconn.PgError{Code: "23505"}, shared.ErrConflict, "role assignment already exists"},
		{"missing user or salon", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"}), shared.ErrNotFound, "user or tenant not found"},
		{"other pg error", &pgconn.PgError{Code: "23514"}, nil, "internal error"},
		{"transport", errors.New("conn closed"), nil, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := translateWriteError("insert", tc.err)
			assert.Equal(t, tc.kind, shared.KindOf(err))
			assert.Equal(t, tc.msg, shared.UserSafeMessage(err))
		})
	}
}
