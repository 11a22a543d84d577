package cart

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidCart     = errors.New("invalid cart")
	ErrInvalidCartItem = errors.New("invalid cart item")
	ErrInvalidStatus   = errors.New("invalid cart status")
)

// IsForeignKeyViolation reports whether err was caused by a missing parent row,
// e.g. adding an item to a cart that does not exist.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, pgerrcode.ForeignKeyViolation)
}

func IsNotNullViolation(err error) bool {
	return hasCode(err, pgerrcode.NotNullViolation)
}

func IsCheckViolation(err error) bool {
	return hasCode(err, pgerrcode.CheckViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
