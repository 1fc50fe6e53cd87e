package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrReactionNotFound   = errors.New("reaction not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicate          = errors.New("duplicate row")
)

const pqUniqueViolation = "23505"

// mapWriteErr turns a Postgres unique violation into ErrDuplicate.
func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}
