package service

import (
	"errors"

	"spothire/internal/common"
)

func isUnavailable(err error) bool {
	return errors.Is(err, common.ErrUnavailable)
}

func isConflict(err error) bool {
	return errors.Is(err, common.ErrConflict)
}
