package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/apperr"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")

	// ErrUserGone is the cause of the data error when updating a user whose row was removed.
	ErrUserGone = errors.New("user no longer exists")
)

// duplicateMarkers are driver messages for unique violations that escape
// gorm's error translation (e.g. inside raw statements).
var duplicateMarkers = []string{ //nolint:gochecknoglobals
	"UNIQUE constraint failed",
	"Duplicate entry",
	"duplicate key value",
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	for _, m := range duplicateMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}

	return false
}

// translate maps driver errors onto the apperr taxonomy.
func translate(msg string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrData):
		return err
	case isDuplicate(err):
		return apperr.DuplicateInsert(msg, err)
	default:
		return apperr.Data(msg, err)
	}
}
