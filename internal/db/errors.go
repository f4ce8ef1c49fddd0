package db

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

// Classify is apperr.Classify for errors coming back from SQLite. The driver
// reports a full database as SQLITE_FULL rather than ENOSPC.
func Classify(op string, err error) error {
	if IsFull(err) {
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrStorageExhausted, err)
	}
	return apperr.Classify(op, err)
}

// IsFull reports whether err is SQLITE_FULL, including extended codes.
func IsFull(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL
}
