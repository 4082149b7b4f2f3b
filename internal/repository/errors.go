// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service package to distinguish between different failure scenarios
// without inspecting driver errors. For example, ErrStaleSession signals
// that a refresh session changed underneath a rotation and ErrEmailExists
// that the unique index on users.email rejected an insert.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id or email matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert collides with the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrStaleSession is returned by conditional session updates that matched
// no row: the session was rotated, revoked or expired by someone else.
var ErrStaleSession = errors.New("stale session")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
