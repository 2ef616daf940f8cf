// Package dberr classifies database failures so callers can tell a lost
// connection from a failed statement from a missing row.
package dberr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
)

var ErrNotFound = errors.New("not found")

// ConnectionError means the database could not be reached or the
// connection was lost mid-operation.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError means a specific statement failed while the connection was fine
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: query failed: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Wrap tags a raw driver error with the operation that produced it.
// Context cancellation and errors already classified pass through.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var connErr *ConnectionError
	var queryErr *QueryError
	var nfErr *NotFoundError
	if errors.As(err, &connErr) || errors.As(err, &queryErr) || errors.As(err, &nfErr) {
		return err
	}

	if isConnectionFailure(err) {
		return &ConnectionError{Op: op, Err: err}
	}
	return &QueryError{Op: op, Err: err}
}

// IsTransient reports whether err is worth retrying on a fresh connection
func IsTransient(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
