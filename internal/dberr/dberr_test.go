package dberr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestWrapClassifiesConnectionFailures(t *testing.T) {
	cases := []error{
		driver.ErrBadConn,
		sql.ErrConnDone,
		fmt.Errorf("dial: %w", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}),
	}
	for _, raw := range cases {
		err := Wrap("get assignment", raw)
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("expected ConnectionError for %v, got %T", raw, err)
		}
		if !IsTransient(err) {
			t.Fatalf("expected %v to be transient", raw)
		}
		if !errors.Is(err, raw) {
			t.Fatalf("expected wrapped error to unwrap to %v", raw)
		}
	}
}

func TestWrapClassifiesQueryFailures(t *testing.T) {
	raw := errors.New("no such table: TASSIGNMENTOFFERING")
	err := Wrap("get assignment", raw)

	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("expected QueryError, got %T", err)
	}
	if queryErr.Op != "get assignment" {
		t.Fatalf("expected op to be kept, got %q", queryErr.Op)
	}
	if IsTransient(err) {
		t.Fatalf("query errors must not be transient")
	}
}

func TestWrapPassesThrough(t *testing.T) {
	if Wrap("op", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	if err := Wrap("op", context.Canceled); err != context.Canceled {
		t.Fatalf("expected context.Canceled unchanged, got %v", err)
	}

	nf := NotFound("assignment offering", "9")
	if err := Wrap("op", nf); err != nf {
		t.Fatalf("expected not found error unchanged, got %v", err)
	}

	once := Wrap("inner", errors.New("boom"))
	if err := Wrap("outer", once); err != once {
		t.Fatalf("expected already classified error unchanged, got %v", err)
	}
}

func TestNotFoundMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("scoring pass: %w", NotFound("assignment offering", "9"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(err, ErrNotFound)")
	}
	if err.Error() != `scoring pass: assignment offering "9" not found` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
