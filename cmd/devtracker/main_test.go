package main

import (
	"testing"
	"time"

	"github.com/emilianohg/devtracker/internal/db"
	"github.com/emilianohg/devtracker/internal/db/dbtest"
)

func TestParseTimeArg(t *testing.T) {
	got, err := parseTimeArg("1537444800000")
	if err != nil {
		t.Fatalf("parse millis: %v", err)
	}
	if !got.Equal(time.Date(2018, 9, 20, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}

	got, err = parseTimeArg("2018-10-01T23:59:00Z")
	if err != nil {
		t.Fatalf("parse rfc3339: %v", err)
	}
	if got.UnixMilli() != 1538438340000 {
		t.Fatalf("unexpected millis %d", got.UnixMilli())
	}

	if _, err := parseTimeArg("next tuesday"); err == nil {
		t.Fatalf("expected error for unparseable time")
	}
}

func TestMigrateFresh(t *testing.T) {
	database, err := db.Open(dbtest.Config(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	if err := migrateFresh(database, "sqlite3"); err != nil {
		t.Fatalf("migrate fresh: %v", err)
	}
	status, err := db.GetMigrationStatus(database, "sqlite3")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CurrentVersion != status.LatestVersion || status.Pending {
		t.Fatalf("expected migrated schema, got %+v", status)
	}

	// Already migrated and external schemas are left alone
	if err := migrateFresh(database, "sqlite3"); err != nil {
		t.Fatalf("second migrate fresh: %v", err)
	}
	if err := migrateFresh(nil, "mysql"); err != nil {
		t.Fatalf("expected mysql to be skipped, got %v", err)
	}
}

func TestMigrateFreshReportsStatusError(t *testing.T) {
	if err := migrateFresh(nil, "sqlite3"); err == nil {
		t.Fatalf("expected error without a database")
	}
}
