package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/emilianohg/devtracker/internal/dberr"
	"github.com/emilianohg/devtracker/internal/models"
)

type AssignmentRepo struct {
	db *sql.DB
}

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// GetByOfferingID looks up a TASSIGNMENTOFFERING row. A missing offering is a
// *dberr.NotFoundError.
func (r *AssignmentRepo) GetByOfferingID(ctx context.Context, offeringID string) (*models.Assignment, error) {
	var a models.Assignment
	var deadline int64

	err := r.db.QueryRowContext(ctx, `
		SELECT OID, CDUEDATE
		FROM TASSIGNMENTOFFERING
		WHERE OID = ?
	`, offeringID).Scan(&a.ID, &deadline)

	if err == sql.ErrNoRows {
		return nil, dberr.NotFound("assignment offering", offeringID)
	}
	if err != nil {
		return nil, dberr.Wrap("get assignment", err)
	}

	a.Deadline = time.UnixMilli(deadline)
	return &a, nil
}

// Create inserts an offering into a local mirror database
func (r *AssignmentRepo) Create(ctx context.Context, a models.Assignment) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO TASSIGNMENTOFFERING (OID, CDUEDATE) VALUES (?, ?)",
		a.ID, a.Deadline.UnixMilli(),
	)
	return dberr.Wrap("create assignment", err)
}

// Link attaches a student project to an offering the way Web-CAT does,
// through ProjectForAssignment and StudentProjectForAssignment rows.
func (r *AssignmentRepo) Link(ctx context.Context, offeringID string, studentProjectOID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dberr.Wrap("link project", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO StudentProject (OID) SELECT ? WHERE NOT EXISTS (SELECT 1 FROM StudentProject WHERE OID = ?)",
		studentProjectOID, studentProjectOID,
	); err != nil {
		return dberr.Wrap("link project", err)
	}

	var pfaID int64
	err = tx.QueryRowContext(ctx,
		"SELECT OID FROM ProjectForAssignment WHERE assignmentOfferingId = ?",
		offeringID,
	).Scan(&pfaID)
	if err == sql.ErrNoRows {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO ProjectForAssignment (assignmentOfferingId) VALUES (?)",
			offeringID,
		)
		if err != nil {
			return dberr.Wrap("link project", err)
		}
		if pfaID, err = result.LastInsertId(); err != nil {
			return dberr.Wrap("link project", err)
		}
	} else if err != nil {
		return dberr.Wrap("link project", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO StudentProjectForAssignment (studentProjectId, projectForAssignmentId) VALUES (?, ?)",
		studentProjectOID, pfaID,
	); err != nil {
		return dberr.Wrap("link project", err)
	}

	return dberr.Wrap("link project", tx.Commit())
}
