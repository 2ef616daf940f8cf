package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/emilianohg/devtracker/internal/dberr"
	"github.com/emilianohg/devtracker/internal/models"
)

type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Get loads the incremental-development feedback of a student for an
// assignment: the early/often score plus the last known size of every
// tracked class. It returns nil, nil when the project has never been
// scored.
func (r *ProjectRepo) Get(ctx context.Context, userID string, assignment models.Assignment) (*models.StudentProject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fs.name, fs.size, f.lastEventId,
		       eo.totalEdits, eo.totalWeightedEdits, eo.score, eo.lastUpdated
		FROM IncDevFeedbackForStudentProject f
		JOIN EarlyOftenForFeedback eo ON eo.id = f.earlyOftenId
		LEFT JOIN FileSizeForStudentProject fs ON fs.feedbackId = f.id
		WHERE f.userId = ? AND f.assignmentOfferingId = ?
	`, userID, assignment.ID)
	if err != nil {
		return nil, dberr.Wrap("get student project", err)
	}
	defer rows.Close()

	var project *models.StudentProject
	for rows.Next() {
		var className sql.NullString
		var size sql.NullInt64
		var eo models.EarlyOften
		var lastUpdated, lastEventID int64

		if err := rows.Scan(
			&className, &size, &lastEventID,
			&eo.TotalEdits, &eo.TotalWeightedEdits, &eo.Score, &lastUpdated,
		); err != nil {
			return nil, dberr.Wrap("get student project", err)
		}

		// The score columns repeat on every file row; keep the first copy
		if project == nil {
			project = models.NewStudentProject(userID, assignment)
			eo.LastUpdated = time.UnixMilli(lastUpdated)
			project.EarlyOften = eo
			project.LastEventID = lastEventID
		}

		if className.Valid {
			project.SetFileSize(className.String, int(size.Int64))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap("get student project", err)
	}

	return project, nil
}

// Save persists the project's score and file sizes in one transaction,
// creating the feedback rows on first save.
func (r *ProjectRepo) Save(ctx context.Context, project *models.StudentProject) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dberr.Wrap("save student project", err)
	}
	defer tx.Rollback()

	eo := project.EarlyOften
	var feedbackID, earlyOftenID int64

	err = tx.QueryRowContext(ctx, `
		SELECT id, earlyOftenId
		FROM IncDevFeedbackForStudentProject
		WHERE userId = ? AND assignmentOfferingId = ?
	`, project.UserID, project.Assignment.ID).Scan(&feedbackID, &earlyOftenID)

	switch {
	case err == sql.ErrNoRows:
		result, err := tx.ExecContext(ctx, `
			INSERT INTO EarlyOftenForFeedback (totalEdits, totalWeightedEdits, score, lastUpdated)
			VALUES (?, ?, ?, ?)
		`, eo.TotalEdits, eo.TotalWeightedEdits, eo.Score, eo.LastUpdated.UnixMilli())
		if err != nil {
			return dberr.Wrap("save student project", err)
		}
		if earlyOftenID, err = result.LastInsertId(); err != nil {
			return dberr.Wrap("save student project", err)
		}

		result, err = tx.ExecContext(ctx, `
			INSERT INTO IncDevFeedbackForStudentProject (userId, assignmentOfferingId, earlyOftenId, lastEventId)
			VALUES (?, ?, ?, ?)
		`, project.UserID, project.Assignment.ID, earlyOftenID, project.LastEventID)
		if err != nil {
			return dberr.Wrap("save student project", err)
		}
		if feedbackID, err = result.LastInsertId(); err != nil {
			return dberr.Wrap("save student project", err)
		}

	case err != nil:
		return dberr.Wrap("save student project", err)

	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE EarlyOftenForFeedback
			SET totalEdits = ?, totalWeightedEdits = ?, score = ?, lastUpdated = ?
			WHERE id = ?
		`, eo.TotalEdits, eo.TotalWeightedEdits, eo.Score, eo.LastUpdated.UnixMilli(), earlyOftenID); err != nil {
			return dberr.Wrap("save student project", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE IncDevFeedbackForStudentProject SET lastEventId = ? WHERE id = ?",
			project.LastEventID, feedbackID,
		); err != nil {
			return dberr.Wrap("save student project", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM FileSizeForStudentProject WHERE feedbackId = ?",
		feedbackID,
	); err != nil {
		return dberr.Wrap("save student project", err)
	}

	for _, fs := range project.FileSizes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO FileSizeForStudentProject (feedbackId, name, size) VALUES (?, ?, ?)",
			feedbackID, fs.ClassName, fs.Size,
		); err != nil {
			return dberr.Wrap("save student project", err)
		}
	}

	return dberr.Wrap("save student project", tx.Commit())
}
