package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/emilianohg/devtracker/internal/dberr"
	"github.com/emilianohg/devtracker/internal/models"
)

type EventRepo struct {
	db *sql.DB

	// classNameProperty is the SensorDataProperty.name carrying the class
	// name of an edit ("Class-Name" on stock Web-CAT).
	classNameProperty string
}

func NewEventRepo(db *sql.DB, classNameProperty string) *EventRepo {
	return &EventRepo{db: db, classNameProperty: classNameProperty}
}

// GetNewEvents returns the project's sensor events at or after the given
// time, oldest first. No matching rows yields an empty, non-nil slice.
func (r *EventRepo) GetNewEvents(ctx context.Context, project *models.StudentProject, after time.Time) ([]models.SensorData, error) {
	return r.list(ctx, "get new events", project, "sd.time >= ?", after.UnixMilli())
}

// GetUnscored returns the project's events that arrived after the last
// scoring pass, i.e. with an OID above project.LastEventID, oldest first.
// Arrival order is used instead of event time so that late uploads are
// still scored and future-dated events are scored once.
func (r *EventRepo) GetUnscored(ctx context.Context, project *models.StudentProject) ([]models.SensorData, error) {
	return r.list(ctx, "get unscored events", project, "sd.OID > ?", project.LastEventID)
}

func (r *EventRepo) list(ctx context.Context, op string, project *models.StudentProject, filter string, arg any) ([]models.SensorData, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sd.OID, sd.time, sdp.value, sd.currentSize
		FROM SensorData sd
		JOIN SensorDataProperty sdp ON sdp.sensorDataId = sd.OID
		JOIN StudentProject sp ON sp.OID = sd.projectId
		JOIN StudentProjectForAssignment spfa ON spfa.studentProjectId = sp.OID
		JOIN ProjectForAssignment pfa ON pfa.OID = spfa.projectForAssignmentId
		JOIN TASSIGNMENTOFFERING ao ON ao.OID = pfa.assignmentOfferingId
		WHERE sdp.name = ?
		  AND sd.userId = ?
		  AND ao.OID = ?
		  AND `+filter+`
		ORDER BY sd.time ASC, sd.OID ASC
	`, r.classNameProperty, project.UserID, project.Assignment.ID, arg)
	if err != nil {
		return nil, dberr.Wrap(op, err)
	}
	defer rows.Close()

	events := []models.SensorData{}
	for rows.Next() {
		var e models.SensorData
		var at int64
		var className sql.NullString

		if err := rows.Scan(&e.ID, &at, &className, &e.CurrentSize); err != nil {
			return nil, dberr.Wrap(op, err)
		}

		e.Time = time.UnixMilli(at)
		e.ClassName = className.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(op, err)
	}
	return events, nil
}

// Record stores a sensor event and its class-name property in a local mirror
// database.
func (r *EventRepo) Record(ctx context.Context, userID string, studentProjectOID int64, e models.SensorData) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dberr.Wrap("record event", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO SensorData (projectId, userId, `time`, currentSize) VALUES (?, ?, ?, ?)",
		studentProjectOID, userID, e.Time.UnixMilli(), e.CurrentSize,
	)
	if err != nil {
		return dberr.Wrap("record event", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return dberr.Wrap("record event", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO SensorDataProperty (sensorDataId, name, value) VALUES (?, ?, ?)",
		id, r.classNameProperty, e.ClassName,
	); err != nil {
		return dberr.Wrap("record event", err)
	}

	return dberr.Wrap("record event", tx.Commit())
}
