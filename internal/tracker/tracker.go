// Package tracker runs scoring passes: it folds a student's new sensor events
// into the stored early/often score of their project.
package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emilianohg/devtracker/internal/models"
	"github.com/emilianohg/devtracker/internal/repository"
)

type Result struct {
	PassID     string
	Project    *models.StudentProject
	NewProject bool
	Events     int
	Batch      models.Batch
}

type Tracker struct {
	assignments *repository.AssignmentRepo
	events      *repository.EventRepo
	projects    *repository.ProjectRepo
	log         zerolog.Logger

	// now is swapped in tests
	now func() time.Time
}

func New(db *sql.DB, classNameProperty string, log zerolog.Logger) *Tracker {
	return &Tracker{
		assignments: repository.NewAssignmentRepo(db),
		events:      repository.NewEventRepo(db, classNameProperty),
		projects:    repository.NewProjectRepo(db),
		log:         log,
		now:         time.Now,
	}
}

// Run performs one scoring pass for a user on an assignment offering and
// persists the updated project.
func (t *Tracker) Run(ctx context.Context, userID, offeringID string) (*Result, error) {
	result := &Result{PassID: uuid.NewString()}
	log := t.log.With().
		Str("pass", result.PassID).
		Str("user", userID).
		Str("offering", offeringID).
		Logger()

	assignment, err := t.assignments.GetByOfferingID(ctx, offeringID)
	if err != nil {
		return nil, fmt.Errorf("scoring pass: %w", err)
	}

	project, err := t.projects.Get(ctx, userID, *assignment)
	if err != nil {
		return nil, fmt.Errorf("scoring pass: %w", err)
	}

	if project == nil {
		project = models.NewStudentProject(userID, *assignment)
		result.NewProject = true
	}
	result.Project = project

	log.Debug().Int64("last_event", project.LastEventID).Bool("new_project", result.NewProject).Msg("fetching new events")

	events, err := t.events.GetUnscored(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("scoring pass: %w", err)
	}
	result.Events = len(events)

	result.Batch = ComputeBatch(project, events)
	if err := project.EarlyOften.UpdateAt(result.Batch, t.now()); err != nil {
		return nil, fmt.Errorf("scoring pass: %w", err)
	}

	if err := t.projects.Save(ctx, project); err != nil {
		return nil, fmt.Errorf("scoring pass: %w", err)
	}

	log.Info().
		Int("events", result.Events).
		Int64("edits", result.Batch.Edits).
		Int64("weighted_edits", result.Batch.WeightedEdits).
		Float64("score", project.EarlyOften.Score).
		Msg("scoring pass complete")

	return result, nil
}

// ComputeBatch turns events into an edit batch and records the new file
// sizes and the highest event id on the project. Events must be in
// chronological order. An edit is
// the absolute size change of a class; its weight is the number of days
// left before the deadline, at least 1.
func ComputeBatch(project *models.StudentProject, events []models.SensorData) models.Batch {
	var b models.Batch
	for _, e := range events {
		if e.ID > project.LastEventID {
			project.LastEventID = e.ID
		}
		previous := project.SetFileSize(e.ClassName, e.CurrentSize)

		edit := int64(e.CurrentSize - previous)
		if edit < 0 {
			edit = -edit
		}
		if edit == 0 {
			continue
		}

		b.Edits += edit
		b.WeightedEdits += edit * DaysUntil(project.Assignment.Deadline, e.Time)
	}
	return b
}

func DaysUntil(deadline, at time.Time) int64 {
	days := int64(math.Ceil(deadline.Sub(at).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}
