package screens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emilianohg/devtracker/internal/dberr"
	"github.com/emilianohg/devtracker/internal/models"
	"github.com/emilianohg/devtracker/internal/repository"
	"github.com/emilianohg/devtracker/internal/tracker"
)

// Project shows the stored feedback of one student project and the events
// waiting for the next scoring pass.
type Project struct {
	db                *sql.DB
	tracker           *tracker.Tracker
	classNameProperty string
	timeout           time.Duration
	width             int
	height            int

	userID     string
	offeringID string

	assignment *models.Assignment
	project    *models.StudentProject
	pending    []models.SensorData
	loading    bool
	err        error
	message    string
}

func NewProject(db *sql.DB, t *tracker.Tracker, classNameProperty string, timeout time.Duration) *Project {
	return &Project{
		db:                db,
		tracker:           t,
		classNameProperty: classNameProperty,
		timeout:           timeout,
	}
}

func (p *Project) SetSize(width, height int) {
	p.width = width
	p.height = height
}

func (p *Project) SetTarget(userID, offeringID string) {
	p.userID = userID
	p.offeringID = offeringID
	p.message = ""
}

type projectDataMsg struct {
	assignment *models.Assignment
	project    *models.StudentProject
	pending    []models.SensorData
	err        error
}

type scoredMsg struct {
	result *tracker.Result
	err    error
}

func (p *Project) Init() tea.Cmd {
	p.loading = true
	return p.loadData
}

func (p *Project) loadData() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	assignment, err := repository.NewAssignmentRepo(p.db).GetByOfferingID(ctx, p.offeringID)
	if err != nil {
		return projectDataMsg{err: err}
	}

	project, err := repository.NewProjectRepo(p.db).Get(ctx, p.userID, *assignment)
	if err != nil {
		return projectDataMsg{err: err}
	}

	lookup := project
	if project == nil {
		lookup = models.NewStudentProject(p.userID, *assignment)
	}

	pending, err := repository.NewEventRepo(p.db, p.classNameProperty).GetUnscored(ctx, lookup)
	if err != nil {
		return projectDataMsg{err: err}
	}

	return projectDataMsg{assignment: assignment, project: project, pending: pending}
}

func (p *Project) score() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	result, err := p.tracker.Run(ctx, p.userID, p.offeringID)
	return scoredMsg{result: result, err: err}
}

func (p *Project) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case projectDataMsg:
		p.loading = false
		p.err = msg.err
		p.assignment = msg.assignment
		p.project = msg.project
		p.pending = msg.pending
		return nil

	case scoredMsg:
		if msg.err != nil {
			p.err = msg.err
			return nil
		}
		p.message = fmt.Sprintf("Scored %d events (%d edits)", msg.result.Events, msg.result.Batch.Edits)
		return p.loadData

	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			if p.loading || p.assignment == nil {
				return nil
			}
			p.message = "Scoring..."
			return p.score
		case "r":
			return p.Init()
		case "q", "esc":
			return Navigate("lookup")
		}
	}

	return nil
}

func (p *Project) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("User %s / Offering %s", p.userID, p.offeringID)))
	b.WriteString("\n")

	if p.loading {
		b.WriteString("Loading...\n")
		return b.String()
	}

	if p.err != nil {
		if errors.Is(p.err, dberr.ErrNotFound) {
			b.WriteString(WarningStyle.Render(p.err.Error()))
		} else {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", p.err)))
		}
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("[r] Retry  [q] Back"))
		return b.String()
	}

	b.WriteString(SubtitleStyle.Render("Due " + p.assignment.Deadline.Format("Jan 02, 2006 15:04")))
	b.WriteString("\n")

	if p.project == nil {
		b.WriteString(BoxStyle.Render("Not scored yet"))
	} else {
		eo := p.project.EarlyOften
		b.WriteString(BoxStyle.Render(fmt.Sprintf(
			"Early/often score: %s\nEdits: %d (weighted %d)\nLast updated: %s",
			SuccessStyle.Render(fmt.Sprintf("%.2f", eo.Score)),
			eo.TotalEdits,
			eo.TotalWeightedEdits,
			eo.LastUpdated.Format("Jan 02, 2006 15:04"),
		)))
	}
	b.WriteString("\n\n")

	if p.project != nil && len(p.project.FileSizes) > 0 {
		b.WriteString(SubtitleStyle.Render("Files"))
		b.WriteString("\n")
		names := make([]string, 0, len(p.project.FileSizes))
		for name := range p.project.FileSizes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				NormalStyle.Render(name),
				DimStyle.Render(fmt.Sprintf("%d", p.project.FileSizes[name].Size)),
			))
		}
		b.WriteString("\n")
	}

	if len(p.pending) == 0 {
		b.WriteString(DimStyle.Render("No new events"))
	} else {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%d new events waiting", len(p.pending))))
	}
	b.WriteString("\n")

	if p.message != "" {
		b.WriteString(NormalStyle.Render(p.message))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("[s] Score now  [r] Refresh  [q] Back"))
	return b.String()
}
