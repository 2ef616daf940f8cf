package screens

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/emilianohg/devtracker/internal/db/dbtest"
	"github.com/emilianohg/devtracker/internal/models"
	"github.com/emilianohg/devtracker/internal/repository"
	"github.com/emilianohg/devtracker/internal/tracker"
)

func typeText(l *Lookup, s string) {
	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestLookupRequiresBothIDs(t *testing.T) {
	l := NewLookup()
	l.Init()

	typeText(l, "42")
	if cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatalf("expected no navigation with a missing offering id")
	}
	if !strings.Contains(l.View(), "Both ids are required") {
		t.Fatalf("expected validation message in view")
	}

	l.Update(tea.KeyMsg{Type: tea.KeyTab})
	typeText(l, "7")

	cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected navigation command")
	}
	nav, ok := cmd().(NavigateMsg)
	if !ok {
		t.Fatalf("expected NavigateMsg")
	}
	if nav.Screen != "project" || nav.UserID != "42" || nav.OfferingID != "7" {
		t.Fatalf("unexpected navigation %+v", nav)
	}
}

func TestProjectScreenLoadsAndScores(t *testing.T) {
	database := dbtest.Open(t)
	ctx := context.Background()
	deadline := time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC)

	assignments := repository.NewAssignmentRepo(database)
	if err := assignments.Create(ctx, models.Assignment{ID: "7", Deadline: deadline}); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if err := assignments.Link(ctx, "7", 100); err != nil {
		t.Fatalf("link: %v", err)
	}
	events := repository.NewEventRepo(database, "Class-Name")
	e := models.SensorData{Time: deadline.Add(-48 * time.Hour), ClassName: "Foo", CurrentSize: 30}
	if err := events.Record(ctx, "42", 100, e); err != nil {
		t.Fatalf("record: %v", err)
	}

	tr := tracker.New(database, "Class-Name", zerolog.Nop())
	p := NewProject(database, tr, "Class-Name", 5*time.Second)
	p.SetTarget("42", "7")
	p.Init()

	p.Update(p.loadData())
	view := p.View()
	if !strings.Contains(view, "Not scored yet") || !strings.Contains(view, "1 new events waiting") {
		t.Fatalf("unexpected view before scoring:\n%s", view)
	}

	cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if cmd == nil {
		t.Fatalf("expected scoring command")
	}
	reload := p.Update(cmd())
	if reload == nil {
		t.Fatalf("expected reload after scoring")
	}
	p.Update(reload())

	view = p.View()
	if !strings.Contains(view, "2.00") || !strings.Contains(view, "No new events") || !strings.Contains(view, "Foo") {
		t.Fatalf("unexpected view after scoring:\n%s", view)
	}
}

func TestProjectScreenUnknownOffering(t *testing.T) {
	database := dbtest.Open(t)
	tr := tracker.New(database, "Class-Name", zerolog.Nop())
	p := NewProject(database, tr, "Class-Name", 5*time.Second)
	p.SetTarget("42", "404")
	p.Init()

	p.Update(p.loadData())
	if !strings.Contains(p.View(), `assignment offering "404" not found`) {
		t.Fatalf("expected not found message, got:\n%s", p.View())
	}
	if cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")}); cmd != nil {
		t.Fatalf("scoring must be disabled without an assignment")
	}
}
