package tui

import (
	"database/sql"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/emilianohg/devtracker/internal/config"
	"github.com/emilianohg/devtracker/internal/tracker"
	"github.com/emilianohg/devtracker/internal/tui/screens"
)

type Screen int

const (
	ScreenLookup Screen = iota
	ScreenProject
)

type App struct {
	db            *sql.DB
	cfg           *config.Config
	log           zerolog.Logger
	currentScreen Screen
	width         int
	height        int

	// Screen models
	lookup  *screens.Lookup
	project *screens.Project
}

func NewApp(db *sql.DB, cfg *config.Config, log zerolog.Logger) *App {
	return &App{
		db:            db,
		cfg:           cfg,
		log:           log,
		currentScreen: ScreenLookup,
	}
}

func (a *App) Init() tea.Cmd {
	t := tracker.New(a.db, a.cfg.Tracker.ClassNameProperty, a.log)
	a.lookup = screens.NewLookup()
	a.project = screens.NewProject(a.db, t, a.cfg.Tracker.ClassNameProperty, a.cfg.Database.QueryTimeout)

	return a.lookup.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Text inputs need 'q', so only ctrl+c quits globally
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.lookup.SetSize(msg.Width, msg.Height)
		a.project.SetSize(msg.Width, msg.Height)

	case screens.NavigateMsg:
		return a.handleNavigation(msg)
	}

	var cmd tea.Cmd
	switch a.currentScreen {
	case ScreenLookup:
		cmd = a.lookup.Update(msg)
	case ScreenProject:
		cmd = a.project.Update(msg)
	}

	return a, cmd
}

func (a *App) handleNavigation(msg screens.NavigateMsg) (tea.Model, tea.Cmd) {
	switch msg.Screen {
	case "lookup":
		a.currentScreen = ScreenLookup
		return a, a.lookup.Init()
	case "project":
		a.currentScreen = ScreenProject
		a.project.SetTarget(msg.UserID, msg.OfferingID)
		return a, a.project.Init()
	}
	return a, nil
}

func (a *App) View() string {
	var content string

	switch a.currentScreen {
	case ScreenLookup:
		content = a.lookup.View()
	case ScreenProject:
		content = a.project.View()
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height).
		Render(content)
}

func Run(db *sql.DB, cfg *config.Config, log zerolog.Logger) error {
	app := NewApp(db, cfg, log)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
