package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/emilianohg/devtracker/internal/config"
	"github.com/emilianohg/devtracker/internal/db"
	"github.com/emilianohg/devtracker/internal/dberr"
	"github.com/emilianohg/devtracker/internal/logging"
	"github.com/emilianohg/devtracker/internal/models"
	"github.com/emilianohg/devtracker/internal/repository"
	"github.com/emilianohg/devtracker/internal/tracker"
	"github.com/emilianohg/devtracker/internal/tui"
)

var configPath string

// app bundles what every command needs; close releases it
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *sql.DB

	logCloser io.Closer
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

func (a *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.Database.QueryTimeout)
}

func setup(logOut io.Writer) *app {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("cannot open database")
		closer.Close()
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, log: logger, db: database, logCloser: closer}
	if err := migrateFresh(a.db, cfg.Database.Driver); err != nil {
		a.log.Error().Err(err).Msg("cannot prepare local mirror")
		a.close()
		fmt.Fprintf(os.Stderr, "Error running initial migrations: %v\n", err)
		os.Exit(1)
	}

	return a
}

// migrateFresh gives a new local mirror its schema without user interaction
func migrateFresh(database *sql.DB, driver string) error {
	if driver != "sqlite3" {
		return nil
	}
	status, err := db.GetMigrationStatus(database, driver)
	if err != nil {
		return err
	}
	if status.CurrentVersion != 0 {
		return nil
	}
	return db.RunMigrations(database, driver)
}

func fail(a *app, err error) {
	if errors.Is(err, dberr.ErrNotFound) {
		a.log.Warn().Err(err).Msg("lookup failed")
	} else {
		a.log.Error().Err(err).Bool("transient", dberr.IsTransient(err)).Msg("command failed")
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	a.close()
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   "devtracker",
	Short: "Early/often feedback from Web-CAT sensor data",
	Long:  `Devtracker reads IDE sensor events from Web-CAT and keeps an early/often engagement score per student project.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Console output would corrupt the alt screen; warnings still reach the log file
		a := setup(io.Discard)
		defer a.close()

		if err := tui.Run(a.db, a.cfg, a.log); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var assignmentCmd = &cobra.Command{
	Use:   "assignment <offering-id>",
	Short: "Show an assignment offering",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()
		ctx, cancel := a.context()
		defer cancel()

		assignment, err := repository.NewAssignmentRepo(a.db).GetByOfferingID(ctx, args[0])
		if err != nil {
			fail(a, err)
		}

		fmt.Printf("Offering: %s\n", assignment.ID)
		fmt.Printf("Deadline: %s\n", assignment.Deadline.Format(time.RFC3339))
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events <user-id> <offering-id>",
	Short: "List sensor events for a student on an assignment",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()
		ctx, cancel := a.context()
		defer cancel()

		after, err := parseTime(cmd, "after")
		if err != nil {
			fail(a, err)
		}

		assignment, err := repository.NewAssignmentRepo(a.db).GetByOfferingID(ctx, args[1])
		if err != nil {
			fail(a, err)
		}

		project := models.NewStudentProject(args[0], *assignment)
		events, err := repository.NewEventRepo(a.db, a.cfg.Tracker.ClassNameProperty).GetNewEvents(ctx, project, after)
		if err != nil {
			fail(a, err)
		}

		for _, e := range events {
			fmt.Printf("%s  %-40s %6d\n", e.Time.Format(time.RFC3339), e.ClassName, e.CurrentSize)
		}
		fmt.Printf("%d events\n", len(events))
	},
}

var projectCmd = &cobra.Command{
	Use:   "project <user-id> <offering-id>",
	Short: "Show the stored feedback for a student project",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()
		ctx, cancel := a.context()
		defer cancel()

		assignment, err := repository.NewAssignmentRepo(a.db).GetByOfferingID(ctx, args[1])
		if err != nil {
			fail(a, err)
		}

		project, err := repository.NewProjectRepo(a.db).Get(ctx, args[0], *assignment)
		if err != nil {
			fail(a, err)
		}
		if project == nil {
			fmt.Println("Project has not been scored yet.")
			return
		}

		printProject(project)
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <user-id> <offering-id>",
	Short: "Fold new sensor events into the early/often score",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()
		ctx, cancel := a.context()
		defer cancel()

		t := tracker.New(a.db, a.cfg.Tracker.ClassNameProperty, a.log)
		result, err := t.Run(ctx, args[0], args[1])
		if err != nil {
			fail(a, err)
		}

		if result.NewProject {
			fmt.Println("First scoring pass for this project.")
		}
		fmt.Printf("Events: %d\n", result.Events)
		fmt.Printf("Batch: %d edits, %d weighted\n", result.Batch.Edits, result.Batch.WeightedEdits)
		printProject(result.Project)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the local mirror schema",
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()

		if err := db.RunMigrations(a.db, a.cfg.Database.Driver); err != nil {
			fail(a, err)
		}
		fmt.Println("Schema is up to date.")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local mirror migration status",
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()

		status, err := db.GetMigrationStatus(a.db, a.cfg.Database.Driver)
		if err != nil {
			fail(a, err)
		}
		fmt.Printf("Current version: %d\n", status.CurrentVersion)
		fmt.Printf("Latest version: %d\n", status.LatestVersion)
		if status.Dirty {
			fmt.Println("Warning: last migration failed and left the schema dirty.")
		}
		if status.Pending {
			fmt.Println("Migrations pending. Run 'devtracker migrate'.")
		}
	},
}

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Seed a local mirror database",
}

var mirrorOfferingCmd = &cobra.Command{
	Use:   "offering <offering-id> <deadline>",
	Short: "Add an assignment offering (deadline as RFC3339 or epoch milliseconds)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()
		ctx, cancel := a.context()
		defer cancel()

		deadline, err := parseTimeArg(args[1])
		if err != nil {
			fail(a, err)
		}

		if err := repository.NewAssignmentRepo(a.db).Create(ctx, models.Assignment{ID: args[0], Deadline: deadline}); err != nil {
			fail(a, err)
		}
		fmt.Printf("Added offering %s due %s\n", args[0], deadline.Format(time.RFC3339))
	},
}

var mirrorLinkCmd = &cobra.Command{
	Use:   "link <offering-id> <student-project-oid>",
	Short: "Attach a student project to an offering",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()
		ctx, cancel := a.context()
		defer cancel()

		projectOID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fail(a, fmt.Errorf("invalid project oid %q: %w", args[1], err))
		}

		if err := repository.NewAssignmentRepo(a.db).Link(ctx, args[0], projectOID); err != nil {
			fail(a, err)
		}
		fmt.Printf("Linked project %d to offering %s\n", projectOID, args[0])
	},
}

var mirrorEventCmd = &cobra.Command{
	Use:   "event <user-id> <student-project-oid> <class-name> <size>",
	Short: "Record a sensor event",
	Args:  cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(os.Stderr)
		defer a.close()
		ctx, cancel := a.context()
		defer cancel()

		projectOID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fail(a, fmt.Errorf("invalid project oid %q: %w", args[1], err))
		}
		size, err := strconv.Atoi(args[3])
		if err != nil {
			fail(a, fmt.Errorf("invalid size %q: %w", args[3], err))
		}

		at := time.Now()
		if cmd.Flags().Changed("at") {
			if at, err = parseTime(cmd, "at"); err != nil {
				fail(a, err)
			}
		}

		e := models.SensorData{Time: at, ClassName: args[2], CurrentSize: size}
		if err := repository.NewEventRepo(a.db, a.cfg.Tracker.ClassNameProperty).Record(ctx, args[0], projectOID, e); err != nil {
			fail(a, err)
		}
		fmt.Printf("Recorded %s = %d at %s\n", e.ClassName, e.CurrentSize, at.Format(time.RFC3339))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.devtracker/config.toml)")

	eventsCmd.Flags().String("after", "0", "Only events at or after this time (RFC3339 or epoch milliseconds)")
	mirrorEventCmd.Flags().String("at", "", "Event time (RFC3339 or epoch milliseconds, default now)")

	mirrorCmd.AddCommand(mirrorOfferingCmd)
	mirrorCmd.AddCommand(mirrorLinkCmd)
	mirrorCmd.AddCommand(mirrorEventCmd)

	rootCmd.AddCommand(assignmentCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mirrorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printProject(p *models.StudentProject) {
	eo := p.EarlyOften
	fmt.Printf("Score: %.2f\n", eo.Score)
	fmt.Printf("Edits: %d (weighted %d)\n", eo.TotalEdits, eo.TotalWeightedEdits)
	fmt.Printf("Last updated: %s\n", eo.LastUpdated.Format(time.RFC3339))

	names := make([]string, 0, len(p.FileSizes))
	for name := range p.FileSizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-40s %6d\n", name, p.FileSizes[name].Size)
	}
}

func parseTime(cmd *cobra.Command, flag string) (time.Time, error) {
	value, _ := cmd.Flags().GetString(flag)
	return parseTimeArg(value)
}

// parseTimeArg accepts RFC3339 or epoch milliseconds
func parseTimeArg(value string) (time.Time, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (expected RFC3339 or epoch milliseconds)", value)
	}
	return t, nil
}
