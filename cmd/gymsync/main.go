// Command gymsync is the offline-first training client. It keeps every
// program, workout and exercise in a local SQLite store, pushes pending
// changes to the backend when the network allows, and runs a periodic
// background sync in daemon mode.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gymsync/internal/auth"
	"gymsync/internal/config"
	"gymsync/internal/connectivity"
	"gymsync/internal/logging"
	"gymsync/internal/remote"
	"gymsync/internal/repository"
	"gymsync/internal/repository/sqlite"
	"gymsync/internal/service"
)

var (
	flagConfigPath string
	flagOffline    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gymsync",
		Short:         "Offline-first gym training client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", ".", "directory containing config.yaml")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "treat the network as unavailable")

	rootCmd.AddCommand(newRunCmd(), newSyncCmd(), newStatusCmd(), newLoginCmd(), newRegisterCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds everything a command needs, wired once from config.
type app struct {
	cfg    config.Config
	db     *sqlite.DB
	logW   io.Writer
	tokens *auth.FileTokenSource
	client *remote.Client
	oracle connectivity.Oracle

	programs  repository.ProgramRepository
	workouts  repository.WorkoutRepository
	exercises repository.ExerciseRepository
	media     repository.MediaRepository
	meta      repository.MetaRepository

	programSvc  service.ProgramService
	workoutSvc  service.WorkoutService
	exerciseSvc service.ExerciseService
	syncSvc     service.SyncService
	mediaSvc    service.MediaService
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(flagConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	a := &app{
		cfg:    cfg,
		db:     db,
		logW:   logging.Writer(cfg.Log),
		tokens: auth.NewFileTokenSource(cfg.Auth.TokenPath),
	}
	a.client = remote.NewClient(cfg.API.BaseURL, cfg.API.Timeout, a.tokens)

	if flagOffline {
		a.oracle = connectivity.Static(false)
	} else {
		prober, err := connectivity.NewProber(cfg.API.BaseURL, 0, 0)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("bad api base url: %w", err)
		}
		a.oracle = prober
	}

	a.programs = sqlite.NewProgramRepository(db)
	a.workouts = sqlite.NewWorkoutRepository(db)
	a.exercises = sqlite.NewExerciseRepository(db)
	a.media = sqlite.NewMediaRepository(db)
	a.meta = sqlite.NewMetaRepository(db)

	a.programSvc = service.NewProgramService(a.programs, a.client, a.oracle, logging.New(a.logW, "programs"))
	a.workoutSvc = service.NewWorkoutService(a.workouts, a.programs, a.client, a.oracle, logging.New(a.logW, "workouts"))
	a.exerciseSvc = service.NewExerciseService(a.exercises, a.workouts, a.client, a.oracle, logging.New(a.logW, "exercises"))
	a.syncSvc = service.NewSyncService(a.programs, a.workouts, a.exercises, a.meta, a.client, a.oracle, logging.New(a.logW, "sync"))
	a.mediaSvc = service.NewMediaService(a.media, a.client, a.oracle, logging.New(a.logW, "media"))
	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "closing local store:", err)
	}
}

// profileID returns the account recorded at login.
func (a *app) profileID(ctx context.Context) (string, error) {
	id, err := a.meta.Get(ctx, repository.MetaKeyProfileID)
	if errors.Is(err, repository.ErrNotFound) || id == "" {
		return "", errors.New("not logged in, run 'gymsync login' first")
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
