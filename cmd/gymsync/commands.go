package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gymsync/internal/logging"
	"gymsync/internal/repository"
	"gymsync/internal/scheduler"
)

// newRunCmd starts the background sync daemon: an immediate pass, then the
// periodic schedule until interrupted.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the periodic background sync until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			profileID, err := a.profileID(ctx)
			if err != nil {
				return err
			}

			logger := logging.New(a.logW, "scheduler")
			sched := scheduler.New(func(ctx context.Context) error {
				if _, err := a.syncSvc.Sync(ctx, profileID); err != nil {
					return err
				}
				_, err := a.mediaSvc.PushPending(ctx, profileID)
				return err
			}, a.cfg.Sync.InitialBackoff, a.cfg.Sync.MaxBackoff, logger)

			effective, _ := sched.SchedulePeriodicSync(a.cfg.Sync.Interval)
			sched.RequestImmediateSync()
			fmt.Printf("Syncing every %s. Press Ctrl+C to stop.\n", effective)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			fmt.Println("Stopping, waiting for in-flight sync...")
			sched.CancelAllSyncs()
			return nil
		},
	}
}

// newSyncCmd runs one full sync pass and reports the outcome.
func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push pending changes and pull the latest server state once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			profileID, err := a.profileID(ctx)
			if err != nil {
				return err
			}

			report, err := a.syncSvc.Sync(ctx, profileID)
			if err != nil {
				return err
			}
			uploaded, err := a.mediaSvc.PushPending(ctx, profileID)
			if err != nil {
				return err
			}
			fmt.Printf("Synced %d, failed %d, media uploaded %d.\n", report.Synced, report.Failed, uploaded)
			return nil
		},
	}
}

// newStatusCmd prints the pending queue without touching the network.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending changes and the last sync time",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.syncSvc.Pending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Pending: %d programs, %d workouts, %d exercises (%d total)\n",
				summary.Programs, summary.Workouts, summary.Exercises, summary.Total())
			if summary.LastSyncAt != nil {
				fmt.Printf("Last sync: %s\n", summary.LastSyncAt.Local().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Println("Last sync: never")
			}
			return nil
		},
	}
}

// newLoginCmd exchanges credentials for a token and caches it on disk.
func newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and cache the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			resp, err := a.client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := a.tokens.Save(resp.Token); err != nil {
				return fmt.Errorf("cache token: %w", err)
			}
			if err := a.meta.Set(ctx, repository.MetaKeyProfileID, resp.UserID); err != nil {
				return fmt.Errorf("record profile: %w", err)
			}
			fmt.Println("Logged in as", resp.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

// newRegisterCmd creates an account on the backend.
func newRegisterCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.Register(cmd.Context(), name, email, password); err != nil {
				return err
			}
			fmt.Println("Account created. Run 'gymsync login' to sign in.")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
