package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modgate/internal/app"
	"modgate/internal/config"
	"modgate/internal/gate"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// command identifies the CLI command being run (e.g. "stage", "sweep").
func newApp(ctx context.Context, command string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// withApp runs fn against a fresh App and marks the run failed when fn errors.
func withApp(cmd *cobra.Command, command string, fn func(context.Context, *app.App) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, command)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		a.Fail()
		return err
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "modgate",
	Short:        "Upload-first content moderation pipeline",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		fmt.Printf("Staging:   %s (encrypt=%t)\n", cfg.Staging.Type, cfg.Staging.Encrypt)
		fmt.Printf("Store:     %s (%s)\n", cfg.Store.Type, cfg.Store.Name)
		fmt.Printf("Analysis:  %s\n", cfg.Analysis.BaseURL)
		fmt.Printf("Delivery:  %s\n", cfg.Delivery.BaseURL)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		before, after, err := app.Migrate(cfg)
		if err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		if before.String() == after.String() {
			fmt.Printf("Database is up to date (%s).\n", after)
			return nil
		}
		fmt.Printf("Database migrated: %s -> %s\n", before, after)
		return nil
	},
}

var stageCmd = &cobra.Command{
	Use:   "stage FILE",
	Short: "Stage a finished upload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		id, _ := flags.GetString("id")
		owner, _ := flags.GetString("owner")
		kind, _ := flags.GetString("kind")
		duration, _ := flags.GetDuration("duration")
		category, _ := flags.GetString("category")
		title, _ := flags.GetString("title")
		process, _ := flags.GetBool("process")

		meta := gate.UploadMetadata{
			Version:    gate.MetadataVersion,
			ContentID:  id,
			OwnerID:    owner,
			Kind:       gate.Kind(kind),
			DurationMS: duration.Milliseconds(),
			Category:   category,
			Title:      title,
		}

		return withApp(cmd, "stage", func(ctx context.Context, a *app.App) error {
			item, err := a.Stage(ctx, meta, args[0])
			if err != nil {
				return fmt.Errorf("staging: %w", err)
			}
			fmt.Printf("Staged %s (%d bytes)\n", item.ID, item.Size)

			if !process {
				return nil
			}
			if err := a.Process(ctx, []string{item.ID}); err != nil {
				return fmt.Errorf("processing: %w", err)
			}
			return printStatus(ctx, a, item.ID)
		})
	},
}

var processCmd = &cobra.Command{
	Use:   "process ID...",
	Short: "Drive staged items through the pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "process", func(ctx context.Context, a *app.App) error {
			err := a.Process(ctx, args)
			for _, id := range args {
				if perr := printStatus(ctx, a, id); perr != nil {
					fmt.Printf("%s  %v\n", id, perr)
				}
			}
			return err
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Recover items stuck in the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		interval, _ := cmd.Flags().GetDuration("interval")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		return withApp(cmd, "sweep", func(ctx context.Context, a *app.App) error {
			if watch {
				err := a.Watch(ctx, interval, metricsAddr)
				if err != nil && ctx.Err() != nil {
					return nil
				}
				return err
			}

			report, err := a.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("examined %d  claimed %d  skipped %d  resumed %d  stalled %d  errors %d\n",
				report.Examined, report.Claimed, report.Skipped, report.Resumed, report.Stalled, report.Errors)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status ID",
	Short: "View the status of an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "status", func(ctx context.Context, a *app.App) error {
			return printStatus(ctx, a, args[0])
		})
	},
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions ID",
	Short: "View the moderation decisions of an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "decisions", func(ctx context.Context, a *app.App) error {
			decisions, err := a.ListDecisions(ctx, args[0])
			if err != nil {
				return err
			}
			if len(decisions) == 0 {
				fmt.Println("No decisions recorded.")
				return nil
			}

			for _, d := range decisions {
				by := "pipeline"
				if d.DecidedBy.Valid {
					by = d.DecidedBy.String
				}
				fmt.Printf("#%d  %s  %-8s  %-12s  %s\n",
					d.ID,
					d.CreatedAt.Format("2006-01-02 15:04:05"),
					d.Decision,
					by,
					d.Reason,
				)
			}
			return nil
		})
	},
}

var overrideCmd = &cobra.Command{
	Use:   "override ID approved|rejected",
	Short: "Record a moderator decision",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		moderator, _ := cmd.Flags().GetString("moderator")
		reason, _ := cmd.Flags().GetString("reason")

		return withApp(cmd, "override", func(ctx context.Context, a *app.App) error {
			d, err := a.Override(ctx, gate.OverrideRequest{
				ContentID: args[0],
				Moderator: moderator,
				Decision:  gate.Decision(args[1]),
				Reason:    reason,
			})
			if err != nil {
				return fmt.Errorf("override: %w", err)
			}
			fmt.Printf("Recorded decision #%d (%s)\n", d.ID, d.Decision)
			return printStatus(ctx, a, args[0])
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "delete", func(ctx context.Context, a *app.App) error {
			if err := a.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit published content",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every active item is backed by an approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "audit-verify", func(ctx context.Context, a *app.App) error {
			if err := a.VerifyInvariant(ctx); err != nil {
				return fmt.Errorf("audit failed:\n%w", err)
			}
			if st, err := a.SchemaStatus(); err == nil {
				fmt.Printf("Schema: %s\n", st)
			}
			fmt.Println("All active content is approved.")
			return nil
		})
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the metadata database",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent copy of the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "db-backup", func(ctx context.Context, a *app.App) error {
			if err := a.BackupDatabase(args[0]); err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			fmt.Printf("Database written to %s\n", args[0])
			return nil
		})
	},
}

// store command
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the durable store",
}

var storeCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the durable store is reachable and writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "store-check", func(ctx context.Context, a *app.App) error {
			if err := a.ValidateStore(ctx); err != nil {
				return err
			}
			fmt.Println("Store OK.")
			return nil
		})
	},
}

func printStatus(ctx context.Context, a *app.App, id string) error {
	view, err := a.GetStatus(ctx, id)
	if err != nil {
		return err
	}

	active := " "
	if view.IsActive {
		active = "*"
	}
	fmt.Printf("%s %s  %-10s  %s", active, view.ContentID, view.Status, view.UpdatedAt.Format(time.RFC3339))
	if view.FlaggedReason != "" {
		fmt.Printf("  (%s)", view.FlaggedReason)
	}
	fmt.Println()
	if view.DeliveryURL != "" {
		fmt.Printf("  %s\n", view.DeliveryURL)
	}
	return nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	stageCmd.Flags().String("id", "", "Content id (generated when empty)")
	stageCmd.Flags().String("owner", "", "Owner id")
	stageCmd.Flags().String("kind", string(gate.KindVideo), "video, video_comment, thread_video or profile_image")
	stageCmd.Flags().Duration("duration", 0, "Declared clip duration")
	stageCmd.Flags().String("category", "", "Category")
	stageCmd.Flags().String("title", "", "Title")
	stageCmd.Flags().Bool("process", false, "Process the item after staging")
	stageCmd.MarkFlagRequired("owner")

	sweepCmd.Flags().BoolP("watch", "w", false, "Keep sweeping until interrupted")
	sweepCmd.Flags().Duration("interval", 0, "Time between sweeps with --watch (default from config)")
	sweepCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address with --watch")

	overrideCmd.Flags().String("moderator", "", "Moderator id")
	overrideCmd.Flags().String("reason", "", "Reason for the decision")
	overrideCmd.MarkFlagRequired("moderator")
	overrideCmd.MarkFlagRequired("reason")

	auditCmd.AddCommand(auditVerifyCmd)
	dbCmd.AddCommand(dbBackupCmd)
	storeCmd.AddCommand(storeCheckCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(decisionsCmd)
	rootCmd.AddCommand(overrideCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(storeCmd)
}
