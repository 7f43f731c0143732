package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jordanhubbard/volition/internal/config"
	"github.com/jordanhubbard/volition/internal/drive"
	"github.com/jordanhubbard/volition/internal/engine"
	"github.com/jordanhubbard/volition/internal/events"
	"github.com/jordanhubbard/volition/internal/launcher"
	"github.com/jordanhubbard/volition/internal/lock"
	"github.com/jordanhubbard/volition/internal/metrics"
	"github.com/jordanhubbard/volition/internal/state"
)

const version = "1.0.0"

var configPath string

func main() {
	// Env-file secrets (gateway token, Redis password) load before config.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "volition",
		Short: "Drive engine - pressure-based autonomous session scheduling",
		Long: `volition models an agent's internal drives: pressure signals that
accumulate over time, cross graduated thresholds, and trigger autonomous
work sessions. All output is structured JSON.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to config file")

	rootCmd.AddCommand(newTickCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newSatisfyCommand())
	rootCmd.AddCommand(newBumpCommand())
	rootCmd.AddCommand(newResetCommand())
	rootCmd.AddCommand(newCleanupCommand())
	rootCmd.AddCommand(newDaemonCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if path := os.Getenv("VOLITION_CONFIG"); path != "" {
		return path
	}
	return ""
}

// buildEngine wires the engine from configuration. The returned cleanup
// closes the event publisher and any Redis connection.
func buildEngine(cfgPath string) (*engine.Engine, *config.Config, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}

	store := state.NewStore(cfg.StatePath, drive.BuiltinDrives(), cfg.FirstLightDone)

	var transports []launcher.Launcher
	if cfg.Launcher.Command.Path != "" {
		transports = append(transports, launcher.NewCommand(
			cfg.Launcher.Command.Path,
			cfg.Launcher.Command.Args,
			time.Duration(cfg.Launcher.Command.TimeoutSeconds)*time.Second,
		))
	}
	if cfg.Launcher.Gateway.URL != "" {
		transports = append(transports, launcher.NewGateway(
			cfg.Launcher.Gateway.URL,
			cfg.Launcher.Gateway.Token,
			cfg.Launcher.Gateway.SigningSecret,
			time.Duration(cfg.Launcher.Gateway.TimeoutSeconds)*time.Second,
		))
	}
	launch := launcher.NewFallback(transports...)

	var cycleLock lock.CycleLock
	var redisLock *lock.RedisLock
	if cfg.Redis.Addr != "" {
		redisLock, err = lock.NewRedisLock(
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			cfg.Redis.LockKey,
			time.Duration(cfg.Redis.LockTTLSeconds)*time.Second,
		)
		if err != nil {
			return nil, nil, nil, err
		}
		cycleLock = redisLock
	} else {
		cycleLock = lock.NewFileLock(cfg.LockPath)
	}

	var pub *events.Publisher
	if cfg.Events.NATSURL != "" {
		pub, err = events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			// Eventing is observability; a dead broker must not block cycles.
			log.Printf("[Main] Event publisher unavailable: %v", err)
		}
	}

	eng := engine.New(cfg, store, launch, cycleLock, pub, metrics.NewMetrics())

	cleanup := func() {
		pub.Close()
		if redisLock != nil {
			redisLock.Close()
		}
	}
	return eng, cfg, cleanup, nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func fail(err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return err
}

func newTickCommand() *cobra.Command {
	var hours float64
	var spawn bool

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance time-based pressure accumulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildEngine(configPath)
			if err != nil {
				return fail(err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if spawn {
				result, err := eng.TickWithSpawning(ctx, hours)
				if err != nil {
					return fail(err)
				}
				printJSON(result)
				return nil
			}

			changes, err := eng.Tick(ctx, hours)
			if err != nil {
				return fail(err)
			}
			printJSON(map[string]interface{}{"pressure_changes": changes})
			return nil
		},
	}

	cmd.Flags().Float64Var(&hours, "hours", 0.5, "Elapsed hours to accumulate")
	cmd.Flags().BoolVar(&spawn, "spawn", false, "Run a full scheduling cycle (launch an eligible session)")
	return cmd
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List drives eligible to launch, ranked by pressure ratio",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildEngine(configPath)
			if err != nil {
				return fail(err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			names, err := eng.CheckThresholds(ctx)
			if err != nil {
				return fail(err)
			}
			printJSON(map[string]interface{}{"eligible": names})
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [drive]",
		Short: "Show pressure, graduated status, and valence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildEngine(configPath)
			if err != nil {
				return fail(err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if len(args) == 1 {
				status, err := eng.GetStatus(ctx, args[0])
				if err != nil {
					return fail(err)
				}
				printJSON(status)
				return nil
			}

			statuses, err := eng.ListStatus(ctx)
			if err != nil {
				return fail(err)
			}
			printJSON(statuses)
			return nil
		},
	}
}

func newSatisfyCommand() *cobra.Command {
	var depth string

	cmd := &cobra.Command{
		Use:   "satisfy <drive>",
		Short: "Record that a drive's need has been addressed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildEngine(configPath)
			if err != nil {
				return fail(err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			result, err := eng.Satisfy(ctx, args[0], depth)
			if err != nil {
				return fail(err)
			}
			printJSON(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&depth, "depth", "d", "moderate", "Satisfaction depth: shallow, moderate, deep, full (or s/m/d/f)")
	return cmd
}

func newBumpCommand() *cobra.Command {
	var amount float64

	cmd := &cobra.Command{
		Use:   "bump <drive>",
		Short: "Add event-driven pressure outside the time accumulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildEngine(configPath)
			if err != nil {
				return fail(err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			result, err := eng.Bump(ctx, args[0], amount)
			if err != nil {
				return fail(err)
			}
			printJSON(result)
			return nil
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "Pressure to add (default: two hours at the drive's rate)")
	return cmd
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Zero all pressures and clear the triggered set",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildEngine(configPath)
			if err != nil {
				return fail(err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			count, err := eng.ResetAll(ctx)
			if err != nil {
				return fail(err)
			}
			printJSON(map[string]interface{}{"reset": count})
			return nil
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Auto-satisfy stale triggered drives",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildEngine(configPath)
			if err != nil {
				return fail(err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cleaned, err := eng.CleanupStaleTriggers(ctx)
			if err != nil {
				return fail(err)
			}
			printJSON(map[string]interface{}{"cleaned": cleaned})
			return nil
		},
	}
}
