package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gatekeep/gatekeep/game"
	"github.com/gatekeep/gatekeep/game/api"
)

var (
	// CLI flags for session identity and transport
	scenario    int           // Scenario number to play
	playerID    string        // Player identifier (GATEKEEP_PLAYER_ID)
	baseURL     string        // Base service URL (GATEKEEP_BASE_URL)
	timeout     time.Duration // Per-request timeout
	maxAttempts uint64        // Attempt budget per request, retries included
	throttle    time.Duration // Pause before each decision submission

	// CLI flags for the run loop and policy
	logLevel     string // Log verbosity level
	logEvery     int    // Progress log cadence in processed individuals
	policyName   string // Admission policy name
	tuningFile   string // Optional YAML file overriding policy tuning
	rejectionCap int    // Local rejection budget before aborting
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "gatekeep",
	Short: "Automated bouncer for online admission-control games",
}

// runCmd plays one session using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play one game session",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if playerID == "" {
			logrus.Fatalf("Player id not provided (use --player-id or GATEKEEP_PLAYER_ID).")
		}
		if baseURL == "" {
			logrus.Fatalf("Base URL not provided (use --base-url or GATEKEEP_BASE_URL).")
		}

		tuning := game.DefaultTuning()
		if tuningFile != "" {
			tuning = loadTuning(tuningFile)
		}
		policy := game.NewPolicy(policyName, tuning)

		client := api.New(api.Config{
			BaseURL:     baseURL,
			PlayerID:    playerID,
			Timeout:     timeout,
			MaxAttempts: maxAttempts,
			Throttle:    throttle,
		})
		runner := game.NewRunner(client, policy, game.RunnerConfig{
			Scenario:     scenario,
			RejectionCap: rejectionCap,
			LogEvery:     logEvery,
		})

		// Interruption stops the loop at the next safe point between persons.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logrus.Infof("Starting run: scenario=%d base_url=%s policy=%s", scenario, baseURL, policyName)
		start := time.Now()
		state, err := runner.Run(ctx)
		runner.Metrics().Print(state, runner.Tracker(), time.Since(start))

		switch state {
		case game.StateCompleted:
			logrus.Info("Run complete.")
		case game.StateInterrupted:
			logrus.Warn("Run interrupted by user.")
			os.Exit(1)
		default:
			if err != nil {
				logrus.Errorf("Run ended in state %s: %v", state, err)
			} else {
				logrus.Errorf("Run ended in state %s", state)
			}
			os.Exit(2)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}

// envDefault returns the environment variable's value, or fallback when unset.
func envDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().IntVar(&scenario, "scenario", 1, "Scenario number to play")
	runCmd.Flags().StringVar(&playerID, "player-id", envDefault("GATEKEEP_PLAYER_ID", ""), "Player identifier")
	runCmd.Flags().StringVar(&baseURL, "base-url", envDefault("GATEKEEP_BASE_URL", ""), "Base service URL")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Transport configs
	runCmd.Flags().DurationVar(&timeout, "timeout", api.DefaultTimeout, "Per-request timeout")
	runCmd.Flags().Uint64Var(&maxAttempts, "max-attempts", api.DefaultMaxAttempts, "Attempt budget per request, retries included")
	runCmd.Flags().DurationVar(&throttle, "throttle", 10*time.Millisecond, "Pause before each decision submission")

	// Run loop and policy configs
	runCmd.Flags().IntVar(&logEvery, "log-every", 100, "Progress log cadence in processed individuals (0 disables)")
	runCmd.Flags().StringVar(&policyName, "policy", "greedy-feasibility", "Admission policy (greedy-feasibility, accept-all)")
	runCmd.Flags().StringVar(&tuningFile, "tuning", "", "YAML file overriding policy tuning knobs")
	runCmd.Flags().IntVar(&rejectionCap, "rejection-cap", 20000, "Local rejection budget before aborting the run")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
