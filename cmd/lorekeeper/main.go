// Command lorekeeper answers rulebook questions from a filtered vector index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kailas-cloud/lorekeeper/internal/config"
)

// Viper keys shared by the root flags, LOREKEEPER_* env vars and commands.
const (
	keyConfig            = "config"
	keyEnv               = "env"
	keyLogLevel          = "log_level"
	keyK                 = "k"
	keyDistanceThreshold = "distance_threshold"
	keyMaxIterations     = "max_iterations"
	keyNoFilter          = "no_filter"
	keyShowContext       = "show_context"
	keyTrace             = "trace"
)

var rootCmd = &cobra.Command{
	Use:   "lorekeeper",
	Short: "Adaptive retrieval and question answering over indexed rulebooks",
	Long: `lorekeeper retrieves grounding passages for a question from a vector index,
drops passages whose query_must predicate rejects the question, re-queries to
refill the window, and cuts the ranking at the first large distance gap.

Run "lorekeeper serve" for the HTTP API, or "retrieve" and "ask" from the shell.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: config/<env>.yaml)")
	flags.String("env", "", "environment: local, dev, prod (default: $ENV or local)")
	flags.String("log-level", "", "log level override: debug, info, warn, error")
	flags.IntP("k", "k", 0, "maximum passages to return (default from config)")
	flags.Float64("distance-threshold", 0, "cutoff distance when no gap is found (default from config)")
	flags.Int("max-iterations", 0, "maximum query rounds, including the first (default from config)")
	flags.Bool("no-filter", false, "disable query_must filtering")

	mustBind(keyConfig, "config")
	mustBind(keyEnv, "env")
	mustBind(keyLogLevel, "log-level")
	mustBind(keyK, "k")
	mustBind(keyDistanceThreshold, "distance-threshold")
	mustBind(keyMaxIterations, "max-iterations")
	mustBind(keyNoFilter, "no-filter")
}

func mustBind(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// addDisplayFlags registers --show-context and --trace on a query command.
// They are bound when the command runs since retrieve and ask share the keys.
func addDisplayFlags(cmd *cobra.Command, contextHelp string) {
	cmd.Flags().Bool("show-context", false, contextHelp)
	cmd.Flags().Bool("trace", false, "print the retrieval trace")
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := viper.BindPFlag(keyShowContext, cmd.Flags().Lookup("show-context")); err != nil {
			return err
		}
		return viper.BindPFlag(keyTrace, cmd.Flags().Lookup("trace"))
	}
}

// initConfig wires LOREKEEPER_* environment variables into viper.
// The service configuration itself is YAML read by internal/config.
func initConfig() {
	viper.SetEnvPrefix("LOREKEEPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads --config when given, otherwise config/<env>.yaml.
func loadConfig() (config.Config, string, error) {
	env := viper.GetString(keyEnv)
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if path := viper.GetString(keyConfig); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", err
	}

	applyOverrides(&cfg.Retrieval, viper.GetViper())
	if err = cfg.Validate(); err != nil {
		return config.Config{}, "", fmt.Errorf("invalid overrides: %w", err)
	}
	return cfg, env, nil
}

// applyOverrides copies retrieval settings that were set by flag or env var.
func applyOverrides(r *config.RetrievalConfig, v *viper.Viper) {
	if v.IsSet(keyK) && v.GetInt(keyK) > 0 {
		r.K = v.GetInt(keyK)
	}
	if v.IsSet(keyDistanceThreshold) && v.GetFloat64(keyDistanceThreshold) > 0 {
		r.DistanceThreshold = v.GetFloat64(keyDistanceThreshold)
	}
	if v.IsSet(keyMaxIterations) && v.GetInt(keyMaxIterations) > 0 {
		r.MaxIterations = v.GetInt(keyMaxIterations)
	}
	if v.GetBool(keyNoFilter) {
		off := false
		r.Filtering = &off
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
