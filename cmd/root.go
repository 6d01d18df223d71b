package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ldapbench/internal/banner"
	"ldapbench/internal/cli"
	"ldapbench/internal/logger"
	"ldapbench/internal/runner"
	"ldapbench/internal/stats"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ldapbench",
	Short: "LDAP Benchmarking Tool",
	Long: `
ldapbench drives a fixed number of LDAP requests against a directory server
from many concurrent connections and reports throughput, success rate and
latency percentiles.

Every worker connects and prepares first; timed requests only start once all
of them are ready.`,
	Version:       banner.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), banner.GetString())
		cmd.Usage()
	})

	ctx, stop := interruptContext(context.Background())
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// interruptContext is cancelled by the first interrupt, which aborts setup.
// Started workers finish their requests; a second interrupt gets the default
// behaviour and terminates the process.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := runner.DefaultConfig()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ldapbench.yaml)")

	pf.IntP("concurrency", "c", defaults.Concurrency, "Number of concurrent workers")
	pf.IntP("number", "n", defaults.Total, "Number of requests to perform")
	pf.StringP("bind-dn", "D", "cn=Manager,dc=example,dc=com", "Bind DN")
	pf.StringP("bind-pw", "w", "secret", "Bind password")
	pf.StringP("base-dn", "b", "dc=example,dc=com", "Base DN")
	pf.BoolP("starttls", "Z", false, "Use StartTLS")

	pf.CountP("verbose", "v", "Verbose output (repeat for more)")
	pf.BoolP("quiet", "q", false, "Print only the report")
	pf.Bool("short", false, "Print a single \"<concurrency> <req/s> <success>%\" line")
	pf.Bool("histogram", false, "Print latency percentiles and distribution")
	pf.StringP("output", "o", cli.OutputText, "Report format: text, json or csv")
	pf.Bool("progress", false, "Show live progress on a terminal")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	viper.BindPFlags(pf)
	viper.SetDefault("layout.grouping_power", stats.DefaultGroupingPower)
	viper.SetDefault("layout.max_value_power", stats.DefaultMaxValuePower)

	rootCmd.AddCommand(bindCmd, addCmd, searchCmd, modifyCmd, deleteCmd, passmodCmd, testCmd, setupCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".ldapbench")
		}
	}
	viper.SetEnvPrefix("ldapbench")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Warning: cannot read config:", err)
		}
	}
}

// benchConfig assembles the runner config from flags, environment and the
// config file.
func benchConfig(url string) (runner.Config, error) {
	cfg := runner.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.URL = url
	return cfg, cfg.Validate()
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetInt("verbose"), viper.GetBool("quiet"))
}

func cliOptions(cmd *cobra.Command, scenario string, log *zap.Logger) cli.Options {
	return cli.Options{
		Scenario:    scenario,
		Quiet:       viper.GetBool("quiet"),
		Verbose:     viper.GetInt("verbose"),
		Short:       viper.GetBool("short"),
		Histogram:   viper.GetBool("histogram"),
		Output:      viper.GetString("output"),
		Progress:    viper.GetBool("progress"),
		MetricsAddr: viper.GetString("metrics-addr"),
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
		Log:         log,
	}
}
