package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ldapbench/internal/cli"
	"ldapbench/internal/runner"
	"ldapbench/internal/scenario"
)

// build turns the run config into the job factory of one scenario.
type build func(cmd *cobra.Command, cfg runner.Config, env scenario.Env) (runner.Factory, error)

// benchmark wires a scenario into a subcommand taking the server URL.
func benchmark(use, name, short string, b build) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ldap-url>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, name, args[0], b)
		},
	}
}

func runBenchmark(cmd *cobra.Command, name, url string, b build) error {
	cfg, err := benchConfig(url)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	factory, err := b(cmd, cfg, scenario.Env{Log: log})
	if err != nil {
		return err
	}
	return cli.Start(cmd.Context(), cfg, factory, cliOptions(cmd, name, log))
}

var bindCmd = benchmark("bind", "Bind", "LDAP BIND Benchmarking",
	func(cmd *cobra.Command, cfg runner.Config, env scenario.Env) (runner.Factory, error) {
		f := cmd.Flags()
		first, _ := f.GetInt("first")
		last, _ := f.GetInt("last")
		return scenario.NewBind(cfg, scenario.BindOptions{First: first, Last: last}, env)
	})

var addCmd = benchmark("add", "Add", "LDAP ADD Benchmarking",
	func(cmd *cobra.Command, cfg runner.Config, env scenario.Env) (runner.Factory, error) {
		f := cmd.Flags()
		useUUID, _ := f.GetBool("uuid")
		password, _ := f.GetString("password")
		return scenario.NewAdd(cfg, scenario.AddOptions{
			EntryOptions: entryOptions(cmd),
			UUID:         useUUID,
			Password:     password,
		}, env)
	})

var searchCmd = benchmark("search", "Search", "LDAP SEARCH Benchmarking",
	func(cmd *cobra.Command, cfg runner.Config, env scenario.Env) (runner.Factory, error) {
		f := cmd.Flags()
		scope, _ := f.GetString("scope")
		filter, _ := f.GetString("filter")
		attrs, _ := f.GetStringSlice("attributes")
		first, _ := f.GetInt("first")
		last, _ := f.GetInt("last")
		return scenario.NewSearch(cfg, scenario.SearchOptions{
			Scope:      scope,
			Filter:     filter,
			Attributes: attrs,
			First:      first,
			Last:       last,
		}, env)
	})

var modifyCmd = benchmark("modify", "Modify", "LDAP MODIFY Benchmarking",
	func(cmd *cobra.Command, cfg runner.Config, env scenario.Env) (runner.Factory, error) {
		f := cmd.Flags()
		attr, _ := f.GetString("attr")
		value, _ := f.GetString("value")
		return scenario.NewModify(cfg, scenario.ModifyOptions{
			EntryOptions: entryOptions(cmd),
			Attr:         attr,
			Value:        value,
		}, env)
	})

var deleteCmd = benchmark("delete", "Delete", "LDAP DELETE Benchmarking",
	func(cmd *cobra.Command, cfg runner.Config, env scenario.Env) (runner.Factory, error) {
		return scenario.NewDelete(cfg, entryOptions(cmd), env)
	})

var passmodCmd = benchmark("passmod", "Passmod", "LDAP Password Modify Benchmarking",
	func(cmd *cobra.Command, cfg runner.Config, env scenario.Env) (runner.Factory, error) {
		f := cmd.Flags()
		newPassword, _ := f.GetString("new-password")
		oldPassword, _ := f.GetString("old-password")
		return scenario.NewPassmod(cfg, scenario.PassmodOptions{
			EntryOptions: entryOptions(cmd),
			NewPassword:  newPassword,
			OldPassword:  oldPassword,
		}, env)
	})

// testCmd runs the synthetic scenario; it needs no server.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Synthetic benchmark without a server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark(cmd, "Test", "dummy",
			func(cmd *cobra.Command, _ runner.Config, _ scenario.Env) (runner.Factory, error) {
				f := cmd.Flags()
				profile, _ := f.GetString("profile")
				latency, _ := f.GetDuration("latency")
				return scenario.NewDummy(scenario.DummyOptions{Profile: profile, Latency: latency})
			})
	},
}

func entryOptions(cmd *cobra.Command) scenario.EntryOptions {
	f := cmd.Flags()
	first, _ := f.GetInt("first")
	cn, _ := f.GetString("cn")
	return scenario.EntryOptions{First: first, CN: cn}
}

func addEntryFlags(cmd *cobra.Command) {
	cmd.Flags().Int("first", 1, "First entry id")
	cmd.Flags().String("cn", "%d", "cn template of the entries")
}

func init() {
	bindCmd.Flags().Int("first", 1, "First id substituted into the bind DN")
	bindCmd.Flags().Int("last", 0, "Last id substituted into the bind DN")

	addEntryFlags(addCmd)
	addCmd.Flags().Bool("uuid", false, "Name entries with random UUIDs")
	addCmd.Flags().String("password", scenario.DefaultUserPassword, "userPassword of the added entries")

	searchCmd.Flags().StringP("scope", "s", "sub", "Search scope: base, one, sub or children")
	searchCmd.Flags().StringP("filter", "a", "(objectClass=*)", "Search filter")
	searchCmd.Flags().StringSlice("attributes", []string{"dn"}, "Attributes to return")
	searchCmd.Flags().Int("first", 1, "First id substituted into the filter")
	searchCmd.Flags().Int("last", 0, "Last id substituted into the filter")

	addEntryFlags(modifyCmd)
	modifyCmd.Flags().String("attr", "sn", "Attribute to replace")
	modifyCmd.Flags().String("value", "modified", "Replacement value")

	addEntryFlags(deleteCmd)

	addEntryFlags(passmodCmd)
	passmodCmd.Flags().String("new-password", "newsecret", "New password")
	passmodCmd.Flags().String("old-password", "", "Old password (default is the bind password)")

	testCmd.Flags().String("profile", "random", "Latency profile: "+strings.Join(scenario.Profiles(), ", "))
	testCmd.Flags().Duration("latency", 10*time.Millisecond, "Latency of the fixed profile")
}
