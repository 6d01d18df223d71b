package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ldapbench/internal/scenario"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Populate the directory before benchmarking",
}

var setupBaseCmd = &cobra.Command{
	Use:   "base <ldap-url>",
	Short: "Add Base Entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, out, err := openSetup(cmd, args[0])
		if err != nil {
			return err
		}
		defer conn.Close()
		return scenario.SetupBase(conn, viper.GetString("base-dn"), out)
	},
}

var setupPersonCmd = &cobra.Command{
	Use:   "person <ldap-url>",
	Short: "Add User Entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var opts scenario.PersonOptions
		opts.CN, _ = f.GetString("cn")
		opts.SN, _ = f.GetString("sn")
		opts.Password, _ = f.GetString("password")
		opts.First, _ = f.GetInt("first")
		opts.Last, _ = f.GetInt("last")

		conn, out, err := openSetup(cmd, args[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		added, err := scenario.SetupPerson(conn, viper.GetString("base-dn"), opts, out)
		if err != nil {
			return fmt.Errorf("after %d entries: %w", added, err)
		}
		return nil
	},
}

// openSetup binds an administrative connection. Progress lines go to the
// command output unless quiet.
func openSetup(cmd *cobra.Command, url string) (scenario.Conn, io.Writer, error) {
	cfg, err := benchConfig(url)
	if err != nil {
		return nil, nil, err
	}
	out := cmd.OutOrStdout()
	if viper.GetBool("quiet") {
		out = io.Discard
	}
	conn, err := scenario.Open(cmd.Context(), cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return conn, out, nil
}

func init() {
	setupPersonCmd.Flags().String("cn", "user", "cn attribute, an id is appended with --last")
	setupPersonCmd.Flags().String("sn", "", "sn attribute (default is the cn)")
	setupPersonCmd.Flags().String("password", scenario.DefaultUserPassword, "userPassword attribute")
	setupPersonCmd.Flags().Int("first", 1, "First id")
	setupPersonCmd.Flags().Int("last", 0, "Last id")

	setupCmd.AddCommand(setupBaseCmd, setupPersonCmd)
}
