package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsentinel/pggatekeeper/pkg/config"
	"github.com/dbsentinel/pggatekeeper/pkg/engine"
	"github.com/dbsentinel/pggatekeeper/pkg/policy"
)

var (
	flagDBPath        string
	flagConfigFile    string
	flagUser          string
	flagStrict        bool
	flagReservedRoles string
	flagCommand       string
)

var rootCmd = &cobra.Command{
	Use:   "gatekeepersh",
	Short: "SQL shell with the gatekeeper policy layer installed",
	Long: `gatekeepersh opens the demo engine with the gatekeeper hooks installed
and executes SQL statements against it, either interactively or with -c.

Statements denied by policy are reported and, in -c mode, exit nonzero.

Examples:
  gatekeepersh --db app.db
  gatekeepersh --strict --reserved-roles "postgres,admin"
  gatekeepersh -c "CREATE ROLE intern LOGIN"`,
	RunE:          runShell,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagDBPath, "db", "", "database path (default in-memory)")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "", "gatekeeper YAML config file")
	rootCmd.Flags().StringVar(&flagUser, "user", "postgres", "session user")
	rootCmd.Flags().BoolVar(&flagStrict, "strict", false, "enable strict mode")
	rootCmd.Flags().StringVar(&flagReservedRoles, "reserved-roles", "", "comma-separated reserved superuser roles")
	rootCmd.Flags().StringVarP(&flagCommand, "command", "c", "", "run a single statement and exit")
}

func buildStore() (*config.Store, error) {
	store := config.NewStore()
	if flagConfigFile != "" {
		if err := config.LoadFile(flagConfigFile, store); err != nil {
			return nil, err
		}
	}
	scope := config.SessionScope{Privileged: true}
	if flagStrict {
		if err := store.Set(config.ParamStrictMode, "true", scope); err != nil {
			return nil, err
		}
	}
	if flagReservedRoles != "" {
		if err := store.Set(config.ParamReservedRoles, flagReservedRoles, scope); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func runShell(cmd *cobra.Command, args []string) error {
	store, err := buildStore()
	if err != nil {
		return err
	}
	eng, err := engine.New(engine.Config{DBPath: flagDBPath, Store: store})
	if err != nil {
		return err
	}
	defer eng.Close()

	// Installation happens during preload; a failure here means the process
	// would run unprotected, so refuse to continue.
	if err := eng.InstallGatekeeper(); err != nil {
		return fmt.Errorf("installing gatekeeper: %w", err)
	}

	sess, err := eng.Session(flagUser)
	if err != nil {
		return err
	}

	if flagCommand != "" {
		if err := sess.Exec(flagCommand); err != nil {
			return err
		}
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "connected as %s (agent enabled: %t, strict: %t)\n",
		flagUser, store.Enabled(), store.StrictMode())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(cmd.OutOrStdout(), "gatekeeper=# ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == `\q` || strings.EqualFold(line, "quit") {
			break
		}
		if err := sess.Exec(line); err != nil {
			var d *policy.Denial
			if errors.As(err, &d) {
				fmt.Fprintf(cmd.OutOrStdout(), "DENIED: %s\n", d.Error())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "ERROR: %s\n", err.Error())
			}
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
	}
	return scanner.Err()
}
