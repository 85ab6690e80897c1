package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skshohagmiah/couchctl/internal/batch"
	"github.com/skshohagmiah/couchctl/internal/database"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database operations",
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		names, err := database.NewRegistry(m, log).List(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var dbCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		if err := database.NewRegistry(m, log).Create(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✅ created database %q\n", args[0])
		return nil
	},
}

var dbDeleteAll bool

var dbDeleteCmd = &cobra.Command{
	Use:   "delete [<name>...]",
	Short: "Delete databases",
	Long: `Delete the named databases, or every database on the server with
--all (system databases like _users included). Multiple names run as a
batch: each deletion is attempted and reported on its own, and one
failure does not stop the rest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbDeleteAll && len(args) > 0 {
			return errors.New("pass database names or --all, not both")
		}
		if !dbDeleteAll && len(args) == 0 {
			return errors.New("nothing to delete: pass database names or --all")
		}

		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()
		reg := database.NewRegistry(m, log)

		if !dbDeleteAll && len(args) == 1 {
			if err := reg.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("✅ deleted database %q\n", args[0])
			return nil
		}

		c := batch.New(log)
		c.Progress = printProgress

		var res *batch.Result
		if dbDeleteAll {
			res, err = c.DeleteAllDatabases(cmd.Context(), reg)
			if err != nil {
				return err
			}
		} else {
			res = c.DeleteDatabases(cmd.Context(), reg, args)
		}
		return reportBatch("databases", res)
	},
}

var dbInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show database metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		info, err := database.NewRegistry(m, log).Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("database:  %s\n", info.Name)
		fmt.Printf("documents: %d\n", info.DocCount)
		fmt.Printf("deleted:   %d\n", info.DocDelCount)
		return nil
	},
}

var dbRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		return database.NewRegistry(m, log).Rename(cmd.Context(), args[0], args[1])
	},
}

func init() {
	dbDeleteCmd.Flags().BoolVar(&dbDeleteAll, "all", false, "delete every database on the server")

	dbCmd.AddCommand(dbListCmd, dbCreateCmd, dbDeleteCmd, dbInfoCmd, dbRenameCmd)
	rootCmd.AddCommand(dbCmd)
}
