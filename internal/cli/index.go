package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skshohagmiah/couchctl/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Mango index operations",
}

var indexListCmd = &cobra.Command{
	Use:   "list <db>",
	Short: "List a database's indexes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		indexes, err := index.NewManager(m, log).List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, ix := range indexes {
			ddoc := ix.DesignDoc
			if ddoc == "" {
				ddoc = "-"
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", ix.Name, ix.Type, ddoc, strings.Join(ix.Fields, ","))
		}
		return nil
	},
}

var (
	indexFields []string
	indexName   string
)

var indexCreateCmd = &cobra.Command{
	Use:   "create <db>",
	Short: "Create a Mango index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		ix, err := index.NewManager(m, log).Create(cmd.Context(), args[0], indexFields, indexName)
		if err != nil {
			return err
		}
		fmt.Printf("✅ created index %q on fields [%s]\n", ix.Name, strings.Join(ix.Fields, ", "))
		return nil
	},
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete <db> <name>",
	Short: "Delete a Mango index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		if err := index.NewManager(m, log).Delete(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("✅ deleted index %q\n", args[1])
		return nil
	},
}

func init() {
	indexCreateCmd.Flags().StringArrayVar(&indexFields, "field", nil, "field to index (repeatable)")
	indexCreateCmd.Flags().StringVar(&indexName, "name", "", "index name (server assigns one when empty)")

	indexCmd.AddCommand(indexListCmd, indexCreateCmd, indexDeleteCmd)
	rootCmd.AddCommand(indexCmd)
}
