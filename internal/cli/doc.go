package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skshohagmiah/couchctl/internal/batch"
	"github.com/skshohagmiah/couchctl/internal/couch"
	"github.com/skshohagmiah/couchctl/internal/document"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Document operations",
}

var (
	docLimit int
	docSkip  int
	docFull  bool
)

var docListCmd = &cobra.Command{
	Use:   "list <db>",
	Short: "List a database's documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		sess, err := document.NewSession(cmd.Context(), m, log, args[0])
		if err != nil {
			return err
		}
		docs, err := sess.List(cmd.Context(), document.ListOptions{
			Limit:         docLimit,
			Skip:          docSkip,
			IncludeBodies: docFull,
		})
		if err != nil {
			return err
		}
		for _, d := range docs {
			if docFull {
				data, err := json.Marshal(d.Body)
				if err != nil {
					return fmt.Errorf("failed to render document %s: %w", d.ID, err)
				}
				fmt.Printf("%s\t%s\t%s\n", d.ID, d.Revision, data)
			} else {
				fmt.Printf("%s\t%s\n", d.ID, d.Revision)
			}
		}
		return nil
	},
}

var docPretty bool

var docGetCmd = &cobra.Command{
	Use:   "get <db> <id>",
	Short: "Fetch one document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		sess, err := document.NewSession(cmd.Context(), m, log, args[0])
		if err != nil {
			return err
		}
		doc, err := sess.Get(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		var data []byte
		if docPretty {
			data, err = json.MarshalIndent(doc.Body, "", "  ")
		} else {
			data, err = json.Marshal(doc.Body)
		}
		if err != nil {
			return fmt.Errorf("failed to render document %s: %w", doc.ID, err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var docID string

var docCreateCmd = &cobra.Command{
	Use:   "create <db> <json>",
	Short: "Create a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := couch.ParseBody(args[1])
		if err != nil {
			return err
		}

		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		sess, err := document.NewSession(cmd.Context(), m, log, args[0])
		if err != nil {
			return err
		}
		doc, err := sess.Create(cmd.Context(), docID, body)
		if err != nil {
			return err
		}
		fmt.Printf("✅ created document %s (rev %s)\n", doc.ID, doc.Revision)
		return nil
	},
}

var docUpdateRev string

var docUpdateCmd = &cobra.Command{
	Use:   "update <db> <id> <json>",
	Short: "Overwrite a document at a known revision",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := couch.ParseBody(args[2])
		if err != nil {
			return err
		}

		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		sess, err := document.NewSession(cmd.Context(), m, log, args[0])
		if err != nil {
			return err
		}
		doc, err := sess.Update(cmd.Context(), args[1], docUpdateRev, body)
		if err != nil {
			return err
		}
		fmt.Printf("✅ updated document %s (rev %s)\n", doc.ID, doc.Revision)
		return nil
	},
}

var docDeleteRev string

var docDeleteCmd = &cobra.Command{
	Use:   "delete <db> <id>",
	Short: "Delete a document at a known revision",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		sess, err := document.NewSession(cmd.Context(), m, log, args[0])
		if err != nil {
			return err
		}
		if err := sess.Delete(cmd.Context(), args[1], docDeleteRev); err != nil {
			return err
		}
		fmt.Printf("✅ deleted document %s\n", args[1])
		return nil
	},
}

var docSearchCmd = &cobra.Command{
	Use:   "search <db> <query>",
	Short: "Find documents by substring",
	Long: `Scan the database and print every document whose id or body contains
the query, case-insensitively. An empty query matches everything.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		sess, err := document.NewSession(cmd.Context(), m, log, args[0])
		if err != nil {
			return err
		}
		matches, err := sess.Search(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		for _, d := range matches {
			fmt.Printf("%s\t%s\n", d.ID, d.Revision)
		}
		fmt.Printf("%d documents matched\n", len(matches))
		return nil
	},
}

var docPurgeAll bool

var docPurgeCmd = &cobra.Command{
	Use:   "purge <db> [<id>...]",
	Short: "Delete documents in bulk",
	Long: `Delete the identified documents, or every document in the database
with --all. Each deletion is attempted and reported on its own, and
one failure does not stop the rest. Design documents are never part
of --all.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if docPurgeAll && len(args) > 1 {
			return errors.New("pass document ids or --all, not both")
		}
		if !docPurgeAll && len(args) == 1 {
			return errors.New("nothing to purge: pass document ids or --all")
		}

		m, log, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		sess, err := document.NewSession(cmd.Context(), m, log, args[0])
		if err != nil {
			return err
		}

		c := batch.New(log)
		c.Progress = func(done, total int, id string, err error) {
			printProgress(done, total, sess.Database()+"/"+id, err)
		}

		var res *batch.Result
		if docPurgeAll {
			res, err = c.DeleteAllDocuments(cmd.Context(), sess)
		} else {
			res, err = c.DeleteDocuments(cmd.Context(), sess, args[1:])
		}
		if err != nil {
			return err
		}
		return reportBatch("documents", res)
	},
}

func init() {
	docListCmd.Flags().IntVar(&docLimit, "limit", 0, "maximum documents to return (0 = server default)")
	docListCmd.Flags().IntVar(&docSkip, "skip", 0, "documents to skip")
	docListCmd.Flags().BoolVar(&docFull, "full", false, "include document bodies")

	docGetCmd.Flags().BoolVar(&docPretty, "pretty", false, "pretty-print the body")

	docCreateCmd.Flags().StringVar(&docID, "id", "", "document id (server assigns one when empty)")

	docUpdateCmd.Flags().StringVar(&docUpdateRev, "rev", "", "current revision of the document")
	_ = docUpdateCmd.MarkFlagRequired("rev")

	docDeleteCmd.Flags().StringVar(&docDeleteRev, "rev", "", "current revision of the document")
	_ = docDeleteCmd.MarkFlagRequired("rev")

	docPurgeCmd.Flags().BoolVar(&docPurgeAll, "all", false, "delete every document in the database")

	docCmd.AddCommand(docListCmd, docGetCmd, docCreateCmd, docUpdateCmd, docDeleteCmd, docSearchCmd, docPurgeCmd)
	rootCmd.AddCommand(docCmd)
}
