package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"reqkit/database"
	"reqkit/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage record collections",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List record collections and their sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		collections, err := database.GetCollections()
		if err != nil {
			return fmt.Errorf("listing collections: %w", err)
		}
		if len(collections) == 0 {
			fmt.Println("No record collections imported yet. Use 'records import <collection> <file.json>'.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "COLLECTION\tRECORDS")
		for _, c := range collections {
			fmt.Fprintf(w, "%s\t%d\n", c.Name, c.RecordCount)
		}
		return w.Flush()
	},
}

var recordsImportCmd = &cobra.Command{
	Use:   "import <collection> <file.json>",
	Short: "Import a JSON array of records into a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, path := args[0], args[1]

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var documents []json.RawMessage
		if err := json.Unmarshal(data, &documents); err != nil {
			return fmt.Errorf("%s must contain a JSON array of objects: %w", path, err)
		}
		if len(documents) == 0 {
			return fmt.Errorf("%s contains no records", path)
		}

		imported, err := database.ImportRecords(collection, documents)
		if err != nil {
			return fmt.Errorf("importing records into %q: %w", collection, err)
		}
		color.Green("Imported %d records into collection %q", imported, collection)
		logger.Info("Imported %d records into collection %q via CLI", imported, collection)
		return nil
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <collection>",
	Short: "Delete a record collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deleted, err := database.DeleteCollection(args[0])
		if err != nil {
			return fmt.Errorf("deleting collection %q: %w", args[0], err)
		}
		if deleted == 0 {
			fmt.Printf("Collection %q was already empty or does not exist.\n", args[0])
			return nil
		}
		color.Green("Deleted collection %q (%d records)", args[0], deleted)
		return nil
	},
}

func init() {
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsImportCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}
