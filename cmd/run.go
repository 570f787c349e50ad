package cmd

import (
	"context"
	"fmt"
	"strconv"

	"reqkit/core"
	"reqkit/database"
	"reqkit/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	runCollection  string
	runConcurrency int
	runMaxRecords  int
)

var runCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Run a task over every record of a collection",
	Long: `Resolves the task's template once per record of the given collection and
executes the resulting requests with bounded concurrency. Each result is
stored; a summary is printed when the batch finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task ID %q", args[0])
		}
		task, err := database.GetTaskByID(taskID)
		if err != nil {
			return fmt.Errorf("fetching task %d: %w", taskID, err)
		}
		if task == nil {
			return fmt.Errorf("task %d not found", taskID)
		}

		progress := func(res *models.ExecutionResult) error {
			if _, err := database.InsertResult(res); err != nil {
				return err
			}
			idx := "-"
			if res.RecordIndex.Valid {
				idx = strconv.FormatInt(res.RecordIndex.Int64, 10)
			}
			if res.Success {
				color.Green("  [%s] %s %s -> %d (%dms)", idx, res.RequestMethod, res.RequestURL, res.ResponseStatusCode, res.DurationMs)
			} else {
				color.Red("  [%s] %s %s -> FAILED: %s", idx, res.RequestMethod, res.RequestURL, res.ErrorMessage.String)
			}
			return nil
		}

		fmt.Printf("Running task %d (%s) over collection %q...\n", task.ID, task.Name, runCollection)
		rn := core.NewRunnerWithSink(core.NewExecutorFromConfig(), progress)
		summary, err := rn.Run(context.Background(), task, core.RunOptions{
			Collection:  runCollection,
			Concurrency: runConcurrency,
			MaxRecords:  runMaxRecords,
		})
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("\nDone in %dms: %d total, ", summary.DurationMs, summary.Total)
		color.New(color.Bold, color.FgGreen).Printf("%d succeeded", summary.Succeeded)
		bold.Print(", ")
		if summary.Failed > 0 {
			color.New(color.Bold, color.FgRed).Printf("%d failed\n", summary.Failed)
		} else {
			bold.Println("0 failed")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runCollection, "collection", "c", "", "record collection to run over (required)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "number of concurrent requests (0 = config default)")
	runCmd.Flags().IntVar(&runMaxRecords, "max", 0, "maximum number of records to process (0 = all)")
	runCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(runCmd)
}
