package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"reqkit/curlparse"
	"reqkit/database"
	"reqkit/logger"
	"reqkit/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var importCurlTaskName string

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage request tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all request tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := database.GetTasks()
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks defined yet. Create one with 'task import-curl' or via the API.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMETHOD\tURL")
		for _, t := range tasks {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Name, methodColor(t.Method).Sprint(t.Method), t.URL)
		}
		return w.Flush()
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task including its mappings",
	Args:  cobra.ExactArgs(1),
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

		bold := color.New(color.Bold)
		bold.Printf("Task %d: %s\n", task.ID, task.Name)
		fmt.Printf("  %s %s\n", methodColor(task.Method).Sprint(task.Method), task.URL)
		if task.Headers != "" && task.Headers != "{}" {
			fmt.Printf("  Headers:  %s\n", task.Headers)
		}
		if task.Body != "" {
			fmt.Printf("  Body:     %s\n", task.Body)
		}
		if task.Mappings != "" && task.Mappings != "{}" {
			fmt.Println("  Mappings:")
			mappings, err := task.MappingSet()
			if err != nil {
				fmt.Printf("    (stored mappings are invalid: %v)\n", err)
			} else {
				for _, key := range mappings.SortedKeys() {
					m := mappings[key]
					switch m.Type {
					case models.MappingTypeSource:
						fmt.Printf("    %s <- record field %q\n", key, m.SourceField)
					case models.MappingTypeFixed:
						fmt.Printf("    %s <- fixed %v\n", key, m.Value)
					case models.MappingTypeSpecial:
						fmt.Printf("    %s <- generated (%s)\n", key, m.Generator)
					}
				}
			}
		}
		if task.SourceResultID.Valid {
			fmt.Printf("  Created from result %d\n", task.SourceResultID.Int64)
		}
		return nil
	},
}

var taskImportCurlCmd = &cobra.Command{
	Use:   "import-curl <curl command>",
	Short: "Create a task from a pasted curl command",
	Long: `Parses a curl command into a request template and stores it as a task.
Quote the whole command so the shell passes it through as one argument, or
pass the parts as separate arguments:

  reqkit task import-curl 'curl -X POST https://api.example.com/users -d "{}"'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")
		tmpl, err := curlparse.Parse(command)
		if err != nil {
			return fmt.Errorf("parsing curl command: %w", err)
		}

		name := importCurlTaskName
		if name == "" {
			name = fmt.Sprintf("%s %s", tmpl.NormalizedMethod(), tmpl.URL)
		}

		task := models.RequestTask{
			Name:   name,
			Method: tmpl.NormalizedMethod(),
			URL:    tmpl.URL,
			Body:   tmpl.Body,
		}
		if len(tmpl.Headers) > 0 {
			headersJSON, err := json.Marshal(tmpl.Headers)
			if err != nil {
				return fmt.Errorf("encoding parsed headers: %w", err)
			}
			task.Headers = string(headersJSON)
		}

		created, err := database.CreateTask(task)
		if err != nil {
			return fmt.Errorf("storing task: %w", err)
		}
		color.Green("Created task %d: %s", created.ID, created.Name)
		logger.Info("Imported curl command as task ID %d via CLI", created.ID)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task ID %q", args[0])
		}
		if err := database.DeleteTask(taskID); err != nil {
			return fmt.Errorf("deleting task %d: %w", taskID, err)
		}
		color.Green("Deleted task %d", taskID)
		return nil
	},
}

func methodColor(method string) *color.Color {
	switch strings.ToUpper(method) {
	case "GET":
		return color.New(color.FgCyan)
	case "POST":
		return color.New(color.FgGreen)
	case "PUT", "PATCH":
		return color.New(color.FgYellow)
	case "DELETE":
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

func init() {
	taskImportCurlCmd.Flags().StringVar(&importCurlTaskName, "name", "", "name for the new task (defaults to '<METHOD> <URL>')")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskImportCurlCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	rootCmd.AddCommand(taskCmd)
}
