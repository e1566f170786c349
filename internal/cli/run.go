package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewRunsCmd создаёт группу команд для просмотра истории runs.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run history",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				Status: status,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "NODES", "ERROR_KIND", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.Status, strconv.Itoa(len(r.Workflow)), r.ErrorKind, r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			if run.Error == "" {
				out.Print(
					[]string{"ID", "STATUS", "STARTED", "FINISHED"},
					[][]string{{run.ID, run.Status, run.StartedAt, run.FinishedAt}},
					run,
				)
			} else {
				out.Print(
					[]string{"ID", "STATUS", "ERROR_KIND", "ERROR"},
					[][]string{{run.ID, run.Status, run.ErrorKind, run.Error}},
					run,
				)
			}

			if !out.jsonMode && len(run.Outputs) > 0 {
				out.Table([]string{"NODE", "OUTPUT"}, outputRows(run.Order, run.Outputs))
			}
			return nil
		},
	}
}
