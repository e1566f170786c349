package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// maxOutputWidth — ширина колонки OUTPUT в таблице (data URI изображений длинные).
const maxOutputWidth = 60

// NewSubmitCmd создаёт команду отправки workflow.
func NewSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Submit a workflow (FILE or - for stdin)",
		Long: "Submit a workflow JSON file. The file may contain either the workflow " +
			"object itself or a full request body {\"prompt\": {...}}.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			workflow, err := extractWorkflow(data)
			if err != nil {
				return err
			}

			if async {
				run, err := client.QueuePrompt(workflow)
				if err != nil {
					return err
				}

				out.Success(fmt.Sprintf("Prompt queued: %s", run.ID))
				out.Print(
					[]string{"ID", "STATUS", "CREATED"},
					[][]string{{run.ID, run.Status, run.CreatedAt}},
					run,
				)
				return nil
			}

			resp, err := client.SubmitPrompt(workflow)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Prompt executed: %s", resp.PromptID))
			for _, w := range resp.Warnings {
				out.Warn(fmt.Sprintf("node %s: input %q links to missing node %s", w.NodeID, w.Input, w.SourceID))
			}

			out.Print([]string{"NODE", "OUTPUT"}, outputRows(resp.Order, resp.Outputs), resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "Queue the workflow instead of waiting for the result")

	return cmd
}

// readInput читает файл или stdin (если path == "-").
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return data, nil
}

// extractWorkflow возвращает workflow из файла: либо значение поля prompt
// конверта {"prompt": {...}, "client_id": ...}, либо весь документ.
//
// Поле prompt, которое само описывает ноду (есть class_type или kind),
// считается нодой с ID "prompt", а не конвертом.
func extractWorkflow(data []byte) (json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid workflow JSON: %w", err)
	}

	prompt, ok := doc["prompt"]
	if !ok {
		return json.RawMessage(data), nil
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal(prompt, &inner); err != nil || inner == nil {
		return json.RawMessage(data), nil
	}
	if _, isNode := inner["class_type"]; isNode {
		return json.RawMessage(data), nil
	}
	if _, isNode := inner["kind"]; isNode {
		return json.RawMessage(data), nil
	}
	return prompt, nil
}

// outputRows строит строки таблицы выходов в порядке выполнения.
func outputRows(order []string, outputs map[string]any) [][]string {
	ids := order
	if len(ids) == 0 {
		ids = make([]string, 0, len(outputs))
		for id := range outputs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, formatOutput(outputs[id])})
	}
	return rows
}

// formatOutput сокращает значение выхода для таблицы.
func formatOutput(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		s = "-"
	case string:
		s = val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprint(val)
		} else {
			s = string(b)
		}
	}

	if strings.HasPrefix(s, "data:image/") {
		return fmt.Sprintf("<image, %d bytes base64>", len(s))
	}
	if len(s) > maxOutputWidth {
		return s[:maxOutputWidth-3] + "..."
	}
	return s
}
