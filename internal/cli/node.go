package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// NewNodesCmd создаёт команду просмотра зарегистрированных типов нод.
func NewNodesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List registered node kinds",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			infos, err := client.ListNodes()
			if err != nil {
				return err
			}

			kinds := make([]string, 0, len(infos))
			for kind := range infos {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)

			headers := []string{"KIND", "CATEGORY", "REQUIRED", "OPTIONAL", "OUTPUTS"}
			rows := make([][]string, len(kinds))
			for i, kind := range kinds {
				info := infos[kind]
				rows[i] = []string{
					kind,
					info.Category,
					formatInputs(info.Input.Required),
					formatInputs(info.Input.Optional),
					strings.Join(info.Output, ","),
				}
			}

			out.Print(headers, rows, infos)
			return nil
		},
	}
}

// formatInputs форматирует входы как "name:TYPE" через запятую.
func formatInputs(inputs map[string][]any) string {
	if len(inputs) == 0 {
		return "-"
	}

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name
		if spec := inputs[name]; len(spec) > 0 {
			if t, ok := spec[0].(string); ok {
				parts[i] = name + ":" + t
			}
		}
	}
	return strings.Join(parts, ",")
}
