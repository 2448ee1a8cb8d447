package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var sorted bool
	cmd := &cobra.Command{
		Use:   "parse [timestamps...]",
		Short: "Show how timestamp text is interpreted",
		Long: "Reads m:ss timestamps from the arguments, or from stdin when none are given,\n" +
			"and prints each accepted timestamp with its offset in seconds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, "\n")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			return printTimestamps(cmd.OutOrStdout(), cmd.ErrOrStderr(), text, sorted)
		},
	}
	cmd.Flags().BoolVar(&sorted, "sorted", false, "Print in capture order")
	return cmd
}

func printTimestamps(w, errW io.Writer, text string, sorted bool) error {
	stamps := entity.ParseTimestamps(text)
	if sorted {
		stamps = entity.SortTimestamps(stamps)
	}
	if len(stamps) == 0 {
		fmt.Fprintln(errW, "no valid timestamps found (expected m:ss, one per line)")
		return nil
	}
	for _, ts := range stamps {
		fmt.Fprintf(w, "%s\t%ds\n", ts, ts.TotalSeconds())
	}
	return nil
}
