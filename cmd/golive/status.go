package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/golive/internal/adapters/fs"
	"github.com/bft-labs/golive/internal/cliconfig"
)

func newStatusCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the current or last go-live session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			dir := cfg.StatusDir
			if dir == "" {
				dir = cliconfig.DefaultStatusDir()
			}

			repo := fs.NewStatusFileRepository(dir)
			st, err := repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("read %s: %w", repo.Path(), err)
			}
			if st.State == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "No session recorded in %s.\n", repo.Path())
				return nil
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status file")
	return cmd
}

func printStatus(out io.Writer, st fs.Status) {
	fmt.Fprintf(out, "State:    %s\n", st.State)
	if st.AttemptID != "" {
		fmt.Fprintf(out, "Attempt:  %s\n", st.AttemptID)
	}
	fmt.Fprintf(out, "Updated:  %s\n", st.UpdatedAt.Local().Format(time.RFC1123))
	if st.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", st.Error)
	}

	if len(st.Prepopulation) > 0 {
		ids := make([]string, 0, len(st.Prepopulation))
		for id := range st.Prepopulation {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Fprintln(out, "\nPlatforms:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, id := range ids {
			p := st.Prepopulation[id]
			switch {
			case p.Error != "":
				fmt.Fprintf(tw, "  %s\tunavailable\t%s\n", id, p.Error)
			case p.Live:
				fmt.Fprintf(tw, "  %s\tlive\t%s\n", id, p.Title)
			default:
				fmt.Fprintf(tw, "  %s\toffline\t%s\n", id, p.Title)
			}
		}
		tw.Flush()
	}

	if len(st.Checklist) > 0 {
		fmt.Fprintln(out, "\nChecklist:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, step := range st.Checklist {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", step.Name, step.Status, step.Error)
		}
		tw.Flush()
	}

	if len(st.Compensated) > 0 {
		fmt.Fprintf(out, "\nRolled back: %v\n", st.Compensated)
	}
}
