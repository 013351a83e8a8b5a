package main

import (
	"fmt"
	"io"

	"optio-backend/application/queries"
	querybus "optio-backend/application/queries/bus"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"

	"github.com/spf13/cobra"
)

var nexusCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Inspect story nodes",
}

var nexusShowCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Print a nexus and the optios leaving it",
	Args:    cobra.ExactArgs(1),
	Example: `optioctl nexus show 0`,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		id, err := valueobjects.ParseNexusID(args[0])
		if err != nil {
			return err
		}
		result, err := querybus.Ask[*queries.GetNexusResult](cmd.Context(), a.queryBus, queries.GetNexusQuery{NexusID: id.Uint64()})
		if err != nil {
			return err
		}
		printSnapshot(cmd.OutOrStdout(), result.Snapshot)
		return nil
	}),
}

func init() {
	nexusCmd.AddCommand(nexusShowCmd)
	rootCmd.AddCommand(nexusCmd)
}

// printSnapshot renders a nexus with its numbered choices
func printSnapshot(out io.Writer, snap entities.Snapshot) {
	fmt.Fprintf(out, "Nexus %d", snap.Nexus.ID)
	if snap.Nexus.Author != "" {
		fmt.Fprintf(out, " by %s", snap.Nexus.Author)
	}
	fmt.Fprintf(out, "\n\n%s\n\n", snap.Nexus.Content)

	if len(snap.Optios) == 0 {
		fmt.Fprintln(out, "(no choices yet)")
		return
	}
	for _, o := range snap.Optios {
		fmt.Fprintf(out, "  [%d] %s -> nexus %d (score %s)\n", o.ID, o.Content, o.Destination, o.Score)
	}
}
