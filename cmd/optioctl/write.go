package main

import (
	"fmt"
	"io"

	"optio-backend/application/commands"
	"optio-backend/application/commands/bus"

	"github.com/spf13/cobra"
)

var contributeCmd = &cobra.Command{
	Use:     "contribute <content>",
	Short:   "Write a new nexus, paying the contribution fee",
	Args:    cobra.ExactArgs(1),
	Example: `optioctl contribute "The door creaks open."`,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return dispatch(cmd, a, commands.ContributeNexusCommand{Content: args[0]})
	}),
}

type bindFlags struct {
	origin      uint64
	destination int64
	newContent  string
}

var bindOpts bindFlags

var bindCmd = &cobra.Command{
	Use:   "bind <choice text>",
	Short: "Link a nexus to a destination with a new optio",
	Args:  cobra.ExactArgs(1),
	Example: `optioctl bind --origin 0 --destination 3 "Open the door"
optioctl bind --origin 0 --new-content "A dark hallway." "Open the door"`,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		origin := bindOpts.origin
		c := commands.BindOptioCommand{
			OriginID:        &origin,
			Content:         args[0],
			NewNexusContent: bindOpts.newContent,
		}
		if bindOpts.destination >= 0 {
			destination := uint64(bindOpts.destination)
			c.DestinationID = &destination
		}
		return dispatch(cmd, a, c)
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register a display name for the wallet account",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return dispatch(cmd, a, commands.RegisterNameCommand{Name: args[0]})
	}),
}

var sacrificeCmd = &cobra.Command{
	Use:   "sacrifice",
	Short: "Bid the current sacrifice amount",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return dispatch(cmd, a, commands.SacrificeCommand{})
	}),
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw the account's claimable balance",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return dispatch(cmd, a, commands.WithdrawCommand{})
	}),
}

func init() {
	bindCmd.Flags().Uint64Var(&bindOpts.origin, "origin", 0, "nexus the choice leaves from")
	bindCmd.Flags().Int64Var(&bindOpts.destination, "destination", -1, "existing nexus the choice leads to")
	bindCmd.Flags().StringVar(&bindOpts.newContent, "new-content", "", "write a new destination nexus with this content first")
	bindCmd.MarkFlagsMutuallyExclusive("destination", "new-content")

	rootCmd.AddCommand(contributeCmd, bindCmd, registerCmd, sacrificeCmd, withdrawCmd)
}

func dispatch(cmd *cobra.Command, a *app, c bus.Command) error {
	fmt.Fprintln(cmd.OutOrStdout(), "Submitting transaction, waiting for confirmation...")
	result, err := a.commandBus.Send(cmd.Context(), c)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func printResult(out io.Writer, result *bus.CommandResult) {
	for _, hash := range result.TxHashes {
		fmt.Fprintf(out, "confirmed %s\n", hash)
	}
	if data, ok := result.Data.(map[string]interface{}); ok {
		if id, ok := data["nexusId"]; ok {
			fmt.Fprintf(out, "nexus %v\n", id)
		}
	}
}
