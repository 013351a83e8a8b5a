package main

import (
	"fmt"

	"optio-backend/application/queries"
	querybus "optio-backend/application/queries/bus"

	"github.com/spf13/cobra"
)

var treasuryAccount string

var treasuryCmd = &cobra.Command{
	Use:   "treasury",
	Short: "Show the current bid, the pot and an account's balances",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		t, err := querybus.Ask[*queries.GetTreasuryResult](cmd.Context(), a.queryBus, queries.GetTreasuryQuery{Account: treasuryAccount})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Current bid: %s ETH\n", t.CurrentBid)
		fmt.Fprintf(out, "Pot:         %s ETH\n", t.Pot)
		if t.Account != "" {
			name := t.Name
			if name == "" {
				name = "(unregistered)"
			}
			fmt.Fprintf(out, "Account:     %s %s\n", t.Account, name)
			fmt.Fprintf(out, "Claimable:   %s ETH\n", t.Balance)
			fmt.Fprintf(out, "Tokens:      %s\n", t.TokenBalance)
		}
		return nil
	}),
}

func init() {
	treasuryCmd.Flags().StringVar(&treasuryAccount, "account", "", "account to report on (defaults to the wallet)")
	rootCmd.AddCommand(treasuryCmd)
}
