package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagServer   string
	flagIdentity string
	flagUser     string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "promptctl",
		Short:         "Operator CLI for the prompt configuration service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:3200", "base URL of the API server")
	cmd.PersistentFlags().StringVar(&flagIdentity, "identity-header", "X-User-ID", "header carrying the caller identity")
	cmd.PersistentFlags().StringVar(&flagUser, "user", "", "caller user id (uuid)")

	cmd.AddCommand(newRequestsCmd())
	cmd.AddCommand(newUsersCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func client() *apiClient {
	return newAPIClient(flagServer, flagIdentity, flagUser)
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
