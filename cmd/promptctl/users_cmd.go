package main

import (
	"net/http"

	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts and roles",
	}
	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersRegisterCmd())
	cmd.AddCommand(newUsersSetRoleCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users (privileged callers only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := client().do(http.MethodGet, "/api/users", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newUsersRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <email>",
		Short: "Register a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := client().do(http.MethodPost, "/api/users", map[string]string{"email": args[0]}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newUsersSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <id> <role>",
		Short: "Assign a role (REGULAR or PRIVILEGED)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := client().do(http.MethodPatch, "/api/users/"+args[0]+"/role", map[string]string{"role": args[1]}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
