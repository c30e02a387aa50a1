package main

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func newRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect and review change requests",
	}
	cmd.AddCommand(newRequestsListCmd())
	cmd.AddCommand(newRequestsPendingCountCmd())
	cmd.AddCommand(newRequestsApproveCmd())
	cmd.AddCommand(newRequestsRejectCmd())
	cmd.AddCommand(newRequestsWithdrawCmd())
	return cmd
}

func newRequestsListCmd() *cobra.Command {
	var status, kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List change requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if status != "" {
				query.Set("status", status)
			}
			if kind != "" {
				query.Set("kind", kind)
			}
			path := "/api/change-requests"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}
			var out any
			if err := client().do(http.MethodGet, path, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (PENDING, APPROVED, REJECTED)")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by resource kind")
	return cmd
}

func newRequestsPendingCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending-count",
		Short: "Show how many requests await review",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := client().do(http.MethodGet, "/api/change-requests/pending-count", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newRequestsApproveCmd() *cobra.Command {
	var feedback string
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending change request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reviewRequest(args[0], "approve", feedback)
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "optional review feedback")
	return cmd
}

func newRequestsRejectCmd() *cobra.Command {
	var feedback string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending change request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reviewRequest(args[0], "reject", feedback)
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "optional review feedback")
	return cmd
}

func newRequestsWithdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <id>",
		Short: "Withdraw your own pending change request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().do(http.MethodDelete, "/api/change-requests/"+args[0], nil, nil)
		},
	}
}

func reviewRequest(id, verdict, feedback string) error {
	var body any
	if feedback != "" {
		body = map[string]string{"feedback": feedback}
	}
	var out any
	if err := client().do(http.MethodPost, "/api/change-requests/"+id+"/"+verdict, body, &out); err != nil {
		return err
	}
	return printJSON(out)
}
