package main

import (
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/aws-rds-cart/internal/stack"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print every resource followed by the resources it depends on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack()
			if err != nil {
				return err
			}
			return stack.WriteTo(s.Graph, cmd.OutOrStdout())
		},
	}
}
