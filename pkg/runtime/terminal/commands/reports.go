package commands

import (
	"fmt"

	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

func NewReportsCmd(explorer ExplorerProvider, reporter *export.Reporter) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List the known reports and their filters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ex, err := explorer(cmd.Context())
			if err != nil {
				return err
			}
			return reporter.Reports(ex.ListReports(cmd.Context()))
		},
	}
}

func NewProfilesCmd(explorer ExplorerProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the credential profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ex, err := explorer(cmd.Context())
			if err != nil {
				return err
			}
			profiles, err := ex.ListProfiles(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range profiles {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
