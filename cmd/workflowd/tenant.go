package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voundbrand/vc83-com-sub014/internal/identity"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", cfg.DB.Path)
			return s.Close()
		},
	}
}

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants and API keys",
	}

	create := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a tenant (if missing) and issue an API key",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantCreate,
	}
	create.Flags().String("name", "", "Display name (default: the id)")
	create.Flags().String("plan", store.PlanFree, "Plan: free, pro or enterprise")
	create.Flags().String("label", "cli", "Label for the issued API key")

	cmd.AddCommand(create)
	return cmd
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	cfg, err := configFromCmd(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	plan, _ := cmd.Flags().GetString("plan")
	label, _ := cmd.Flags().GetString("label")
	if name == "" {
		name = args[0]
	}

	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	tenant, err := identity.EnsureTenant(cmd.Context(), s, args[0], name, plan)
	if err != nil {
		return err
	}
	raw, _, err := identity.IssueAPIKey(cmd.Context(), s, tenant.ID, label)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tenant:  %s (%s, plan %s)\n", tenant.ID, tenant.Name, tenant.Plan)
	fmt.Fprintf(out, "api key: %s\n", raw)
	fmt.Fprintln(out, "The key is shown once; store it now.")
	return nil
}
