package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/redbco/wings/internal/config"
)

func newProfilesCmd(a *app) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage table profiles",
		Long:  "Manage the named database tables wingsctl can operate on",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			names := a.cfg.ProfileNames()
			if len(names) == 0 {
				fmt.Fprintln(w, "No profiles found. Use 'wingsctl profiles create <name>' to create one.")
				return nil
			}

			fmt.Fprintf(w, "%-15s %-40s %-15s %s\n", "NAME", "URL", "TABLE", "DEFAULT")
			fmt.Fprintln(w, strings.Repeat("-", 80))
			def := a.cfg.DefaultProfile()
			for _, name := range names {
				p, err := a.cfg.Profile(name)
				if err != nil {
					return err
				}
				mark := ""
				if name == def {
					mark = "*"
				}
				fmt.Fprintf(w, "%-15s %-40s %-15s %s\n", name, p.URL, p.Table, mark)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show profile details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.cfg.Profile(args[0])
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	var p config.Profile
	var strict, makeDefault bool
	createCmd := &cobra.Command{
		Use:   "create <name> --url=<url> --table=<table>",
		Short: "Create or replace a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("strict") {
				p.Strict = &strict
			}
			if err := a.cfg.SetProfile(args[0], p); err != nil {
				return err
			}
			if makeDefault {
				if err := a.cfg.SetDefaultProfile(args[0]); err != nil {
					return err
				}
			}
			if err := a.cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' saved\n", args[0])
			return nil
		},
	}
	createCmd.Flags().StringVar(&p.URL, "url", "", "Database URL, e.g. postgres://user@host/db")
	createCmd.Flags().StringVar(&p.Table, "table", "", "Table or collection name")
	createCmd.Flags().StringVar(&p.ID, "id", "", "Identifier field (default id, _id for MongoDB)")
	createCmd.Flags().StringSliceVar(&p.Fields, "fields", nil, "Known fields filled with null on create")
	createCmd.Flags().BoolVar(&strict, "strict", true, "Reject unknown query operators")
	createCmd.Flags().IntVar(&p.Paginate.Default, "page-default", 0, "Default page size")
	createCmd.Flags().IntVar(&p.Paginate.Max, "page-max", 0, "Maximum page size")
	createCmd.Flags().BoolVar(&p.ConcurrentCount, "concurrent-count", false, "Count and fetch pages in parallel")
	createCmd.Flags().BoolVar(&makeDefault, "default", false, "Make this the default profile")

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.DeleteProfile(args[0]); err != nil {
				return err
			}
			if err := a.cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted\n", args[0])
			return nil
		},
	}

	useCmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Make a profile the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.SetDefaultProfile(args[0]); err != nil {
				return err
			}
			return a.cfg.Save()
		},
	}

	profilesCmd.AddCommand(listCmd, showCmd, createCmd, deleteCmd, useCmd)
	return profilesCmd
}
