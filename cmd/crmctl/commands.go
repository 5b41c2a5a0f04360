package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/spf13/cobra"
)

// --- login ---

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = opts.cfg.Email
			}
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			auth, err := opts.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			opts.cfg.Email = email
			opts.cfg.Token = auth.Token
			opts.cfg.RefreshToken = auth.RefreshToken
			if err := saveConfig(opts.ConfigPath, opts.cfg); err != nil {
				return err
			}

			printSuccess(cmd.ErrOrStderr(), "Logged in as %s", auth.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

// --- leads ---

func newLeadsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List, import and export leads",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return opts.requireLogin()
		},
	}
	cmd.AddCommand(newLeadsListCommand(opts))
	cmd.AddCommand(newLeadsImportCommand(opts))
	cmd.AddCommand(newLeadsExportCommand(opts))
	return cmd
}

func newLeadsListCommand(opts *rootOptions) *cobra.Command {
	var req dto.ListLeadsRequest

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().ListLeads(cmd.Context(), req)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tSTATUS\tLAST OUTCOME")
			for _, l := range resp.Leads {
				outcome := l.LastCallOutcome
				if outcome == "" {
					outcome = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.ID, l.Name, l.Phone, l.Status, outcome)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "page %d of %d, %d leads\n", resp.Page, resp.TotalPages, resp.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Search, "search", "", "match name, email or phone")
	cmd.Flags().StringVar(&req.Status, "status", "", "filter by status")
	cmd.Flags().IntVar(&req.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&req.Limit, "limit", 50, "leads per page")
	return cmd
}

func newLeadsImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import leads from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			resp, err := opts.client().ImportLeads(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}

			out := cmd.ErrOrStderr()
			printSuccess(out, "Imported %d leads, skipped %d", resp.Imported, resp.Skipped)
			for _, e := range resp.Errors {
				printWarning(out, "line %d: %s", e.Line, e.Message)
			}
			return nil
		},
	}
}

func newLeadsExportCommand(opts *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all leads as CSV or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("invalid format %q: must be csv or xlsx", format)
			}

			data, name, err := opts.client().ExportLeads(cmd.Context(), format)
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = name
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Wrote %s (%d bytes)", output, len(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: server file name)")
	return cmd
}

// --- reminders ---

func newRemindersCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Scheduled-call reminders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Send due reminders now and list upcoming calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireLogin(); err != nil {
				return err
			}
			resp, err := opts.client().CheckReminders(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range resp.UpcomingCalls {
				printStatus(out, c.LeadName, "%s (in %d min)", c.ScheduledTime.Local().Format("Mon 15:04"), c.MinutesUntilCall)
			}
			for _, r := range resp.ReminderResults {
				switch r.Status {
				case dto.ReminderStatusError:
					printWarning(cmd.ErrOrStderr(), "call %d: %s", r.CallID, r.Error)
				case dto.ReminderStatusSuccess:
					printStep(out, "reminder sent for call %d", r.CallID)
				}
			}
			printSuccess(cmd.ErrOrStderr(), "%s", resp.Message)
			return nil
		},
	})
	return cmd
}
