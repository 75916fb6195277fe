package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathoreport/pathoreport/internal/config"
	"github.com/pathoreport/pathoreport/internal/domain/analytics"
	"github.com/pathoreport/pathoreport/internal/domain/backup"
	"github.com/pathoreport/pathoreport/internal/domain/catalog"
	"github.com/pathoreport/pathoreport/internal/domain/report"
	"github.com/pathoreport/pathoreport/internal/platform/db"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}

	// Open applies pending migrations, so "up" only has to report the result.
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, conn *sql.DB) error {
				v, err := db.Version(ctx, conn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d.\n", v)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, conn *sql.DB) error {
				statuses, err := db.Status(ctx, conn)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-10s %-40s %s\n", "VERSION", "NAME", "STATUS")
				for _, s := range statuses {
					status := "pending"
					if s.Applied {
						status = "applied"
					}
					fmt.Fprintf(out, "%-10d %-40s %s\n", s.Version, s.Name, status)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}

func reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reports",
		Aliases: []string{"report"},
		Short:   "Inspect and manage lab reports",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			status, _ := cmd.Flags().GetString("status")
			page, _ := cmd.Flags().GetInt("page")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				reports, total, err := a.reports.List(ctx, report.Filter{Query: query, Status: status, Page: page})
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tPATIENT\tTESTS\tSTATUS\tTOTAL\tDATE")
				for _, r := range reports {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%s\n",
						r.ID, r.Patient.Name, testTypes(r), r.Status, r.TotalPrice, r.Date)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d report(s)\n", len(reports), total)
				return nil
			})
		},
	}
	listCmd.Flags().StringP("query", "q", "", "Match patient name, patient id or test type")
	listCmd.Flags().String("status", report.StatusAll, "Pending, In Progress, Completed or All")
	listCmd.Flags().Int("page", 1, "Page number")

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print one report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				r, err := a.reports.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Set a report's workflow status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				r, err := a.reports.UpdateStatus(ctx, args[0], report.Status(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", r.ID, r.Status)
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.reports.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	hl7Cmd := &cobra.Command{
		Use:   "hl7 ID",
		Short: "Print a report as an HL7 v2 ORU^R01 message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				r, err := a.reports.Get(ctx, args[0])
				if err != nil {
					return err
				}
				// Segments are CR-separated on the wire; print one per line.
				msg := strings.ReplaceAll(string(r.HL7(time.Now())), "\r", "\n")
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, showCmd, statusCmd, deleteCmd, hl7Cmd)
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the test template catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List test templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tPARAMETERS")
			for _, t := range catalog.All() {
				fmt.Fprintf(w, "%s\t%s\t%g\t%d\n", t.ID, t.Name, t.Price, len(t.Parameters))
			}
			return w.Flush()
		},
	})
	return cmd
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write the report collection to a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				reports, err := a.reports.All(ctx)
				if err != nil {
					return err
				}
				doc, err := backup.Export(reports)
				if err != nil {
					return err
				}
				if out == "" {
					out = backup.FileName(time.Now())
				}
				if err := writeOutput(cmd, out, doc); err != nil {
					return err
				}
				if out != "-" {
					fmt.Fprintf(cmd.OutOrStdout(), "wrote %d report(s) to %s\n", len(reports), out)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("out", "o", "", `Output file, "-" for stdout (default pathoreport-backup-<date>.json)`)
	return cmd
}

func restoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore FILE",
		Short: "Replace the report collection with a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			incoming, err := backup.Import(doc)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				current, err := a.reports.All(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "This will replace %d current report(s) with %d report(s) from %s.\n",
					len(current), len(incoming), args[0])
				if !yes {
					fmt.Fprintln(out, "Nothing changed. Re-run with --yes to confirm.")
					return nil
				}
				if err := a.reports.Restore(ctx, incoming); err != nil {
					return err
				}
				fmt.Fprintln(out, "Restored.")
				return nil
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Confirm the replacement")
	return cmd
}

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print dashboard figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			month, _ := cmd.Flags().GetString("month")
			if month != "" && !analytics.ValidMonth(month) {
				return fmt.Errorf("month must be in YYYY-MM form, got %q", month)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				reports, err := a.reports.All(ctx)
				if err != nil {
					return err
				}
				s := analytics.Compute(reports, time.Now(), month)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Unique patients:   %d\n", s.UniquePatients)
				fmt.Fprintf(out, "Lifetime revenue:  %g\n", s.LifetimeRevenue)
				fmt.Fprintf(out, "Reports today:     %d\n", s.TodayCount)
				fmt.Fprintf(out, "Revenue %s:   %g\n", s.Month, s.MonthlyRevenue)
				for _, r := range s.RecentToday {
					fmt.Fprintf(out, "  %s  %s  %s\n", r.ID, r.Patient.Name, r.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("month", "", "Month for the revenue figure, YYYY-MM (default current month)")

	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Export the report list as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				reports, err := a.reports.All(ctx)
				if err != nil {
					return err
				}
				var sb strings.Builder
				if err := analytics.WriteCSV(&sb, reports); err != nil {
					return err
				}
				return writeOutput(cmd, out, []byte(sb.String()))
			})
		},
	}
	csvCmd.Flags().StringP("out", "o", analytics.CSVFileName, `Output file, "-" for stdout`)

	chartCmd := &cobra.Command{
		Use:   "chart",
		Short: "Render monthly revenue as an HTML bar chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				reports, err := a.reports.All(ctx)
				if err != nil {
					return err
				}
				var sb strings.Builder
				if err := analytics.RenderRevenueChart(&sb, analytics.RevenueByMonth(reports)); err != nil {
					return err
				}
				return writeOutput(cmd, out, []byte(sb.String()))
			})
		},
	}
	chartCmd.Flags().StringP("out", "o", "revenue.html", `Output file, "-" for stdout`)

	cmd.AddCommand(csvCmd, chartCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the sample reports if the store has never been written",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				seeded, err := a.reports.Seed(ctx)
				if err != nil {
					return err
				}
				if seeded {
					fmt.Fprintln(cmd.OutOrStdout(), "seeded sample reports")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "store already initialised; nothing seeded")
				}
				return nil
			})
		},
	}
}

// withDB opens the configured SQLite database without building the report
// service. Opening applies pending migrations.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, conn *sql.DB) error) error {
	if memory, _ := cmd.Flags().GetBool("memory"); memory {
		return errors.New("migrations need a database; drop --memory")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.DatabasePath = path
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, conn)
}

// writeOutput writes data to path, or to the command's stdout for "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func testTypes(r report.Report) string {
	names := make([]string, 0, len(r.Tests))
	for _, g := range r.Tests {
		names = append(names, g.TestType)
	}
	return strings.Join(names, ", ")
}

// printJSON writes v indented, leaving <, > and & in reference ranges
// unescaped.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
