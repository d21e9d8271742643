package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"budgetwise/internal/backend"
	"budgetwise/internal/core"
	"budgetwise/internal/log"
)

func newAddCommand(logger func() *log.Logger) *cobra.Command {
	var owner, amount, category, date string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseExpense(amount, category, date)
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), logger(), func(b backend.Backend) error {
				id, err := b.InsertExpense(cmd.Context(), in.Record(owner, time.Now()))
				if err != nil {
					return fmt.Errorf("insert expense: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s: %s %s on %s\n",
					id, core.FormatAmount(in.Amount), in.Category, in.Date.String())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner user id (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 12.50 (required)")
	cmd.Flags().StringVar(&category, "category", "", "category (required)")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func parseExpense(amount, category, date string) (core.NewExpense, error) {
	var in core.NewExpense
	var err error
	if in.Amount, err = core.ParseAmount(amount); err != nil {
		return in, err
	}
	if in.Category, err = core.ParseCategory(category); err != nil {
		return in, err
	}
	in.Date = core.Today()
	if date != "" {
		if in.Date, err = core.ParseDate(date); err != nil {
			return in, err
		}
	}
	return in, in.Validate()
}

func newListCommand(logger func() *log.Logger) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), logger(), func(b backend.Backend) error {
				records, err := b.QueryExpenses(cmd.Context(), owner)
				if err != nil {
					return fmt.Errorf("query expenses: %w", err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tCATEGORY\tAMOUNT\tID")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Date.Display(), r.Category, core.FormatAmount(r.Amount), r.ID)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner user id (required)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newSummaryCommand(logger func() *log.Logger) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spending per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), logger(), func(b backend.Backend) error {
				records, err := b.QueryExpenses(cmd.Context(), owner)
				if err != nil {
					return fmt.Errorf("query expenses: %w", err)
				}
				summaries := core.Aggregate(records)
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tTOTAL\tSHARE")
				for _, s := range summaries {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Category, core.FormatAmount(s.Total), core.FormatPercent(s.PercentageOfTotal))
				}
				fmt.Fprintf(tw, "TOTAL\t%s\t\n", core.FormatAmount(core.GrandTotal(summaries)))
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner user id (required)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newDueCommand(logger func() *log.Logger) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List bills due on a day across all owners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := core.Today()
			if date != "" {
				var err error
				if day, err = core.ParseDate(date); err != nil {
					return err
				}
			}
			return withBackend(cmd.Context(), logger(), func(b backend.Backend) error {
				bills, err := b.ListDueBills(cmd.Context(), day)
				if err != nil {
					return fmt.Errorf("list due bills: %w", err)
				}
				for _, r := range bills {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.OwnerID, core.FormatAmount(r.Amount), r.ID)
				}
				if len(bills) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "no bills due on %s\n", day.String())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day YYYY-MM-DD (default today)")
	return cmd
}
