// cmd/kcal-log/food.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	todayCopy    bool
	historyLimit int
)

var addCmd = &cobra.Command{
	Use:   "add <food description>",
	Short: "Estimate a food and add it to today's log",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(true, func(a *app) error {
			entry, err := a.tracker.AddFoodByDescription(context.Background(), strings.Join(args, " "))
			if err != nil {
				if msg := a.tracker.State().LastError; msg != "" {
					return fmt.Errorf("%s (%w)", msg, err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %d kcal, %dg protein [%s]\n",
				entry.Name, entry.Calories, entry.Protein, entry.ID)
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <entry id>",
	Short: "Remove an entry from today's log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(true, func(a *app) error {
			if err := a.tracker.RemoveFoodEntry(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		})
	},
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's entries and progress against targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(true, func(a *app) error {
			summary, err := a.tracker.TodaySummary()
			if err != nil {
				return err
			}
			text := formatSummary(summary)
			fmt.Fprint(cmd.OutOrStdout(), text)

			if todayCopy {
				if err := clipboard.WriteAll(text); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Summary copied to clipboard!")
				}
			}
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived days, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(true, func(a *app) error {
			history, err := a.tracker.History(historyLimit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatHistory(history))
			return nil
		})
	},
}

var rolloverCmd = &cobra.Command{
	Use:   "rollover",
	Short: "Archive the previous day if the date has changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(false, func(a *app) error {
			if a.tracker.OnAppBecomesActive() {
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled over to %s\n", a.tracker.Today())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to roll over")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd, removeCmd, todayCmd, historyCmd, rolloverCmd)
	todayCmd.Flags().BoolVar(&todayCopy, "copy", false, "copy the summary to the clipboard")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum number of days (0 = all)")
}
