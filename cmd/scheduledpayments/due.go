package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"scheduled-payments/internal/schedule"
	"scheduled-payments/internal/service"
)

var dueDate string

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "Print the schedules due on a day without notifying anyone",
	RunE:  dueRun,
}

func init() {
	dueCmd.Flags().StringVar(&dueDate, "date", "", "day to check as YYYY-MM-DD (default today)")
}

func dueRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	day := a.scheduleSvc.Today()
	if dueDate != "" {
		day, err = schedule.ParseDay(dueDate)
		if err != nil {
			return err
		}
	}

	items, err := a.dueSvc.Preview(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return printDue(items, day)
}

func printDue(items []service.DueItem, day time.Time) error {
	if len(items) == 0 {
		fmt.Printf("Nothing due on %s.\n", day.Format(schedule.DateLayout))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID\tUSER\tTYPE\tFREQUENCY\tAMOUNT\tRECIPIENTS\tDESCRIPTION\n")
	for _, item := range items {
		names := make([]string, 0, len(item.Contacts))
		for _, c := range item.Contacts {
			names = append(names, c.DisplayName())
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			item.Record.ID, item.User.TelegramID, item.Record.Type, item.Schedule.Frequency(),
			orDash(item.Record.Amount), orDash(strings.Join(names, ", ")), item.Record.Description)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
