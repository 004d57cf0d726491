package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/minhvu/faceclock/internal/attendance"
	"github.com/minhvu/faceclock/internal/config"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect the attendance ledger",
}

var attendanceHistoryCmd = &cobra.Command{
	Use:   "history [identity]",
	Short: "Show the attendance history for one identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceHistory,
}

var attendanceReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show worked hours per identity across the whole ledger",
	RunE:  runAttendanceReport,
}

func init() {
	attendanceCmd.AddCommand(attendanceHistoryCmd)
	attendanceCmd.AddCommand(attendanceReportCmd)
	rootCmd.AddCommand(attendanceCmd)
}

func runAttendanceHistory(cmd *cobra.Command, args []string) error {
	identity := args[0]

	cfg := config.Load()
	ledger := attendance.NewLedger(cfg.Data.LedgerDir)

	events, err := ledger.History(identity)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(events) == 0 {
		fmt.Printf("No attendance records for %s\n", identity)
		return nil
	}

	fmt.Printf("%-12s %-10s %-10s %-8s %s\n", "date", "check-in", "check-out", "hours", "position")
	for _, event := range events {
		checkOut := "-"
		hours := "-"
		if event.CheckedOut() {
			checkOut = event.CheckOut.Format("15:04:05")
			hours = fmt.Sprintf("%.2f", event.WorkedHours)
		}
		fmt.Printf("%-12s %-10s %-10s %-8s %s\n",
			event.Date, event.CheckIn.Format("15:04:05"), checkOut, hours, event.Position)
	}
	return nil
}

func runAttendanceReport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ledger := attendance.NewLedger(cfg.Data.LedgerDir)

	all, err := ledger.All()
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}
	if len(all) == 0 {
		fmt.Println("The attendance ledger is empty")
		return nil
	}

	identities := make([]string, 0, len(all))
	for identity := range all {
		identities = append(identities, identity)
	}
	sort.Strings(identities)

	fmt.Printf("%-20s %-6s %-6s %s\n", "identity", "days", "open", "hours")
	for _, identity := range identities {
		var total float64
		var open int
		for _, event := range all[identity] {
			if event.CheckedOut() {
				total += event.WorkedHours
			} else {
				open++
			}
		}
		fmt.Printf("%-20s %-6d %-6d %.2f\n", identity, len(all[identity]), open, total)
	}
	return nil
}
