package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/class-attend/internal/attendance"
	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database/postgres"
	"github.com/kozaktomas/class-attend/internal/roster"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print attendance records",
	Long: `Print attendance records grouped by date, newest first. Rows within a
date are ordered by USN components. Filter with --teacher-id, --date, or
--usn for a single student.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Int64("teacher-id", 0, "Only sessions marked by this teacher")
	reportCmd.Flags().String("date", "", "Only this date (YYYY-MM-DD)")
	reportCmd.Flags().String("usn", "", "Only this student")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rosterRepo := postgres.NewRosterRepository(pool, cfg.Detector.Dim)
	students, err := rosterRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	byID := make(map[int64]*roster.Student, len(students))
	byUSN := make(map[string]*roster.Student, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
		byUSN[students[i].USN] = &students[i]
	}

	filter := attendance.QueryFilter{
		TeacherID: mustGetInt64(cmd, "teacher-id"),
		Date:      mustGetString(cmd, "date"),
	}
	if usn := strings.ToUpper(strings.TrimSpace(mustGetString(cmd, "usn"))); usn != "" {
		s, ok := byUSN[usn]
		if !ok {
			return fmt.Errorf("unknown USN %s", usn)
		}
		filter.StudentID = s.ID
	}

	records, err := postgres.NewAttendanceRepository(pool).Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("querying attendance: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No attendance records found")
		return nil
	}

	orderer := roster.NewOrderer(cfg.Cohorts.DeprioritizedPrefixes)
	printReport(cfg, records, byID, orderer)
	return nil
}

// printReport prints records grouped by date, newest first. The branch
// column uses the display names from the cohorts config.
func printReport(cfg *config.Config, records []attendance.Record, byID map[int64]*roster.Student, orderer *roster.Orderer) {
	buckets := make(map[string][]attendance.Record)
	var dates []string
	for _, rec := range records {
		date := rec.DateString()
		if _, ok := buckets[date]; !ok {
			dates = append(dates, date)
		}
		buckets[date] = append(buckets[date], rec)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	for _, date := range dates {
		rows := buckets[date]
		sort.SliceStable(rows, func(i, j int) bool {
			var a, b string
			if s, ok := byID[rows[i].StudentID]; ok {
				a = s.USN
			}
			if s, ok := byID[rows[j].StudentID]; ok {
				b = s.USN
			}
			return orderer.LessStructured(a, b)
		})

		fmt.Printf("%s\n", date)
		for _, rec := range rows {
			usn, name, branch := "?", "?", ""
			if s, ok := byID[rec.StudentID]; ok {
				usn, name = s.USN, s.Name
				if parsed, ok := roster.ParseUSN(s.USN); ok {
					branch = cfg.BranchName(parsed.SubBranch)
				}
			}
			fmt.Printf("  %-12s %-25s %-22s %-10s %s\n", usn, name, branch, rec.Subject, rec.Status)
		}
	}
}
