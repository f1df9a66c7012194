package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/class-attend/internal/attendance"
	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database/postgres"
)

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Manually mark attendance for a session",
	Long: `Manually mark attendance for one session. Students listed with
--present are marked Present; every other roster member is marked Absent.
Re-running for the same (teacher, subject, date) overwrites the session
instead of duplicating it.`,
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().Int64("teacher-id", 0, "Teacher marking the session")
	markCmd.Flags().String("subject", "", "Subject of the session")
	markCmd.Flags().String("date", "", "Session date (YYYY-MM-DD)")
	markCmd.Flags().StringSlice("present", nil, "USNs of present students")
	markCmd.MarkFlagRequired("teacher-id")
	markCmd.MarkFlagRequired("subject")
	markCmd.MarkFlagRequired("date")
}

func runMark(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	key := attendance.SessionKey{
		TeacherID: mustGetInt64(cmd, "teacher-id"),
		Subject:   mustGetString(cmd, "subject"),
		Date:      mustGetString(cmd, "date"),
	}
	if err := key.Validate(); err != nil {
		return err
	}

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

	byUSN := make(map[string]int64, len(students))
	ids := make([]int64, 0, len(students))
	for _, s := range students {
		byUSN[s.USN] = s.ID
		ids = append(ids, s.ID)
	}

	present := make(map[int64]bool)
	for _, usn := range mustGetStringSlice(cmd, "present") {
		usn = strings.ToUpper(strings.TrimSpace(usn))
		id, ok := byUSN[usn]
		if !ok {
			return fmt.Errorf("unknown USN %s", usn)
		}
		present[id] = true
	}

	reconciler := attendance.NewReconciler(postgres.NewAttendanceRepository(pool))
	summary, err := reconciler.ReconcileRequireRoster(ctx, key, present, ids)
	if err != nil {
		return fmt.Errorf("marking attendance: %w", err)
	}

	fmt.Printf("Marked %s %s: %d present, %d absent (%d total)\n",
		key.Subject, key.Date, summary.Present, summary.Absent, summary.Total)
	if len(summary.Failed) > 0 {
		for _, f := range summary.Failed {
			fmt.Printf("  failed to record student %d: %v\n", f.StudentID, f.Err)
		}
		return fmt.Errorf("%d students could not be recorded", len(summary.Failed))
	}
	return nil
}
