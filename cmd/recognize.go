package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/class-attend/internal/attendance"
	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database/postgres"
	"github.com/kozaktomas/class-attend/internal/detect"
	"github.com/kozaktomas/class-attend/internal/recognize"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <photo>",
	Short: "Mark attendance from a classroom photo",
	Long: `Mark attendance from a classroom photo. Faces are detected by the
detector service and matched against enrolled encodings; matched students
are marked Present and everyone else Absent. A photo with no faces or no
matches marks nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Int64("teacher-id", 0, "Teacher marking the session")
	recognizeCmd.Flags().String("subject", "", "Subject of the session")
	recognizeCmd.Flags().String("date", "", "Session date (YYYY-MM-DD)")
	recognizeCmd.MarkFlagRequired("teacher-id")
	recognizeCmd.MarkFlagRequired("subject")
	recognizeCmd.MarkFlagRequired("date")
}

func runRecognize(cmd *cobra.Command, args []string) error {
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

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	detection, err := detect.NewClient(cfg.Detector.URL).DetectFaces(ctx, imageData)
	if err != nil {
		return fmt.Errorf("detecting faces: %w", err)
	}
	if detection.FacesCount == 0 {
		fmt.Println("No faces detected; attendance was not marked")
		return nil
	}
	fmt.Printf("Detected %d faces\n", detection.FacesCount)

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

	matcher := recognize.NewMatcher(cfg.Recognition.Threshold, cfg.Detector.Dim)
	result := matcher.Match(detection.Embeddings(), students)
	if result.CorruptEntries > 0 {
		fmt.Printf("Warning: %d roster entries have corrupt encodings and were excluded\n", result.CorruptEntries)
	}
	if result.MatchedCount() == 0 {
		fmt.Println("No enrolled student matched; attendance was not marked")
		return nil
	}

	var matched []string
	for _, f := range result.Faces {
		if f.Outcome == recognize.OutcomeMatched {
			matched = append(matched, f.USN)
		}
	}
	sort.Strings(matched)
	for _, usn := range matched {
		fmt.Printf("  matched %s\n", usn)
	}

	ids := make([]int64, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}

	reconciler := attendance.NewReconciler(postgres.NewAttendanceRepository(pool))
	summary, err := reconciler.Reconcile(ctx, key, result.PresentSet(), ids)
	if err != nil {
		return fmt.Errorf("marking attendance: %w", err)
	}

	fmt.Printf("Attendance marked. Present: %d of %d.\n", summary.Present, summary.Total)
	if len(summary.Failed) > 0 {
		for _, f := range summary.Failed {
			fmt.Printf("  failed to record student %d: %v\n", f.StudentID, f.Err)
		}
		return fmt.Errorf("%d students could not be recorded", len(summary.Failed))
	}
	return nil
}
