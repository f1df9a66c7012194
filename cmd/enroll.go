package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/database/postgres"
	"github.com/kozaktomas/class-attend/internal/detect"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <usn> <photo>",
	Short: "Enroll a student from a reference photo",
	Long: `Enroll a student by extracting a face encoding from a reference photo.
The photo is sent to the detector service and must contain exactly one
face. Re-enrolling replaces the stored encoding.`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	usn := strings.ToUpper(strings.TrimSpace(args[0]))
	photoPath := args[1]

	cfg := config.Load()
	ctx := context.Background()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rosterRepo := postgres.NewRosterRepository(pool, cfg.Detector.Dim)
	student, err := rosterRepo.GetByUSN(ctx, usn)
	if err != nil {
		return fmt.Errorf("loading student: %w", err)
	}
	if student == nil {
		return fmt.Errorf("student %s not found", usn)
	}

	imageData, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	detector := detect.NewClient(cfg.Detector.URL)
	detection, err := detector.DetectFaces(ctx, imageData)
	if err != nil {
		return fmt.Errorf("detecting faces: %w", err)
	}
	if detection.FacesCount != 1 {
		return fmt.Errorf("expected exactly one face in the photo, got %d", detection.FacesCount)
	}

	encoding := detection.Faces[0].Embedding
	if len(encoding) != cfg.Detector.Dim {
		return errors.New("detector returned an encoding with unexpected dimensionality")
	}

	// Warn when the new encoding lands on top of another student's.
	students, err := rosterRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	index := database.NewEncodingIndex()
	index.BuildFromRoster(students)
	if near, dist, err := index.NearestOther(encoding, student.ID); err == nil && dist < cfg.Recognition.WarnDistance {
		fmt.Printf("Warning: encoding is very close to %s (distance %.3f); verify the photo\n", near.USN, dist)
	}

	if err := rosterRepo.SaveEncoding(ctx, student.ID, encoding); err != nil {
		return fmt.Errorf("saving encoding: %w", err)
	}

	fmt.Printf("Enrolled %s (%d-dimensional encoding)\n", student.USN, len(encoding))
	return nil
}
