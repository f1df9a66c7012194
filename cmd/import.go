package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/database/mariadb"
	"github.com/kozaktomas/class-attend/internal/database/postgres"
	"github.com/kozaktomas/class-attend/internal/roster"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import students into the roster",
}

var importCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Import students from a CSV file",
	Long: `Import students from a CSV file with columns: usn, name, semester.
A header row is detected and skipped. Students whose USN already exists
are skipped, so the import can be re-run safely.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCSV,
}

var importSISCmd = &cobra.Command{
	Use:   "sis",
	Short: "Import students from the legacy student information system",
	Long: `Import students from the institution's legacy SIS (MariaDB, read-only).
Requires SIS_DATABASE_URL to be set. Students whose USN already exists
are skipped.`,
	RunE: runImportSIS,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importCSVCmd)
	importCmd.AddCommand(importSISCmd)

	importCSVCmd.Flags().Bool("dry-run", false, "Parse and report without writing to the database")
	importSISCmd.Flags().Int("semester", 0, "Only import students from this semester")
	importSISCmd.Flags().Bool("dry-run", false, "Fetch and report without writing to the database")
}

// importRecord is one student pending insertion.
type importRecord struct {
	USN      string
	Name     string
	Semester int
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	records, err := readCSVRoster(args[0])
	if err != nil {
		return err
	}
	return importRoster(cmd, records)
}

func runImportSIS(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.SIS.DSN == "" {
		return errors.New("SIS_DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	sis, err := mariadb.NewPool(cfg.SIS.DSN)
	if err != nil {
		return fmt.Errorf("connecting to SIS: %w", err)
	}
	defer sis.Close()

	students, err := sis.ListStudents(ctx, mustGetInt(cmd, "semester"))
	if err != nil {
		return fmt.Errorf("fetching SIS roster: %w", err)
	}

	records := make([]importRecord, 0, len(students))
	for _, s := range students {
		records = append(records, importRecord{USN: s.USN, Name: s.Name, Semester: s.Semester})
	}
	return importRoster(cmd, records)
}

// readCSVRoster parses a roster CSV (usn, name, semester).
func readCSVRoster(path string) ([]importRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var records []importRecord
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		line++

		if len(row) < 2 {
			return nil, fmt.Errorf("line %d: expected at least usn and name columns", line)
		}
		usn := strings.ToUpper(strings.TrimSpace(row[0]))
		if line == 1 && strings.EqualFold(usn, "usn") {
			continue // header row
		}
		if usn == "" {
			continue
		}

		rec := importRecord{USN: usn, Name: strings.TrimSpace(row[1])}
		if len(row) > 2 {
			if sem, err := strconv.Atoi(strings.TrimSpace(row[2])); err == nil {
				rec.Semester = sem
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// importRoster inserts records, skipping USNs that already exist.
func importRoster(cmd *cobra.Command, records []importRecord) error {
	if len(records) == 0 {
		fmt.Println("Nothing to import")
		return nil
	}

	dryRun := mustGetBool(cmd, "dry-run")
	if dryRun {
		for _, rec := range records {
			fmt.Printf("would import %-12s %s\n", rec.USN, rec.Name)
		}
		fmt.Printf("\n%d students (dry run, nothing written)\n", len(records))
		return nil
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rosterRepo := postgres.NewRosterRepository(pool, cfg.Detector.Dim)

	existing, err := rosterRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetDescription("Importing roster"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("students"),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	imported, skipped, failed := 0, 0, 0
	for _, rec := range records {
		if dup := roster.FindSameName(existing, rec.Name); dup != nil && dup.USN != rec.USN {
			fmt.Fprintf(os.Stderr, "\n%s: name matches existing student %s (%s)\n", rec.USN, dup.USN, dup.Name)
		}
		student := roster.Student{USN: rec.USN, Name: rec.Name, Semester: rec.Semester}
		_, err := rosterRepo.CreateStudent(ctx, &student)
		switch {
		case errors.Is(err, database.ErrDuplicateUSN):
			skipped++
		case err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", rec.USN, err)
		default:
			imported++
			existing = append(existing, student)
		}
		bar.Add(1)
	}
	fmt.Printf("\nImported %d students (%d already present, %d failed)\n", imported, skipped, failed)
	return nil
}
