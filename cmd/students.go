package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database/postgres"
	"github.com/kozaktomas/class-attend/internal/roster"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage the student roster",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the roster in USN order",
	Long: `List the student roster. The default ordering compares USNs by their
components (number prefix, branch, year, sub-branch, numeric suffix) so
that 1BA21CS009 sorts before 1BA21CS045, with deprioritized cohorts at
the end. Use --flat for plain string ordering.`,
	RunE: runStudentsList,
}

var studentsAddCmd = &cobra.Command{
	Use:   "add <usn> <name>",
	Short: "Register a student",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runStudentsAdd,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsAddCmd)

	studentsListCmd.Flags().Bool("flat", false, "Use plain string ordering instead of component-wise ordering")
	studentsAddCmd.Flags().Int("semester", 0, "Semester number")
}

func runStudentsList(cmd *cobra.Command, args []string) error {
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

	orderer := roster.NewOrderer(cfg.Cohorts.DeprioritizedPrefixes)
	if mustGetBool(cmd, "flat") {
		orderer.SortFlat(students)
	} else {
		orderer.SortStructured(students)
	}

	for _, s := range students {
		enrolled := " "
		if s.Enrolled() {
			enrolled = "*"
		}
		fmt.Printf("%s %-12s %s\n", enrolled, s.USN, s.Name)
	}
	fmt.Printf("\n%d students (* = enrolled)\n", len(students))
	return nil
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	student := roster.Student{
		USN:      strings.ToUpper(strings.TrimSpace(args[0])),
		Name:     strings.Join(args[1:], " "),
		Semester: mustGetInt(cmd, "semester"),
	}
	if _, ok := roster.ParseUSN(student.USN); !ok {
		fmt.Printf("Warning: %s does not look like a structured USN; it will sort after well-formed ones\n", student.USN)
	}

	rosterRepo := postgres.NewRosterRepository(pool, cfg.Detector.Dim)
	id, err := rosterRepo.CreateStudent(ctx, &student)
	if err != nil {
		return fmt.Errorf("creating student: %w", err)
	}

	fmt.Printf("Created student %s (id %d)\n", student.USN, id)
	return nil
}
