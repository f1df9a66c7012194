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

var teachersCmd = &cobra.Command{
	Use:   "teachers",
	Short: "Manage teacher accounts",
}

var teachersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List teachers",
	RunE:  runTeachersList,
}

var teachersAddCmd = &cobra.Command{
	Use:   "add <username> <name>",
	Short: "Register a teacher",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTeachersAdd,
}

var teachersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a teacher and their attendance records",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeachersDelete,
}

func init() {
	rootCmd.AddCommand(teachersCmd)
	teachersCmd.AddCommand(teachersListCmd)
	teachersCmd.AddCommand(teachersAddCmd)
	teachersCmd.AddCommand(teachersDeleteCmd)

	teachersAddCmd.Flags().String("subject", "", "Subject the teacher usually marks")
}

func runTeachersList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	teachers, err := postgres.NewTeacherRepository(pool).ListTeachers(ctx)
	if err != nil {
		return fmt.Errorf("listing teachers: %w", err)
	}

	for _, t := range teachers {
		fmt.Printf("%4d  %-15s %-25s %s\n", t.ID, t.Username, t.Name, t.Subject)
	}
	fmt.Printf("\n%d teachers\n", len(teachers))
	return nil
}

func runTeachersAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	teacher := roster.Teacher{
		Username: strings.ToLower(strings.TrimSpace(args[0])),
		Name:     strings.Join(args[1:], " "),
		Subject:  mustGetString(cmd, "subject"),
	}
	id, err := postgres.NewTeacherRepository(pool).CreateTeacher(ctx, &teacher)
	if err != nil {
		return fmt.Errorf("creating teacher: %w", err)
	}

	fmt.Printf("Created teacher %s (id %d)\n", teacher.Username, id)
	return nil
}

func runTeachersDelete(cmd *cobra.Command, args []string) error {
	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid teacher id %q", args[0])
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewTeacherRepository(pool)
	teacher, err := repo.GetTeacher(ctx, id)
	if err != nil {
		return fmt.Errorf("loading teacher: %w", err)
	}
	if teacher == nil {
		return fmt.Errorf("teacher %d not found", id)
	}

	if err := repo.DeleteTeacher(ctx, id); err != nil {
		return fmt.Errorf("deleting teacher: %w", err)
	}
	fmt.Printf("Deleted teacher %s and their attendance records\n", teacher.Username)
	return nil
}
