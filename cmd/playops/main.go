// Package main provides the operator CLI for playops-engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/playops-hq/playops-engine/internal/compliance"
	"github.com/playops-hq/playops-engine/internal/demo"
	"github.com/playops-hq/playops-engine/internal/framework"
	"github.com/playops-hq/playops-engine/internal/matching"
)

var (
	demoCompetency string
	demoScore      float64
	demoThreshold  float64
	demoDBPath     string
	demoLast       int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "playops",
		Short:         "PlayOps operator toolkit",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newDemoCmd())

	return rootCmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Run the compliance checker over a game HTML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheckCmd,
	}
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	report := compliance.Check(string(data))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Score:   %d/100\n", report.Score)
	fmt.Fprintf(out, "Valid:   %v\n", report.IsValid)

	if len(report.Errors) > 0 {
		fmt.Fprintln(out, "\nErrors:")
		for _, e := range report.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	if !report.IsValid {
		return fmt.Errorf("markup failed %d mandatory check(s)", len(report.Errors))
	}
	return nil
}

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <file>",
		Short: "Grade a JSON file of questions with the answer matcher",
		Args:  cobra.ExactArgs(1),
		RunE:  runMatchCmd,
	}
}

func runMatchCmd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var payload struct {
		Questions []matching.Question `json:"questions"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse questions: %w", err)
	}
	if len(payload.Questions) == 0 {
		return fmt.Errorf("no questions found in %s", args[0])
	}

	result := matching.Grade(payload.Questions)

	out := cmd.OutOrStdout()
	for _, d := range result.Details {
		mark := "✗"
		if d.IsCorrect {
			mark = "✓"
		}
		fmt.Fprintf(out, "%s %s\n", mark, d.Question)
		if d.IsCorrect && d.MatchedAnswer != "" {
			fmt.Fprintf(out, "    %q matched %q\n", d.UserAnswer, d.MatchedAnswer)
		} else if !d.IsCorrect {
			fmt.Fprintf(out, "    %q did not match\n", d.UserAnswer)
		}
	}
	fmt.Fprintf(out, "\n%d/%d correct, accuracy %.2f%%\n",
		result.CorrectAnswers, result.TotalQuestions, result.Accuracy)
	return nil
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Score an offline practice run with the client-validator economy",
		RunE:  runDemoCmd,
	}

	cmd.Flags().StringVar(&demoCompetency, "competency", "", "competency label")
	cmd.Flags().Float64Var(&demoScore, "score", -1, "score in [0,100]")
	cmd.Flags().Float64Var(&demoThreshold, "threshold", framework.DefaultThreshold, "proficiency threshold (0-1)")
	cmd.PersistentFlags().StringVar(&demoDBPath, "db", defaultDBPath(), "history database path")

	cmd.AddCommand(newDemoHistoryCmd())
	return cmd
}

func runDemoCmd(cmd *cobra.Command, _ []string) error {
	if demoCompetency == "" {
		return fmt.Errorf("--competency is required")
	}
	if demoScore < 0 || demoScore > 100 {
		return fmt.Errorf("--score must be between 0 and 100")
	}

	level := framework.CalculateLevel(demoScore, demoThreshold)
	xp := framework.CalculateXP(level, demoScore)

	st, err := demo.Open(demoDBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "failed to close db: %v\n", cerr)
		}
	}()

	_, err = st.Insert(context.Background(), demo.Session{
		Competency: demoCompetency,
		Score:      demoScore,
		Threshold:  demoThreshold,
		Level:      level,
		XP:         xp,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Competency: %s\n", demoCompetency)
	fmt.Fprintf(out, "Score:      %.1f\n", demoScore)
	fmt.Fprintf(out, "Level:      %s\n", level)
	fmt.Fprintf(out, "XP:         %d\n", xp)
	return nil
}

func newDemoHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent demo sessions",
		Args:  cobra.NoArgs,
		RunE:  runDemoHistoryCmd,
	}
	cmd.Flags().IntVar(&demoLast, "last", 20, "number of sessions to show")
	return cmd
}

func runDemoHistoryCmd(cmd *cobra.Command, _ []string) error {
	st, err := demo.Open(demoDBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "failed to close db: %v\n", cerr)
		}
	}()

	sessions, err := st.List(context.Background(), demoLast)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No demo sessions recorded yet.")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, s := range sessions {
		fmt.Fprintf(out, "%s  %-30s  %.1f  %-11s  %d XP\n",
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.Competency, s.Score, s.Level, s.XP)
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "playops-demo.db"
	}
	return filepath.Join(home, ".local", "share", "playops", "demo.db")
}
