package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"debatearena/pkg/config"
	"debatearena/pkg/debate"
	"debatearena/pkg/judge"
	"debatearena/pkg/rating"
	"debatearena/pkg/report"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models and their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := a.cfg.Registry()
			ids := make([]string, 0, len(registry))
			for id := range registry {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tROLES")
			for _, id := range ids {
				m := registry[id]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, m.DisplayName, m.Provider, roles(m))
			}
			return w.Flush()
		},
	}
}

func roles(m config.ModelInfo) string {
	var r []string
	if m.Debater {
		r = append(r, "debater")
	}
	if m.Judge {
		r = append(r, "judge")
	}
	if len(r) == 0 {
		return "-"
	}
	return strings.Join(r, ",")
}

func newFormatsCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List debate formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tROUNDS\tDESCRIPTION")
			for _, f := range debate.Formats() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Key, f.Name, len(f.Rounds), f.Description)
			}
			return w.Flush()
		},
	}
}

func newTopicsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List suggested debate topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.services(); err != nil {
				return err
			}
			topics, err := a.store.InitializeDebateTopics(cmd.Context())
			if err != nil {
				return fmt.Errorf("load topics: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, c := range topics {
				fmt.Fprintf(out, "%s\n", c.Category)
				for _, t := range c.Topics {
					fmt.Fprintf(out, "  - %s\n", t)
				}
			}
			return nil
		},
	}
}

// parseSide maps "A"/"B" to a participant index.
func parseSide(s string) (int, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return 0, nil
	case "B":
		return 1, nil
	default:
		return 0, fmt.Errorf("side must be A or B, got %q", s)
	}
}

type debateFlags struct {
	topic     string
	format    string
	modelA    string
	positionA string
	modelB    string
	positionB string
	stream    bool
	judge     string
	panel     []string
	predict   string
	reason    string
}

func newDebateCmd(a *app) *cobra.Command {
	var f debateFlags
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Run a new debate, optionally judging it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.judge != "" && len(f.panel) > 0 {
				return errors.New("use either --judge or --panel, not both")
			}
			predictIdx := -1
			if f.predict != "" {
				idx, err := parseSide(f.predict)
				if err != nil {
					return err
				}
				predictIdx = idx
			}
			if err := a.services(); err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			d, err := a.orchestrator.Create(f.topic, f.format)
			if err != nil {
				return err //nolint:wrapcheck // Orchestrator errors name the problem
			}
			if err := a.orchestrator.AddParticipant(d, f.modelA, f.positionA); err != nil {
				return fmt.Errorf("participant A: %w", err)
			}
			if err := a.orchestrator.AddParticipant(d, f.modelB, f.positionB); err != nil {
				return fmt.Errorf("participant B: %w", err)
			}

			fmt.Fprintf(out, "Debate %s: %s (%s)\n", d.ID, d.Topic, d.Format.Name)
			progress := func(msg string) { fmt.Fprintf(cmd.ErrOrStderr(), "» %s\n", msg) }
			var stream debate.StreamFunc
			if f.stream {
				stream = func(text string) { fmt.Fprint(out, text) }
			}

			if err := a.orchestrator.Run(ctx, d, progress, stream); err != nil {
				return fmt.Errorf("debate %s: %w", d.ID, err)
			}
			fmt.Fprintf(out, "\nDebate %s completed with %d turns\n", d.ID, len(d.History))

			if predictIdx >= 0 {
				u, err := a.judges.RecordUserJudgment(ctx, d.ID, predictIdx, f.reason)
				if err != nil {
					return fmt.Errorf("record prediction: %w", err)
				}
				fmt.Fprintf(out, "Your prediction: %s\n", u.Winner.Label())
			}

			switch {
			case f.judge != "":
				return a.runJudge(cmd, d.ID, f.judge)
			case len(f.panel) > 0:
				return a.runPanel(cmd, d.ID, f.panel)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.topic, "topic", "", "Debate topic")
	cmd.Flags().StringVar(&f.format, "format", debate.DefaultFormatKey, "Debate format key (see 'formats')")
	cmd.Flags().StringVar(&f.modelA, "model-a", "", "Model id for participant A")
	cmd.Flags().StringVar(&f.positionA, "position-a", "Pro", "Position argued by participant A")
	cmd.Flags().StringVar(&f.modelB, "model-b", "", "Model id for participant B")
	cmd.Flags().StringVar(&f.positionB, "position-b", "Con", "Position argued by participant B")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "Stream responses as they are generated")
	cmd.Flags().StringVar(&f.judge, "judge", "", "Judge the finished debate with this model")
	cmd.Flags().StringSliceVar(&f.panel, "panel", nil, "Judge the finished debate with three comma-separated judge models")
	cmd.Flags().StringVar(&f.predict, "predict", "", "Record your predicted winner (A or B) before judging")
	cmd.Flags().StringVar(&f.reason, "reason", "", "Reason for your prediction")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("model-a")
	_ = cmd.MarkFlagRequired("model-b")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored debates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.services(); err != nil {
				return err
			}
			summaries, err := a.store.ListDebates(cmd.Context())
			if err != nil {
				return fmt.Errorf("list debates: %w", err)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No debates found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFORMAT\tSTATUS\tPARTICIPANTS\tTOPIC")
			for _, s := range summaries {
				parts := make([]string, len(s.Participants))
				for i, p := range s.Participants {
					parts[i] = fmt.Sprintf("%s (%s)", p.Model, p.Position)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Format, s.Status, strings.Join(parts, " vs "), s.Topic)
			}
			return w.Flush()
		},
	}
}

func newViewCmd(a *app) *cobra.Command {
	var render bool
	cmd := &cobra.Command{
		Use:   "view <debate-id>",
		Short: "Print a debate transcript and its verdicts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(); err != nil {
				return err
			}
			d, err := a.store.LoadDebate(cmd.Context(), args[0])
			if err != nil {
				return err //nolint:wrapcheck // Store errors name the debate
			}
			md := report.Markdown(d, a.displayName)
			if render {
				out, err := glamour.Render(md, "auto")
				if err != nil {
					return fmt.Errorf("render markdown: %w", err)
				}
				md = out
			}
			fmt.Fprintln(cmd.OutOrStdout(), md)
			return nil
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render the Markdown for the terminal")
	return cmd
}

func newJudgeCmd(a *app) *cobra.Command {
	var (
		judgeID string
		panel   []string
	)
	cmd := &cobra.Command{
		Use:   "judge <debate-id>",
		Short: "Judge a completed debate with one model or a panel of three",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (judgeID == "") == (len(panel) == 0) {
				return errors.New("specify exactly one of --judge or --panel")
			}
			if err := a.services(); err != nil {
				return err
			}
			if judgeID != "" {
				return a.runJudge(cmd, args[0], judgeID)
			}
			return a.runPanel(cmd, args[0], panel)
		},
	}
	cmd.Flags().StringVar(&judgeID, "judge", "", "Judge model id")
	cmd.Flags().StringSliceVar(&panel, "panel", nil, "Three comma-separated judge model ids")
	return cmd
}

func (a *app) runJudge(cmd *cobra.Command, debateID, judgeID string) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "» %s is evaluating...\n", a.displayName(judgeID))
	j, err := a.judges.JudgeDebate(cmd.Context(), debateID, judgeID)
	if err != nil {
		return fmt.Errorf("judge debate %s: %w", debateID, err)
	}

	out := cmd.OutOrStdout()
	r := j.Result
	switch {
	case r.Winner != nil:
		fmt.Fprintf(out, "Winner: %s\n", r.Winner.Label())
	case r.IsDraw:
		fmt.Fprintln(out, "Result: draw")
	default:
		fmt.Fprintln(out, "Result: inconclusive (ratings unchanged)")
	}
	printRatingUpdate(out, r.RatingUpdate, a.displayName)
	return nil
}

func (a *app) runPanel(cmd *cobra.Command, debateID string, judges []string) error {
	progress := func(msg string) { fmt.Fprintf(cmd.ErrOrStderr(), "» %s\n", msg) }
	pj, err := a.judges.JudgeWithPanel(cmd.Context(), debateID, judges, progress)
	if err != nil {
		var indecisive *judge.IndecisiveJudgeError
		if errors.As(err, &indecisive) {
			return fmt.Errorf("panel judgment failed, ratings unchanged: %w", err)
		}
		return fmt.Errorf("panel judge debate %s: %w", debateID, err)
	}

	out := cmd.OutOrStdout()
	final := pj.FinalResult
	fmt.Fprintf(out, "Panel winner: %s with %d of %d votes (%.2f%%)\n",
		final.Winner.Label(), final.WinningVotes(), len(pj.Judges), final.MajorityPercentage)
	for i, v := range final.JudgeVotes {
		fmt.Fprintf(out, "  Judge %d (%s): %s (%s)\n", i+1, v.JudgeName, v.SelectedWinner, v.SelectedWinnerPosition)
	}
	if final.PredictionCorrect != nil {
		if *final.PredictionCorrect {
			fmt.Fprintln(out, "Your prediction was correct")
		} else {
			fmt.Fprintln(out, "Your prediction was incorrect")
		}
	}
	printRatingUpdate(out, final.RatingUpdate, a.displayName)
	return nil
}

func printRatingUpdate(out io.Writer, u *rating.Update, name func(string) string) {
	if u == nil {
		return
	}
	fmt.Fprintln(out, "Rating changes:")
	for _, c := range []*rating.Change{u.Winner, u.Loser, u.Model1, u.Model2} {
		if c == nil {
			continue
		}
		fmt.Fprintf(out, "  %s: %d -> %d (%+d)\n", name(c.ID), c.OldRating, c.NewRating, c.Change)
	}
}

func newPredictCmd(a *app) *cobra.Command {
	var winner, reason string
	cmd := &cobra.Command{
		Use:   "predict <debate-id>",
		Short: "Record your predicted winner for a debate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseSide(winner)
			if err != nil {
				return err
			}
			if err := a.services(); err != nil {
				return err
			}
			u, err := a.judges.RecordUserJudgment(cmd.Context(), args[0], idx, reason)
			if err != nil {
				return fmt.Errorf("record prediction: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded prediction: %s\n", u.Winner.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&winner, "winner", "", "Predicted winner: A or B")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason for the prediction")
	_ = cmd.MarkFlagRequired("winner")
	return cmd
}

func newRankingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rankings",
		Short: "Show the ELO leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.services(); err != nil {
				return err
			}
			rankings, err := a.ratings.GetRankings(cmd.Context())
			if err != nil {
				return fmt.Errorf("load rankings: %w", err)
			}
			if len(rankings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rated models yet")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tMODEL\tRATING")
			for i, r := range rankings {
				fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, a.displayName(r.ID), r.Rating)
			}
			return w.Flush()
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <debate-id>",
		Short: "Export a debate to Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(); err != nil {
				return err
			}
			d, err := a.store.LoadDebate(cmd.Context(), args[0])
			if err != nil {
				return err //nolint:wrapcheck // Store errors name the debate
			}
			if outPath == "" {
				outPath = fmt.Sprintf("debate-%s.md", d.ID)
			}
			if err := os.WriteFile(outPath, []byte(report.Markdown(d, a.displayName)), 0644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Debate exported to: %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default debate-<id>.md)")
	return cmd
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file to the project directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(a.projectDir, config.ProjectConfigDir, config.ConfigFileJSON)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := config.Default()
			if err := config.SaveConfig(&cfg, a.projectDir); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
