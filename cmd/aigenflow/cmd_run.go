package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aigenflow/internal/tokens"
	"aigenflow/internal/types"
)

var (
	runDocType   string
	runLanguage  string
	runTemplate  string
	runFromPhase int
)

func init() {
	runCmd.Flags().StringVar(&runDocType, "doc-type", "", "document type (default from config)")
	runCmd.Flags().StringVar(&runLanguage, "language", "", "output language (default from config)")
	runCmd.Flags().StringVar(&runTemplate, "template", "", "template variant")
	runCmd.Flags().IntVar(&runFromPhase, "from-phase", 0, "start from this phase (1-5)")
}

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Run the full pipeline for a topic",
	Long: `Creates a new session for the topic and runs all five phases.
The session directory, including per-phase results, is printed on exit;
failed sessions can be continued with "aigenflow resume".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		sessionCfg := types.SessionConfig{
			Topic:          args[0],
			DocType:        runDocType,
			Language:       runLanguage,
			Template:       runTemplate,
			OutputDir:      cfg.Pipeline.OutputDir,
			FromPhase:      runFromPhase,
			MaxRetries:     cfg.Fallback.MaxRetries,
			TimeoutSeconds: cfg.Pipeline.TimeoutSeconds,
		}
		if sessionCfg.DocType == "" {
			sessionCfg.DocType = cfg.Pipeline.DocType
		}
		if sessionCfg.Language == "" {
			sessionCfg.Language = cfg.Pipeline.Language
		}

		logger.Info("pipeline run starting",
			zap.String("topic", sessionCfg.Topic),
			zap.String("doc_type", sessionCfg.DocType),
			zap.String("language", sessionCfg.Language))

		session, err := a.orchestrator.RunPipeline(ctx, sessionCfg)
		if err != nil {
			return err
		}
		logSession(logger, session, a.tracker.CheckBudget())
		printSession(session, a)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [session-id]",
	Short: "Resume a persisted session from its next phase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("pipeline resume starting", zap.String("session_id", args[0]))

		session, err := a.orchestrator.ResumeSession(ctx, args[0])
		if err != nil {
			return err
		}
		logSession(logger, session, a.tracker.CheckBudget())
		printSession(session, a)
		return nil
	},
}

// logSession emits the operator-facing record of a finished run: one entry
// per phase, the terminal state, and any crossed budget thresholds.
func logSession(l *zap.Logger, s *types.Session, alerts []tokens.BudgetAlert) {
	for _, pr := range s.Results {
		l.Info("phase finished",
			zap.Int("phase", pr.Phase),
			zap.String("name", pr.Name),
			zap.String("status", string(pr.Status)),
			zap.String("summary", pr.Summary))
	}
	l.Info("session finished",
		zap.String("session_id", s.ID),
		zap.String("state", string(s.State)),
		zap.Int("phases_run", len(s.Results)))
	for _, alert := range alerts {
		l.Warn("budget threshold crossed",
			zap.String("period", string(alert.Period)),
			zap.Int("percent", alert.Threshold),
			zap.Float64("spent_usd", alert.SpentUSD),
			zap.Float64("budget_usd", alert.BudgetUSD))
	}
}

func printSession(s *types.Session, a *app) {
	fmt.Printf("Session:  %s\n", s.ID)
	fmt.Printf("State:    %s\n", s.State)
	fmt.Printf("Output:   %s\n", a.orchestrator.SessionDir(s.ID))
	for _, pr := range s.Results {
		fmt.Printf("  phase %d %-10s %-9s %s\n", pr.Phase, pr.Name, pr.Status, pr.Summary)
	}
	for _, alert := range a.tracker.CheckBudget() {
		fmt.Printf("Budget:   %s spend at %d%% ($%.2f of $%.2f)\n",
			alert.Period, alert.Threshold, alert.SpentUSD, alert.BudgetUSD)
	}
}
