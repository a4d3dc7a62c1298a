package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"contract-decoder/internal/bootstrap"
	"contract-decoder/internal/contract"
	"contract-decoder/internal/orchestrator"
	"contract-decoder/internal/workspace"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var errDisclaimer = errors.New("results are informational and are not legal advice; pass --yes to accept")

type analyzeOptions struct {
	persona string
	focus   string
	format  string
	accept  bool
	noSave  bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Explain a PDF, DOCX or text contract clause by clause",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format); err != nil {
				return err
			}
			if !opts.accept {
				return errDisclaimer
			}
			ws, closeFn, err := openWorkspace(cmd, opts.noSave)
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ws.AcceptDisclaimer()
			if _, err := ws.Upload(cmd.Context(), data, "", args[0]); err != nil {
				return err
			}

			progress := cmd.ErrOrStderr()
			s, err := ws.Analyze(cmd.Context(), contract.AnalysisOptions{
				Persona: contract.Persona(opts.persona),
				Focus:   opts.focus,
			}, func(ev orchestrator.Event) {
				if ev.Kind == orchestrator.EventProgress && ev.Progress.Total > 0 {
					fmt.Fprintf(progress, "analyzing part %d of %d\n", min(ev.Progress.Current+1, ev.Progress.Total), ev.Progress.Total)
				}
			})
			if err != nil {
				return err
			}
			if s.Analysis.Notice != "" {
				fmt.Fprintln(progress, "note:", s.Analysis.Notice)
			}
			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), s.Analysis.Result)
			}
			renderAnalysis(cmd.OutOrStdout(), s.Analysis.Result)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.persona, "persona", string(contract.PersonaLayperson), "audience: layperson, business_owner, freelancer, tenant or lawyer")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "topic to emphasize, e.g. termination")
	cmd.Flags().StringVar(&opts.format, "format", formatText, "output format: text or json")
	cmd.Flags().BoolVarP(&opts.accept, "yes", "y", false, "accept that results are not legal advice")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "do not store the analysis in history")
	return cmd
}

// openWorkspace builds the application for a one-shot command.
func openWorkspace(cmd *cobra.Command, ephemeral bool) (*workspace.Workspace, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if ephemeral {
		cfg.DatabaseURL = bootstrap.MemoryDatabaseURL
	}
	app, err := bootstrap.Build(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return app.Workspace, func() { _ = app.Close() }, nil
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q: use text or json", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderAnalysis(w io.Writer, a contract.ContractAnalysis) {
	fmt.Fprintf(w, "%s\nFairness score: %d/100\n", a.DocumentTitle, a.OverallScore)
	if len(a.KeyTakeaways) > 0 {
		fmt.Fprintln(w, "\nKey takeaways:")
		for _, t := range a.KeyTakeaways {
			fmt.Fprintf(w, "  - %s\n", t)
		}
	}
	for _, c := range a.Clauses {
		fmt.Fprintf(w, "\n[%s] %s (risk: %s, confidence: %s)\n", c.ID, c.Title, c.Risk, c.Confidence)
		fmt.Fprintf(w, "  %s\n", c.Explanation)
		fmt.Fprintf(w, "  > %s\n", strings.ReplaceAll(c.OriginalClause, "\n", "\n  > "))
		if c.GoodToKnow {
			fmt.Fprintln(w, "  Good to know.")
		}
	}
}
