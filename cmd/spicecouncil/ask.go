package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/spicecouncil/bundle"
	"github.com/c360studio/spicecouncil/ensemble"
	"github.com/c360studio/spicecouncil/llm"
	"github.com/c360studio/spicecouncil/storage"
	"github.com/c360studio/spicecouncil/webref"
)

func askCmd(flags *rootFlags) *cobra.Command {
	var (
		netlistPath string
		imagePath   string
		refURL      string
		outDir      string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Fan a design question out to the council and ensemble the answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}

			app := NewApp(cfg, logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := app.Start(ctx); err != nil {
				return err
			}
			defer app.Shutdown()

			return runAsk(ctx, app, args[0], netlistPath, imagePath, refURL)
		},
	}

	cmd.Flags().StringVar(&netlistPath, "netlist", "", "Baseline SPICE netlist file to include with the question")
	cmd.Flags().StringVar(&imagePath, "image", "", "Baseline schematic image to attach (png, jpeg, gif, webp)")
	cmd.Flags().StringVar(&refURL, "ref", "", "Reference URL (datasheet, app note) to fetch and include")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory root (overrides config)")

	return cmd
}

// runAsk executes the full pipeline: gather inputs, fan out, ensemble,
// recover outputs, persist artifacts and the audit record.
func runAsk(ctx context.Context, app *App, question, netlistPath, imagePath, refURL string) error {
	run := storage.NewRun(question)
	runDir := filepath.Join(app.cfg.Output.Dir, run.ID)

	netlistText, err := loadBaselineNetlist(app, netlistPath, runDir)
	if err != nil {
		return err
	}

	image, err := loadImage(imagePath)
	if err != nil {
		return err
	}

	var referenceMarkdown string
	if refURL != "" {
		run.ReferenceURL = refURL
		ref, err := webref.Load(ctx, refURL, app.cfg.WebRef.Timeout.Std(), app.cfg.WebRef.MaxBytes)
		if err != nil {
			// Reference material is supporting context, not a prerequisite.
			app.logger.Warn("Reference fetch failed, continuing without it",
				"url", refURL, "error", err)
		} else {
			referenceMarkdown = ref.Markdown
			app.logger.Info("Reference material loaded",
				"url", refURL, "title", ref.Title, "bytes", len(ref.Markdown))
		}
	}

	targets := app.fanoutTargets()
	app.logger.Info("Fanning question out", "providers", len(targets))

	answers := app.coordinator.Fanout(ctx, targets, llm.Request{
		Prompt: fanPrompt(question, netlistText, referenceMarkdown),
		Image:  image,
	})
	run.Answers = answers

	failed := 0
	for _, a := range answers {
		if a.Error != "" {
			failed++
		}
	}
	app.logger.Info("Fanout complete", "answered", len(answers)-failed, "failed", failed)

	ep := app.ensembleEndpoint()
	run.EnsembleProvider = ep.Provider
	run.EnsembleModel = ep.Model

	raw, err := app.ensembleAnswers(ctx, ensemble.PromptInput{
		Question:          question,
		BaselineNetlist:   netlistText,
		HasBaselineImage:  image != nil,
		ReferenceMarkdown: referenceMarkdown,
		Answers:           answers,
	}, image)
	if err != nil {
		run.Error = err.Error()
		run.Finish(storage.RunStatusFailed, ensemble.Outputs{})
		if saveErr := app.store.SaveRun(ctx, run); saveErr != nil {
			app.logger.Warn("Failed to save run record", "run_id", run.ID, "error", saveErr)
		}
		return err
	}
	run.RawEnsembleResponse = raw

	outputs := ensemble.ParseResponse(raw)
	run.Finish(storage.RunStatusComplete, outputs)

	result, err := app.writer.Write(runDir, outputs, raw)
	if err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}
	if err := app.writer.WriteAnswers(runDir, answers); err != nil {
		return fmt.Errorf("write answers: %w", err)
	}

	if err := app.store.SaveRun(ctx, run); err != nil {
		app.logger.Warn("Failed to save run record", "run_id", run.ID, "error", err)
	}

	fmt.Printf("Run %s complete (%dms)\n", run.ID, run.DurationMs)
	fmt.Printf("Artifacts written to %s\n", result.Dir)
	for field, placeholder := range map[string]bool{
		"final markdown": result.MarkdownPlaceholder,
		"SPICE netlist":  result.NetlistPlaceholder,
		"circuit JSON":   result.JSONPlaceholder,
	} {
		if placeholder {
			fmt.Printf("warning: no %s was recovered; a placeholder was written\n", field)
		}
	}

	return nil
}

// loadBaselineNetlist reads the netlist file and bundles its includes into
// the run directory so the artifacts are self-contained.
func loadBaselineNetlist(app *App, path, runDir string) (string, error) {
	if path == "" {
		return "", nil
	}

	text, err := bundle.ReadNetlist(path)
	if err != nil {
		return "", fmt.Errorf("read netlist: %w", err)
	}

	result, err := app.bundleNetlist(text, path, filepath.Join(runDir, "includes"))
	if err != nil {
		return "", err
	}
	for _, m := range result.Missing {
		app.logger.Warn("Netlist include not found",
			"directive", m.Directive,
			"specifier", m.OriginalSpecifier,
			"resolved", m.ResolvedAttemptPath)
	}
	return result.RewrittenText, nil
}

// imageMIMETypes maps schematic image extensions to MIME types accepted by
// the providers.
var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// loadImage reads a schematic image into the attachment format.
func loadImage(path string) (*llm.Image, error) {
	if path == "" {
		return nil, nil
	}

	mimeType, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported image type: %s", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	return &llm.Image{
		MIMEType:   mimeType,
		Base64Data: base64.StdEncoding.EncodeToString(data),
		Filename:   filepath.Base(path),
	}, nil
}

// fanPrompt is the per-provider question prompt. Unlike the ensembling
// prompt it asks for a plain expert answer; the output contract applies only
// to the ensembling call.
func fanPrompt(question, netlistText, referenceMarkdown string) string {
	var b strings.Builder
	b.WriteString("You are an expert analog and mixed-signal circuit design engineer. ")
	b.WriteString("Answer the following design question. If you propose a circuit, include a SPICE netlist.\n\n")
	b.WriteString(question)
	b.WriteString("\n")

	if strings.TrimSpace(netlistText) != "" {
		b.WriteString("\nBaseline netlist:\n\n```spice\n")
		b.WriteString(strings.TrimRight(netlistText, " \t\r\n"))
		b.WriteString("\n```\n")
	}
	if strings.TrimSpace(referenceMarkdown) != "" {
		b.WriteString("\nReference material:\n\n")
		b.WriteString(referenceMarkdown)
		b.WriteString("\n")
	}

	return b.String()
}
