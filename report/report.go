// Package report persists the recovered ensemble outputs and the
// connectivity diagram as files, applying the placeholder convention for
// fields the parser could not recover.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/spicecouncil/diagram"
	"github.com/c360studio/spicecouncil/ensemble"
	"github.com/c360studio/spicecouncil/netlist"
)

// Artifact file names inside a run's output directory.
const (
	FileMarkdown = "final.md"
	FileNetlist  = "circuit.cir"
	FileJSON     = "circuit.json"
	FileDiagram  = "connectivity.dot"
	FileAnswers  = "answers.json"
)

// placeholderMarkdown is substituted when no markdown block was recovered.
const placeholderMarkdown = `# Ensemble answer unavailable

The ensembling model did not return a recognizable final answer block.
The raw response was preserved in the run record for inspection.
`

// placeholderNetlist is substituted when no SPICE netlist was recovered.
// It is a fixed-format comment-only deck ending in .end so downstream
// tooling that expects a netlist file still finds a syntactically valid one.
const placeholderNetlist = `* spicecouncil: no SPICE netlist was recovered from the ensemble response
* This file is a placeholder; see final.md and the run record for details.
.end
`

// placeholderCircuit is the fixed-shape object substituted when no circuit
// JSON was recovered: empty arrays for all fields, plus a note pointing at
// the raw response.
type placeholderCircuit struct {
	Assumptions []string `json:"assumptions"`
	Probes      []string `json:"probes"`
	BOM         []string `json:"bom"`
	Notes       []string `json:"notes"`
}

// Writer persists run artifacts under a run directory.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Result reports what was written and which fields needed placeholders.
type Result struct {
	Dir                 string
	MarkdownPlaceholder bool
	NetlistPlaceholder  bool
	JSONPlaceholder     bool
}

// Write persists the three ensemble outputs plus a connectivity diagram
// derived from whichever netlist text is available. Empty fields are a
// caller-visible condition: they are replaced with placeholders here, and
// flagged in the result so the CLI can warn and choose its exit status.
func (w *Writer) Write(dir string, outputs ensemble.Outputs, rawResponse string) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	result := &Result{Dir: dir}

	markdown := outputs.FinalMarkdown
	if markdown == "" {
		result.MarkdownPlaceholder = true
		markdown = placeholderMarkdown
		w.logger.Warn("No final markdown recovered, writing placeholder")
	}

	netlistText := outputs.SpiceNetlist
	if netlistText == "" {
		result.NetlistPlaceholder = true
		netlistText = placeholderNetlist
		w.logger.Warn("No SPICE netlist recovered, writing placeholder")
	}

	circuitJSON := ensemble.CleanJSON(outputs.CircuitJSON)
	if !isValidJSONObject(circuitJSON) {
		result.JSONPlaceholder = true
		circuitJSON = placeholderJSON(rawResponse)
		w.logger.Warn("No usable circuit JSON recovered, writing placeholder")
	}

	files := map[string]string{
		FileMarkdown: markdown,
		FileNetlist:  ensureTrailingNewline(netlistText),
		FileJSON:     ensureTrailingNewline(circuitJSON),
		FileDiagram:  w.renderDiagram(outputs.SpiceNetlist, result.NetlistPlaceholder),
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	return result, nil
}

// WriteAnswers persists an arbitrary JSON-encodable audit payload (the
// verbatim per-provider answers) next to the artifacts.
func (w *Writer) WriteAnswers(dir string, answers any) error {
	data, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	path := filepath.Join(dir, FileAnswers)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", FileAnswers, err)
	}
	return nil
}

// renderDiagram builds the connectivity DOT from the recovered netlist.
// When the netlist itself was a placeholder there is nothing to diagram, but
// the artifact is still produced (empty graph) with a provenance note.
func (w *Writer) renderDiagram(netlistText string, placeholder bool) string {
	g := diagram.FromComponents(netlist.Parse(netlistText))
	if placeholder {
		g.Provenance = "no netlist recovered; diagram intentionally empty"
	}
	return g.DOT()
}

// placeholderJSON renders the fixed-shape error object. The notes field
// points the reader at the raw response rather than embedding it whole.
func placeholderJSON(rawResponse string) string {
	note := "no circuit JSON was recovered from the ensemble response"
	if rawResponse != "" {
		note += fmt.Sprintf("; raw response preserved in the run record (%d bytes)", len(rawResponse))
	}

	data, err := json.MarshalIndent(placeholderCircuit{
		Assumptions: []string{},
		Probes:      []string{},
		BOM:         []string{},
		Notes:       []string{note},
	}, "", "  ")
	if err != nil {
		// Marshalling a fixed struct cannot fail; keep the compiler honest.
		return `{"assumptions":[],"probes":[],"bom":[],"notes":[]}`
	}
	return string(data)
}

// isValidJSONObject reports whether s parses as a JSON object.
func isValidJSONObject(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	var m map[string]any
	return json.Unmarshal([]byte(s), &m) == nil
}

// ensureTrailingNewline normalizes file endings.
func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
