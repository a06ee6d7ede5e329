// Package ensemble implements the prompt/response contract with the
// ensembling provider: building the single outbound prompt from the question
// and the independent per-provider answers, and recovering three guaranteed
// output fields from the provider's free-text reply.
package ensemble

import (
	"fmt"
	"strings"

	"github.com/c360studio/spicecouncil/fanout"
)

// Tag pairs for the three required output blocks. The ensembling provider is
// instructed to wrap each output in these literal markers; extraction falls
// back to heuristics when it does not comply.
const (
	TagMarkdownOpen  = "<final_markdown>"
	TagMarkdownClose = "</final_markdown>"
	TagSpiceOpen     = "<spice_netlist>"
	TagSpiceClose    = "</spice_netlist>"
	TagJSONOpen      = "<circuit_json>"
	TagJSONClose     = "</circuit_json>"
)

// answerSeparator joins the per-provider answer sections.
const answerSeparator = "\n\n=====\n\n"

// preamble is the fixed role/domain framing for the ensembling call.
const preamble = `You are a senior analog and mixed-signal circuit design engineer acting as the final reviewer of a design council. Several AI models have independently answered the same technical question. Synthesize their answers into one final, defensible recommendation.`

// hardRequirements is the fixed list of obligations for the final answer.
const hardRequirements = `Hard requirements for your answer:
- If you propose a circuit, include a complete runnable SPICE netlist for it.
- Explicitly surface any disagreements between the model answers and state which position you adopt and why.
- Include a bench test plan: instruments, stimulus, and expected readings.
- Flag any safety hazards (high voltage, stored energy, thermal, battery chemistry).
- State clearly what is uncertain or what information is missing from the question.`

// outputTemplate names the three required tagged blocks, in order.
var outputTemplate = fmt.Sprintf(`Format your entire reply using exactly these three blocks, in this order:

%s
The final answer as Markdown: recommendation, rationale, disagreements, bench test plan, safety notes.
%s

%s
The complete SPICE netlist. Never omit this block: if no circuit is warranted or you are uncertain, provide your best-effort netlist anyway.
%s

%s
A JSON object with fields "assumptions", "probes", "bom", and "notes". Never omit this block; use empty arrays for anything unknown rather than leaving fields out.
%s`,
	TagMarkdownOpen, TagMarkdownClose,
	TagSpiceOpen, TagSpiceClose,
	TagJSONOpen, TagJSONClose)

// PromptInput carries everything the ensemble prompt is built from.
type PromptInput struct {
	// Question is the user's technical question, included verbatim.
	Question string

	// BaselineNetlist, when non-empty, is included as a fenced block.
	BaselineNetlist string

	// HasBaselineImage notes that a schematic image accompanies the request.
	HasBaselineImage bool

	// ReferenceMarkdown, when non-empty, is supporting material extracted from
	// a user-supplied URL (datasheet, app note), already converted to Markdown.
	ReferenceMarkdown string

	// Answers are the collected per-provider responses, in fanout order.
	Answers []fanout.ModelAnswer
}

// BuildPrompt assembles the outbound ensembling prompt. Section order is
// fixed; optional sections are omitted entirely when their input is empty.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n\n## Question\n\n")
	b.WriteString(in.Question)
	b.WriteString("\n")

	if strings.TrimSpace(in.BaselineNetlist) != "" {
		b.WriteString("\n## Baseline netlist\n\n```spice\n")
		b.WriteString(strings.TrimRight(in.BaselineNetlist, " \t\r\n"))
		b.WriteString("\n```\n")
	}

	if in.HasBaselineImage {
		b.WriteString("\nA baseline schematic image is attached to this request.\n")
	}

	if strings.TrimSpace(in.ReferenceMarkdown) != "" {
		b.WriteString("\n## Reference material\n\n")
		b.WriteString(in.ReferenceMarkdown)
		b.WriteString("\n")
	}

	b.WriteString("\n## Independent model answers\n\n")
	sections := make([]string, 0, len(in.Answers))
	for _, a := range in.Answers {
		sections = append(sections, answerSection(a))
	}
	b.WriteString(strings.Join(sections, answerSeparator))

	b.WriteString("\n\n")
	b.WriteString(hardRequirements)
	b.WriteString("\n\n")
	b.WriteString(outputTemplate)

	return b.String()
}

// answerSection renders one provider's answer (or its failure) as a header
// plus body.
func answerSection(a fanout.ModelAnswer) string {
	header := fmt.Sprintf("### Answer from %s (%s)", a.Provider, a.Model)
	if a.Error != "" {
		return header + "\n\nERROR: this model's request failed: " + a.Error
	}
	return header + "\n\n" + a.Text
}
