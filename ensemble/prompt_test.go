package ensemble

import (
	"strings"
	"testing"

	"github.com/c360studio/spicecouncil/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_SectionOrder(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Question:         "Design a 1kHz low-pass filter.",
		BaselineNetlist:  "R1 in out 1k\nC1 out 0 1u\n.end\n\n",
		HasBaselineImage: true,
		Answers: []fanout.ModelAnswer{
			{Provider: "anthropic", Model: "claude-sonnet", Text: "Use a single RC pole."},
			{Provider: "openai", Model: "gpt-4o", Error: "status 429"},
		},
	})

	// All sections present, in the fixed order.
	indices := []int{
		strings.Index(prompt, "Design a 1kHz low-pass filter."),
		strings.Index(prompt, "## Baseline netlist"),
		strings.Index(prompt, "schematic image is attached"),
		strings.Index(prompt, "## Independent model answers"),
		strings.Index(prompt, "### Answer from anthropic (claude-sonnet)"),
		strings.Index(prompt, "### Answer from openai (gpt-4o)"),
		strings.Index(prompt, "Hard requirements"),
		strings.Index(prompt, TagMarkdownOpen),
		strings.Index(prompt, TagSpiceOpen),
		strings.Index(prompt, TagJSONOpen),
	}
	for i, idx := range indices {
		require.GreaterOrEqual(t, idx, 0, "section %d missing", i)
		if i > 0 {
			assert.Greater(t, idx, indices[i-1], "section %d out of order", i)
		}
	}

	// Baseline netlist trailing whitespace is trimmed inside the fence.
	assert.Contains(t, prompt, "C1 out 0 1u\n.end\n```")

	// The failed provider's error is rendered in its section.
	assert.Contains(t, prompt, "ERROR: this model's request failed: status 429")

	// Answer sections are joined by the fixed separator.
	assert.Equal(t, 1, strings.Count(prompt, answerSeparator))
}

func TestBuildPrompt_OptionalSectionsOmitted(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Question: "What resistor value?",
		Answers:  []fanout.ModelAnswer{{Provider: "ollama", Model: "qwen", Text: "10k."}},
	})

	assert.NotContains(t, prompt, "## Baseline netlist")
	assert.NotContains(t, prompt, "schematic image is attached")
	assert.NotContains(t, prompt, "## Reference material")
}

func TestBuildPrompt_ReferenceMaterialIncluded(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Question:          "Check against the datasheet.",
		ReferenceMarkdown: "# LM317 Datasheet\nDropout voltage 1.5V.",
		Answers:           []fanout.ModelAnswer{{Provider: "ollama", Model: "qwen", Text: "ok"}},
	})

	assert.Contains(t, prompt, "## Reference material")
	assert.Contains(t, prompt, "Dropout voltage 1.5V.")
}

func TestBuildPrompt_RequirementsAndTemplate(t *testing.T) {
	prompt := BuildPrompt(PromptInput{Question: "q"})

	for _, want := range []string{
		"runnable SPICE netlist",
		"disagreements",
		"bench test plan",
		"safety hazards",
		"uncertain",
		"Never omit this block",
		"empty arrays",
		TagMarkdownClose,
		TagSpiceClose,
		TagJSONClose,
	} {
		assert.Contains(t, prompt, want)
	}
}

func TestBuildPrompt_RoundTripWithParser(t *testing.T) {
	// The tags the prompt instructs the provider to use are the same ones the
	// parser extracts.
	reply := TagMarkdownOpen + "\nFinal answer\n" + TagMarkdownClose + "\n" +
		TagSpiceOpen + "\nR1 a b 1k\n.end\n" + TagSpiceClose + "\n" +
		TagJSONOpen + "\n{\"assumptions\":[]}\n" + TagJSONClose

	out := ParseResponse(reply)
	assert.Equal(t, "Final answer", out.FinalMarkdown)
	assert.Equal(t, "R1 a b 1k\n.end", out.SpiceNetlist)
	assert.Equal(t, `{"assumptions":[]}`, out.CircuitJSON)
}
