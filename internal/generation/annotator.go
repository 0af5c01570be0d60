// Package generation produces the human-readable annotation that ships
// alongside an assembled package: a short narrative of what the flow does,
// derived from the stitch result. When a generation model is configured
// the narrative comes from it; otherwise a deterministic template fills
// in, so annotation never blocks the pipeline.
package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"flowstitch/internal/config"
	"flowstitch/internal/logging"
	"flowstitch/internal/types"
)

// Annotator narrates stitch results.
type Annotator struct {
	client *genai.Client
	model  string
}

// New creates an Annotator. A missing API key is not an error; the
// annotator falls back to its deterministic template.
func New(ctx context.Context, cfg config.GenerationConfig) *Annotator {
	a := &Annotator{model: cfg.Model}
	if cfg.APIKey == "" {
		logging.API("No generation API key configured, annotations use the built-in template")
		return a
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		logging.API("Generation client init failed (%v), annotations use the built-in template", err)
		return a
	}
	a.client = client
	return a
}

// Annotate returns a short narrative for the reconstructed flow. Model
// failures degrade to the template; the returned string is never empty.
func (a *Annotator) Annotate(ctx context.Context, targetName string, result *types.StitchResult) string {
	if a.client == nil {
		return a.template(targetName, result)
	}

	timer := logging.StartTimer(logging.CategoryAPI, "Annotate")
	defer timer.Stop()

	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		genai.Text(a.prompt(targetName, result)), nil)
	if err != nil {
		logging.API("Annotation request failed (%v), falling back to template", err)
		return a.template(targetName, result)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return a.template(targetName, result)
	}
	return text
}

// prompt builds the narrow, structured request sent to the model. Only
// node names and types cross the boundary, never raw artifact content.
func (a *Annotator) prompt(targetName string, result *types.StitchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following integration flow %q in two or three sentences for a technical reader.\n", targetName)
	b.WriteString("Steps in execution order:\n")
	for i, n := range result.OrderedNodes {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, n.Name, n.Type)
	}
	if len(result.Coverage.Missing) > 0 {
		fmt.Fprintf(&b, "Steps with no recovered definition: %s.\n", strings.Join(result.Coverage.Missing, ", "))
	}
	b.WriteString("Do not invent steps that are not listed.")
	return b.String()
}

// template is the deterministic fallback narrative.
func (a *Annotator) template(targetName string, result *types.StitchResult) string {
	names := make([]string, len(result.OrderedNodes))
	for i, n := range result.OrderedNodes {
		names[i] = n.Name
	}
	text := fmt.Sprintf("Flow %q executes %d steps: %s.",
		targetName, len(names), strings.Join(names, " -> "))
	if len(result.Coverage.Missing) > 0 {
		text += fmt.Sprintf(" Definitions for %s were not recovered and use defaults.",
			strings.Join(result.Coverage.Missing, ", "))
	}
	return text
}
