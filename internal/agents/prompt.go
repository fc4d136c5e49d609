package agents

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// PromptRenderer renders agent prompts from embedded templates.
type PromptRenderer struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewPromptRenderer loads every embedded template.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{templates: make(map[string]*template.Template)}
	if err := r.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	return r, nil
}

func (r *PromptRenderer) loadTemplates() error {
	return fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		name := strings.TrimSuffix(strings.TrimPrefix(path, "prompts/"), ".md.tmpl")
		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		r.templates[name] = tmpl
		return nil
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join":      strings.Join,
		"trimSpace": strings.TrimSpace,
		"lower":     strings.ToLower,
		"usd": func(v float64) string {
			return fmt.Sprintf("$%.0f", v)
		},
	}
}

// Render renders the named template with the given data.
func (r *PromptRenderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown prompt template: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// promptData is the data every agent template sees.
type promptData struct {
	Deal      core.Deal
	Documents []core.Document
	Facts     []core.ExtractedMetric
	External  map[string]any
	Prior     map[string]string // dependency name -> verdict JSON
	Focus     string            // sector focus text, tier-2 only
}

// buildPromptData assembles template data from the run context,
// serializing the verdicts of the agent's declared dependencies.
func buildPromptData(rc *RunContext, deps []Dependency, focus string) promptData {
	prior := make(map[string]string, len(deps))
	for _, dep := range deps {
		data := rc.PriorData(dep.Name)
		if data == nil {
			continue
		}
		encoded, err := json.Marshal(trimVerdict(data))
		if err != nil {
			continue
		}
		prior[dep.Name] = string(encoded)
	}
	return promptData{
		Deal:      rc.Deal.Deal,
		Documents: rc.Deal.Documents,
		Facts:     rc.Deal.Facts,
		External:  rc.Deal.External,
		Prior:     prior,
		Focus:     focus,
	}
}

// trimVerdict keeps the verdict fields worth feeding back into a
// dependent agent's prompt, dropping bookkeeping like fallback_fields.
func trimVerdict(data map[string]any) map[string]any {
	out := make(map[string]any, 6)
	for _, key := range []string{"score", "confidence", "recommendation", "summary", "strengths", "red_flags"} {
		if v, ok := data[key]; ok {
			out[key] = v
		}
	}
	return out
}
