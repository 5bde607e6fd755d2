// Package prompt renders the pipeline's prompt templates. Templates are
// baked into the binary with go:embed so the renderer has no filesystem
// dependencies; names follow phase_<n>/<task>.
package prompt

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"aigenflow/internal/logging"
)

//go:embed templates
var embeddedTemplates embed.FS

// Renderer renders named templates against a string context. A missing
// template degrades to a verbatim rendition of the context so a pipeline
// never stalls on a template gap.
type Renderer struct {
	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewRenderer creates a renderer over the embedded template set.
func NewRenderer() *Renderer {
	return &Renderer{cache: make(map[string]*template.Template)}
}

// Render renders the named template with ctx. Names follow
// phase_<n>/<task>; the .tmpl extension is implied.
func (r *Renderer) Render(name string, ctx map[string]string) (string, error) {
	tmpl, err := r.lookup(name)
	if err != nil {
		logging.PhaseDebug("template %s missing, using verbatim fallback", name)
		return verbatim(ctx), nil
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.cache[name]; ok {
		return tmpl, nil
	}
	data, err := embeddedTemplates.ReadFile("templates/" + name + ".tmpl")
	if err != nil {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	tmpl, err := template.New(name).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	r.cache[name] = tmpl
	return tmpl, nil
}

// verbatim renders the context as sorted key: value lines.
func verbatim(ctx map[string]string) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", k, ctx[k])
	}
	return sb.String()
}
