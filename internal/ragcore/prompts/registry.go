// Package prompts implements the prompt template registry: templates are
// treated as embedded configuration parsed once at startup into an immutable
// registry; a missing required template is a fatal startup error.
package prompts

import (
	"bytes"
	"fmt"
	"text/template"
)

// Name identifies one of the fixed set of prompts the chat orchestrator and
// conversation memory components need.
type Name string

const (
	// CondenseQuestion rewrites a follow-up question into a standalone
	// question given chat_history.
	CondenseQuestion Name = "condense_question"
	// ContextIntegration answers the user's question using retrieved
	// context.
	ContextIntegration Name = "context_integration"
	// SimpleSystem is the system prompt for the DIRECT engine mode.
	SimpleSystem Name = "simple_system"
	// SummaryCompaction condenses early conversation turns into a rolling
	// summary during memory compaction.
	SummaryCompaction Name = "summary_compaction"
)

const (
	defaultCondenseQuestion = `给定以下对话历史和一个新问题，请将新问题改写为一个独立的、完整的问题，使其不依赖对话历史也能被理解。

对话历史:
{{.ChatHistory}}

新问题: {{.Question}}

独立问题:`

	defaultContextIntegration = `你是一个课程资料问答助手。请仅根据下面提供的资料内容回答问题，不要编造资料中没有的信息。

资料内容:
{{.Context}}

问题: {{.Question}}

回答:`

	defaultSimpleSystem = `你是一个友好的助手，请直接回答用户的问题。`

	defaultSummaryCompaction = `请将以下对话内容总结为不超过300字的摘要，保留关键信息和上下文。

已有摘要:
{{.PriorSummary}}

新增对话:
{{.Conversation}}

摘要:`
)

// Registry is an immutable, parsed set of templates.
type Registry struct {
	templates map[Name]*template.Template
}

// Source supplies the raw template text for each required prompt, normally
// sourced from configuration: prompt templates on disk are treated as
// embedded configuration rather than hardcoded strings.
type Source struct {
	CondenseQuestion   string
	ContextIntegration string
	SimpleSystem       string
	SummaryCompaction  string
}

// Load parses every required template. A parse failure, or a required
// template resolving to empty text with no built-in default, is fatal.
func Load(src Source) (*Registry, error) {
	raw := map[Name]string{
		CondenseQuestion:   firstNonEmpty(src.CondenseQuestion, defaultCondenseQuestion),
		ContextIntegration: firstNonEmpty(src.ContextIntegration, defaultContextIntegration),
		SimpleSystem:       firstNonEmpty(src.SimpleSystem, defaultSimpleSystem),
		SummaryCompaction:  firstNonEmpty(src.SummaryCompaction, defaultSummaryCompaction),
	}

	templates := make(map[Name]*template.Template, len(raw))
	for name, text := range raw {
		tmpl, err := template.New(string(name)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("prompts: failed to parse template %q: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &Registry{templates: templates}, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Render executes the named template against data. It returns an error if
// name was never registered.
func (r *Registry) Render(name Name, data any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("prompts: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompts: failed to execute template %q: %w", name, err)
	}
	return buf.String(), nil
}
