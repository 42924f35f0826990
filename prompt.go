package toolround

import (
	"bytes"
	"fmt"
	"text/template"
)

// DefaultSystemPrompt is the static instruction for the course-materials assistant.
const DefaultSystemPrompt = ` You are an AI assistant specialized in course materials and educational content with access to a comprehensive search tool for course information.

Search Tool Usage:
- Use the search tool **only** for questions about specific course content or detailed educational materials
- **One search per query maximum**
- Synthesize search results into accurate, fact-based responses
- If search yields no results, state this clearly without offering alternatives

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without searching
- **Course-specific questions**: Search first, then answer
- **No meta-commentary**:
 - Provide direct answers only ` + "\u2014" + ` no reasoning process, search explanations, or question-type analysis
 - Do not mention "based on the search results"


All responses must be:
1. **Brief, Concise and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when they aid understanding
Provide only the direct answer to what was asked.
`

// systemTemplate appends the prior-context block only when there is context.
// No whitespace may leak outside the if-block: empty context must render the prompt byte for byte.
const systemTemplate = `{{ .system }}{{ if .context }}

Previous conversation:
{{ if gt .limit 0 }}{{ tail_tokens .context .limit }}{{ else }}{{ .context }}{{ end }}{{ end }}`

// systemRenderer renders system content from the static prompt and prior context.
type systemRenderer struct {
	prompt string
	limit  int
	tpl    *template.Template
}

func newSystemRenderer(prompt string, limit int, tc TokenCounter) (*systemRenderer, error) {
	tpl, err := template.New("system").Funcs(defaultFuncMap(tc)).Parse(systemTemplate)
	if err != nil {
		return nil, fmt.Errorf("toolround: parse system template: %w", err)
	}
	return &systemRenderer{prompt: prompt, limit: limit, tpl: tpl}, nil
}

// Render returns the system content for one exchange.
func (r *systemRenderer) Render(priorContext string) (string, error) {
	if priorContext == "" {
		return r.prompt, nil
	}
	var buf bytes.Buffer
	err := r.tpl.Execute(&buf, map[string]any{
		"system":  r.prompt,
		"context": priorContext,
		"limit":   r.limit,
	})
	if err != nil {
		return "", fmt.Errorf("toolround: render system content: %w", err)
	}
	return buf.String(), nil
}
