package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/skosovsky/toolround/tools"
)

// ToolName is the name the model calls the search tool by.
const ToolName = "search_course_content"

// DefaultLimit is the number of hits returned when no limit is set.
const DefaultLimit = 5

const toolDescription = "Search course materials with smart course name matching and lesson filtering"

// Args are the arguments of search_course_content.
type Args struct {
	Query        string `json:"query" jsonschema:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema:"Course title (partial matches work, e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// Tool answers search_course_content calls from an Index and remembers
// the sources of its most recent search.
type Tool struct {
	index *Index
	limit int

	mu      sync.Mutex
	sources []string
}

// Option configures a Tool.
type Option func(*Tool)

// WithLimit sets the maximum number of hits per search.
func WithLimit(n int) Option {
	return func(t *Tool) { t.limit = n }
}

// New returns a search Tool over index.
func New(index *Index, opts ...Option) *Tool {
	t := &Tool{index: index, limit: DefaultLimit}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds the tool to r under ToolName.
func (t *Tool) Register(r *tools.Registry) error {
	tool, err := tools.Func(ToolName, toolDescription, t.Search)
	if err != nil {
		return err
	}
	return r.Register(tool)
}

// Search runs one search and formats the hits for the model.
// Finding nothing is not an error: the model is told so in the result text.
func (t *Tool) Search(ctx context.Context, args Args) (string, error) {
	q := Query{Text: args.Query, LessonNumber: args.LessonNumber, Limit: t.limit}
	if args.CourseName != "" {
		title, ok, err := t.index.ResolveCourse(ctx, args.CourseName)
		if err != nil {
			return "", err
		}
		if !ok {
			t.setSources(nil)
			return fmt.Sprintf("No course found matching '%s'", args.CourseName), nil
		}
		q.CourseName = title
	}
	hits, err := t.index.Search(ctx, q)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		t.setSources(nil)
		return noResults(q), nil
	}
	blocks := make([]string, 0, len(hits))
	sources := make([]string, 0, len(hits))
	for _, h := range hits {
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", h.Source(), h.Content))
		sources = append(sources, h.Source())
	}
	t.setSources(sources)
	return strings.Join(blocks, "\n\n"), nil
}

func noResults(q Query) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if q.CourseName != "" {
		fmt.Fprintf(&b, " in course '%s'", q.CourseName)
	}
	if q.LessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *q.LessonNumber)
	}
	b.WriteString(".")
	return b.String()
}

func (t *Tool) setSources(s []string) {
	t.mu.Lock()
	t.sources = s
	t.mu.Unlock()
}

// LastSources returns the sources of the most recent search.
func (t *Tool) LastSources() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.sources)
}

// ResetSources forgets the recorded sources.
func (t *Tool) ResetSources() {
	t.setSources(nil)
}
