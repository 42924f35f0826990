package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultChunkSize is the chunk size in runes used when none is set.
const DefaultChunkSize = 800

// Index searches course documents (*.txt, *.md) in an fs.FS. Each file is
// parsed once on first use; concurrent first uses share one parse.
type Index struct {
	fsys      fs.FS
	chunkSize int
	logger    zerolog.Logger

	mu      sync.RWMutex
	courses map[string]*Course
	skipped map[string]bool // files without a course title
	group   singleflight.Group
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithLogger sets the logger that reports skipped files. Default discards.
func WithLogger(l zerolog.Logger) IndexOption {
	return func(ix *Index) { ix.logger = l }
}

// NewIndex returns an Index over fsys. chunkSize <= 0 means DefaultChunkSize.
func NewIndex(fsys fs.FS, chunkSize int, opts ...IndexOption) *Index {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	ix := &Index{
		fsys:      fsys,
		chunkSize: chunkSize,
		logger:    zerolog.Nop(),
		courses:   make(map[string]*Course),
		skipped:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Query narrows a search. CourseName matches titles case-insensitively by substring.
type Query struct {
	Text         string
	CourseName   string
	LessonNumber *int
	Limit        int
}

// Hit is one scored chunk.
type Hit struct {
	Course       string
	LessonNumber int
	LessonLink   string
	Content      string
	Score        int
}

// Source names where a hit came from, e.g. "Intro to MCP - Lesson 2".
func (h Hit) Source() string {
	return fmt.Sprintf("%s - Lesson %d", h.Course, h.LessonNumber)
}

// Files lists the course files in the index root, sorted.
func (ix *Index) Files() ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.txt", "*.md"} {
		m, err := fs.Glob(ix.fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("search: glob %s: %w", pattern, err)
		}
		files = append(files, m...)
	}
	slices.Sort(files)
	return files, nil
}

// Course returns the parsed course in file name.
// A file without a course title yields ErrNoCourseTitle, remembered for later calls.
func (ix *Index) Course(name string) (*Course, error) {
	name = path.Clean(name)
	if c, ok, err := ix.cached(name); ok {
		return c, err
	}
	v, err, _ := ix.group.Do(name, func() (any, error) {
		if c, ok, err := ix.cached(name); ok {
			return c, err
		}
		data, err := fs.ReadFile(ix.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("search: read %s: %w", name, err)
		}
		c, err := ParseCourse(string(data), ix.chunkSize)
		if errors.Is(err, ErrNoCourseTitle) {
			ix.logger.Warn().Str("file", name).Msg("skipping file without course title")
			ix.mu.Lock()
			ix.skipped[name] = true
			ix.mu.Unlock()
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		ix.mu.Lock()
		ix.courses[name] = c
		ix.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Course), nil
}

func (ix *Index) cached(name string) (*Course, bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.skipped[name] {
		return nil, true, fmt.Errorf("%s: %w", name, ErrNoCourseTitle)
	}
	c, ok := ix.courses[name]
	return c, ok, nil
}

// Courses returns every course in the index, in file order. Files that are not courses are skipped.
func (ix *Index) Courses(ctx context.Context) ([]*Course, error) {
	files, err := ix.Files()
	if err != nil {
		return nil, err
	}
	out := make([]*Course, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := ix.Course(f)
		if errors.Is(err, ErrNoCourseTitle) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ResolveCourse returns the title of the first course whose title contains name, ignoring case.
func (ix *Index) ResolveCourse(ctx context.Context, name string) (string, bool, error) {
	courses, err := ix.Courses(ctx)
	if err != nil {
		return "", false, err
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, c := range courses {
		if strings.Contains(strings.ToLower(c.Title), needle) {
			return c.Title, true, nil
		}
	}
	return "", false, nil
}

// Search scores every chunk matching q by query-term frequency and returns the best Limit hits.
// Ties keep corpus order.
func (ix *Index) Search(ctx context.Context, q Query) ([]Hit, error) {
	terms := tokenize(q.Text)
	if len(terms) == 0 {
		return nil, nil
	}
	courses, err := ix.Courses(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(q.CourseName))
	var hits []Hit
	for _, c := range courses {
		if needle != "" && !strings.Contains(strings.ToLower(c.Title), needle) {
			continue
		}
		for _, l := range c.Lessons {
			if q.LessonNumber != nil && l.Number != *q.LessonNumber {
				continue
			}
			for _, ch := range l.Chunks {
				if score := scoreChunk(ch, terms); score > 0 {
					hits = append(hits, Hit{Course: c.Title, LessonNumber: l.Number, LessonLink: l.Link, Content: ch, Score: score})
				}
			}
		}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int { return cmp.Compare(b.Score, a.Score) })
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func scoreChunk(chunk string, terms []string) int {
	counts := make(map[string]int)
	for _, w := range tokenize(chunk) {
		counts[w]++
	}
	score := 0
	for _, t := range terms {
		score += counts[t]
	}
	return score
}
