package search

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoCourseTitle is returned for a course file without a "Course Title:" line.
var ErrNoCourseTitle = errors.New("search: course file has no title")

// Course is one parsed course document.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson is one numbered lesson of a course, split into chunks for scoring.
type Lesson struct {
	Number int
	Title  string
	Link   string
	Chunks []string
}

var lessonHeader = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ParseCourse parses a course document:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: <title>
//	Lesson Link: <url>
//	<content>
//
// Content before the first lesson header is ignored. Chunks are paragraphs
// packed up to chunkSize runes.
func ParseCourse(text string, chunkSize int) (*Course, error) {
	c := &Course{}
	var cur *Lesson
	var body []string
	flush := func() {
		if cur != nil {
			cur.Chunks = chunk(strings.Join(body, "\n"), chunkSize)
			c.Lessons = append(c.Lessons, *cur)
		}
		body = nil
	}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if cur == nil {
			if v, ok := strings.CutPrefix(trimmed, "Course Title:"); ok {
				c.Title = strings.TrimSpace(v)
				continue
			}
			if v, ok := strings.CutPrefix(trimmed, "Course Link:"); ok {
				c.Link = strings.TrimSpace(v)
				continue
			}
			if v, ok := strings.CutPrefix(trimmed, "Course Instructor:"); ok {
				c.Instructor = strings.TrimSpace(v)
				continue
			}
		}
		if m := lessonHeader.FindStringSubmatch(trimmed); m != nil {
			flush()
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("search: lesson number %q: %w", m[1], err)
			}
			cur = &Lesson{Number: n, Title: strings.TrimSpace(m[2])}
			continue
		}
		if cur != nil && cur.Link == "" && len(body) == 0 {
			if v, ok := strings.CutPrefix(trimmed, "Lesson Link:"); ok {
				cur.Link = strings.TrimSpace(v)
				continue
			}
		}
		if cur != nil {
			body = append(body, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("search: scan course: %w", err)
	}
	flush()
	if c.Title == "" {
		return nil, ErrNoCourseTitle
	}
	return c, nil
}

// chunk splits text into blank-line separated paragraphs and packs them into
// chunks of at most size runes. A paragraph longer than size is its own chunk.
func chunk(text string, size int) []string {
	var out []string
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if b.Len() > 0 && len([]rune(b.String()))+2+len([]rune(para)) > size {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(para)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
