// Package search implements the search_course_content tool: keyword search
// over plain-text course documents with optional course and lesson filters.
//
// The last search's sources are kept on the Tool so a caller can show them
// next to the answer. A Tool shared by concurrent exchanges only keeps the
// sources of whichever search finished last.
package search
