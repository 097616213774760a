package script

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Position locates a byte offset in the source as 1-based line and column.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string { return fmt.Sprintf("line %d, column %d", p.Line, p.Column) }

func positionOf(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	before := src[:offset]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{
		Offset: offset,
		Line:   line,
		Column: utf8.RuneCountInString(before[lineStart:]) + 1,
	}
}

// ParseError reports malformed prefix syntax.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Msg)
}

// UnknownCharacterError reports a prefix naming a character that is not in
// the registry.
type UnknownCharacterError struct {
	ID  string
	Pos Position
}

func (e *UnknownCharacterError) Error() string {
	return fmt.Sprintf("unknown character %q at %s", e.ID, e.Pos)
}
