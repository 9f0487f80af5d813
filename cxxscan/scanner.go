// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

package cxxscan

import (
	"bufio"
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"

	"go4.org/mem"
)

// Kind is the classification of a recognized class or struct construct.
type Kind byte

// Constants defining the valid Kind values.
const (
	Unrecognized       Kind = iota // keyword seen, but the construct fell outside the grammar subset
	ForwardDeclaration             // keyword, identifier and terminating ";" with no body
	Definition                     // keyword, identifier, brace-delimited body
)

var kindStr = [...]string{
	Unrecognized:       "unrecognized",
	ForwardDeclaration: "forward declaration",
	Definition:         "definition",
}

func (k Kind) String() string {
	v := int(k)
	if v >= len(kindStr) {
		return kindStr[Unrecognized]
	}
	return kindStr[v]
}

// A Match describes one class or struct construct recognized in the input.
// Line numbers are 1-based and refer to the physical lines of the input.
type Match struct {
	Kind      Kind
	Keyword   string // "class" or "struct"
	StartLine int    // line of the keyword
	BodyEnd   int    // line of the depth-zero closing brace; 0 unless Kind is Definition
	EndLine   int    // last line of the construct; 0 if Kind is Unrecognized
}

// A Construct identifies the unclosed construct named by a ScanError.
type Construct byte

// Constants defining the valid Construct values.
const (
	BlockComment   Construct = iota // block comment "/* ... */"
	StringLit                       // string literal
	CharLit                         // character literal
	DefinitionBody                  // brace-delimited class or struct body
)

var constructStr = [...]string{
	BlockComment:   "block comment",
	StringLit:      "string literal",
	CharLit:        "character literal",
	DefinitionBody: "definition body",
}

func (c Construct) String() string { return constructStr[c] }

// ScanError is the concrete type of errors reported by a Locator. If the
// input ended inside a comment, literal, or definition body, Construct names
// the unclosed construct and Pos is where it began. Errors from the
// underlying reader are wrapped with the position reached when they occurred.
type ScanError struct {
	Pos       LineCol
	Construct Construct

	err error
}

func (e *ScanError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("at %s: %v", e.Pos, e.err)
	}
	return fmt.Sprintf("at %s: unterminated %s", e.Pos, e.Construct)
}

// Unwrap supports error wrapping.
func (e *ScanError) Unwrap() error { return e.err }

// Keywords that start a candidate construct.
var (
	kwClass  = mem.S("class")
	kwStruct = mem.S("struct")
)

// A Locator scans C++ source text for class and struct declarations and
// definitions. Each call to Next advances the locator to the next match, so
// the input is consumed only as far as the caller demands. A Locator is
// single-use; construct a new one to rescan.
//
// The locator is deliberately not a C++ parser. A candidate begins only at
// the literal keyword "class" or "struct" followed by horizontal whitespace
// and an identifier on the same line of live text. Keyword occurrences that
// do not fit that window, and candidates that are not completed by a ";" or
// "{" before a blank line intervenes, are skipped without a match.
type Locator struct {
	r    *bufio.Reader
	wbuf bytes.Buffer // current word

	m     Match
	queue []Match // completed nested matches awaiting emission
	err   error
	done  bool

	nested    bool // match keywords inside definition bodies
	abandoned bool // report abandoned candidates as Unrecognized

	line, col         int // position of the next rune; line is 1-based
	prevLine, prevCol int
	at                LineCol // position of the most recently read rune
}

// NewLocator constructs a new Locator that consumes input from r.
func NewLocator(r io.Reader) *Locator {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Locator{r: br, line: 1}
}

// MatchNested configures the locator to also match (true) or ignore (false)
// keywords encountered inside an open definition body. The default is false:
// the keyword search only resumes once the enclosing definition's brace
// depth returns to zero. When enabled, an outer definition is still emitted
// before the matches found inside its body, so matches remain ordered by
// starting line.
func (l *Locator) MatchNested(ok bool) { l.nested = ok }

// ReportAbandoned configures the locator to emit (true) or suppress (false)
// an Unrecognized match for each candidate whose keyword and identifier were
// seen but that was abandoned before a ";" or "{" was found. The default is
// false, matching the narrow detection window of the heuristic: abandoned
// candidates are silently skipped.
func (l *Locator) ReportAbandoned(ok bool) { l.abandoned = ok }

// Next advances l to the next match of the input and reports whether one is
// available. Once Next returns false, the caller must check Err to tell a
// fully-consumed input from a failed scan.
func (l *Locator) Next() bool {
	if l.err != nil || l.done {
		return false
	}
	if len(l.queue) > 0 {
		l.m, l.queue = l.queue[0], l.queue[1:]
		return true
	}
	m, ok, err := l.search()
	if err != nil {
		l.err = err
		return false
	} else if !ok {
		l.done = true
		return false
	}
	l.m = m
	return true
}

// Match returns the current match. It is only valid after a call to Next
// that returned true.
func (l *Locator) Match() Match { return l.m }

// Err returns the error that stopped the scan, or nil if the input was
// consumed completely.
func (l *Locator) Err() error { return l.err }

// Matches runs a complete scan of r and returns all matches in order.
func Matches(r io.Reader) ([]Match, error) {
	l := NewLocator(r)
	var ms []Match
	for l.Next() {
		ms = append(ms, l.Match())
	}
	return ms, l.Err()
}

// search scans live text for the next keyword candidate and runs it to
// completion. It reports ok == false at the end of the input.
func (l *Locator) search() (_ Match, ok bool, _ error) {
	for {
		ch, err := l.rune()
		if err == io.EOF {
			return Match{}, false, nil
		} else if err != nil {
			return Match{}, false, l.readError(err)
		}

		switch {
		case ch == '/':
			if _, err := l.comment(); err != nil {
				return Match{}, false, err
			}
		case ch == '"' || ch == '\'':
			if err := l.literal(ch); err != nil {
				return Match{}, false, err
			}
		case isWordRune(ch):
			start := l.at
			kw, err := l.keyword(ch)
			if err != nil {
				return Match{}, false, err
			} else if kw == "" {
				continue
			}
			m, ok, err := l.classify(kw, start)
			if err != nil {
				return Match{}, false, err
			} else if ok && m.Kind == Definition {
				return l.definition(m)
			} else if ok {
				return m, true, nil
			} else if l.abandoned && m.StartLine > 0 {
				return m, true, nil
			}
		}
	}
}

// keyword consumes the word starting with first and returns "class" or
// "struct" if the word is one of the keywords, else "".
func (l *Locator) keyword(first rune) (string, error) {
	l.wbuf.Reset()
	l.wbuf.WriteRune(first)
	for {
		ch, err := l.rune()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", l.readError(err)
		} else if !isWordRune(ch) {
			l.unrune()
			break
		}
		l.wbuf.WriteRune(ch)
	}
	w := mem.B(l.wbuf.Bytes())
	if w.Equal(kwClass) {
		return "class", nil
	} else if w.Equal(kwStruct) {
		return "struct", nil
	}
	return "", nil
}

// classify resolves the candidate whose keyword, starting at start, has just
// been consumed. It applies the keyword+identifier window and then searches
// for the ";" or "{" that completes the candidate. For a forward declaration
// the returned match is complete. For a definition the opening brace has
// been consumed but the body has not been scanned; the caller owns the brace
// tracking. If the candidate is abandoned, ok is false; the returned match
// then has Kind Unrecognized, with a zero StartLine when the window itself
// was never satisfied and the occurrence must not be reported at all.
func (l *Locator) classify(kw string, start LineCol) (_ Match, ok bool, _ error) {
	// The keyword must be followed by horizontal whitespace and then an
	// identifier, all on the same line, with no intervening comment.
	ch, err := l.rune()
	if err == io.EOF {
		return Match{}, false, nil
	} else if err != nil {
		return Match{}, false, l.readError(err)
	} else if ch != ' ' && ch != '\t' {
		l.unrune()
		return Match{}, false, nil
	}
	for ch == ' ' || ch == '\t' {
		ch, err = l.rune()
		if err == io.EOF {
			return Match{}, false, nil
		} else if err != nil {
			return Match{}, false, l.readError(err)
		}
	}
	if !isIdentStart(ch) {
		l.unrune()
		return Match{}, false, nil
	}
	if _, err := l.keyword(ch); err != nil { // consume the identifier
		return Match{}, false, err
	}

	skip := Match{Kind: Unrecognized, Keyword: kw, StartLine: start.Line}

	// Identifiers, commas and colons of a base-class clause, comments, and
	// line breaks may precede the ";" or "{"; a blank line or any other
	// token abandons the candidate.
	content := true // the current line has tokens on it
	for {
		ch, err := l.rune()
		if err == io.EOF {
			return skip, false, nil
		} else if err != nil {
			return Match{}, false, l.readError(err)
		}
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
		case ch == '\n':
			if !content {
				return skip, false, nil // blank line: abandon
			}
			content = false
		case ch == ';':
			return Match{
				Kind:      ForwardDeclaration,
				Keyword:   kw,
				StartLine: start.Line,
				EndLine:   start.Line,
			}, true, nil
		case ch == '{':
			return Match{Kind: Definition, Keyword: kw, StartLine: start.Line}, true, nil
		case ch == '/':
			ok, err := l.comment()
			if err != nil {
				return Match{}, false, err
			} else if !ok {
				l.unrune()
				return skip, false, nil
			}
			content = true
		case isWordRune(ch) || ch == ':' || ch == ',':
			content = true
		default:
			l.unrune()
			return skip, false, nil
		}
	}
}

// openDef records a definition whose opening brace has been consumed but
// whose body is still open. base is the brace depth outside the definition;
// the body is closed when the depth returns to base.
type openDef struct {
	m    Match
	base int
}

// definition tracks brace depth from the just-consumed opening brace of
// outer until the depth returns to zero. In nested mode, inner keyword
// occurrences open further candidates on an explicit stack of checkpoints,
// and their completed matches are queued behind the outermost one.
func (l *Locator) definition(outer Match) (Match, bool, error) {
	open := l.at // position of the opening brace
	stack := []openDef{{m: outer}}
	depth := 1

	for {
		ch, err := l.rune()
		if err == io.EOF {
			return Match{}, false, &ScanError{Pos: open, Construct: DefinitionBody}
		} else if err != nil {
			return Match{}, false, l.readError(err)
		}

		switch {
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			top := &stack[len(stack)-1]
			if depth > top.base {
				continue
			}
			m := top.m
			m.BodyEnd = l.at.Line
			m.EndLine, err = l.semicolon(m.BodyEnd)
			if err != nil {
				return Match{}, false, err
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				slices.SortFunc(l.queue, func(a, b Match) int {
					return cmp.Compare(a.StartLine, b.StartLine)
				})
				return m, true, nil
			}
			l.queue = append(l.queue, m)
		case ch == '/':
			if _, err := l.comment(); err != nil {
				return Match{}, false, err
			}
		case ch == '"' || ch == '\'':
			if err := l.literal(ch); err != nil {
				return Match{}, false, err
			}
		case isWordRune(ch):
			at := l.at
			kw, err := l.keyword(ch)
			if err != nil {
				return Match{}, false, err
			}
			if kw == "" || !l.nested {
				continue
			}
			m, ok, err := l.classify(kw, at)
			if err != nil {
				return Match{}, false, err
			} else if ok && m.Kind == Definition {
				stack = append(stack, openDef{m: m, base: depth})
				depth++
			} else if ok || (l.abandoned && m.StartLine > 0) {
				l.queue = append(l.queue, m)
			}
		}
	}
}

// semicolon searches past the depth-zero closing brace for the terminating
// ";", skipping whitespace and newlines but no other token. It returns the
// line of the semicolon, or closeLine if none directly follows.
func (l *Locator) semicolon(closeLine int) (int, error) {
	for {
		ch, err := l.rune()
		if err == io.EOF {
			return closeLine, nil
		} else if err != nil {
			return 0, l.readError(err)
		}
		switch ch {
		case ' ', '\t', '\r', '\n':
		case ';':
			return l.at.Line, nil
		default:
			l.unrune()
			return closeLine, nil
		}
	}
}

// comment disambiguates a just-consumed "/" and skips the comment it opens,
// if any. It reports whether a comment was consumed. The newline ending a
// line comment is left in the input. Reaching the end of input inside a
// block comment is an error.
func (l *Locator) comment() (bool, error) {
	start := l.at
	ch, err := l.rune()
	if err == io.EOF {
		return false, nil
	} else if err != nil {
		return false, l.readError(err)
	}
	switch ch {
	case '/': // line comment, to end of line
		for {
			ch, err := l.rune()
			if err == io.EOF {
				return true, nil
			} else if err != nil {
				return false, l.readError(err)
			} else if ch == '\n' {
				l.unrune()
				return true, nil
			}
		}
	case '*': // block comment, to the closing delimiter
		var star bool
		for {
			ch, err := l.rune()
			if err == io.EOF {
				return false, &ScanError{Pos: start, Construct: BlockComment}
			} else if err != nil {
				return false, l.readError(err)
			}
			if star && ch == '/' {
				return true, nil
			}
			star = ch == '*'
		}
	default:
		l.unrune()
		return false, nil
	}
}

// literal skips a string or character literal whose opening quote has just
// been consumed. Escape sequences never end the literal early.
func (l *Locator) literal(quote rune) error {
	start := l.at
	kind := StringLit
	if quote == '\'' {
		kind = CharLit
	}
	for {
		ch, err := l.rune()
		if err == io.EOF {
			return &ScanError{Pos: start, Construct: kind}
		} else if err != nil {
			return l.readError(err)
		}
		switch ch {
		case '\\':
			if _, err := l.rune(); err == io.EOF {
				return &ScanError{Pos: start, Construct: kind}
			} else if err != nil {
				return l.readError(err)
			}
		case quote:
			return nil
		}
	}
}

func (l *Locator) rune() (rune, error) {
	ch, size, err := l.r.ReadRune()
	if err != nil {
		return 0, err
	}
	l.prevLine, l.prevCol = l.line, l.col
	l.at = LineCol{Line: l.line, Column: l.col}
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col += size
	}
	return ch, nil
}

// unrune pushes back the most recently read rune. Only a single rune of
// pushback is supported, immediately after a call to rune.
func (l *Locator) unrune() {
	l.r.UnreadRune()
	l.line, l.col = l.prevLine, l.prevCol
}

func (l *Locator) readError(err error) error {
	return &ScanError{Pos: LineCol{Line: l.line, Column: l.col}, err: err}
}

func isWordRune(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
