// Package frontend is a minimal, hand-written lexer/parser for
// MessageScript's tagged text surface syntax. It is the one concrete
// producer of compiler.Node in this module, but compiler never imports it
// — any parser able to build a compiler.ScriptSource can stand in for
// this one. It exists to
// make the CLI and round-trip tests runnable end to end.
//
// Surface syntax, mirroring what decompiler.Decompile emits:
//
//	[dlg IDENTIFIER]                 dialogue window, no speaker
//	[dlg IDENTIFIER [Speaker name]]  dialogue window, named speaker
//	[dlg IDENTIFIER [3]]             dialogue window, variable speaker index
//	[sel IDENTIFIER]                 selection window
//	[sel IDENTIFIER 1 2 3]           selection window with opaque fields
//
// A window body is free text mixed with bracketed tags; every line ends
// with [e]. Bare carriage returns and newlines in free text are stripped
// by the compiler, so source lines can be broken anywhere between tags.
// Integer literals in tags are decimal or hex with a 0x prefix.
package frontend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Secre-C/Atlus-Script-Tools/compiler"
)

// ParseError reports a syntax problem with its 1-based source location.
type ParseError struct {
	Line, Col int
	Message   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("frontend:%d:%d: %s", e.Line, e.Col, e.Message)
}

// Parse reads MessageScript surface text and produces a compiler.ScriptSource.
func Parse(text string) (compiler.ScriptSource, error) {
	p := &parser{src: text, line: 1, col: 1}
	var src compiler.ScriptSource

	p.skipSpace()
	for !p.eof() {
		if p.peek() != '[' {
			return compiler.ScriptSource{}, p.errf("expected a [dlg ...] or [sel ...] window header")
		}
		line, col := p.line, p.col
		p.next() // '['
		keyword := p.readWord()
		switch strings.ToLower(keyword) {
		case "dlg":
			w, err := p.parseDialogue()
			if err != nil {
				return compiler.ScriptSource{}, err
			}
			src.Windows = append(src.Windows, compiler.WindowSource{Dialogue: w})

		case "sel":
			w, err := p.parseSelection()
			if err != nil {
				return compiler.ScriptSource{}, err
			}
			src.Windows = append(src.Windows, compiler.WindowSource{Selection: w})

		default:
			return compiler.ScriptSource{}, &ParseError{Line: line, Col: col,
				Message: fmt.Sprintf("expected a [dlg ...] or [sel ...] window header, got [%s", keyword)}
		}
		p.skipSpace()
	}
	return src, nil
}

type parser struct {
	src       string
	pos       int
	line, col int
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) next() byte {
	c := p.src[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

func (p *parser) errf(format string, args ...any) *ParseError {
	return &ParseError{Line: p.line, Col: p.col, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\r', '\n':
			p.next()
		default:
			return
		}
	}
}

func isWordByte(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '[', ']':
		return false
	}
	return true
}

// readWord consumes a run of non-space, non-bracket bytes: an identifier,
// a tag name, or an integer literal.
func (p *parser) readWord() string {
	start := p.pos
	for !p.eof() && isWordByte(p.peek()) {
		p.next()
	}
	return p.src[start:p.pos]
}

// parseDialogue parses the rest of a "[dlg" header (identifier, optional
// bracketed speaker sub-block, closing bracket) and the window body.
func (p *parser) parseDialogue() (*compiler.DialogueSource, error) {
	p.skipSpace()
	ident := p.readWord()
	if ident == "" {
		return nil, p.errf("[dlg] wants an identifier")
	}
	d := &compiler.DialogueSource{Identifier: ident}

	p.skipSpace()
	if !p.eof() && p.peek() == '[' {
		p.next()
		nodes, err := p.parseSpeakerBlock()
		if err != nil {
			return nil, err
		}
		d.Speaker = speakerFromNodes(nodes)
		p.skipSpace()
	}
	if p.eof() || p.peek() != ']' {
		return nil, p.errf("unterminated [dlg %s ...] header", ident)
	}
	p.next()

	lines, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	d.Lines = lines
	return d, nil
}

// parseSelection parses the rest of a "[sel" header: identifier, then
// either a closing bracket or the three opaque 16-bit fields, then the
// window body.
func (p *parser) parseSelection() (*compiler.SelectionSource, error) {
	p.skipSpace()
	ident := p.readWord()
	if ident == "" {
		return nil, p.errf("[sel] wants an identifier")
	}
	s := &compiler.SelectionSource{Identifier: ident}

	var fields []int16
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errf("unterminated [sel %s ...] header", ident)
		}
		if p.peek() == ']' {
			p.next()
			break
		}
		word := p.readWord()
		n, err := parseIntLiteral(word)
		if err != nil {
			return nil, p.errf("[sel %s]: %q is not an integer literal", ident, word)
		}
		fields = append(fields, int16(n))
	}
	switch len(fields) {
	case 0:
	case 3:
		copy(s.SelectionFields[:], fields)
	default:
		return nil, p.errf("[sel %s]: wants 0 or 3 opaque field values, got %d", ident, len(fields))
	}

	options, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	s.Options = options
	return s, nil
}

// parseBody consumes tagText up to the next window header or end of input,
// splitting it into lines at [e] tags. An [e] always finalizes a line,
// even an empty one. Trailing content with no [e] forms a final line only
// if it carries a tag or non-whitespace text.
func (p *parser) parseBody() ([][]compiler.Node, error) {
	var lines [][]compiler.Node
	var cur []compiler.Node

	for !p.eof() {
		if p.peek() == '[' {
			if p.atWindowHeader() {
				break
			}
			tag, err := p.parseTag()
			if err != nil {
				return nil, err
			}
			if strings.EqualFold(tag.Name, "e") {
				lines = append(lines, cur)
				cur = nil
				continue
			}
			cur = append(cur, tag)
			continue
		}
		line, col := p.line, p.col
		text := p.readText()
		cur = append(cur, compiler.TextNode{Bytes: []byte(text), Line: line, Col: col})
	}

	if hasContent(cur) {
		lines = append(lines, cur)
	}
	return lines, nil
}

// readText consumes literal text up to the next tag or end of input. A
// bare ']' outside a tag is literal text.
func (p *parser) readText() string {
	start := p.pos
	for !p.eof() && p.peek() != '[' {
		p.next()
	}
	return p.src[start:p.pos]
}

// atWindowHeader reports whether the '[' at the current position begins a
// [dlg ...] or [sel ...] header, without consuming anything.
func (p *parser) atWindowHeader() bool {
	i := p.pos + 1
	for i < len(p.src) && (p.src[i] == ' ' || p.src[i] == '\t') {
		i++
	}
	start := i
	for i < len(p.src) && isWordByte(p.src[i]) {
		i++
	}
	switch strings.ToLower(p.src[start:i]) {
	case "dlg", "sel":
		return true
	}
	return false
}

// parseTag parses one "[name int int ...]" tag, cursor on the '['.
func (p *parser) parseTag() (compiler.TagNode, error) {
	line, col := p.line, p.col
	p.next() // '['
	p.skipSpace()
	name := p.readWord()
	if name == "" {
		return compiler.TagNode{}, &ParseError{Line: line, Col: col, Message: "empty tag []"}
	}
	tag := compiler.TagNode{Name: name, Line: line, Col: col}

	for {
		p.skipSpace()
		if p.eof() {
			return compiler.TagNode{}, &ParseError{Line: line, Col: col,
				Message: fmt.Sprintf("unterminated tag [%s: missing ]", name)}
		}
		if p.peek() == ']' {
			p.next()
			return tag, nil
		}
		word := p.readWord()
		if word == "" {
			return compiler.TagNode{}, p.errf("tag [%s]: unexpected %q", name, p.peek())
		}
		n, err := parseIntLiteral(word)
		if err != nil {
			return compiler.TagNode{}, &ParseError{Line: line, Col: col,
				Message: fmt.Sprintf("tag [%s]: %q is not an integer literal", name, word)}
		}
		tag.IntLiterals = append(tag.IntLiterals, n)
	}
}

// parseSpeakerBlock parses the bracketed speaker sub-block of a dialogue
// header: tagText up to the block's closing ']', cursor just past the
// opening '['. Unlike a body, a ']' here terminates the block.
func (p *parser) parseSpeakerBlock() ([]compiler.Node, error) {
	var nodes []compiler.Node
	for {
		if p.eof() {
			return nil, p.errf("unterminated speaker block: missing ]")
		}
		switch p.peek() {
		case ']':
			p.next()
			return nodes, nil
		case '[':
			tag, err := p.parseTag()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, tag)
		default:
			line, col := p.line, p.col
			start := p.pos
			for !p.eof() && p.peek() != '[' && p.peek() != ']' {
				p.next()
			}
			nodes = append(nodes, compiler.TextNode{Bytes: []byte(p.src[start:p.pos]), Line: line, Col: col})
		}
	}
}

// speakerFromNodes classifies a speaker sub-block: a block whose whole
// content is a single text fragment parsing as an unsigned integer is a
// variable speaker index; anything else is a named speaker line.
func speakerFromNodes(nodes []compiler.Node) *compiler.SpeakerSource {
	if len(nodes) == 1 {
		if tn, ok := nodes[0].(compiler.TextNode); ok {
			if n, err := strconv.ParseUint(strings.TrimSpace(string(tn.Bytes)), 0, 16); err == nil {
				return &compiler.SpeakerSource{VariableIndex: uint16(n)}
			}
		}
	}
	return &compiler.SpeakerSource{Named: true, Name: nodes}
}

func hasContent(nodes []compiler.Node) bool {
	for _, n := range nodes {
		switch v := n.(type) {
		case compiler.TagNode:
			return true
		case compiler.TextNode:
			if strings.TrimSpace(string(v.Bytes)) != "" {
				return true
			}
		}
	}
	return false
}

// parseIntLiteral accepts decimal or 0x-prefixed hex, optionally signed.
func parseIntLiteral(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	return int(n), err
}
