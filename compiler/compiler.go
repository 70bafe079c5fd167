// Package compiler turns an already-produced parse tree into model types.
// It is deliberately decoupled from any particular text grammar or parser
// runtime: it consumes the Node interface below, never a grammar, lexer,
// or source string. The frontend
// package is one producer of that tree; anything else that can build a
// []Node can reuse this package unchanged.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Secre-C/Atlus-Script-Tools/diag"
	"github.com/Secre-C/Atlus-Script-Tools/library"
	"github.com/Secre-C/Atlus-Script-Tools/model"
)

// Node is the parse-tree interface the compiler consumes: either a TagNode
// (a bracketed directive, e.g. "[f 1 2 5]") or a TextNode (a run of literal
// text between tags).
type Node interface {
	node()
}

// TagNode is one bracketed directive: a name, its integer literal
// arguments, and (rarely meaningful to this package) nested children.
// Line and Col are 1-based source positions, used only for diagnostics;
// zero means unknown.
type TagNode struct {
	Name        string
	IntLiterals []int
	Children    []Node
	Line, Col   int
}

func (TagNode) node() {}

// TextNode is a run of literal text between tags.
type TextNode struct {
	Bytes     []byte
	Line, Col int
}

func (TextNode) node() {}

// Errors raised by Compile/CompileLine.
var (
	ErrUnknownTag       = errors.New("compiler: unknown tag")
	ErrIntLiteralFormat = errors.New("compiler: tag has the wrong number of integer literals")
	ErrArgOutOfRange    = errors.New("compiler: integer literal out of range for its field")
)

// Options configures a Compiler.
type Options struct {
	// Library resolves non-reserved tag names to (table_index,
	// function_index) pairs. Nil means every non-reserved tag is
	// unresolvable and reported via Sink as UnknownTag.
	Library *library.Library

	// Strict rejects integer literals that don't fit their target field
	// (table_index 0-7, function_index 0-31, argument int16) with
	// ErrArgOutOfRange instead of narrowing them silently.
	Strict bool

	// Sink receives non-fatal diagnostics (unknown tags). Literals narrowed
	// in non-strict mode are not reported. Nil discards them.
	Sink diag.Sink
}

func (o Options) report(d diag.Diagnostic) {
	if o.Sink != nil {
		o.Sink.Report(d)
	}
}

// CompileLine turns one line's worth of parse nodes into a model.Line. An
// "e" (end-of-line) tag stops processing immediately, discarding any
// remaining nodes — it exists for front ends that always emit a trailing
// end marker rather than relying on slice boundaries.
func CompileLine(nodes []Node, opts Options) (model.Line, error) {
	var line model.Line
	for _, n := range nodes {
		switch v := n.(type) {
		case TextNode:
			text := stripLineBreaks(v.Bytes)
			if len(text) == 0 {
				continue
			}
			line.Tokens = append(line.Tokens, model.NewTextToken(text))

		case TagNode:
			name := strings.ToLower(v.Name)
			if name == "e" {
				return line, nil
			}
			tok, err := compileTag(v, name, opts)
			if err != nil {
				if errors.Is(err, ErrUnknownTag) {
					opts.report(diag.Diagnostic{
						Severity: diag.SeverityWarning,
						Message:  fmt.Sprintf("unknown tag %q", v.Name),
						Line:     v.Line,
						Col:      v.Col,
					})
					continue
				}
				return model.Line{}, err
			}
			line.Tokens = append(line.Tokens, tok)

		default:
			return model.Line{}, fmt.Errorf("compiler: unrecognized node type %T", n)
		}
	}
	return line, nil
}

// compileTag handles one tag. name is v.Name lowercased: the four reserved
// tags (f, n, e, x) match case-insensitively, while library lookups use
// v.Name verbatim because library names are case-sensitive.
func compileTag(v TagNode, name string, opts Options) (model.Token, error) {
	switch name {
	case "n":
		return model.NewNewLineToken(), nil

	case "x":
		if len(v.IntLiterals) != 2 {
			return model.Token{}, fmt.Errorf("%w: [x] wants 2 integers (high, low), got %d at %d:%d",
				ErrIntLiteralFormat, len(v.IntLiterals), v.Line, v.Col)
		}
		high, low, err := narrowByte2(v.IntLiterals[0], v.IntLiterals[1], opts.Strict, v)
		if err != nil {
			return model.Token{}, err
		}
		return model.NewCodePointToken(high, low), nil

	case "f":
		if len(v.IntLiterals) < 2 {
			return model.Token{}, fmt.Errorf("%w: [f] wants at least 2 integers (table, function), got %d at %d:%d",
				ErrIntLiteralFormat, len(v.IntLiterals), v.Line, v.Col)
		}
		return compileFunctionTag(v.IntLiterals[0], v.IntLiterals[1], v.IntLiterals[2:], opts.Strict, v)

	default:
		if opts.Library == nil {
			return model.Token{}, ErrUnknownTag
		}
		tableIndex, functionIndex, paramCount, ok := opts.Library.Resolve(v.Name)
		if !ok {
			return model.Token{}, ErrUnknownTag
		}
		if len(v.IntLiterals) != paramCount {
			return model.Token{}, fmt.Errorf("%w: [%s] wants %d arguments, got %d at %d:%d",
				ErrIntLiteralFormat, v.Name, paramCount, len(v.IntLiterals), v.Line, v.Col)
		}
		return compileFunctionTag(int(tableIndex), int(functionIndex), v.IntLiterals, opts.Strict, v)
	}
}

func compileFunctionTag(tableIndex, functionIndex int, rawArgs []int, strict bool, v TagNode) (model.Token, error) {
	if strict && (tableIndex < 0 || tableIndex > 7) {
		return model.Token{}, fmt.Errorf("%w: table_index %d at %d:%d", ErrArgOutOfRange, tableIndex, v.Line, v.Col)
	}
	if strict && (functionIndex < 0 || functionIndex > 31) {
		return model.Token{}, fmt.Errorf("%w: function_index %d at %d:%d", ErrArgOutOfRange, functionIndex, v.Line, v.Col)
	}
	if strict && len(rawArgs) > 14 {
		return model.Token{}, fmt.Errorf("%w: %d arguments at %d:%d", ErrArgOutOfRange, len(rawArgs), v.Line, v.Col)
	}

	args := make([]int16, len(rawArgs))
	for i, a := range rawArgs {
		if strict && (a < -32768 || a > 32767) {
			return model.Token{}, fmt.Errorf("%w: argument %d value %d at %d:%d", ErrArgOutOfRange, i, a, v.Line, v.Col)
		}
		args[i] = int16(a)
	}
	return model.NewFunctionToken(uint8(tableIndex), uint8(functionIndex), args), nil
}

// stripLineBreaks removes bare carriage returns and newlines from a free
// text fragment: source line breaks are formatting, not content — only
// [n] produces an in-window break. The slice is returned
// untouched when it carries no line breaks.
func stripLineBreaks(b []byte) []byte {
	clean := true
	for _, c := range b {
		if c == '\r' || c == '\n' {
			clean = false
			break
		}
	}
	if clean {
		return b
	}
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != '\r' && c != '\n' {
			out = append(out, c)
		}
	}
	return out
}

func narrowByte2(hi, lo int, strict bool, v TagNode) (byte, byte, error) {
	if strict && (hi < 0 || hi > 255 || lo < 0 || lo > 255) {
		return 0, 0, fmt.Errorf("%w: [x] values %d,%d at %d:%d", ErrArgOutOfRange, hi, lo, v.Line, v.Col)
	}
	return byte(hi), byte(lo), nil
}

// DialogueSource and SelectionSource describe one window's worth of
// structure above the line level: the identifier, optional speaker, and
// one parse-tree line per Line/option. Building this is ordinary
// application logic (the frontend walks its own AST into these), not part
// of the decoupled tag grammar — only the per-line token tags need a
// pluggable parse tree.
type DialogueSource struct {
	Identifier string
	Speaker    *SpeakerSource
	Lines      [][]Node
}

// SpeakerSource mirrors model.Speaker before compilation.
type SpeakerSource struct {
	Named         bool
	Name          []Node
	VariableIndex uint16
}

// SelectionSource mirrors a Selection window before compilation.
type SelectionSource struct {
	Identifier      string
	SelectionFields [3]int16
	Options         [][]Node
}

// ScriptSource is the full document: an ordered list of dialogue and
// selection windows, represented as a closed sum in source order.
type ScriptSource struct {
	UserID  int16
	Format  model.FormatVersion
	Windows []WindowSource
}

// WindowSource is the closed sum of DialogueSource and SelectionSource.
type WindowSource struct {
	Dialogue  *DialogueSource
	Selection *SelectionSource
}

// Compile turns a ScriptSource into a model.Script, compiling every line
// through CompileLine. It collects diagnostics via opts.Sink but only
// returns an error for failures CompileLine itself cannot recover from
// (malformed tag arity, strict-mode range violations).
func Compile(src ScriptSource, opts Options) (*model.Script, error) {
	script := &model.Script{UserID: src.UserID, Format: src.Format}

	for wi, ws := range src.Windows {
		switch {
		case ws.Dialogue != nil:
			w, err := compileDialogue(*ws.Dialogue, opts)
			if err != nil {
				return nil, fmt.Errorf("compiler: window %d: %w", wi, err)
			}
			script.Windows = append(script.Windows, w)

		case ws.Selection != nil:
			w, err := compileSelection(*ws.Selection, opts)
			if err != nil {
				return nil, fmt.Errorf("compiler: window %d: %w", wi, err)
			}
			script.Windows = append(script.Windows, w)

		default:
			return nil, fmt.Errorf("compiler: window %d: neither dialogue nor selection set", wi)
		}
	}
	return script, nil
}

func compileDialogue(src DialogueSource, opts Options) (model.Window, error) {
	w := model.Window{Kind: model.WindowDialogue, Identifier: src.Identifier}

	if src.Speaker != nil {
		if src.Speaker.Named {
			name, err := CompileLine(src.Speaker.Name, opts)
			if err != nil {
				return model.Window{}, fmt.Errorf("speaker name: %w", err)
			}
			w.Speaker = &model.Speaker{Kind: model.SpeakerNamed, Name: name}
		} else {
			w.Speaker = &model.Speaker{Kind: model.SpeakerVariableIndex, VariableIndex: src.Speaker.VariableIndex}
		}
	}

	for li, nodes := range src.Lines {
		line, err := CompileLine(nodes, opts)
		if err != nil {
			return model.Window{}, fmt.Errorf("line %d: %w", li, err)
		}
		w.Lines = append(w.Lines, line)
	}
	return w, nil
}

func compileSelection(src SelectionSource, opts Options) (model.Window, error) {
	w := model.Window{
		Kind:            model.WindowSelection,
		Identifier:      src.Identifier,
		SelectionFields: src.SelectionFields,
	}
	for oi, nodes := range src.Options {
		line, err := CompileLine(nodes, opts)
		if err != nil {
			return model.Window{}, fmt.Errorf("option %d: %w", oi, err)
		}
		w.Lines = append(w.Lines, line)
	}
	return w, nil
}
