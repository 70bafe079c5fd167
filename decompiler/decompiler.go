// Package decompiler renders a model.Script back into MessageScript's
// tagged text syntax, the inverse of compiler.Compile for the cases
// compiler.CompileLine itself covers. Like compiler, it never
// assumes a particular grammar runtime on the way back: it only ever
// produces a string.
package decompiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Secre-C/Atlus-Script-Tools/library"
	"github.com/Secre-C/Atlus-Script-Tools/model"
)

// UnusedTagName is the sentinel function name Library authors use to mark
// a function slot as unused filler. Options.OmitUnused skips emitting any
// function token that resolves to this name.
const UnusedTagName = "@Unused"

// Options configures a decompile pass.
type Options struct {
	// Library resolves (table_index, function_index) pairs back to tag
	// names. Nil means every function token falls back to the raw
	// "[f table function args...]" form.
	Library *library.Library

	// OmitUnused drops function tokens whose resolved name is
	// UnusedTagName instead of emitting them.
	OmitUnused bool

	// NewLineByte is the in-binary break byte rendered as [n] when it
	// appears inside a text token; decoded scripts carry breaks as plain
	// text bytes, and emitting [n] keeps a decompile/recompile cycle from
	// stripping them as source formatting. Zero means the codec default,
	// 0x0A.
	NewLineByte byte
}

func (o Options) newLineByte() byte {
	if o.NewLineByte == 0 {
		return 0x0A
	}
	return o.NewLineByte
}

// DecompileLine renders one Line's tokens as tagged text, without the
// trailing [e].
func DecompileLine(line model.Line, opts Options) string {
	var b strings.Builder
	for _, t := range line.Tokens {
		switch t.Kind {
		case model.TokenText:
			writeText(&b, t.Text, opts.newLineByte())
		case model.TokenNewLine:
			b.WriteString("[n]")
		case model.TokenCodePoint:
			fmt.Fprintf(&b, "[x 0x%02X 0x%02X]", t.CodePointHigh, t.CodePointLow)
		case model.TokenFunction:
			if s, skip := decompileFunction(t, opts); !skip {
				b.WriteString(s)
			}
		}
	}
	return b.String()
}

// writeText emits a text run, rendering the break byte as [n]. Lead bytes
// with the high bit set carry a second byte that is copied blindly, the
// same framing the binary decoder uses, so a break byte in that position
// stays literal.
func writeText(b *strings.Builder, text []byte, nl byte) {
	for i := 0; i < len(text); {
		c := text[i]
		if c == nl {
			b.WriteString("[n]")
			i++
			continue
		}
		if c&0x80 != 0 && i+1 < len(text) {
			b.WriteByte(c)
			b.WriteByte(text[i+1])
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
	}
}

func decompileFunction(t model.Token, opts Options) (string, bool) {
	var name string
	if opts.Library != nil {
		if n, ok := opts.Library.ResolveByIndex(t.TableIndex, t.FunctionIndex); ok {
			name = n
		}
	}
	if name == "" {
		return rawFunctionTag(t), false
	}
	if opts.OmitUnused && name == UnusedTagName {
		return "", true
	}
	if len(t.Args) == 0 {
		return fmt.Sprintf("[%s]", name), false
	}
	return fmt.Sprintf("[%s %s]", name, joinArgs(t.Args)), false
}

func rawFunctionTag(t model.Token) string {
	parts := []string{"f", strconv.Itoa(int(t.TableIndex)), strconv.Itoa(int(t.FunctionIndex))}
	for _, a := range t.Args {
		parts = append(parts, strconv.Itoa(int(a)))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func joinArgs(args []int16) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.Itoa(int(a))
	}
	return strings.Join(parts, " ")
}

// Decompile renders a full script: one "[dlg IDENTIFIER]" (with the
// speaker sub-block inline, when present) or "[sel IDENTIFIER]" header
// per window, then each line's tokens followed by [e], one line per
// source line. Selection windows with nonzero opaque fields carry them
// after the identifier so they survive a recompile.
func Decompile(script *model.Script, opts Options) string {
	var b strings.Builder
	for _, w := range script.Windows {
		switch w.Kind {
		case model.WindowDialogue:
			b.WriteString("[dlg ")
			b.WriteString(w.Identifier)
			if w.Speaker != nil {
				b.WriteString(" [")
				writeSpeaker(&b, *w.Speaker, opts)
				b.WriteByte(']')
			}
			b.WriteString("]\n")
		case model.WindowSelection:
			b.WriteString("[sel ")
			b.WriteString(w.Identifier)
			if w.SelectionFields != [3]int16{} {
				fmt.Fprintf(&b, " %d %d %d",
					w.SelectionFields[0], w.SelectionFields[1], w.SelectionFields[2])
			}
			b.WriteString("]\n")
		}
		for _, l := range w.Lines {
			b.WriteString(DecompileLine(l, opts))
			b.WriteString("[e]\n")
		}
	}
	return b.String()
}

func writeSpeaker(b *strings.Builder, s model.Speaker, opts Options) {
	if s.Kind == model.SpeakerVariableIndex {
		b.WriteString(strconv.Itoa(int(s.VariableIndex)))
		return
	}
	b.WriteString(DecompileLine(s.Name, opts))
}
