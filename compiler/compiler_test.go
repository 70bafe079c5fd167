package compiler

import (
	"errors"
	"testing"

	"github.com/Secre-C/Atlus-Script-Tools/diag"
	"github.com/Secre-C/Atlus-Script-Tools/library"
	"github.com/Secre-C/Atlus-Script-Tools/model"
)

func TestCompileLine_TextAndFunction(t *testing.T) {
	nodes := []Node{
		TextNode{Bytes: []byte("Hi ")},
		TagNode{Name: "f", IntLiterals: []int{1, 2, 5}},
	}
	line, err := CompileLine(nodes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(line.Tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(line.Tokens))
	}
	if line.Tokens[0].Kind != model.TokenText || string(line.Tokens[0].Text) != "Hi " {
		t.Fatalf("token 0 = %+v", line.Tokens[0])
	}
	ft := line.Tokens[1]
	if ft.Kind != model.TokenFunction || ft.TableIndex != 1 || ft.FunctionIndex != 2 || len(ft.Args) != 1 || ft.Args[0] != 5 {
		t.Fatalf("token 1 = %+v", ft)
	}
}

func TestCompileLine_StripsBareLineBreaks(t *testing.T) {
	nodes := []Node{
		TextNode{Bytes: []byte("\nHello\r\nworld")},
		TextNode{Bytes: []byte("\n")},
	}
	line, err := CompileLine(nodes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(line.Tokens) != 1 || string(line.Tokens[0].Text) != "Helloworld" {
		t.Fatalf("got %+v, want one TextToken(Helloworld)", line.Tokens)
	}
}

func TestCompileLine_ReservedTagsCaseInsensitive(t *testing.T) {
	nodes := []Node{TagNode{Name: "N"}, TagNode{Name: "X", IntLiterals: []int{1, 2}}}
	line, err := CompileLine(nodes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(line.Tokens) != 2 || line.Tokens[0].Kind != model.TokenNewLine || line.Tokens[1].Kind != model.TokenCodePoint {
		t.Fatalf("got %+v", line.Tokens)
	}
}

func TestCompileLine_EndOfLineStopsEarly(t *testing.T) {
	nodes := []Node{
		TextNode{Bytes: []byte("before")},
		TagNode{Name: "e"},
		TextNode{Bytes: []byte("after")},
	}
	line, err := CompileLine(nodes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(line.Tokens) != 1 || string(line.Tokens[0].Text) != "before" {
		t.Fatalf("got %+v, want only the text before [e]", line.Tokens)
	}
}

func TestCompileLine_UnknownTagReportsDiagnostic(t *testing.T) {
	var c diag.Collector
	nodes := []Node{TagNode{Name: "Bogus", Line: 3, Col: 4}}
	line, err := CompileLine(nodes, Options{Sink: &c})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(line.Tokens) != 0 {
		t.Fatalf("expected the unknown tag to be skipped, got %+v", line.Tokens)
	}
	if len(c.Diagnostics) != 1 || c.Diagnostics[0].Line != 3 {
		t.Fatalf("got diagnostics %+v", c.Diagnostics)
	}
}

func TestCompileLine_LibraryResolvesNamedTag(t *testing.T) {
	lib, err := library.Parse([]byte(`
name: test
tables:
  - index: 2
    functions:
      - name: Wait
        index: 3
        parameters:
          - name: frames
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodes := []Node{TagNode{Name: "Wait", IntLiterals: []int{10}}}
	line, err := CompileLine(nodes, Options{Library: lib})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ft := line.Tokens[0]
	if ft.TableIndex != 2 || ft.FunctionIndex != 3 || ft.Args[0] != 10 {
		t.Fatalf("got %+v", ft)
	}

	// The declared parameter list is the tag's required arity.
	nodes = []Node{TagNode{Name: "Wait", IntLiterals: []int{10, 20}}}
	if _, err := CompileLine(nodes, Options{Library: lib}); !errors.Is(err, ErrIntLiteralFormat) {
		t.Fatalf("got %v, want ErrIntLiteralFormat for wrong arity", err)
	}
}

func TestCompileLine_StrictRejectsOutOfRange(t *testing.T) {
	nodes := []Node{TagNode{Name: "f", IntLiterals: []int{99, 1}}}
	if _, err := CompileLine(nodes, Options{Strict: true}); !errors.Is(err, ErrArgOutOfRange) {
		t.Fatalf("got %v, want ErrArgOutOfRange", err)
	}
}

func TestCompileLine_WrongArity(t *testing.T) {
	nodes := []Node{TagNode{Name: "x", IntLiterals: []int{1}}}
	if _, err := CompileLine(nodes, Options{}); !errors.Is(err, ErrIntLiteralFormat) {
		t.Fatalf("got %v, want ErrIntLiteralFormat", err)
	}
}

func TestCompile_FullScript(t *testing.T) {
	src := ScriptSource{
		UserID: 1,
		Windows: []WindowSource{
			{Dialogue: &DialogueSource{
				Identifier: "GREETING",
				Speaker:    &SpeakerSource{Named: true, Name: []Node{TextNode{Bytes: []byte("Hero")}}},
				Lines:      [][]Node{{TextNode{Bytes: []byte("Hi")}}},
			}},
			{Selection: &SelectionSource{
				Identifier: "CHOICE",
				Options:    [][]Node{{TextNode{Bytes: []byte("Yes")}}, {TextNode{Bytes: []byte("No")}}},
			}},
		},
	}
	script, err := Compile(src, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(script.Windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(script.Windows))
	}
	if script.Windows[0].Speaker == nil || string(script.Windows[0].Speaker.Name.Tokens[0].Text) != "Hero" {
		t.Fatalf("speaker = %+v", script.Windows[0].Speaker)
	}
	if len(script.Windows[1].Lines) != 2 {
		t.Fatalf("got %d options, want 2", len(script.Windows[1].Lines))
	}
}
