package messagescript

import (
	"fmt"

	"github.com/Secre-C/Atlus-Script-Tools/compiler"
	"github.com/Secre-C/Atlus-Script-Tools/decompiler"
	"github.com/Secre-C/Atlus-Script-Tools/diag"
	"github.com/Secre-C/Atlus-Script-Tools/internal/container"
	"github.com/Secre-C/Atlus-Script-Tools/internal/token"
	"github.com/Secre-C/Atlus-Script-Tools/lift"
	"github.com/Secre-C/Atlus-Script-Tools/model"
)

// Options configures the token-level behaviors the format leaves open:
// which byte represents a surface newline in the binary form, whether
// out-of-range values are rejected or silently narrowed, and an optional
// sink for trace diagnostics about preserved opaque fields.
type Options struct {
	NewLineByte byte
	Strict      bool
	Sink        diag.Sink
}

func (o Options) codec() *lift.Codec {
	return &lift.Codec{
		Token: token.Codec{NewLineByte: o.NewLineByte, Strict: o.Strict},
		Sink:  o.Sink,
	}
}

// Decode parses a complete MessageScript binary container into a
// model.Script.
func Decode(data []byte) (*model.Script, error) {
	return DecodeWithOptions(data, Options{})
}

// DecodeWithOptions is Decode with explicit token-codec behavior.
func DecodeWithOptions(data []byte, opts Options) (*model.Script, error) {
	rs, err := container.Read(data)
	if err != nil {
		return nil, fmt.Errorf("messagescript: decoding container: %w", err)
	}
	script, err := opts.codec().Raise(rs)
	if err != nil {
		return nil, fmt.Errorf("messagescript: raising raw script: %w", err)
	}
	return script, nil
}

// Encode serializes a model.Script into its binary container form.
func Encode(script *model.Script) ([]byte, error) {
	return EncodeWithOptions(script, Options{})
}

// EncodeWithOptions is Encode with explicit token-codec behavior.
func EncodeWithOptions(script *model.Script, opts Options) ([]byte, error) {
	rs, err := opts.codec().Lower(script)
	if err != nil {
		return nil, fmt.Errorf("messagescript: lowering script: %w", err)
	}
	data, err := container.Write(rs)
	if err != nil {
		return nil, fmt.Errorf("messagescript: encoding container: %w", err)
	}
	return data, nil
}

// Compile turns a parsed ScriptSource (produced by the frontend package or
// any equivalent parser) into a model.Script.
func Compile(src compiler.ScriptSource, opts compiler.Options) (*model.Script, error) {
	script, err := compiler.Compile(src, opts)
	if err != nil {
		return nil, fmt.Errorf("messagescript: compiling: %w", err)
	}
	return script, nil
}

// Decompile renders a model.Script as MessageScript's tagged text syntax.
func Decompile(script *model.Script, opts decompiler.Options) string {
	return decompiler.Decompile(script, opts)
}
