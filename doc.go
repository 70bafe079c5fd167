// Package messagescript implements a decoder, encoder, compiler, and
// decompiler for the MessageScript binary dialogue-script format used by
// the engine this tool targets: a container of Dialogue and Selection
// windows, each holding one or more lines of bit-packed function/text
// tokens.
//
// The package supports:
//   - Decoding a binary container to an in-memory model.Script
//   - Encoding a model.Script back to binary
//   - Compiling human-readable tagged text to model.Script
//   - Decompiling model.Script back to tagged text
//
// Basic usage for decoding:
//
//	script, err := messagescript.Decode(data)
//
// Basic usage for encoding:
//
//	data, err := messagescript.Encode(script)
package messagescript
