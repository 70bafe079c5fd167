// Command msgscript decodes, encodes, compiles, and decompiles
// MessageScript dialogue files from the command line.
//
// Usage:
//
//	msgscript decode [options] <input.bin>       binary → tagged text
//	msgscript encode [options] <input.txt>       tagged text → binary
//	msgscript compile [options] <input.txt>      alias for encode
//	msgscript decompile [options] <input.bin>    alias for decode
//	msgscript info <input.bin>                   display script metadata
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	messagescript "github.com/Secre-C/Atlus-Script-Tools"
	"github.com/Secre-C/Atlus-Script-Tools/compiler"
	"github.com/Secre-C/Atlus-Script-Tools/decompiler"
	"github.com/Secre-C/Atlus-Script-Tools/diag"
	"github.com/Secre-C/Atlus-Script-Tools/frontend"
	"github.com/Secre-C/Atlus-Script-Tools/library"
	"github.com/Secre-C/Atlus-Script-Tools/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "msgscript: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "msgscript",
		Short:         "Decode, encode, compile, and decompile MessageScript dialogue files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDecodeCmd(), newEncodeCmd(), newCompileCmd(), newDecompileCmd(), newInfoCmd())
	return root
}

var (
	flagOutput      string
	flagLibraryPath string
	flagStrict      bool
	flagOmitUnused  bool
	flagNewLineByte uint8
)

func addCommonFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&flagOutput, "output", "o", "", "output path (default: stdout)")
	fs.StringVarP(&flagLibraryPath, "library", "l", "", "path to a function-name library YAML file")
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <input.bin>",
		Short: "Decode a binary MessageScript container and print its tagged text form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(args[0])
		},
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().BoolVar(&flagOmitUnused, "omit-unused", false, "omit function tokens resolving to @Unused")
	cmd.Flags().Uint8Var(&flagNewLineByte, "newline-byte", 0, "binary byte rendered as [n] (0 = default 0x0A)")
	return cmd
}

// decompile is an alias of decode: both render binary to text.
func newDecompileCmd() *cobra.Command {
	cmd := newDecodeCmd()
	cmd.Use = "decompile <input.bin>"
	cmd.Short = "Alias for decode"
	return cmd
}

func newEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <input.txt>",
		Short: "Compile tagged text and write a binary MessageScript container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(args[0])
		},
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().BoolVar(&flagStrict, "strict", false, "reject out-of-range values instead of narrowing them")
	cmd.Flags().Uint8Var(&flagNewLineByte, "newline-byte", 0, "binary byte for [n] tokens (0 = default 0x0A)")
	return cmd
}

// compile is an alias of encode: both produce binary from text.
func newCompileCmd() *cobra.Command {
	cmd := newEncodeCmd()
	cmd.Use = "compile <input.txt>"
	cmd.Short = "Alias for encode"
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <input.bin>",
		Short: "Print format, user ID, and window counts for a MessageScript container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
}

func runDecode(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	script, err := messagescript.Decode(data)
	if err != nil {
		return err
	}

	opts := decompiler.Options{OmitUnused: flagOmitUnused, NewLineByte: flagNewLineByte}
	if lib, err := loadLibrary(); err != nil {
		return err
	} else {
		opts.Library = lib
	}

	return writeOutput([]byte(messagescript.Decompile(script, opts)))
}

func runEncode(path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	src, err := frontend.Parse(string(text))
	if err != nil {
		return err
	}

	lib, err := loadLibrary()
	if err != nil {
		return err
	}
	copts := compiler.Options{
		Library: lib,
		Strict:  flagStrict,
		Sink:    diag.NewStdLogger(),
	}

	script, err := messagescript.Compile(src, copts)
	if err != nil {
		return err
	}

	data, err := messagescript.EncodeWithOptions(script, messagescript.Options{
		NewLineByte: flagNewLineByte,
		Strict:      flagStrict,
	})
	if err != nil {
		return err
	}
	return writeOutput(data)
}

func runInfo(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	script, err := messagescript.Decode(data)
	if err != nil {
		return err
	}

	dialogues, selections := 0, 0
	for _, w := range script.Windows {
		if w.Kind == model.WindowSelection {
			selections++
		} else {
			dialogues++
		}
	}

	fmt.Printf("File:       %s\n", path)
	fmt.Printf("Format:     %s\n", script.Format)
	fmt.Printf("User ID:    %d\n", script.UserID)
	fmt.Printf("Windows:    %d (%d dialogue, %d selection)\n", len(script.Windows), dialogues, selections)
	return nil
}

func loadLibrary() (*library.Library, error) {
	if flagLibraryPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(flagLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("reading library: %w", err)
	}
	return library.Parse(data)
}

func writeOutput(data []byte) error {
	if flagOutput == "" || flagOutput == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(flagOutput, data, 0o644)
}
