// Command move2wasm is a one-shot batch compiler (SPEC_FULL.md §10): it
// reads a JSON description of one exported function's name, parameters,
// and any struct/enum declarations it references, calls move2wasm.Compile,
// and writes the resulting module to a .wasm file.
//
// Grounded on the teacher's cmd/run/main.go flag-parsing and
// error-reporting style; the teacher's interactive TUI mode has no
// counterpart here since this CLI's surface is a batch tool, not a
// long-lived runner.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	move2wasm "github.com/rather-labs/move-stylus-wasm"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/log"
	"go.uber.org/zap"
)

// fieldSpec mirrors irtype.Field in the input JSON.
type fieldSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// structSpec mirrors irtype.StructDecl in the input JSON.
type structSpec struct {
	Module     string      `json:"module"`
	Name       string      `json:"name"`
	TypeParams int         `json:"typeParams"`
	Fields     []fieldSpec `json:"fields"`
}

// variantSpec mirrors irtype.Variant in the input JSON.
type variantSpec struct {
	Name   string      `json:"name"`
	Fields []fieldSpec `json:"fields"`
}

// enumSpec mirrors irtype.EnumDecl in the input JSON.
type enumSpec struct {
	Module     string        `json:"module"`
	Name       string        `json:"name"`
	TypeParams int           `json:"typeParams"`
	Variants   []variantSpec `json:"variants"`
}

// paramSpec mirrors move2wasm.Param in the input JSON.
type paramSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// sigSpec is the top-level JSON document this command reads: a function
// signature plus every struct/enum declaration its parameter types (or
// their transitive fields) reference.
type sigSpec struct {
	Name    string       `json:"name"`
	Params  []paramSpec  `json:"params"`
	Structs []structSpec `json:"structs"`
	Enums   []enumSpec   `json:"enums"`
}

func main() {
	var (
		input   = flag.String("in", "", "Path to the JSON function signature")
		output  = flag.String("out", "", "Path to write the compiled .wasm module")
		verbose = flag.Bool("v", false, "Enable verbose (debug-level) logging")
	)
	flag.Parse()

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: move2wasm -in signature.json -out module.wasm")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: building logger: %v\n", err)
			os.Exit(1)
		}
		log.SetLogger(logger)
	}

	if err := run(*input, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inputPath, outputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}

	var spec sigSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return fmt.Errorf("parse %s: %w", inputPath, err)
	}

	sig, err := buildSignature(spec)
	if err != nil {
		return fmt.Errorf("build signature: %w", err)
	}

	log.L().Info("compiling function",
		zap.String("name", spec.Name),
		zap.Int("params", len(spec.Params)),
	)

	module, err := move2wasm.Compile(sig)
	if err != nil {
		return fmt.Errorf("compile %s: %w", spec.Name, err)
	}

	if err := os.WriteFile(outputPath, module, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outputPath, len(module))
	return nil
}

// buildSignature converts a parsed sigSpec into a move2wasm.Signature,
// resolving every field's type string into an irtype.Type.
func buildSignature(spec sigSpec) (move2wasm.Signature, error) {
	structDecls := make([]irtype.StructDecl, len(spec.Structs))
	for i, s := range spec.Structs {
		fields, err := resolveFields(s.Fields)
		if err != nil {
			return move2wasm.Signature{}, fmt.Errorf("struct %s::%s: %w", s.Module, s.Name, err)
		}
		structDecls[i] = irtype.StructDecl{
			Module:     s.Module,
			Name:       s.Name,
			TypeParams: s.TypeParams,
			Fields:     fields,
		}
	}

	enumDecls := make([]irtype.EnumDecl, len(spec.Enums))
	for i, e := range spec.Enums {
		variants := make([]irtype.Variant, len(e.Variants))
		for j, v := range e.Variants {
			fields, err := resolveFields(v.Fields)
			if err != nil {
				return move2wasm.Signature{}, fmt.Errorf("enum %s::%s variant %s: %w", e.Module, e.Name, v.Name, err)
			}
			variants[j] = irtype.Variant{Name: v.Name, Fields: fields}
		}
		enumDecls[i] = irtype.EnumDecl{
			Module:     e.Module,
			Name:       e.Name,
			TypeParams: e.TypeParams,
			Variants:   variants,
		}
	}

	params := make([]move2wasm.Param, len(spec.Params))
	for i, p := range spec.Params {
		t, err := parseType(p.Type)
		if err != nil {
			return move2wasm.Signature{}, fmt.Errorf("param %s: %w", p.Name, err)
		}
		params[i] = move2wasm.Param{Name: p.Name, Type: t}
	}

	return move2wasm.Signature{
		Name:        spec.Name,
		Params:      params,
		StructDecls: structDecls,
		EnumDecls:   enumDecls,
	}, nil
}

func resolveFields(fields []fieldSpec) ([]irtype.Field, error) {
	out := make([]irtype.Field, len(fields))
	for i, f := range fields {
		t, err := parseType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out[i] = irtype.Field{Name: f.Name, Type: t}
	}
	return out, nil
}

// parseType resolves one JSON type string into an irtype.Type. Primitive
// kinds are their bare name; "vector<T>" nests recursively;
// "struct:module::Name" and "enum:module::Name" name a non-generic struct
// or enum reference, the shape the front-end out of this repository's
// scope would otherwise resolve via its own symbol table. Any other string
// is rejected.
func parseType(s string) (irtype.Type, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "bool":
		return irtype.Bool(), nil
	case "u8":
		return irtype.U8(), nil
	case "u16":
		return irtype.U16(), nil
	case "u32":
		return irtype.U32(), nil
	case "u64":
		return irtype.U64(), nil
	case "u128":
		return irtype.U128(), nil
	case "u256":
		return irtype.U256(), nil
	case "address":
		return irtype.Address(), nil
	case "signer":
		return irtype.Signer(), nil
	case "bytes":
		return irtype.Bytes(), nil
	case "string":
		return irtype.Str(), nil
	}

	if strings.HasPrefix(s, "vector<") && strings.HasSuffix(s, ">") {
		inner := s[len("vector<") : len(s)-1]
		elem, err := parseType(inner)
		if err != nil {
			return irtype.Type{}, err
		}
		return irtype.Vector(elem), nil
	}

	if strings.HasPrefix(s, "struct:") {
		ref, err := parseStructRef(strings.TrimPrefix(s, "struct:"))
		if err != nil {
			return irtype.Type{}, err
		}
		return irtype.Struct(ref), nil
	}
	if strings.HasPrefix(s, "enum:") {
		ref, err := parseStructRef(strings.TrimPrefix(s, "enum:"))
		if err != nil {
			return irtype.Type{}, err
		}
		return irtype.Enum(ref), nil
	}

	return irtype.Type{}, fmt.Errorf("unrecognized type %q", s)
}

func parseStructRef(s string) (irtype.StructRef, error) {
	idx := strings.LastIndex(s, "::")
	if idx < 0 {
		return irtype.StructRef{}, fmt.Errorf("expected module::Name, got %q", s)
	}
	return irtype.StructRef{Module: s[:idx], Name: s[idx+2:]}, nil
}
