package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/pdlgen/gen"
	"github.com/wippyai/pdlgen/interp"
	"github.com/wippyai/pdlgen/schema"
)

func main() {
	var (
		schemaFile  = flag.String("schema", "", "Path to schema snapshot file")
		packetName  = flag.String("packet", "", "Declaration to generate (default: all)")
		decodeHex   = flag.String("decode", "", "Hex bytes to decode against -packet")
		list        = flag.Bool("list", false, "List declarations and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *schemaFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: pdlgen -schema <file.yaml> [-packet name] [-decode hex]")
		fmt.Fprintln(os.Stderr, "       pdlgen -schema <file.yaml> -list")
		fmt.Fprintln(os.Stderr, "       pdlgen -schema <file.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*schemaFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*schemaFile, *packetName, *decodeHex, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(schemaFile, packetName, decodeHex string, listOnly bool) error {
	f, err := os.Open(schemaFile)
	if err != nil {
		return fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()

	scope, err := schema.Load(f)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	decls := scope.Decls()
	fmt.Printf("Schema: %s\n", schemaFile)
	fmt.Printf("Declarations: %d\n", len(decls))

	if listOnly {
		fmt.Println()
		for _, d := range decls {
			fmt.Printf("  %-8s %s%s\n", d.Kind, d.ID, declSummary(d))
		}
		return nil
	}

	if decodeHex != "" {
		if packetName == "" {
			return fmt.Errorf("-decode needs -packet")
		}
		data, err := hex.DecodeString(strings.ReplaceAll(decodeHex, " ", ""))
		if err != nil {
			return fmt.Errorf("decode hex: %w", err)
		}
		rt := interp.New(scope)
		values, err := rt.Decode(packetName, data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", packetName, err)
		}
		fmt.Printf("\nDecoded %s (%d bytes):\n", packetName, len(data))
		for field, value := range values {
			fmt.Printf("  %s = %v\n", field, value)
		}
		return nil
	}

	g := gen.NewGenerator(scope)
	if packetName != "" {
		ops, err := g.Generate(packetName)
		if err != nil {
			return fmt.Errorf("generate %s: %w", packetName, err)
		}
		printOps(ops)
		return nil
	}

	all, err := g.GenerateAll()
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	for _, ops := range all {
		printOps(ops)
	}
	return nil
}

func printOps(ops *gen.PacketOps) {
	fmt.Printf("\n%s\n", ops.Packet)
	fmt.Printf("  decode:\n")
	for _, op := range ops.Decode {
		fmt.Printf("    %s\n", op)
	}
	fmt.Printf("  encode:\n")
	for _, op := range ops.Encode {
		fmt.Printf("    %s\n", op)
	}
}

func declSummary(d *schema.Decl) string {
	switch d.Kind {
	case schema.DeclEnum:
		return fmt.Sprintf(" (u%d, %d tags)", d.Width, len(d.Tags))
	default:
		s := fmt.Sprintf(" (%s, %d fields)", d.Endian, len(d.Fields))
		if d.Parent != "" {
			s += " : " + d.Parent
		}
		return s
	}
}
