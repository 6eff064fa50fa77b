package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveInputsFromArgs(t *testing.T) {
	t.Setenv("DWARFREC_ELF", "")

	elf, types, err := resolveInputs([]string{"game.elf", "cEnemy", "cItem"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elf != "game.elf" {
		t.Errorf("expected game.elf, got %q", elf)
	}
	if len(types) != 2 || types[0] != "cEnemy" || types[1] != "cItem" {
		t.Errorf("unexpected type args: %v", types)
	}
}

func TestResolveInputsFromEnvironment(t *testing.T) {
	t.Setenv("DWARFREC_ELF", "/data/game.elf")

	elf, types, err := resolveInputs([]string{"cEnemy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elf != "/data/game.elf" {
		t.Errorf("expected env path, got %q", elf)
	}
	if len(types) != 1 || types[0] != "cEnemy" {
		t.Errorf("every argument must stay a type name, got %v", types)
	}
}

func TestResolveInputsMissingBinary(t *testing.T) {
	t.Setenv("DWARFREC_ELF", "")

	if _, _, err := resolveInputs(nil); err == nil {
		t.Fatal("expected an error without a path or DWARFREC_ELF")
	}
}

func TestCollectSymbolsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.txt")
	content := "cEnemy\n# comment\n\ncItem\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	generateSymbolsFile = path
	defer func() { generateSymbolsFile = "" }()

	symbols, err := collectSymbols([]string{"cStage"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"cStage", "cEnemy", "cItem"}
	if len(symbols) != len(want) {
		t.Fatalf("expected %v, got %v", want, symbols)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbol %d: expected %s, got %s", i, want[i], symbols[i])
		}
	}
}
