package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"legisdraft/api/internal/auth"
	"legisdraft/api/internal/legislation"
	"legisdraft/api/internal/workspace"
)

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.html")
	newPath := filepath.Join(dir, "new.html")
	if err := os.WriteFile(oldPath, []byte("<p>The quick fox</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newPath, []byte("<p>The slow fox</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"diff", oldPath, newPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("diff: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "<del") || !strings.Contains(got, "<ins") {
		t.Fatalf("expected ins/del markup, got %q", got)
	}
}

func TestDiffCommandMissingFile(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"diff", filepath.Join(t.TempDir(), "nope.html"), "also-nope.html"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("LEGIS_TOKEN_SECRET", "cli-secret")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "user-1", "--name", "Ada", "--role", "moderator"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	claims, err := auth.ParseToken([]byte("cli-secret"), strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Sub != "user-1" || claims.Name != "Ada" || claims.Role != "moderator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseCommand(t *testing.T) {
	state := workspace.State{Filtered: []legislation.CatalogItem{
		{Title: "A", Href: "https://example.test/a"},
		{Title: "B", Href: "https://example.test/b"},
	}}

	action, err := parseCommand("open 2", state)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if sel, ok := action.(workspace.ItemSelected); !ok || sel.Href != "https://example.test/b" {
		t.Fatalf("unexpected action %#v", action)
	}

	if _, err := parseCommand("open 3", state); err == nil {
		t.Fatal("expected out of range error")
	}
	if action, err := parseCommand("  search  tax ", state); err != nil || action != (workspace.SearchChanged{Term: "tax"}) {
		t.Fatalf("search: %#v %v", action, err)
	}
	if action, err := parseCommand(`type ""`, state); err != nil || action != (workspace.TypeFilterChanged{}) {
		t.Fatalf("type clear: %#v %v", action, err)
	}
	if action, err := parseCommand("", state); err != nil || action != nil {
		t.Fatalf("blank: %#v %v", action, err)
	}
	if _, err := parseCommand("quit", state); !errors.Is(err, errQuit) {
		t.Fatalf("quit: %v", err)
	}
	if _, err := parseCommand("frobnicate", state); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize(workspace.State{CatalogLoading: true}); got != "loading catalog..." {
		t.Fatalf("got %q", got)
	}
	if got := summarize(workspace.State{Err: "boom"}); got != "error: boom" {
		t.Fatalf("got %q", got)
	}
	list := summarize(workspace.State{
		Catalog:  make([]legislation.CatalogItem, 3),
		Filtered: []legislation.CatalogItem{{Title: "Tax Order", Type: "ukdsi", Year: 2024}},
	})
	if !strings.HasPrefix(list, "1 of 3 items") || !strings.Contains(list, "1. [ukdsi 2024] Tax Order") {
		t.Fatalf("got %q", list)
	}
}
