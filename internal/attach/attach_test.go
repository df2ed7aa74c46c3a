// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestExpand_TwoFilesInMarkerOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeTemp(t, dir, "first.txt", "alpha contents")
	second := writeTemp(t, dir, "second.txt", "beta contents")

	res := Expand("compare @" + first + " with @" + second + " please")

	if len(res.Problems) != 0 {
		t.Fatalf("Problems = %v, want none", res.Problems)
	}
	if len(res.Attached) != 2 {
		t.Fatalf("Attached = %d files, want 2", len(res.Attached))
	}
	if res.Attached[0].Path != first || res.Attached[1].Path != second {
		t.Errorf("attachment order = %v", res.Attached)
	}

	iAlpha := strings.Index(res.Expanded, "alpha contents")
	iBeta := strings.Index(res.Expanded, "beta contents")
	if iAlpha < 0 || iBeta < 0 {
		t.Fatalf("expanded prompt missing file contents: %q", res.Expanded)
	}
	if iAlpha > iBeta {
		t.Error("file contents not in marker order")
	}
	if strings.Contains(res.Expanded, "@"+first) || strings.Contains(res.Expanded, "@"+second) {
		t.Error("markers remain after expansion")
	}
	if !strings.Contains(res.Expanded, "--- FILE: first.txt ---") {
		t.Error("missing FILE delimiter for first.txt")
	}
	if !strings.Contains(res.Expanded, "--- END FILE ---") {
		t.Error("missing END FILE delimiter")
	}
}

func TestExpand_MissingFileLeavesMarker(t *testing.T) {
	res := Expand("see @/no/such/file.txt for details")

	if res.Expanded != "see @/no/such/file.txt for details" {
		t.Errorf("Expanded = %q, want prompt unchanged", res.Expanded)
	}
	if len(res.Problems) != 1 {
		t.Fatalf("Problems = %d, want 1", len(res.Problems))
	}
	if res.Problems[0].Kind != ErrNotFound {
		t.Errorf("Kind = %v, want ErrNotFound", res.Problems[0].Kind)
	}
}

// A reference inside inlined content must not be expanded: expansion is a
// single pass over the original prompt.
func TestExpand_SinglePass(t *testing.T) {
	dir := t.TempDir()
	inner := writeTemp(t, dir, "inner.txt", "inner payload")
	outer := writeTemp(t, dir, "outer.txt", "mentions @"+inner+" inline")

	res := Expand("read @" + outer)

	if len(res.Attached) != 1 {
		t.Fatalf("Attached = %d, want only the outer file", len(res.Attached))
	}
	if !strings.Contains(res.Expanded, "mentions @"+inner+" inline") {
		t.Error("inner reference should remain verbatim inside inlined content")
	}
	if strings.Contains(res.Expanded, "inner payload") {
		t.Error("inner file was expanded; expansion must be single pass")
	}
}

func TestExpand_OversizeRefused(t *testing.T) {
	dir := t.TempDir()
	big := writeTemp(t, dir, "big.bin", strings.Repeat("x", MaxFileSize+1))

	res := Expand("@" + big)

	if len(res.Attached) != 0 {
		t.Fatal("oversize file should not be attached")
	}
	if len(res.Problems) != 1 || res.Problems[0].Kind != ErrTooLarge {
		t.Errorf("Problems = %v, want one ErrTooLarge", res.Problems)
	}
	if !strings.Contains(res.Expanded, "@"+big) {
		t.Error("marker should remain for refused file")
	}
}

func TestExpand_NoMarkers(t *testing.T) {
	res := Expand("plain prompt, nothing attached")
	if res.Expanded != "plain prompt, nothing attached" {
		t.Errorf("Expanded = %q, want unchanged", res.Expanded)
	}
	if len(res.Attached) != 0 || len(res.Problems) != 0 {
		t.Error("no attachments or problems expected")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandHome("~/notes.txt"); got != filepath.Join(home, "notes.txt") {
		t.Errorf("ExpandHome(~/notes.txt) = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandHome(/abs/path) = %q", got)
	}
	if got := ExpandHome("~"); got != home {
		t.Errorf("ExpandHome(~) = %q", got)
	}
}

func TestCompletePath(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "report.md", "x")
	if err := os.Mkdir(filepath.Join(dir, "reports"), 0755); err != nil {
		t.Fatal(err)
	}

	got := CompletePath(filepath.Join(dir, "rep"))
	if len(got) != 2 {
		t.Fatalf("CompletePath = %v, want 2 entries", got)
	}
	if got[0] != filepath.Join(dir, "report.md") {
		t.Errorf("first completion = %q", got[0])
	}
	if got[1] != filepath.Join(dir, "reports")+"/" {
		t.Errorf("directory completion = %q, want trailing slash", got[1])
	}
}
