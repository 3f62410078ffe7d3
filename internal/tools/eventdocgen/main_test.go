package main

import (
	"flag"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindModuleRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	got, err := findModuleRoot(nested)
	if err != nil {
		t.Fatalf("findModuleRoot returned error: %v", err)
	}
	if got != root {
		t.Fatalf("expected root %s, got %s", root, got)
	}
}

func TestFindModuleRootMissing(t *testing.T) {
	root := t.TempDir()
	if _, err := findModuleRoot(root); err == nil {
		t.Fatal("expected error when go.mod is missing")
	}
}

func TestParsePackage(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "pkg")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatalf("mkdir pkg: %v", err)
	}
	src := strings.Join([]string{
		"package sample",
		"",
		"import \"example.com/event\"",
		"",
		"type Type string",
		"",
		"const (",
		"\tTypeFoo Type = \"foo\"",
		"\tTypeBar event.Type = \"bar\"",
		"\tTypeIgnored string = \"ignored\"",
		")",
		"",
		"type FooPayload struct {",
		"\tID string `json:\"id\"`",
		"\tName string",
		"}",
		"",
		"type Ignored struct {",
		"\tValue string",
		"}",
	}, "\n")
	if err := os.WriteFile(filepath.Join(pkgDir, "sample.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write sample.go: %v", err)
	}

	defs, err := parsePackage(pkgDir, root)
	if err != nil {
		t.Fatalf("parsePackage returned error: %v", err)
	}
	if len(defs.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(defs.Events))
	}
	payload, ok := defs.Payloads["FooPayload"]
	if !ok {
		t.Fatal("expected FooPayload in payloads")
	}
	if len(payload.Fields) != 2 {
		t.Fatalf("expected 2 payload fields, got %d", len(payload.Fields))
	}
	if payload.Fields[0].JSONTag != "json:\"id\"" {
		t.Fatalf("expected json tag on first field, got %s", payload.Fields[0].JSONTag)
	}
	if _, ok := defs.Payloads["Ignored"]; ok {
		t.Fatal("expected Ignored struct to be skipped")
	}
}

func TestPayloadNameForEvent(t *testing.T) {
	if got := payloadNameForEvent("TypeCellPlaced"); got != "CellPlacedPayload" {
		t.Fatalf("unexpected payload name: %s", got)
	}
	if got := payloadNameForEvent("TypeSnapshotCreated"); got != "SnapshotRegisteredPayload" {
		t.Fatalf("unexpected shared payload name: %s", got)
	}
	if got := payloadNameForEvent("TypeSnapshotComposed"); got != "SnapshotRegisteredPayload" {
		t.Fatalf("unexpected shared payload name: %s", got)
	}
	if got := payloadNameForEvent("NotAnEvent"); got != "" {
		t.Fatalf("expected empty payload name, got %s", got)
	}
}

func TestRenderCatalog(t *testing.T) {
	defs := packageDefs{
		Events: []eventDef{
			{
				Name:      "TypeCellPlaced",
				Value:     "canvas.cell_placed",
				DefinedAt: "internal/event.go:10",
			},
			{
				Name:      "TypeTreasuryWithdrawn",
				Value:     "treasury.withdrawn",
				DefinedAt: "internal/event.go:11",
			},
		},
		Payloads: map[string]payloadDef{
			"CellPlacedPayload": {
				Name:      "CellPlacedPayload",
				DefinedAt: "internal/event.go:20",
				Fields: []payloadField{
					{Name: "Index", Type: "int", JSONTag: "json:\"index\""},
					{Name: "Actor", Type: "string", JSONTag: "json:\"actor\""},
				},
			},
			"TreasuryWithdrawnPayload": {
				Name:      "TreasuryWithdrawnPayload",
				DefinedAt: "internal/event.go:30",
			},
			"UnusedPayload": {
				Name:      "UnusedPayload",
				DefinedAt: "internal/event.go:40",
			},
		},
	}
	emitters := map[string][]string{
		"TypeCellPlaced": {"internal/ledger.go:12"},
	}
	output := renderCatalog(defs, emitters)
	checks := []string{
		"# Journal Catalog",
		"## Canvas Journal Entries",
		"### `canvas.cell_placed` (`TypeCellPlaced`)",
		"- Payload: `CellPlacedPayload` (`internal/event.go:20`)",
		"  - `Index (json:\"index\")`: `int`",
		"- Emitters:",
		"  - `internal/ledger.go:12`",
		"### `treasury.withdrawn` (`TypeTreasuryWithdrawn`)",
		"- Payload: `TreasuryWithdrawnPayload` (`internal/event.go:30`)",
		"### Unmapped Payloads",
		"`UnusedPayload`",
	}
	for _, check := range checks {
		if !strings.Contains(output, check) {
			t.Fatalf("expected output to contain %q", check)
		}
	}
}

func TestRenderCatalogNoPayload(t *testing.T) {
	defs := packageDefs{
		Events: []eventDef{{
			Name:      "TypeOrphan",
			Value:     "orphan",
			DefinedAt: "foo.go:1",
		}},
		Payloads: map[string]payloadDef{},
	}
	output := renderCatalog(defs, nil)
	if !strings.Contains(output, "Payload: not found") {
		t.Error("expected 'Payload: not found' for event without matching payload")
	}
}

func TestRenderCatalogEmptyPackage(t *testing.T) {
	defs := packageDefs{Events: nil, Payloads: map[string]payloadDef{}}
	output := renderCatalog(defs, nil)
	if strings.Contains(output, "## ") {
		t.Error("expected no section header for empty package")
	}
}

func TestScanEmitters(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "emitters")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir emitters: %v", err)
	}
	src := strings.Join([]string{
		"package sample",
		"",
		"import \"example.com/event\"",
		"",
		"func emit() {",
		"\t_ = event.Entry{Type: event.TypeFoo}",
		"\t_ = event.Entry{Type: TypeBar}",
		"}",
	}, "\n")
	path := filepath.Join(dir, "emit.go")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write emit.go: %v", err)
	}

	emitters, err := scanEmitters(root, root)
	if err != nil {
		t.Fatalf("scanEmitters returned error: %v", err)
	}
	if len(emitters["TypeFoo"]) != 1 {
		t.Fatalf("expected one emitter for TypeFoo, got %d", len(emitters["TypeFoo"]))
	}
	if len(emitters["TypeBar"]) != 1 {
		t.Fatalf("expected one emitter for TypeBar, got %d", len(emitters["TypeBar"]))
	}
	if !strings.HasPrefix(emitters["TypeFoo"][0], "emitters/emit.go:") {
		t.Fatalf("unexpected emitter path: %s", emitters["TypeFoo"][0])
	}
}

func TestFormatPosition(t *testing.T) {
	pos := formatPosition(token.Position{Filename: "/root/pkg/file.go", Line: 12}, "/root")
	if pos != "pkg/file.go:12" {
		t.Fatalf("expected formatted position, got %s", pos)
	}
}

func TestSelectValueExpr(t *testing.T) {
	a := &ast.BasicLit{Kind: token.STRING, Value: `"a"`}
	b := &ast.BasicLit{Kind: token.STRING, Value: `"b"`}

	t.Run("empty list", func(t *testing.T) {
		if got := selectValueExpr(nil, 0); got != nil {
			t.Error("expected nil for empty list")
		}
	})

	t.Run("single value any index", func(t *testing.T) {
		if got := selectValueExpr([]ast.Expr{a}, 5); got != a {
			t.Error("expected single value to always be returned")
		}
	})

	t.Run("multi value in range", func(t *testing.T) {
		if got := selectValueExpr([]ast.Expr{a, b}, 1); got != b {
			t.Error("expected second element")
		}
	})

	t.Run("multi value out of range", func(t *testing.T) {
		if got := selectValueExpr([]ast.Expr{a, b}, 5); got != nil {
			t.Error("expected nil for out-of-range index")
		}
	})
}

func TestEventNameFromExpr(t *testing.T) {
	t.Run("selector expr", func(t *testing.T) {
		e := &ast.SelectorExpr{
			X:   &ast.Ident{Name: "event"},
			Sel: &ast.Ident{Name: "TypeFoo"},
		}
		if got := eventNameFromExpr(e); got != "TypeFoo" {
			t.Errorf("got %q, want TypeFoo", got)
		}
	})

	t.Run("ident expr", func(t *testing.T) {
		e := &ast.Ident{Name: "TypeBar"}
		if got := eventNameFromExpr(e); got != "TypeBar" {
			t.Errorf("got %q, want TypeBar", got)
		}
	})

	t.Run("other expr", func(t *testing.T) {
		e := &ast.BasicLit{Kind: token.STRING, Value: `"literal"`}
		if got := eventNameFromExpr(e); got != "" {
			t.Errorf("got %q, want empty string", got)
		}
	})
}

func TestUnmappedPayloads(t *testing.T) {
	t.Run("nil payloads", func(t *testing.T) {
		if result := unmappedPayloads(nil, nil); result != nil {
			t.Error("expected nil for nil payloads")
		}
	})

	t.Run("all used", func(t *testing.T) {
		payloads := map[string]payloadDef{"A": {Name: "A"}}
		used := map[string]struct{}{"A": {}}
		if result := unmappedPayloads(payloads, used); len(result) != 0 {
			t.Errorf("expected 0 unmapped, got %d", len(result))
		}
	})

	t.Run("some unmapped", func(t *testing.T) {
		payloads := map[string]payloadDef{
			"A": {Name: "A"},
			"B": {Name: "B"},
			"C": {Name: "C"},
		}
		used := map[string]struct{}{"A": {}}
		result := unmappedPayloads(payloads, used)
		if len(result) != 2 {
			t.Fatalf("expected 2 unmapped, got %d", len(result))
		}
		if result[0].Name != "B" || result[1].Name != "C" {
			t.Errorf("expected [B, C], got [%s, %s]", result[0].Name, result[1].Name)
		}
	})
}

func TestMainGeneratesCatalog(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module github.com/louisbranch/pixelfield\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	eventDir := filepath.Join(root, "internal", "services", "canvas", "domain", "canvas", "event")
	if err := os.MkdirAll(eventDir, 0o755); err != nil {
		t.Fatalf("mkdir event dir: %v", err)
	}
	eventSrc := strings.Join([]string{
		"package event",
		"",
		"type Type string",
		"",
		"const (",
		"\tTypeCellPlaced Type = \"canvas.cell_placed\"",
		"\tTypeSnapshotCreated Type = \"snapshot.created\"",
		")",
		"",
		"type Entry struct {",
		"\tType Type",
		"}",
		"",
		"type CellPlacedPayload struct {",
		"\tIndex int `json:\"index\"`",
		"}",
		"",
		"type SnapshotRegisteredPayload struct {",
		"\tSnapshotID uint64 `json:\"snapshot_id\"`",
		"}",
	}, "\n")
	if err := os.WriteFile(filepath.Join(eventDir, "event.go"), []byte(eventSrc), 0o644); err != nil {
		t.Fatalf("write event file: %v", err)
	}

	domainDir := filepath.Join(root, "internal", "services", "canvas", "domain", "canvas")
	ledgerSrc := strings.Join([]string{
		"package canvas",
		"",
		"import \"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event\"",
		"",
		"func emit() {",
		"\t_ = event.Entry{Type: event.TypeCellPlaced}",
		"}",
	}, "\n")
	if err := os.WriteFile(filepath.Join(domainDir, "ledger.go"), []byte(ledgerSrc), 0o644); err != nil {
		t.Fatalf("write ledger file: %v", err)
	}

	catalogOut := "docs/events/generated-catalog.md"

	oldArgs := os.Args
	oldFlagSet := flag.CommandLine
	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldFlagSet
	}()

	flag.CommandLine = flag.NewFlagSet("eventdocgen-test", flag.ContinueOnError)
	os.Args = []string{
		"eventdocgen-test",
		"-root", root,
		"-out", catalogOut,
	}

	main()

	catalogData, err := os.ReadFile(filepath.Join(root, catalogOut))
	if err != nil {
		t.Fatalf("read generated catalog: %v", err)
	}
	checks := []string{
		"## Canvas Journal Entries",
		"### `canvas.cell_placed` (`TypeCellPlaced`)",
		"- Payload: `CellPlacedPayload`",
		"### `snapshot.created` (`TypeSnapshotCreated`)",
		"- Payload: `SnapshotRegisteredPayload`",
		"internal/services/canvas/domain/canvas/ledger.go:6",
	}
	for _, check := range checks {
		if !strings.Contains(string(catalogData), check) {
			t.Fatalf("catalog missing %q:\n%s", check, string(catalogData))
		}
	}
}
