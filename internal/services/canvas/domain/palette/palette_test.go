package palette

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPalette(t *testing.T) {
	p := Default()

	if len(p) != 32 {
		t.Fatalf("len(Default()) = %d, want 32", len(p))
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got, want := p[0], (Color{0xff, 0xff, 0xff, 0xff}); got != want {
		t.Errorf("unplaced color = %+v, want white", got)
	}
}

func TestDefaultReturnsCopy(t *testing.T) {
	p := Default()
	p[0] = Color{0x00, 0x00, 0x00, 0xff}

	if got := Default()[0]; got != (Color{0xff, 0xff, 0xff, 0xff}) {
		t.Fatalf("mutating a returned palette changed the default: %+v", got)
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Color
		ok    bool
	}{
		{"opaque", "#181425", Color{0x18, 0x14, 0x25, 0xff}, true},
		{"uppercase", "#FFAA00", Color{0xff, 0xaa, 0x00, 0xff}, true},
		{"with alpha", "#12345678", Color{0x12, 0x34, 0x56, 0x78}, true},
		{"missing hash", "181425", Color{}, false},
		{"short", "#fff", Color{}, false},
		{"seven digits", "#1814257", Color{}, false},
		{"non-hex digit", "#18142g", Color{}, false},
		{"empty", "", Color{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseHex(tc.input)
			if tc.ok && err != nil {
				t.Fatalf("ParseHex(%q) error = %v", tc.input, err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("ParseHex(%q) succeeded, want error", tc.input)
				}
				return
			}
			if got != tc.want {
				t.Errorf("ParseHex(%q) = %+v, want %+v", tc.input, got, tc.want)
			}
		})
	}
}

func TestColorHex(t *testing.T) {
	if got := (Color{0x18, 0x14, 0x25, 0xff}).Hex(); got != "#181425" {
		t.Errorf("opaque Hex() = %q, want %q", got, "#181425")
	}
	if got := (Color{0x12, 0x34, 0x56, 0x78}).Hex(); got != "#12345678" {
		t.Errorf("translucent Hex() = %q, want %q", got, "#12345678")
	}
}

func TestParseHexRoundTrip(t *testing.T) {
	for i, c := range Default() {
		parsed, err := ParseHex(c.Hex())
		if err != nil {
			t.Fatalf("ParseHex(%q) error = %v", c.Hex(), err)
		}
		if parsed != c {
			t.Errorf("color %d: round trip %+v != %+v", i, parsed, c)
		}
	}
}

func TestParseFile(t *testing.T) {
	doc := []byte("colors:\n  - \"#ffffff\"\n  - \"#181425\"\n  - \"#e43b44\"\n")

	p, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(p) != 3 {
		t.Fatalf("len(p) = %d, want 3", len(p))
	}
	if p[2] != (Color{0xe4, 0x3b, 0x44, 0xff}) {
		t.Errorf("p[2] = %+v, want #e43b44", p[2])
	}
}

func TestParseFileErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid yaml", "colors: [unclosed"},
		{"no colors", "colors: []"},
		{"empty document", ""},
		{"bad color", "colors:\n  - \"#ffffff\"\n  - \"nope\"\n"},
		{"single color", "colors:\n  - \"#ffffff\"\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tc.doc)
			}
		})
	}
}

func TestParseFileReportsColorIndex(t *testing.T) {
	_, err := Parse([]byte("colors:\n  - \"#ffffff\"\n  - \"bad\"\n"))
	if err == nil {
		t.Fatal("Parse succeeded, want error")
	}
	if !strings.Contains(err.Error(), "color 1") {
		t.Errorf("error %q does not name the failing index", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yml")
	doc := "colors:\n  - \"#ffffff\"\n  - \"#0099db\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(p) != 2 {
		t.Fatalf("len(p) = %d, want 2", len(p))
	}
	if p[1] != (Color{0x00, 0x99, 0xdb, 0xff}) {
		t.Errorf("p[1] = %+v, want #0099db", p[1])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("Load of a missing file succeeded, want error")
	}
}
