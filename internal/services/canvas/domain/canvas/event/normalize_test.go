package event

import "testing"

func TestNormalizeDraft(t *testing.T) {
	tests := []struct {
		name      string
		input     Entry
		wantErr   bool
		assertion func(t *testing.T, entry Entry)
	}{
		{
			name: "defaults empty payload",
			input: Entry{
				Type:        TypeCellPlaced,
				Actor:       "painter-1",
				PayloadJSON: nil,
			},
			wantErr: false,
			assertion: func(t *testing.T, entry Entry) {
				if string(entry.PayloadJSON) != "{}" {
					t.Fatalf("PayloadJSON = %s, want {}", string(entry.PayloadJSON))
				}
			},
		},
		{
			name: "trims actor and request id",
			input: Entry{
				Type:        TypeCellPlaced,
				Actor:       "  painter-1  ",
				RequestID:   " req-9 ",
				PayloadJSON: []byte("{}"),
			},
			wantErr: false,
			assertion: func(t *testing.T, entry Entry) {
				if entry.Actor != "painter-1" {
					t.Fatalf("Actor = %q, want %q", entry.Actor, "painter-1")
				}
				if entry.RequestID != "req-9" {
					t.Fatalf("RequestID = %q, want %q", entry.RequestID, "req-9")
				}
			},
		},
		{
			name: "rejects missing actor",
			input: Entry{
				Type:        TypeCellPlaced,
				Actor:       "  ",
				PayloadJSON: []byte("{}"),
			},
			wantErr: true,
		},
		{
			name: "rejects invalid payload json",
			input: Entry{
				Type:        TypeCellPlaced,
				Actor:       "painter-1",
				PayloadJSON: []byte("{"),
			},
			wantErr: true,
		},
		{
			name: "rejects preset sequence",
			input: Entry{
				Type:        TypeCellPlaced,
				Actor:       "painter-1",
				Seq:         7,
				PayloadJSON: []byte("{}"),
			},
			wantErr: true,
		},
		{
			name: "rejects preset hash",
			input: Entry{
				Type:        TypeCellPlaced,
				Actor:       "painter-1",
				Hash:        "hash",
				PayloadJSON: []byte("{}"),
			},
			wantErr: true,
		},
		{
			name: "rejects preset chain hashes",
			input: Entry{
				Type:        TypeCellPlaced,
				Actor:       "painter-1",
				PrevHash:    "prev",
				PayloadJSON: []byte("{}"),
			},
			wantErr: true,
		},
		{
			name:    "rejects empty entry type",
			input:   Entry{Type: Type("  "), Actor: "painter-1", PayloadJSON: []byte("{}")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, err := NormalizeDraft(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.assertion != nil {
				tt.assertion(t, normalized)
			}
		})
	}
}
