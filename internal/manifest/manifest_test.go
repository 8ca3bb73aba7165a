package manifest

import (
	"reflect"
	"testing"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name string
		uids []uint32
		size int
		want [][]uint32
	}{
		{
			name: "exact multiple",
			uids: []uint32{1, 2, 3, 4},
			size: 2,
			want: [][]uint32{{1, 2}, {3, 4}},
		},
		{
			name: "remainder",
			uids: []uint32{1, 2, 3, 4, 5},
			size: 2,
			want: [][]uint32{{1, 2}, {3, 4}, {5}},
		},
		{
			name: "larger than input",
			uids: []uint32{1, 2},
			size: 50,
			want: [][]uint32{{1, 2}},
		},
		{
			name: "empty",
			uids: nil,
			size: 50,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Partition(tt.uids, tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Partition(%v, %d) = %v, want %v", tt.uids, tt.size, got, tt.want)
			}
		})
	}
}

func TestDecodeSubject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty subject", raw: "", want: "(no subject)"},
		{name: "plain subject", raw: "Hello there", want: "Hello there"},
		{name: "whitespace only", raw: "   ", want: "(no subject)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeSubject(tt.raw); got != tt.want {
				t.Errorf("DecodeSubject(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMessageID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"<abc123@mail.example.com>", "abc123@mail.example.com"},
		{"abc123@mail.example.com", "abc123@mail.example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MessageID(tt.raw); got != tt.want {
			t.Errorf("MessageID(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFolderHasFlag(t *testing.T) {
	f := NewFolder("Sent", []string{`\Sent`, `\Noselect`})

	if !f.HasFlag(`\Sent`) {
		t.Error("expected HasFlag(\\Sent) to be true")
	}
	if f.HasFlag(`\Trash`) {
		t.Error("expected HasFlag(\\Trash) to be false")
	}
}

func TestFolderMessageIDs(t *testing.T) {
	f := NewFolder("INBOX", nil)
	f.Meta[1] = MessageMeta{MessageID: "one@example.com"}
	f.Meta[2] = MessageMeta{MessageID: "two@example.com"}
	f.Meta[3] = MessageMeta{MessageID: ""}

	ids := f.MessageIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 message ids, got %d: %v", len(ids), ids)
	}
	if !ids["one@example.com"] || !ids["two@example.com"] {
		t.Errorf("missing expected message ids in %v", ids)
	}
}
