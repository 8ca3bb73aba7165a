package transfer

import (
	"reflect"
	"testing"
)

func TestIsAppendSuccess(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{name: "append completed", response: "OK APPEND completed", want: true},
		{name: "success token", response: "OK (Success)", want: true},
		{name: "case insensitive", response: "APPEND COMPLETED", want: true},
		{name: "unrelated", response: "NO disk quota exceeded", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAppendSuccess(tt.response); got != tt.want {
				t.Errorf("IsAppendSuccess(%q) = %v, want %v", tt.response, got, tt.want)
			}
		})
	}
}

func TestFilterFlags(t *testing.T) {
	denied := map[string]bool{`\recent`: true, `\seen`: true}
	flags := []string{`\Seen`, `\Flagged`, `\Recent`}

	got := filterFlags(flags, denied)
	want := []string{`\Flagged`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterFlags() = %v, want %v", got, want)
	}
}

func TestLongestLine(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{name: "single short line", payload: "hello", want: 5},
		{name: "multi line", payload: "short\na much longer line here\nmid", want: len("a much longer line here")},
		{name: "empty", payload: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := longestLine([]byte(tt.payload)); got != tt.want {
				t.Errorf("longestLine(%q) = %d, want %d", tt.payload, got, tt.want)
			}
		})
	}
}
