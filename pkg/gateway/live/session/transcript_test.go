package session

import (
	"reflect"
	"testing"
)

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name string
		in   []Turn
		want []Turn
	}{
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "merges adjacent same role without separator",
			in: []Turn{
				{Role: "user", Text: "I feel "},
				{Role: "user", Text: "stuck at work"},
				{Role: "assistant", Text: "Tell me "},
				{Role: "assistant", Text: "more about that."},
			},
			want: []Turn{
				{Role: "user", Text: "I feel stuck at work"},
				{Role: "assistant", Text: "Tell me more about that."},
			},
		},
		{
			name: "alternating roles stay separate",
			in: []Turn{
				{Role: "user", Text: "hi"},
				{Role: "assistant", Text: "hello"},
				{Role: "user", Text: "bye"},
			},
			want: []Turn{
				{Role: "user", Text: "hi"},
				{Role: "assistant", Text: "hello"},
				{Role: "user", Text: "bye"},
			},
		},
		{
			name: "drops whitespace-only fragments",
			in: []Turn{
				{Role: "user", Text: " "},
				{Role: "user", Text: "\n"},
				{Role: "assistant", Text: "real text"},
			},
			want: []Turn{
				{Role: "assistant", Text: "real text"},
			},
		},
		{
			name: "whitespace fragment does not split a speaker's turn",
			in: []Turn{
				{Role: "user", Text: "I feel stuck"},
				{Role: "assistant", Text: "  "},
				{Role: "user", Text: " at work"},
			},
			want: []Turn{
				{Role: "user", Text: "I feel stuck at work"},
			},
		},
		{
			name: "all whitespace collapses to nothing",
			in: []Turn{
				{Role: "user", Text: "  "},
				{Role: "assistant", Text: "\t"},
			},
			want: nil,
		},
		{
			name: "interleaved fragments regroup",
			in: []Turn{
				{Role: "assistant", Text: "How are "},
				{Role: "assistant", Text: "you today?"},
				{Role: "user", Text: "Good, "},
				{Role: "user", Text: "thanks."},
				{Role: "assistant", Text: "Glad to hear it."},
			},
			want: []Turn{
				{Role: "assistant", Text: "How are you today?"},
				{Role: "user", Text: "Good, thanks."},
				{Role: "assistant", Text: "Glad to hear it."},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consolidate(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Consolidate() = %v, want %v", got, tt.want)
			}
		})
	}
}
