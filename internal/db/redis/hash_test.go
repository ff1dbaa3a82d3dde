package redis

import (
	"reflect"
	"testing"
)

func TestDedupeKeys(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"single", []string{"a"}, []string{"a"}},
		{"no duplicates", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		// SCAN can re-deliver a key across cursor batches.
		{"redelivered key", []string{"chunk:d:0", "chunk:d:1", "chunk:d:0"}, []string{"chunk:d:0", "chunk:d:1"}},
		{"keeps first-seen order", []string{"b", "a", "b", "a"}, []string{"b", "a"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := dedupeKeys(append([]string(nil), tc.in...))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
