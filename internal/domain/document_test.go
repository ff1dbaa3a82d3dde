package domain

import (
	"errors"
	"testing"
)

func TestMetadataValidate(t *testing.T) {
	tests := []struct {
		name    string
		meta    Metadata
		wantErr bool
	}{
		{"nil", nil, false},
		{"empty", Metadata{}, false},
		{"plain keys", Metadata{"source": "a.txt", "team": "docs"}, false},
		{"empty key", Metadata{"": "x"}, true},
		{"reserved prefix", Metadata{"__text": "x"}, true},
		{"single underscore ok", Metadata{"_internal": "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.Validate()
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMetadataClone(t *testing.T) {
	if Metadata(nil).Clone() != nil {
		t.Error("nil clone must stay nil")
	}

	orig := Metadata{"k": "v"}
	clone := orig.Clone()
	clone["k"] = "changed"
	clone["new"] = "x"
	if orig["k"] != "v" || len(orig) != 1 {
		t.Errorf("clone aliases original: %v", orig)
	}
}

func TestMetadataMatches(t *testing.T) {
	m := Metadata{"lang": "en", "team": "docs"}

	tests := []struct {
		name   string
		filter Metadata
		want   bool
	}{
		{"empty filter", nil, true},
		{"subset match", Metadata{"lang": "en"}, true},
		{"full match", Metadata{"lang": "en", "team": "docs"}, true},
		{"value mismatch", Metadata{"lang": "de"}, false},
		{"missing key", Metadata{"absent": "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(tt.filter); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if !Metadata(nil).Matches(nil) {
		t.Error("nil metadata must match an empty filter")
	}
	if Metadata(nil).Matches(Metadata{"k": "v"}) {
		t.Error("nil metadata must not match a non-empty filter")
	}
}
