package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCollectionName(t *testing.T) {
	valid := []string{"documents", "my-collection", "snake_case", "UPPER", "abc123"}
	for _, name := range valid {
		if err := ValidateCollectionName(name); err != nil {
			t.Errorf("%q: %v", name, err)
		}
	}

	// Leading underscores are reserved for internal store partitions, so
	// "_kv" can never be claimed as a caller collection.
	invalid := []string{"", "has spaces", "slash/name", "dot.name", "../escape",
		"_kv", "_private", strings.Repeat("a", 129)}
	for _, name := range invalid {
		if err := ValidateCollectionName(name); !errors.Is(err, ErrValidation) {
			t.Errorf("%q: got %v, want ErrValidation", name, err)
		}
	}
}

func TestNormalizeCollection(t *testing.T) {
	if got := NormalizeCollection(""); got != DefaultCollection {
		t.Errorf("empty: got %q", got)
	}
	if got := NormalizeCollection("custom"); got != "custom" {
		t.Errorf("named: got %q", got)
	}
}
