package domain

import "fmt"

// DefaultCollection is the namespace used when the caller supplies none.
const DefaultCollection = "documents"

const maxCollectionNameLen = 128

// ValidateCollectionName checks a caller-supplied collection name against
// the safe character set [A-Za-z0-9_-]. Collection names become storage
// partition names, so anything that could collide across partitions or
// escape the store directory is rejected. Leading underscores are reserved
// for internal partitions (the _kv key-value store).
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required: %w", ErrValidation)
	}
	if len(name) > maxCollectionNameLen {
		return fmt.Errorf("collection name too long (max %d): %w", maxCollectionNameLen, ErrValidation)
	}
	if name[0] == '_' {
		return fmt.Errorf("collection name %q must not start with an underscore: %w", name, ErrValidation)
	}
	for _, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != '-' {
			return fmt.Errorf("collection name %q contains invalid characters: %w", name, ErrValidation)
		}
	}
	return nil
}

// NormalizeCollection substitutes the default for an empty name. The result
// still needs ValidateCollectionName where user input reaches storage.
func NormalizeCollection(name string) string {
	if name == "" {
		return DefaultCollection
	}
	return name
}
