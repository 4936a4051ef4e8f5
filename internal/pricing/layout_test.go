package pricing

import "testing"

func TestStorageLayoutIsCollisionFree(t *testing.T) {
	if err := ValidateStorageLayout(); err != nil {
		t.Fatalf("storage layout invalid: %v", err)
	}
	if got := len(StoragePrefixes()); got != 10 {
		t.Fatalf("expected 10 storage prefixes, got %d", got)
	}
}

func TestValidatePrefixesRejectsDuplicates(t *testing.T) {
	if err := validatePrefixes([]byte{'A', 'B', 'A'}); err == nil {
		t.Fatal("duplicate prefix must be rejected")
	}
}
