package pricing

import "fmt"

// Storage prefixes of the on-chain contract, one byte each. Key spaces must
// never overlap, so the values have to stay pairwise distinct;
// ValidateStorageLayout guards that at startup and in tests.
const (
	PrefixBalance          byte = 'B'
	PrefixSupply           byte = 'S'
	PrefixTotalSupply      byte = 'T'
	PrefixAdmin            byte = 'A'
	PrefixPaused           byte = 'P'
	PrefixOracle           byte = 'O'
	PrefixMinter           byte = 'M'
	PrefixPrice            byte = 'Q'
	PrefixReserve          byte = 'R'
	PrefixOwnershipClaimed byte = 'C'
)

// StoragePrefixes lists every contract storage prefix.
func StoragePrefixes() []byte {
	return []byte{
		PrefixBalance,
		PrefixSupply,
		PrefixTotalSupply,
		PrefixAdmin,
		PrefixPaused,
		PrefixOracle,
		PrefixMinter,
		PrefixPrice,
		PrefixReserve,
		PrefixOwnershipClaimed,
	}
}

// ValidateStorageLayout verifies the prefixes are pairwise distinct.
func ValidateStorageLayout() error {
	return validatePrefixes(StoragePrefixes())
}

func validatePrefixes(prefixes []byte) error {
	seen := make(map[byte]bool, len(prefixes))
	for _, p := range prefixes {
		if seen[p] {
			return fmt.Errorf("storage prefix %q duplicated", p)
		}
		seen[p] = true
	}
	return nil
}
