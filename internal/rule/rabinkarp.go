package rule

// Rabin–Karp rolling-hash substring pre-check used by StringContains
// filters, as specified in spec.md §4.3.  The radix and modulus are fixed so
// that needle_hash and difference_hash computed at parse time remain valid
// for the lifetime of the filter.
const (
	rkRadix          = 256
	rkPrime   uint64 = 72057594037927931
)

// NeedleHash computes the rolling hash of needle under the fixed radix and
// prime modulus.
func NeedleHash(needle string) uint64 {
	var h uint64
	for i := 0; i < len(needle); i++ {
		h = (h*rkRadix + uint64(needle[i])) % rkPrime
	}

	return h
}

// DifferenceHash computes radix^(needleLen-1) mod prime, the factor
// subtracted out of the rolling hash as the window advances by one byte.  It
// is defined as 0 for an empty needle, matching the fact that an empty
// needle never needs a subtraction term.
func DifferenceHash(needleLen int) uint64 {
	if needleLen <= 0 {
		return 0
	}

	h := uint64(1)
	for i := 0; i < needleLen-1; i++ {
		h = (h * rkRadix) % rkPrime
	}

	return h
}

// RabinKarpContains reports whether haystack contains needle as a substring,
// using the rolling hashes needleHash and diffHash precomputed by
// [NeedleHash] and [DifferenceHash] for needle.  It falls back to a
// byte-by-byte comparison whenever the rolling hash of the current window
// collides with needleHash, so the result is always exact regardless of hash
// collisions.
func RabinKarpContains(haystack, needle string, needleHash, diffHash uint64) bool {
	n, m := len(haystack), len(needle)
	if m == 0 {
		return true
	}

	if n < m {
		return false
	}

	var windowHash uint64
	for i := 0; i < m; i++ {
		windowHash = (windowHash*rkRadix + uint64(haystack[i])) % rkPrime
	}

	if windowHash == needleHash && haystack[:m] == needle {
		return true
	}

	for i := m; i < n; i++ {
		// Remove the leading byte's contribution, then add the new trailing
		// byte.  Adding rkPrime (rather than rkPrime*rkRadix) before
		// subtracting is enough to stay non-negative and keeps the
		// intermediate value well clear of the uint64 wraparound point.
		lead := (uint64(haystack[i-m]) * diffHash) % rkPrime
		windowHash = (windowHash + rkPrime - lead) % rkPrime
		windowHash = (windowHash*rkRadix + uint64(haystack[i])) % rkPrime

		if windowHash == needleHash && haystack[i-m+1:i+1] == needle {
			return true
		}
	}

	return false
}
