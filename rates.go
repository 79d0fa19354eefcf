package txpipe

import (
	"fmt"
	"math/big"
)

// Rates are decimal strings end to end, same as coin amounts: portable across
// chains and safe from float drift in message content. Arithmetic happens
// only at comparison time.

func parseRate(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("rate %q is not a decimal", s)
	}
	return r, nil
}

// rateExceedsBy reports whether reference > base + margin. Malformed inputs
// report false: a candidate with an unreadable rate is silently ineligible,
// never an error.
func rateExceedsBy(reference, base, margin string) bool {
	ref, err := parseRate(reference)
	if err != nil {
		return false
	}
	b, err := parseRate(base)
	if err != nil {
		return false
	}
	m, err := parseRate(margin)
	if err != nil {
		return false
	}
	return ref.Cmp(new(big.Rat).Add(b, m)) > 0
}

// rateBelow reports whether value < target, with the same silent-false
// handling of malformed inputs.
func rateBelow(value, target string) bool {
	v, err := parseRate(value)
	if err != nil {
		return false
	}
	t, err := parseRate(target)
	if err != nil {
		return false
	}
	return v.Cmp(t) < 0
}
