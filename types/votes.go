package types

// VoteTarget is a single position the account currently votes for in the
// voting contract.
type VoteTarget struct {
	Target string `json:"target"`
	// Weight is a decimal string, e.g. "0.25" for 25%
	Weight string `json:"weight,omitempty"`
}

// VoteState is the per-account record of active votes against a voting
// contract. It is fetched lazily per batch-building attempt and invalidated
// after any broadcast that could change it.
type VoteState struct {
	Targets Array[VoteTarget] `json:"targets"`
}

// HasVotes reports whether the account holds any active votes.
func (v VoteState) HasVotes() bool {
	return len(v.Targets) > 0
}
