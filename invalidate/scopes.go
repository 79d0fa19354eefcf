package invalidate

// Per-action invalidation sets. Scope is explicit and enumerated per action
// type, not a blanket "invalidate everything", so unrelated views do not
// thrash.

// ScopesForAction maps a pipeline action name to the read-views its
// settlement could have changed. Unknown actions fall back to balances only:
// every broadcast spends fees.
func ScopesForAction(action string) []Scope {
	if scopes, ok := actionScopes[action]; ok {
		return scopes
	}
	return []Scope{ScopeBalances}
}

var actionScopes = map[string][]Scope{
	"fulfill_intents":  {ScopeBalances, ScopeIntents, ScopePositions},
	"allocation_topup": {ScopeBalances, ScopePositions, ScopeTVL},
	"withdraw":         {ScopeBalances, ScopePositions, ScopeVotes, ScopeTVL},
	"extend_lock":      {ScopePositions, ScopeVotes},
	"claim":            {ScopeBalances, ScopeClaims},
	"vote":             {ScopeVotes},
}
