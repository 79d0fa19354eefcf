package types

// GasInfo reports the gas context of a dry-run.
type GasInfo struct {
	// GasWanted is the maximum units of work the transaction may perform.
	GasWanted uint64 `json:"gas_wanted,string"`
	// GasUsed is the amount of gas the dry-run actually consumed.
	GasUsed uint64 `json:"gas_used,string"`
}

// Fee is what must be attached to a broadcast: the buffered gas limit and the
// amount derived from it. The buffered values, not the raw dry-run estimate,
// are authoritative.
type Fee struct {
	// Gas is ceil(dry-run gas x per-chain buffer).
	Gas uint64 `json:"gas,string"`
	// Amount is ceil(Gas x per-chain gas price) in the chain's fee denom.
	Amount Coin `json:"amount"`
}

// SimulationSuccess carries the outcome of a passing dry-run.
type SimulationSuccess struct {
	Gas GasInfo `json:"gas"`
	Fee Fee     `json:"fee"`
}

// SimulationResult is the outcome of a dry-run: either a success carrying the
// gas estimate and derived fee, or a failure carrying the chain-reported
// reason verbatim. Exactly one of the fields is set.
type SimulationResult struct {
	Ok  *SimulationSuccess `json:"ok,omitempty"`
	Err string             `json:"error,omitempty"`
}

// Passed reports whether the dry-run succeeded. Only a passing result makes
// the batch eligible for broadcast.
func (r SimulationResult) Passed() bool {
	return r.Ok != nil
}

// BroadcastResult identifies a settled transaction.
type BroadcastResult struct {
	TxHash string `json:"tx_hash"`
	Height int64  `json:"height,string,omitempty"`
	RawLog string `json:"raw_log,omitempty"`
}
