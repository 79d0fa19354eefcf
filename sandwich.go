package txpipe

import (
	"context"
	"fmt"

	"github.com/CosmWasm/txpipe/client"
	"github.com/CosmWasm/txpipe/types"
)

// The vote-conflict sandwich: some actions (withdrawing or relocking
// governance-weighted collateral) revert while the account holds active
// votes. Instead of making the user unvote, act and revote in three
// transactions, the action is wrapped in one atomic batch:
//
//	[remove_vote(t1) ... remove_vote(tN), action..., vote(t1) ... vote(tN)]
//
// Removal settles before the governed state changes and the re-votes restore
// the exact prior targets afterwards, enforced by batch position within a
// single transaction.

// userVotesQuery is the smart query asking the voting contract for an
// account's active votes.
type userVotesQuery struct {
	UserVotes struct {
		User types.HumanAddress `json:"user"`
	} `json:"user_votes"`
}

// QueryVoteState fetches the account's vote state from the voting contract.
func QueryVoteState(ctx context.Context, querier client.QueryClient, chainID string, votingContract, account types.HumanAddress) (types.VoteState, error) {
	var query userVotesQuery
	query.UserVotes.User = account

	var state types.VoteState
	if err := querier.SmartQuery(ctx, chainID, votingContract, query, &state); err != nil {
		return types.VoteState{}, fmt.Errorf("query vote state: %w", err)
	}
	return state, nil
}

// WrapWithVotes sandwiches base between vote-removal and re-vote messages for
// every target in state, in matching per-target order. A vote-free state
// returns base unchanged.
//
// The wrapper is idempotent: a batch that already begins with a removal
// message is returned as-is rather than double-wrapped.
func WrapWithVotes(base types.MessageBatch, state types.VoteState, sender, votingContract types.HumanAddress) (types.MessageBatch, error) {
	if base.Empty() || !state.HasVotes() {
		return base, nil
	}
	if alreadyWrapped(base) {
		return base, nil
	}

	wrapped := make(types.Array[types.ChainMessage], 0, len(base.Messages)+2*len(state.Targets))

	for _, target := range state.Targets {
		msg, err := types.NewRemoveVoteMsg(sender, votingContract, target)
		if err != nil {
			return types.MessageBatch{}, err
		}
		wrapped = append(wrapped, msg)
	}
	wrapped = append(wrapped, base.Messages...)
	for _, target := range state.Targets {
		msg, err := types.NewVoteMsg(sender, votingContract, target)
		if err != nil {
			return types.MessageBatch{}, err
		}
		wrapped = append(wrapped, msg)
	}

	return types.MessageBatch{ChainID: base.ChainID, Messages: wrapped}, nil
}

func alreadyWrapped(batch types.MessageBatch) bool {
	for _, msg := range batch.Messages {
		if msg.Kind == types.KindRemoveVote || msg.Kind == types.KindVote {
			return true
		}
	}
	return false
}
