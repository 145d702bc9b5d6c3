package rubric

import "errors"

// Sentinel kinds for collection.
var (
	ErrScoreCount    = errors.New("wrong number of scores")
	ErrUnknownMember = errors.New("score submitted for someone outside the group")
	ErrEmptyGroup    = errors.New("evaluator group has no members")
)
