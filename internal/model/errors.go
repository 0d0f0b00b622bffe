package model

import "errors"

// Ledger
var (
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrAmountOverflow          = errors.New("amount overflows balance")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrMembershipLockViolation = errors.New("members must keep one reserve unit locked")
	ErrEmptyRecipientSet       = errors.New("recipients hold no stable balance")
	ErrTransferFailed          = errors.New("token transfer failed")
)

// Governance
var (
	ErrNotAMember        = errors.New("not a DAO member")
	ErrAlreadyMember     = errors.New("already a DAO member")
	ErrLockNotExpired    = errors.New("membership lock has not expired")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrVotingEnded       = errors.New("voting period has ended")
	ErrProposalNotActive = errors.New("proposal is not active")
	ErrProposalNotFound  = errors.New("proposal not found")
	ErrInvalidDuration   = errors.New("invalid voting duration")
)

// Treasury
var (
	ErrProposalNotAccepted = errors.New("proposal not accepted")
	ErrAlreadyWithdrawn    = errors.New("already withdrawn")
	ErrExceedsMaximum      = errors.New("amount exceeds withdrawal maximum")
	ErrNotWithdrawn        = errors.New("nothing was withdrawn for this proposal")
)

var (
	ErrUnauthorized   = errors.New("caller is not the owner")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidScope   = errors.New("unknown regulation scope")
)
