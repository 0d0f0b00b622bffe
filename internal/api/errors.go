package api

import (
	"errors"
	"log"
	"net/http"

	"SavingsDAO/internal/model"
)

type errorCode struct {
	err    error
	status int
	code   string
}

// Ordered: wrapped errors carry the first matching sentinel's code.
var errorCodes = []errorCode{
	{model.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
	{model.ErrInvalidAddress, http.StatusBadRequest, "INVALID_ADDRESS"},
	{model.ErrInvalidScope, http.StatusBadRequest, "INVALID_SCOPE"},
	{model.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{model.ErrAmountOverflow, http.StatusBadRequest, "AMOUNT_OVERFLOW"},
	{model.ErrInsufficientBalance, http.StatusConflict, "INSUFFICIENT_BALANCE"},
	{model.ErrMembershipLockViolation, http.StatusConflict, "MEMBERSHIP_LOCK_VIOLATION"},
	{model.ErrEmptyRecipientSet, http.StatusConflict, "EMPTY_RECIPIENT_SET"},
	{model.ErrTransferFailed, http.StatusPaymentRequired, "TRANSFER_FAILED"},
	{model.ErrNotAMember, http.StatusForbidden, "NOT_A_MEMBER"},
	{model.ErrAlreadyMember, http.StatusConflict, "ALREADY_MEMBER"},
	{model.ErrLockNotExpired, http.StatusConflict, "LOCK_NOT_EXPIRED"},
	{model.ErrAlreadyVoted, http.StatusConflict, "ALREADY_VOTED"},
	{model.ErrVotingEnded, http.StatusConflict, "VOTING_ENDED"},
	{model.ErrProposalNotActive, http.StatusConflict, "PROPOSAL_NOT_ACTIVE"},
	{model.ErrProposalNotAccepted, http.StatusConflict, "PROPOSAL_NOT_ACCEPTED"},
	{model.ErrProposalNotFound, http.StatusNotFound, "NOT_FOUND"},
	{model.ErrInvalidDuration, http.StatusBadRequest, "INVALID_DURATION"},
	{model.ErrAlreadyWithdrawn, http.StatusConflict, "ALREADY_WITHDRAWN"},
	{model.ErrExceedsMaximum, http.StatusConflict, "EXCEEDS_MAXIMUM"},
	{model.ErrNotWithdrawn, http.StatusConflict, "NOT_WITHDRAWN"},
}

// writeServiceError maps an operation error to its status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			WriteError(w, ec.status, ec.code, err.Error(), nil)
			return
		}
	}
	log.Printf("[ERROR] unmapped service error: %v", err)
	WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
}
