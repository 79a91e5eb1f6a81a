package gov

import "errors"

// Caller-facing failures. The webserver maps these to HTTP statuses with
// errors.Is; everything else surfaces as a 500.
var (
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrNotAMember            = errors.New("not a member of this community")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrInvalidMetadata       = errors.New("invalid metadata")
	ErrDuplicateProposal     = errors.New("duplicate proposal")
	ErrAlreadyVoted          = errors.New("already voted")
	ErrProposalNotPending    = errors.New("proposal is not pending")
	ErrAllianceLimitExceeded = errors.New("alliance limit exceeded")
	ErrAllianceExists        = errors.New("alliance already exists for this pair")
	ErrTargetNotFound        = errors.New("target not found")
)
