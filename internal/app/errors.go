package app

import "errors"

var (
	// ErrNoLedger indicates classification was requested without a ledger.
	ErrNoLedger = errors.New("no ledger configured")
	// ErrValidationGate indicates a dirty validation report halted the run.
	ErrValidationGate = errors.New("validation gate failed")
	// ErrNoCollaborators indicates distribution was requested with neither
	// a minter nor a sender configured.
	ErrNoCollaborators = errors.New("no distribution collaborators configured")
)
