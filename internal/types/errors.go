package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDailyBudget     = errors.New("api call limit for day reached")
	ErrInvalidSettings = errors.New("invalid settings")

	ErrInvalidBackend = errors.New("invalid backend")
	ErrStoreAccess    = errors.New("document store read/write error")

	// ErrSlotOutOfRange rejects template slots outside 0-9 before any store access.
	ErrSlotOutOfRange = errors.New("slot out of bounds")

	ErrNotCaptain      = errors.New("cannot modify another team")
	ErrInvalidRoster   = errors.New("invalid team or captain")
	ErrFeatureDisabled = errors.New("feature disabled")
	ErrMultipleTeams   = errors.New("multiple team matches found")
)

// MemberTakenError identifies the roster member that failed exclusivity
// validation. The message is user-facing.
type MemberTakenError struct {
	Member string
}

func (e *MemberTakenError) Error() string {
	return fmt.Sprintf("user %s is already on a team", e.Member)
}

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
