package core

import (
	"errors"
	"fmt"
)

var (
	// A packet's record table for the current frame region is exhausted.
	ErrPacketFull = errors.New("command packet is full")
	// The arena region cannot satisfy an allocation.
	ErrOutOfArenaSpace = errors.New("out of arena space")
	// A handle or compressed index is unknown to the resource registry.
	ErrResourceNotFound = errors.New("resource not found")
	// A region still being drained was reclaimed by the producer.
	ErrSwapWhileReading = errors.New("swap while reading")

	ErrInvalidAlignment   = errors.New("alignment must be a power of two")
	ErrPayloadHasPointers = errors.New("command payload contains pointers")
	ErrIndexOverflow      = errors.New("compressed index does not fit its sort key field")
	ErrRegistryFull       = errors.New("resource registry category is full")
	ErrInvalidCommand     = errors.New("command does not belong to this packet")
)

// FailurePolicy selects what happens when a command cannot be recorded or submitted.
type FailurePolicy uint8

const (
	// Log the failure and hand the error back to the caller, the command is dropped.
	FailurePolicyReport FailurePolicy = iota
	// Log the failure and panic with it. Meant for debug configurations.
	FailurePolicyPanic
)

func (p FailurePolicy) String() string {
	switch p {
	case FailurePolicyReport:
		return "report"
	case FailurePolicyPanic:
		return "panic"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", uint8(p))
	}
}

// ParseFailurePolicy reads the policy name used in the config file.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "report":
		return FailurePolicyReport, nil
	case "panic":
		return FailurePolicyPanic, nil
	default:
		return FailurePolicyReport, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Fail reports err through the logger and applies the policy. It always returns err
// so callers can write `return nil, policy.Fail(err)`.
func (p FailurePolicy) Fail(err error) error {
	LogError("%s", err)
	if p == FailurePolicyPanic {
		panic(err)
	}
	return err
}
