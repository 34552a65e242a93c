package domain

import "errors"

// ErrNoActiveBaby is returned by record mutations when the active-id
// reference is empty or dangling. Read paths never return it; an unresolved
// reference simply renders as "no active baby".
var ErrNoActiveBaby = errors.New("no active baby")

// ErrNotOwner is returned when a non-owner attempts to change a baby's
// sharing list. The rejection is surfaced to the user and leaves state
// unchanged.
var ErrNotOwner = errors.New("only the owner may share this baby")
