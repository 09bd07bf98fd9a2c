package repository

import (
	"fmt"

	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = fmt.Errorf("record %w", apperrors.ErrNotFound)
	// ErrVersionConflict is returned when a conditional update lost a race.
	ErrVersionConflict = fmt.Errorf("ticket version %w", apperrors.ErrConflict)
)
