package repository

import (
	"errors"
	"fmt"

	"github.com/okian/cuerank/internal/domain/errs"
)

// Sentinel errors. The first three carry an errs kind so callers can
// classify them without importing this package.
var (
	ErrNotFound            = fmt.Errorf("standing %w", errs.ErrNotFound)
	ErrInvalidLimit        = fmt.Errorf("standings limit: %w", errs.ErrInvalidArgument)
	ErrInvalidSnapshot     = fmt.Errorf("standings snapshot: %w", errs.ErrInvalidArgument)
	ErrDuplicateTournament = errors.New("tournament already recorded")
)
