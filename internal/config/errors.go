package config

import (
	"fmt"

	"github.com/okian/cuerank/internal/domain/errs"
)

// Both errors carry the configuration kind, so startup failures classify
// the same way as a broken tier table.
var (
	ErrInvalidConfig = fmt.Errorf("invalid config: %w", errs.ErrConfiguration)
	ErrLoadConfig    = fmt.Errorf("load config: %w", errs.ErrConfiguration)
)
