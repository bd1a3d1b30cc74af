package recommend

import (
	"time"

	"github.com/okian/cuerank/internal/domain/errs"
)

// WeightsVersion identifies DefaultWeights.
const WeightsVersion = "v1"

// Weights are the constants of the priority score. Every term has a bounded
// contribution except table capacity.
type Weights struct {
	Version string `koanf:"version" json:"version"`

	OwnershipBonus int `koanf:"ownership_bonus" json:"ownership_bonus"`

	// Payment contributes MonthlyPayment / PaymentDivisor, capped.
	PaymentDivisor int `koanf:"payment_divisor" json:"payment_divisor"`
	PaymentCap     int `koanf:"payment_cap" json:"payment_cap"`

	// Distance contributes DistanceMax - km, floored at zero.
	DistanceMax float64 `koanf:"distance_max" json:"distance_max"`

	PointsPerTable int     `koanf:"points_per_table" json:"points_per_table"`
	RatingFactor   float64 `koanf:"rating_factor" json:"rating_factor"`
	RatingMax      float64 `koanf:"rating_max" json:"rating_max"`

	PrizeDivisor int `koanf:"prize_divisor" json:"prize_divisor"`
	PrizeCap     int `koanf:"prize_cap" json:"prize_cap"`

	// SweetSpotBonus applies when current/max participants is within
	// [SweetSpotLow, SweetSpotHigh].
	SweetSpotBonus int     `koanf:"sweet_spot_bonus" json:"sweet_spot_bonus"`
	SweetSpotLow   float64 `koanf:"sweet_spot_low" json:"sweet_spot_low"`
	SweetSpotHigh  float64 `koanf:"sweet_spot_high" json:"sweet_spot_high"`

	RegistrationBonus  int           `koanf:"registration_bonus" json:"registration_bonus"`
	RegistrationWindow time.Duration `koanf:"registration_window" json:"registration_window"`
}

// DefaultWeights returns the v1 weights.
func DefaultWeights() Weights {
	return Weights{
		Version:            WeightsVersion,
		OwnershipBonus:     1000,
		PaymentDivisor:     10,
		PaymentCap:         500,
		DistanceMax:        100,
		PointsPerTable:     2,
		RatingFactor:       20,
		RatingMax:          5,
		PrizeDivisor:       10,
		PrizeCap:           200,
		SweetSpotBonus:     50,
		SweetSpotLow:       0.3,
		SweetSpotHigh:      0.8,
		RegistrationBonus:  30,
		RegistrationWindow: 7 * 24 * time.Hour,
	}
}

// Validate rejects weights that break the scoring contract. The ownership
// bonus must exceed the best a non-owned venue can collect from payment,
// distance and rating together.
func (w Weights) Validate() error {
	const op = "recommend.weights"
	fail := func(format string, args ...any) error {
		return errs.Newf(op, errs.ErrConfiguration, format, args...)
	}
	if w.Version == "" {
		return fail("weights version is required")
	}
	for name, v := range map[string]float64{
		"ownership_bonus":     float64(w.OwnershipBonus),
		"payment_cap":         float64(w.PaymentCap),
		"distance_max":        w.DistanceMax,
		"points_per_table":    float64(w.PointsPerTable),
		"rating_factor":       w.RatingFactor,
		"prize_cap":           float64(w.PrizeCap),
		"sweet_spot_bonus":    float64(w.SweetSpotBonus),
		"registration_bonus":  float64(w.RegistrationBonus),
		"registration_window": float64(w.RegistrationWindow),
	} {
		if v < 0 {
			return fail("%s must not be negative", name)
		}
	}
	if w.PaymentDivisor <= 0 || w.PrizeDivisor <= 0 {
		return fail("divisors must be positive")
	}
	if w.RatingMax <= 0 {
		return fail("rating_max must be positive")
	}
	if w.SweetSpotLow < 0 || w.SweetSpotLow > w.SweetSpotHigh || w.SweetSpotHigh > 1 {
		return fail("sweet spot [%v, %v] must lie within [0, 1]", w.SweetSpotLow, w.SweetSpotHigh)
	}
	others := float64(w.PaymentCap) + w.DistanceMax + w.RatingFactor*w.RatingMax
	if float64(w.OwnershipBonus) <= others {
		return fail("ownership_bonus %d must exceed %.0f", w.OwnershipBonus, others)
	}
	return nil
}
