package auction

// Config holds the tuning constants of the auction engine and the bidding
// advisor. Everything here is overridable through the app config so boundary
// behavior can be probed deterministically in tests.
type Config struct {
	// DefaultDurationHours is the bidding window used when a caller passes
	// zero, and the extension length for auctions that expire with no bids.
	DefaultDurationHours int `koanf:"default_duration_hours"`

	// NoBidIncreaseFactor raises start points on every no-bid extension.
	NoBidIncreaseFactor float64 `koanf:"no_bid_increase_factor"`

	// Win-rate clamp bounds for the advisor's probability estimate.
	WinRateFloor float64 `koanf:"win_rate_floor"`
	WinRateCeil  float64 `koanf:"win_rate_ceil"`

	// CrowdedPenalty shrinks the win-rate estimate once a user has more
	// standing bids than there are family members.
	CrowdedPenalty float64 `koanf:"crowded_penalty"`

	// UrgencyBoost grows the win-rate estimate when the auction closes
	// within UrgencyThresholdHours.
	UrgencyBoost          float64 `koanf:"urgency_boost"`
	UrgencyThresholdHours float64 `koanf:"urgency_threshold_hours"`

	// RushThresholdHours switches the advisor to an aggressive strategy.
	RushThresholdHours float64 `koanf:"rush_threshold_hours"`

	// Bid derivation multipliers.
	ConservativeFactor float64 `koanf:"conservative_factor"`
	AggressiveFactor   float64 `koanf:"aggressive_factor"`

	// EasyGoalRatio: goals within this fraction of current points are
	// considered nearly met, unlocking aggressive bidding.
	EasyGoalRatio float64 `koanf:"easy_goal_ratio"`

	// OverloadRatio: existing bids at this multiple of the per-person chore
	// estimate trigger the conservative strategy.
	OverloadRatio float64 `koanf:"overload_ratio"`

	// GoalWarningRatio: warn when the goal needs more than this fraction of
	// the week's available points.
	GoalWarningRatio float64 `koanf:"goal_warning_ratio"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		DefaultDurationHours:  48,
		NoBidIncreaseFactor:   1.10,
		WinRateFloor:          0.2,
		WinRateCeil:           0.8,
		CrowdedPenalty:        0.8,
		UrgencyBoost:          1.2,
		UrgencyThresholdHours: 12,
		RushThresholdHours:    6,
		ConservativeFactor:    0.8,
		AggressiveFactor:      1.2,
		EasyGoalRatio:         0.10,
		OverloadRatio:         1.5,
		GoalWarningRatio:      0.70,
	}
}
