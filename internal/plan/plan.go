package plan

// Subscription tiers. Annual tiers share the monthly tier's limits; the
// difference is billing, which is out of this package's hands.
const (
	Free           = "free"
	Pro            = "pro"
	Business       = "business"
	ProAnnual      = "pro_annual"
	BusinessAnnual = "business_annual"
)

// Normalize maps an unknown or empty tier to free.
func Normalize(tier string) string {
	switch tier {
	case Free, Pro, Business, ProAnnual, BusinessAnnual:
		return tier
	default:
		return Free
	}
}

// Known reports whether tier is a recognized plan name.
func Known(tier string) bool {
	switch tier {
	case Free, Pro, Business, ProAnnual, BusinessAnnual:
		return true
	}
	return false
}

// MonthlyScanQuota returns how many scans the tier may start per calendar
// month.
func MonthlyScanQuota(tier string) int {
	switch Normalize(tier) {
	case Pro, ProAnnual:
		return 25
	case Business, BusinessAnnual:
		return 100
	default:
		return 3
	}
}

// StoreLimitPerScan returns how many stores a nearest-N scan may cover.
func StoreLimitPerScan(tier string) int {
	switch Normalize(tier) {
	case Pro, ProAnnual:
		return 5
	case Business, BusinessAnnual:
		return 15
	default:
		return 1
	}
}

// MaxMonthlyCost returns the soft operational spend ceiling in dollars for
// the tier. Informational only; nothing hard-fails on it.
func MaxMonthlyCost(tier string) float64 {
	switch Normalize(tier) {
	case Pro:
		return 19.99
	case ProAnnual:
		return 16.66
	case Business:
		return 79.99
	case BusinessAnnual:
		return 66.66
	default:
		return 0
	}
}
