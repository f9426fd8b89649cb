package plan

import "testing"

func TestUnknownTierDefaultsToFree(t *testing.T) {
	for _, tier := range []string{"", "platinum", "FREE", "pro-annual"} {
		if got := Normalize(tier); got != Free {
			t.Errorf("Normalize(%q) = %q, want free", tier, got)
		}
		if got := MonthlyScanQuota(tier); got != 3 {
			t.Errorf("MonthlyScanQuota(%q) = %d, want 3", tier, got)
		}
		if got := StoreLimitPerScan(tier); got != 1 {
			t.Errorf("StoreLimitPerScan(%q) = %d, want 1", tier, got)
		}
	}
}

func TestAnnualTiersMatchMonthlyLimits(t *testing.T) {
	if MonthlyScanQuota(Pro) != MonthlyScanQuota(ProAnnual) {
		t.Error("pro and pro_annual quotas differ")
	}
	if StoreLimitPerScan(Business) != StoreLimitPerScan(BusinessAnnual) {
		t.Error("business and business_annual store limits differ")
	}
}

func TestQuotaLadder(t *testing.T) {
	if !(MonthlyScanQuota(Free) < MonthlyScanQuota(Pro) && MonthlyScanQuota(Pro) < MonthlyScanQuota(Business)) {
		t.Error("scan quotas are not strictly increasing across tiers")
	}
	if !(StoreLimitPerScan(Free) < StoreLimitPerScan(Pro) && StoreLimitPerScan(Pro) < StoreLimitPerScan(Business)) {
		t.Error("store limits are not strictly increasing across tiers")
	}
}

func TestKnown(t *testing.T) {
	for _, tier := range []string{Free, Pro, Business, ProAnnual, BusinessAnnual} {
		if !Known(tier) {
			t.Errorf("Known(%q) = false", tier)
		}
	}
	if Known("gold") {
		t.Error("Known(gold) = true")
	}
}
