// utils/eligibility.go
package utils

import (
	"fmt"
	"time"
)

// Donors must wait at least 8 weeks between whole blood donations.
const donationCooldownDays = 56

// EligibilityResult reports whether a donor may donate again and why.
type EligibilityResult struct {
	Eligible              bool   `json:"eligible"`
	Reason                string `json:"reason"`
	DaysSinceLastDonation *int   `json:"daysSinceLastDonation,omitempty"`
}

// CheckEligibility applies the donation cooldown to an ISO 8601 last
// donation date. An empty date means the donor has never donated.
func CheckEligibility(lastDonationDate string, now time.Time) EligibilityResult {
	if lastDonationDate == "" {
		return EligibilityResult{
			Eligible: true,
			Reason:   "No previous donation recorded",
		}
	}

	lastDonation, err := time.Parse(time.RFC3339, lastDonationDate)
	if err != nil {
		// Fall back to a plain date
		lastDonation, err = time.Parse("2006-01-02", lastDonationDate)
		if err != nil {
			return EligibilityResult{
				Eligible: false,
				Reason:   fmt.Sprintf("Could not parse last donation date %q", lastDonationDate),
			}
		}
	}

	daysSince := int(now.Sub(lastDonation).Hours() / 24)
	if daysSince >= donationCooldownDays {
		return EligibilityResult{
			Eligible:              true,
			Reason:                fmt.Sprintf("Last donation was %d days ago", daysSince),
			DaysSinceLastDonation: &daysSince,
		}
	}

	remaining := donationCooldownDays - daysSince
	return EligibilityResult{
		Eligible:              false,
		Reason:                fmt.Sprintf("Must wait %d more days (last donation was %d days ago)", remaining, daysSince),
		DaysSinceLastDonation: &daysSince,
	}
}
