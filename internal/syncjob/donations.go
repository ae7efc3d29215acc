// Copyright 2026 the Jidhr authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package syncjob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// donationStats aggregates one profile's giving history.
type donationStats struct {
	totalCents int64
	count      int
	lastDate   string
	lastCents  int64
}

// SyncDonations aggregates donations per accounting profile and patches the
// matching CRM contact (by primary email) with totals, count, and the most
// recent gift.
func (r *Runner) SyncDonations(ctx context.Context, dryRun bool) (Result, error) {
	result := Result{Job: "donations", DryRun: dryRun}

	profiles, err := r.accounting.AllProfiles(ctx)
	if err != nil {
		return result, err
	}
	donations, err := r.accounting.AllDonations(ctx)
	if err != nil {
		return result, err
	}

	stats := make(map[int]*donationStats)
	for _, donation := range donations {
		cents, err := parseAmountCents(donation.Amount)
		if err != nil {
			result.Skipped++
			continue
		}
		entry := stats[donation.ProfileID]
		if entry == nil {
			entry = &donationStats{}
			stats[donation.ProfileID] = entry
		}
		entry.totalCents += cents
		entry.count++
		if donation.Date >= entry.lastDate {
			entry.lastDate = donation.Date
			entry.lastCents = cents
		}
	}

	for _, profile := range profiles {
		entry, ok := stats[profile.ProfileID]
		if !ok || profile.PrimaryEmail == "" {
			result.Skipped++
			continue
		}
		result.Matched++
		if dryRun {
			continue
		}
		properties := map[string]string{
			"amcf_total_donations":      formatCents(entry.totalCents),
			"amcf_donation_count":       strconv.Itoa(entry.count),
			"amcf_last_donation_date":   entry.lastDate,
			"amcf_last_donation_amount": formatCents(entry.lastCents),
			"amcf_donation_synced_at":   time.Now().UTC().Format("2006-01-02"),
		}
		if err := r.crm.UpdateContactByEmail(ctx, profile.PrimaryEmail, properties); err != nil {
			result.Failed++
			if r.logger != nil {
				r.logger.Warn("donation sync update failed", "email", profile.PrimaryEmail, "error", err)
			}
			continue
		}
		result.Updated++
	}
	return result, nil
}

// parseAmountCents parses a decimal amount string ("1,500.00", "$25") into
// integer cents. Amounts stay integral end to end; no float arithmetic.
func parseAmountCents(amount string) (int64, error) {
	cleaned := strings.TrimSpace(amount)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")

	whole, fraction := cleaned, "0"
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		whole, fraction = cleaned[:i], cleaned[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	switch len(fraction) {
	case 0:
		fraction = "00"
	case 1:
		fraction += "0"
	default:
		fraction = fraction[:2]
	}

	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	cents, err := strconv.ParseInt(fraction, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	total := dollars*100 + cents
	if negative {
		total = -total
	}
	return total, nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
