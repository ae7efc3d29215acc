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
	"strings"
)

// SyncNewsletter subscribes every opted-in accounting profile to the CRM
// newsletter subscription. Emails are deduplicated case-insensitively.
func (r *Runner) SyncNewsletter(ctx context.Context, dryRun bool) (Result, error) {
	result := Result{Job: "newsletter", DryRun: dryRun}

	profiles, err := r.accounting.AllProfiles(ctx)
	if err != nil {
		return result, err
	}

	seen := map[string]bool{}
	for _, profile := range profiles {
		email := strings.ToLower(strings.TrimSpace(profile.PrimaryEmail))
		if profile.Newsletter != 1 || email == "" || seen[email] {
			result.Skipped++
			continue
		}
		seen[email] = true
		result.Matched++
		if dryRun {
			continue
		}
		if err := r.crm.SubscribeContact(ctx, email); err != nil {
			result.Failed++
			if r.logger != nil {
				r.logger.Warn("newsletter sync subscribe failed", "email", email, "error", err)
			}
			continue
		}
		result.Updated++
	}
	return result, nil
}
