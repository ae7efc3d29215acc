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

package assistant

import (
	"regexp"
	"strings"

	"jidhr/internal/backend"
)

// Need is one context fetch the query calls for.
type Need struct {
	Source backend.Source
	Kind   string
	Term   string
}

// intentRule maps trigger words to one backend query kind. Rules are
// evaluated in order: accounting kinds first, then CRM, so the resulting
// need list has a stable cross-source order.
type intentRule struct {
	source   backend.Source
	kind     string
	keywords []string
}

var intentRules = []intentRule{
	{backend.SourceAccounting, "funds", []string{"fund", "funds", "balance", "balances", "daf", "donor advised"}},
	{backend.SourceAccounting, "donations", []string{"donation", "donations", "gift", "gifts", "gave", "donated", "contributed", "thank"}},
	{backend.SourceAccounting, "grants", []string{"grant", "grants", "grantee", "disbursement", "disbursements"}},
	{backend.SourceAccounting, "vouchers", []string{"voucher", "vouchers", "payable", "payables"}},
	{backend.SourceAccounting, "accounts", []string{"account", "accounts", "ledger"}},
	{backend.SourceAccounting, "events", []string{"event", "events", "gala", "symposium", "webinar", "dinner", "registration", "rsvp"}},
	{backend.SourceCRM, "contacts", []string{"contact", "contacts", "email", "emails", "subscriber", "subscribers", "mailing"}},
	{backend.SourceCRM, "companies", []string{"company", "companies", "organization", "organizations", "employer", "employers"}},
	{backend.SourceCRM, "forms", []string{"form", "forms", "submitted", "submission", "submissions", "inquiry", "inquiries"}},
	{backend.SourceCRM, "campaigns", []string{"campaign", "campaigns"}},
	{backend.SourceCRM, "emails", []string{"newsletter", "newsletters"}},
	{backend.SourceCRM, "social", []string{"social", "facebook", "linkedin", "twitter", "instagram", "channel", "channels"}},
	{backend.SourceCRM, "tickets", []string{"ticket", "tickets"}},
	{backend.SourceCRM, "tasks", []string{"task", "tasks", "todo", "reminder", "reminders"}},
	{backend.SourceCRM, "events", []string{"event", "events", "gala", "symposium", "webinar", "dinner", "registration", "rsvp"}},
}

var wordPattern = regexp.MustCompile(`[a-z']+`)

// Classify maps free query text to the set of context needs it implies.
// Pure function: same text, same needs, in the same order. An unrecognized
// query yields no needs.
func Classify(query string) []Need {
	lowered := strings.ToLower(query)
	words := map[string]bool{}
	for _, word := range wordPattern.FindAllString(lowered, -1) {
		words[word] = true
	}

	var needs []Need
	for _, rule := range intentRules {
		for _, keyword := range rule.keywords {
			matched := false
			if strings.Contains(keyword, " ") {
				matched = strings.Contains(lowered, keyword)
			} else {
				matched = words[keyword]
			}
			if matched {
				needs = append(needs, Need{Source: rule.source, Kind: rule.kind, Term: extractTerm(query, rule.kind)})
				break
			}
		}
	}
	return needs
}

var fundNamePattern = regexp.MustCompile(`(?:[A-Z][\w'-]*\s+)+Fund\b`)
var quotedPattern = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// extractTerm pulls a search term out of the query for kinds that support
// keyed lookups: a proper-noun fund name ("Tanvir Fund"), or any quoted
// phrase.
func extractTerm(query, kind string) string {
	if kind == "funds" {
		if name := fundNamePattern.FindString(query); name != "" {
			return strings.TrimSpace(name)
		}
	}
	if match := quotedPattern.FindStringSubmatch(query); match != nil {
		if match[1] != "" {
			return match[1]
		}
		return match[2]
	}
	return ""
}
