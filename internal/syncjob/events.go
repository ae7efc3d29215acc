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
	"time"

	"jidhr/internal/backend/csuite"
	"jidhr/internal/backend/hubspot"
)

const (
	eventFetchLimit      = 500
	defaultEventDuration = 2 * time.Hour
)

// eventTypeNames maps accounting event types to CRM marketing event types.
var eventTypeNames = map[string]string{
	"gala":       "FUNDRAISER",
	"dinner":     "FUNDRAISER",
	"fundraiser": "FUNDRAISER",
	"webinar":    "WEBINAR",
	"symposium":  "CONFERENCE",
	"conference": "CONFERENCE",
}

// SyncEvents mirrors upcoming accounting event dates into CRM marketing
// events. Existing events are matched by the external ID "csuite-<id>";
// past and archived dates are skipped.
func (r *Runner) SyncEvents(ctx context.Context, dryRun bool) (Result, error) {
	result := Result{Job: "events", DryRun: dryRun}

	events, err := r.accounting.ListEventDates(ctx, eventFetchLimit)
	if err != nil {
		return result, err
	}

	now := time.Now()
	for _, event := range events {
		start, ok := eventStart(event)
		if !ok || event.Archived == 1 || start.Before(now) {
			result.Skipped++
			continue
		}

		externalID := fmt.Sprintf("csuite-%d", event.ID)
		existing, err := r.crm.MarketingEventByExternalID(ctx, externalID)
		if err != nil {
			result.Failed++
			continue
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		result.Matched++
		if dryRun {
			continue
		}

		end := eventEnd(event, start)
		_, err = r.crm.CreateMarketingEvent(ctx, hubspot.NewMarketingEvent{
			ExternalEventID: externalID,
			EventName:       event.Name,
			EventType:       marketingEventType(event.EventType),
			StartDateTime:   start,
			EndDateTime:     end,
		})
		if err != nil {
			result.Failed++
			if r.logger != nil {
				r.logger.Warn("event sync create failed", "event", event.Name, "error", err)
			}
			continue
		}
		result.Updated++
	}
	return result, nil
}

// eventStart resolves an event date (plus optional start time) to a moment.
func eventStart(event csuite.EventDate) (time.Time, bool) {
	if event.Date == "" {
		return time.Time{}, false
	}
	layout, value := "2006-01-02", event.Date
	if event.StartTime != "" {
		layout, value = "2006-01-02 15:04", event.Date+" "+event.StartTime
	}
	start, err := time.ParseInLocation(layout, value, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return start, true
}

func eventEnd(event csuite.EventDate, start time.Time) time.Time {
	if event.EndTime != "" {
		if end, err := time.ParseInLocation("2006-01-02 15:04", event.Date+" "+event.EndTime, time.Local); err == nil && end.After(start) {
			return end
		}
	}
	return start.Add(defaultEventDuration)
}

func marketingEventType(accountingType string) string {
	if name, ok := eventTypeNames[accountingType]; ok {
		return name
	}
	return "EVENT"
}
