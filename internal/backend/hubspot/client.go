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

package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"jidhr/internal/backend"
)

// Config configures the HubSpot client.
type Config struct {
	BaseURL                  string // default https://api.hubapi.com
	AccessToken              string // private app token
	EventOwnerID             string // externalAccountId for marketing events
	NewsletterSubscriptionID string // subscription definition ID
	Timeout                  time.Duration
}

// Client talks to the HubSpot v3 APIs with a private app bearer token.
type Client struct {
	baseURL                  string
	eventOwnerID             string
	newsletterSubscriptionID string
	client                   *resty.Client

	mu       sync.Mutex
	channels []SocialChannel // cached publish channels
}

// NewClient creates a HubSpot client.
func NewClient(config Config) (*Client, error) {
	if config.AccessToken == "" {
		return nil, fmt.Errorf("hubspot access token is required")
	}
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.hubapi.com"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Authorization", "Bearer "+config.AccessToken)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		baseURL:                  baseURL,
		eventOwnerID:             config.EventOwnerID,
		newsletterSubscriptionID: config.NewsletterSubscriptionID,
		client:                   client,
	}, nil
}

// Source implements backend.Client.
func (c *Client) Source() backend.Source { return backend.SourceCRM }

func (c *Client) wrap(err error) error { return backend.NewError(backend.SourceCRM, err) }

// get runs a GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	request := c.client.R().SetContext(ctx)
	if params != nil {
		request.SetQueryParams(params)
	}
	response, err := request.Get(c.baseURL + path)
	if err != nil {
		return c.wrap(err)
	}
	return c.decode(response, out)
}

// post runs a POST with a JSON body and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	response, err := c.client.R().SetContext(ctx).SetBody(body).Post(c.baseURL + path)
	if err != nil {
		return c.wrap(err)
	}
	return c.decode(response, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out interface{}) error {
	response, err := c.client.R().SetContext(ctx).SetBody(body).Patch(c.baseURL + path)
	if err != nil {
		return c.wrap(err)
	}
	return c.decode(response, out)
}

func (c *Client) decode(response *resty.Response, out interface{}) error {
	code := response.StatusCode()
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		body := response.String()
		if len(body) > 256 {
			body = body[:256]
		}
		return c.wrap(fmt.Errorf("status %d: %s", code, body))
	}
	if out == nil || len(response.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(response.Body(), out); err != nil {
		return c.wrap(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Contact is a CRM contact with its requested properties.
type Contact struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Label renders a contact as a display line.
func (ct Contact) Label() string {
	name := strings.TrimSpace(ct.Properties["firstname"] + " " + ct.Properties["lastname"])
	if name == "" {
		name = "(no name)"
	}
	parts := []string{name}
	if email := ct.Properties["email"]; email != "" {
		parts = append(parts, email)
	}
	if company := ct.Properties["company"]; company != "" {
		parts = append(parts, company)
	}
	return strings.Join(parts, " | ")
}

var contactProperties = []string{"firstname", "lastname", "email", "company", "phone", "lifecyclestage"}

// Contacts lists contacts, newest first.
func (c *Client) Contacts(ctx context.Context, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = 10
	}
	var page struct {
		Results []Contact `json:"results"`
	}
	err := c.get(ctx, "/crm/v3/objects/contacts", map[string]string{
		"limit":      fmt.Sprintf("%d", limit),
		"properties": strings.Join(contactProperties, ","),
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// SearchContacts searches contacts by free text.
func (c *Client) SearchContacts(ctx context.Context, term string, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]interface{}{
		"query":      term,
		"limit":      limit,
		"properties": contactProperties,
	}
	var page struct {
		Results []Contact `json:"results"`
	}
	if err := c.post(ctx, "/crm/v3/objects/contacts/search", body, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// SearchContactByEmail finds the contact whose email property equals email.
// Returns nil when no contact matches.
func (c *Client) SearchContactByEmail(ctx context.Context, email string) (*Contact, error) {
	body := map[string]interface{}{
		"filterGroups": []map[string]interface{}{{
			"filters": []map[string]string{{
				"propertyName": "email",
				"operator":     "EQ",
				"value":        email,
			}},
		}},
		"limit":      1,
		"properties": contactProperties,
	}
	var page struct {
		Results []Contact `json:"results"`
	}
	if err := c.post(ctx, "/crm/v3/objects/contacts/search", body, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, nil
	}
	return &page.Results[0], nil
}

// UpdateContact patches contact properties by contact ID.
func (c *Client) UpdateContact(ctx context.Context, contactID string, properties map[string]string) error {
	return c.patch(ctx, "/crm/v3/objects/contacts/"+contactID, map[string]interface{}{
		"properties": properties,
	}, nil)
}

// UpdateContactByEmail patches properties on the contact matching email.
// Returns backend-wrapped errors; a missing contact is reported as not found.
func (c *Client) UpdateContactByEmail(ctx context.Context, email string, properties map[string]string) error {
	contact, err := c.SearchContactByEmail(ctx, email)
	if err != nil {
		return err
	}
	if contact == nil {
		return c.wrap(fmt.Errorf("contact not found: %s", email))
	}
	return c.UpdateContact(ctx, contact.ID, properties)
}

// Company is a CRM company record.
type Company struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Label renders a company as a display line.
func (co Company) Label() string {
	name := co.Properties["name"]
	if name == "" {
		name = "(no name)"
	}
	if domain := co.Properties["domain"]; domain != "" {
		return name + " | " + domain
	}
	return name
}

// Companies lists CRM companies.
func (c *Client) Companies(ctx context.Context, limit int) ([]Company, error) {
	if limit <= 0 {
		limit = 10
	}
	var page struct {
		Results []Company `json:"results"`
	}
	err := c.get(ctx, "/crm/v3/objects/companies", map[string]string{
		"limit":      fmt.Sprintf("%d", limit),
		"properties": "name,domain,city,industry",
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Form is a marketing form definition.
type Form struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FormType  string `json:"formType"`
	CreatedAt string `json:"createdAt"`
}

// Forms lists marketing forms.
func (c *Client) Forms(ctx context.Context, limit int) ([]Form, error) {
	if limit <= 0 {
		limit = 10
	}
	var page struct {
		Results []Form `json:"results"`
	}
	err := c.get(ctx, "/marketing/v3/forms/", map[string]string{
		"limit": fmt.Sprintf("%d", limit),
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// MarketingEvent is a marketing event record.
type MarketingEvent struct {
	ObjectID        string `json:"objectId"`
	ExternalEventID string `json:"externalEventId"`
	EventName       string `json:"eventName"`
	EventType       string `json:"eventType"`
	StartDateTime   string `json:"startDateTime"`
	EndDateTime     string `json:"endDateTime"`
	EventCancelled  bool   `json:"eventCancelled"`
}

// MarketingEvents lists marketing events.
func (c *Client) MarketingEvents(ctx context.Context, limit int) ([]MarketingEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	var page struct {
		Results []MarketingEvent `json:"results"`
	}
	err := c.get(ctx, "/marketing/v3/marketing-events/events", map[string]string{
		"limit": fmt.Sprintf("%d", limit),
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// MarketingEventByExternalID looks up a marketing event by its external ID.
// Returns nil when HubSpot has no event with that ID.
func (c *Client) MarketingEventByExternalID(ctx context.Context, externalEventID string) (*MarketingEvent, error) {
	var event MarketingEvent
	response, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("externalAccountId", c.eventOwnerID).
		Get(c.baseURL + "/marketing/v3/marketing-events/events/" + externalEventID)
	if err != nil {
		return nil, c.wrap(err)
	}
	if response.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := c.decode(response, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// NewMarketingEvent is the payload to create a marketing event.
type NewMarketingEvent struct {
	ExternalEventID  string    `json:"externalEventId"`
	EventName        string    `json:"eventName"`
	EventType        string    `json:"eventType"`
	StartDateTime    time.Time `json:"startDateTime"`
	EndDateTime      time.Time `json:"endDateTime"`
	EventDescription string    `json:"eventDescription,omitempty"`
}

// CreateMarketingEvent creates a marketing event owned by the configured
// external account.
func (c *Client) CreateMarketingEvent(ctx context.Context, event NewMarketingEvent) (*MarketingEvent, error) {
	body := map[string]interface{}{
		"externalAccountId": c.eventOwnerID,
		"externalEventId":   event.ExternalEventID,
		"eventName":         event.EventName,
		"eventType":         event.EventType,
		"startDateTime":     event.StartDateTime.UTC().Format(time.RFC3339),
		"endDateTime":       event.EndDateTime.UTC().Format(time.RFC3339),
	}
	if event.EventDescription != "" {
		body["eventDescription"] = event.EventDescription
	}
	var created MarketingEvent
	if err := c.post(ctx, "/marketing/v3/marketing-events/events", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Campaign is a marketing campaign.
type Campaign struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Campaigns lists marketing campaigns.
func (c *Client) Campaigns(ctx context.Context, limit int) ([]Campaign, error) {
	if limit <= 0 {
		limit = 10
	}
	var page struct {
		Results []Campaign `json:"results"`
	}
	err := c.get(ctx, "/marketing/v3/campaigns", map[string]string{
		"limit": fmt.Sprintf("%d", limit),
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Task is a CRM task.
type Task struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Tasks lists CRM tasks.
func (c *Client) Tasks(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 10
	}
	var page struct {
		Results []Task `json:"results"`
	}
	err := c.get(ctx, "/crm/v3/objects/tasks", map[string]string{
		"limit":      fmt.Sprintf("%d", limit),
		"properties": "hs_task_subject,hs_task_body,hs_task_status,hs_timestamp",
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// CreateTask creates a CRM task due at dueAt.
func (c *Client) CreateTask(ctx context.Context, subject, body string, dueAt time.Time) (*Task, error) {
	payload := map[string]interface{}{
		"properties": map[string]string{
			"hs_task_subject":  subject,
			"hs_task_body":     body,
			"hs_task_status":   "NOT_STARTED",
			"hs_task_priority": "MEDIUM",
			"hs_timestamp":     fmt.Sprintf("%d", dueAt.UnixMilli()),
		},
	}
	var created Task
	if err := c.post(ctx, "/crm/v3/objects/tasks", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Ticket is a support ticket.
type Ticket struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Tickets lists support tickets.
func (c *Client) Tickets(ctx context.Context, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 10
	}
	var page struct {
		Results []Ticket `json:"results"`
	}
	err := c.get(ctx, "/crm/v3/objects/tickets", map[string]string{
		"limit":      fmt.Sprintf("%d", limit),
		"properties": "subject,content,hs_pipeline_stage",
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// SocialChannel is a connected publishing channel.
type SocialChannel struct {
	ChannelGUID string `json:"channelGuid"`
	Type        string `json:"type"` // FacebookPage, LinkedInCompanyPage, Twitter, Instagram
	Name        string `json:"name"`
	Active      bool   `json:"active"`
}

// SocialChannels lists connected publishing channels, cached after the first
// successful call.
func (c *Client) SocialChannels(ctx context.Context) ([]SocialChannel, error) {
	c.mu.Lock()
	cached := c.channels
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var channels []SocialChannel
	if err := c.get(ctx, "/broadcast/v1/channels/setting/publish/current", nil, &channels); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.channels = channels
	c.mu.Unlock()
	return channels, nil
}

// AvailablePlatforms returns the distinct active platform names, lowercased
// ("facebook", "linkedin", "twitter", "instagram").
func (c *Client) AvailablePlatforms(ctx context.Context) ([]string, error) {
	channels, err := c.SocialChannels(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var platforms []string
	for _, channel := range channels {
		if !channel.Active {
			continue
		}
		name := platformName(channel.Type)
		if name != "" && !seen[name] {
			seen[name] = true
			platforms = append(platforms, name)
		}
	}
	return platforms, nil
}

func platformName(channelType string) string {
	switch {
	case strings.HasPrefix(channelType, "Facebook"):
		return "facebook"
	case strings.HasPrefix(channelType, "LinkedIn"):
		return "linkedin"
	case strings.HasPrefix(channelType, "Twitter"):
		return "twitter"
	case strings.HasPrefix(channelType, "Instagram"):
		return "instagram"
	}
	return ""
}

// SocialPost is the payload to create a social broadcast.
type SocialPost struct {
	Platform  string    // facebook | linkedin | twitter | instagram
	Body      string
	LinkURL   string
	PhotoURL  string
	TriggerAt time.Time // zero means draft
}

// CreateSocialPost creates a broadcast on the channel matching the post's
// platform. A zero TriggerAt leaves the broadcast as a draft.
func (c *Client) CreateSocialPost(ctx context.Context, post SocialPost) error {
	channels, err := c.SocialChannels(ctx)
	if err != nil {
		return err
	}
	var channel *SocialChannel
	for i := range channels {
		if channels[i].Active && platformName(channels[i].Type) == post.Platform {
			channel = &channels[i]
			break
		}
	}
	if channel == nil {
		return c.wrap(fmt.Errorf("no active channel for platform %s", post.Platform))
	}

	content := map[string]interface{}{"body": post.Body}
	if post.LinkURL != "" {
		content["link"] = post.LinkURL
	}
	if post.PhotoURL != "" {
		content["photoUrl"] = post.PhotoURL
	}
	body := map[string]interface{}{
		"channelGuid": channel.ChannelGUID,
		"content":     content,
	}
	if !post.TriggerAt.IsZero() {
		body["triggerAt"] = post.TriggerAt.UnixMilli()
	}
	return c.post(ctx, "/broadcast/v1/broadcasts", body, nil)
}

// MarketingEmail is a marketing email summary.
type MarketingEmail struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	State   string `json:"state"`
}

// MarketingEmails lists marketing emails, drafts included.
func (c *Client) MarketingEmails(ctx context.Context, limit int) ([]MarketingEmail, error) {
	if limit <= 0 {
		limit = 10
	}
	var page struct {
		Results []MarketingEmail `json:"results"`
	}
	err := c.get(ctx, "/marketing/v3/emails/", map[string]string{
		"limit": fmt.Sprintf("%d", limit),
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// emailTemplates maps friendly template names to template IDs.
var emailTemplates = map[string]string{
	"newsletter":   "newsletter-template",
	"announcement": "announcement-template",
	"appeal":       "appeal-template",
}

// CreateEmailDraft creates a marketing email draft from a named template.
func (c *Client) CreateEmailDraft(ctx context.Context, name, subject, htmlBody, template string) (string, error) {
	body := map[string]interface{}{
		"name":    name,
		"subject": subject,
		"content": map[string]interface{}{
			"flexAreas": map[string]interface{}{},
			"plainText": htmlBody,
		},
	}
	if templateID, ok := emailTemplates[strings.ToLower(template)]; ok {
		body["templateId"] = templateID
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/marketing/v3/emails/", body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// SubscribeContact opts email in to the configured newsletter subscription.
func (c *Client) SubscribeContact(ctx context.Context, email string) error {
	body := map[string]interface{}{
		"emailAddress":          email,
		"subscriptionId":        c.newsletterSubscriptionID,
		"legalBasis":            "LEGITIMATE_INTEREST_OTHER",
		"legalBasisExplanation": "Opted in via fund accounting profile",
	}
	return c.post(ctx, "/communication-preferences/v3/subscribe", body, nil)
}

// UnsubscribeContact opts email out of the configured newsletter subscription.
func (c *Client) UnsubscribeContact(ctx context.Context, email string) error {
	body := map[string]interface{}{
		"emailAddress":   email,
		"subscriptionId": c.newsletterSubscriptionID,
	}
	return c.post(ctx, "/communication-preferences/v3/unsubscribe", body, nil)
}

// Fetch implements backend.Client: one bounded read per query kind.
func (c *Client) Fetch(ctx context.Context, query backend.Query) ([]backend.Record, error) {
	switch query.Kind {
	case "contacts":
		var contacts []Contact
		var err error
		if query.Term != "" {
			contacts, err = c.SearchContacts(ctx, query.Term, query.Limit)
		} else {
			contacts, err = c.Contacts(ctx, query.Limit)
		}
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(contacts))
		for _, contact := range contacts {
			records = append(records, backend.Record{ID: contact.ID, Label: contact.Label()})
		}
		return records, nil

	case "companies":
		companies, err := c.Companies(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(companies))
		for _, company := range companies {
			records = append(records, backend.Record{ID: company.ID, Label: company.Label()})
		}
		return records, nil

	case "forms":
		forms, err := c.Forms(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(forms))
		for _, form := range forms {
			records = append(records, backend.Record{ID: form.ID, Label: form.Name + " (" + form.FormType + ")"})
		}
		return records, nil

	case "events":
		events, err := c.MarketingEvents(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(events))
		for _, event := range events {
			label := event.EventName + " | " + event.StartDateTime
			if event.EventCancelled {
				label += " (cancelled)"
			}
			records = append(records, backend.Record{ID: event.ObjectID, Label: label})
		}
		return records, nil

	case "campaigns":
		campaigns, err := c.Campaigns(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(campaigns))
		for _, campaign := range campaigns {
			name := campaign.Properties["hs_name"]
			if name == "" {
				name = campaign.ID
			}
			records = append(records, backend.Record{ID: campaign.ID, Label: name})
		}
		return records, nil

	case "tasks":
		tasks, err := c.Tasks(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(tasks))
		for _, task := range tasks {
			label := task.Properties["hs_task_subject"]
			if status := task.Properties["hs_task_status"]; status != "" {
				label += " [" + status + "]"
			}
			records = append(records, backend.Record{ID: task.ID, Label: label})
		}
		return records, nil

	case "tickets":
		tickets, err := c.Tickets(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(tickets))
		for _, ticket := range tickets {
			label := ticket.Properties["subject"]
			if stage := ticket.Properties["hs_pipeline_stage"]; stage != "" {
				label += " [" + stage + "]"
			}
			records = append(records, backend.Record{ID: ticket.ID, Label: label})
		}
		return records, nil

	case "emails":
		emails, err := c.MarketingEmails(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(emails))
		for _, email := range emails {
			label := email.Name
			if email.Subject != "" {
				label += " | " + email.Subject
			}
			if email.State != "" {
				label += " [" + email.State + "]"
			}
			records = append(records, backend.Record{ID: email.ID, Label: label})
		}
		return records, nil

	case "social":
		platforms, err := c.AvailablePlatforms(ctx)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(platforms))
		for _, platform := range platforms {
			records = append(records, backend.Record{ID: platform, Label: "connected channel: " + platform})
		}
		return records, nil
	}

	return nil, c.wrap(fmt.Errorf("unsupported query kind: %s", query.Kind))
}
