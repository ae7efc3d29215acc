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

package csuite

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"jidhr/internal/backend"
)

// Config configures the CSuite client.
type Config struct {
	BaseURL   string
	APIKey    string // SIGNER header value
	APISecret string // HMAC key
	Env       string // tenant environment name sent in every payload
	Timeout   time.Duration
}

// Client talks to the CSuite API. Every call is a POST whose JSON body is
// signed with HMAC-SHA256; the signature rides in the SIGNATURE header.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret []byte
	env       string
	client    *resty.Client
	now       func() time.Time
}

// NewClient creates a CSuite client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" || config.APISecret == "" {
		return nil, fmt.Errorf("csuite api key and secret are required")
	}
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("csuite base url is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		baseURL:   baseURL,
		apiKey:    config.APIKey,
		apiSecret: []byte(config.APISecret),
		env:       config.Env,
		client:    client,
		now:       time.Now,
	}, nil
}

// Source implements backend.Client.
func (c *Client) Source() backend.Source { return backend.SourceAccounting }

func (c *Client) wrap(err error) error { return backend.NewError(backend.SourceAccounting, err) }

// sign returns the base64 HMAC-SHA256 of body.
func (c *Client) sign(body []byte) string {
	mac := hmac.New(sha256.New, c.apiSecret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type envelope struct {
	Success int             `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type resultsPage struct {
	Results json.RawMessage `json:"results"`
	Total   int             `json:"total"`
}

// call POSTs a signed payload to endpoint and decodes data.results into out.
// The payload always carries the tenant env and a request epoch.
func (c *Client) call(ctx context.Context, endpoint string, params map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"env":   c.env,
		"epoch": c.now().Unix(),
	}
	for key, value := range params {
		payload[key] = value
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return c.wrap(fmt.Errorf("encode payload: %w", err))
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("SIGNER", c.apiKey).
		SetHeader("SIGNATURE", c.sign(body)).
		SetBody(body).
		Post(c.baseURL + endpoint)
	if err != nil {
		return c.wrap(err)
	}
	if response.StatusCode() != http.StatusOK {
		snippet := response.String()
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return c.wrap(fmt.Errorf("status %d: %s", response.StatusCode(), snippet))
	}

	var env envelope
	if err := json.Unmarshal(response.Body(), &env); err != nil {
		return c.wrap(fmt.Errorf("decode envelope: %w", err))
	}
	if env.Success != 1 {
		message := env.Error
		if message == "" {
			message = "request rejected"
		}
		return c.wrap(fmt.Errorf("csuite error: %s", message))
	}
	if out == nil {
		return nil
	}

	var page resultsPage
	if err := json.Unmarshal(env.Data, &page); err != nil || page.Results == nil {
		// some endpoints return the object directly under data
		if err := json.Unmarshal(env.Data, out); err != nil {
			return c.wrap(fmt.Errorf("decode data: %w", err))
		}
		return nil
	}
	if err := json.Unmarshal(page.Results, out); err != nil {
		return c.wrap(fmt.Errorf("decode results: %w", err))
	}
	return nil
}

// Fund is a charitable fund.
type Fund struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	FundType  string `json:"fund_type"`
	Group     string `json:"group_name"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// Label renders a fund as a display line.
func (f Fund) Label() string {
	label := f.Name
	if f.FundType != "" {
		label += " (" + f.FundType + ")"
	}
	if f.Balance != "" {
		label += " | balance " + f.Balance
	}
	return label
}

// ListFunds lists funds.
func (c *Client) ListFunds(ctx context.Context, limit int) ([]Fund, error) {
	if limit <= 0 {
		limit = 10
	}
	var funds []Fund
	if err := c.call(ctx, "/fund/list", map[string]interface{}{"limit": limit}, &funds); err != nil {
		return nil, err
	}
	return funds, nil
}

// SearchFunds searches funds by name.
func (c *Client) SearchFunds(ctx context.Context, term string, limit int) ([]Fund, error) {
	if limit <= 0 {
		limit = 10
	}
	var funds []Fund
	if err := c.call(ctx, "/fund/search", map[string]interface{}{"query": term, "limit": limit}, &funds); err != nil {
		return nil, err
	}
	return funds, nil
}

// GetFund displays one fund by ID.
func (c *Client) GetFund(ctx context.Context, fundID int) (*Fund, error) {
	var fund Fund
	if err := c.call(ctx, "/fund/display", map[string]interface{}{"id": fundID}, &fund); err != nil {
		return nil, err
	}
	return &fund, nil
}

// FundGroups lists fund group names.
func (c *Client) FundGroups(ctx context.Context) ([]string, error) {
	var groups []struct {
		Name string `json:"name"`
	}
	if err := c.call(ctx, "/fundgroup/list", nil, &groups); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(groups))
	for _, group := range groups {
		names = append(names, group.Name)
	}
	return names, nil
}

// Donation is one recorded gift.
type Donation struct {
	ID        int    `json:"id"`
	ProfileID int    `json:"profile_id"`
	FundName  string `json:"fund_name"`
	Amount    string `json:"amount"` // decimal string, never floats
	Date      string `json:"date"`   // YYYY-MM-DD
}

// Label renders a donation as a display line.
func (d Donation) Label() string {
	label := d.Amount
	if d.FundName != "" {
		label += " to " + d.FundName
	}
	if d.Date != "" {
		label += " on " + d.Date
	}
	return label
}

// ListDonations lists recent donations.
func (c *Client) ListDonations(ctx context.Context, limit int) ([]Donation, error) {
	if limit <= 0 {
		limit = 10
	}
	var donations []Donation
	if err := c.call(ctx, "/donation/list", map[string]interface{}{"limit": limit}, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

// DonationsByProfile lists donations for one profile.
func (c *Client) DonationsByProfile(ctx context.Context, profileID int) ([]Donation, error) {
	var donations []Donation
	params := map[string]interface{}{"profile_id": profileID}
	if err := c.call(ctx, "/donation/list", params, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

const pageSize = 200

// AllDonations pages through every donation.
func (c *Client) AllDonations(ctx context.Context) ([]Donation, error) {
	var all []Donation
	for offset := 0; ; offset += pageSize {
		var page []Donation
		params := map[string]interface{}{"limit": pageSize, "offset": offset}
		if err := c.call(ctx, "/donation/list", params, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// Grant is an outgoing grant.
type Grant struct {
	ID       int    `json:"id"`
	FundName string `json:"fund_name"`
	Grantee  string `json:"grantee_name"`
	Amount   string `json:"amount"`
	Status   string `json:"status"`
	Date     string `json:"date"`
}

// ListGrants lists grants.
func (c *Client) ListGrants(ctx context.Context, limit int) ([]Grant, error) {
	if limit <= 0 {
		limit = 10
	}
	var grants []Grant
	if err := c.call(ctx, "/grant/list", map[string]interface{}{"limit": limit}, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// EventDate is a scheduled event occurrence.
type EventDate struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	EventType string `json:"event_type"`
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM, may be empty
	EndTime   string `json:"end_time"`   // HH:MM, may be empty
	Archived  int    `json:"archived"`   // 1 when archived
}

// ListEventDates lists event dates.
func (c *Client) ListEventDates(ctx context.Context, limit int) ([]EventDate, error) {
	if limit <= 0 {
		limit = 10
	}
	var events []EventDate
	if err := c.call(ctx, "/eventdate/list", map[string]interface{}{"limit": limit}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Voucher is an accounts-payable voucher.
type Voucher struct {
	ID     int    `json:"id"`
	Payee  string `json:"payee_name"`
	Amount string `json:"amount"`
	Status string `json:"status"`
	Date   string `json:"date"`
}

// ListVouchers lists vouchers.
func (c *Client) ListVouchers(ctx context.Context, limit int) ([]Voucher, error) {
	if limit <= 0 {
		limit = 10
	}
	var vouchers []Voucher
	if err := c.call(ctx, "/voucher/list", map[string]interface{}{"limit": limit}, &vouchers); err != nil {
		return nil, err
	}
	return vouchers, nil
}

// Profile is a constituent profile.
type Profile struct {
	ProfileID    int    `json:"profile_id"`
	Name         string `json:"name"`
	PrimaryEmail string `json:"primary_email"`
	Newsletter   int    `json:"newsletter"` // 1 when opted in
}

// ListProfiles lists profiles.
func (c *Client) ListProfiles(ctx context.Context, limit, offset int) ([]Profile, error) {
	if limit <= 0 {
		limit = 10
	}
	params := map[string]interface{}{"limit": limit, "offset": offset}
	var profiles []Profile
	if err := c.call(ctx, "/profile/list", params, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// SearchProfiles searches profiles by name or email.
func (c *Client) SearchProfiles(ctx context.Context, term string, limit int) ([]Profile, error) {
	if limit <= 0 {
		limit = 10
	}
	var profiles []Profile
	if err := c.call(ctx, "/profile/search", map[string]interface{}{"query": term, "limit": limit}, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfile displays one profile by ID.
func (c *Client) GetProfile(ctx context.Context, profileID int) (*Profile, error) {
	var profile Profile
	if err := c.call(ctx, "/profile/display", map[string]interface{}{"id": profileID}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// AllProfiles pages through every profile.
func (c *Client) AllProfiles(ctx context.Context) ([]Profile, error) {
	var all []Profile
	for offset := 0; ; offset += pageSize {
		page, err := c.ListProfiles(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// Account is a general-ledger account.
type Account struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

// ListAccounts lists ledger accounts.
func (c *Client) ListAccounts(ctx context.Context, limit int) ([]Account, error) {
	if limit <= 0 {
		limit = 10
	}
	var accounts []Account
	if err := c.call(ctx, "/account/list", map[string]interface{}{"limit": limit}, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Fetch implements backend.Client: one bounded read per query kind.
func (c *Client) Fetch(ctx context.Context, query backend.Query) ([]backend.Record, error) {
	switch query.Kind {
	case "funds":
		var funds []Fund
		var err error
		if query.Term != "" {
			funds, err = c.SearchFunds(ctx, query.Term, query.Limit)
		} else {
			funds, err = c.ListFunds(ctx, query.Limit)
		}
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(funds))
		for _, fund := range funds {
			records = append(records, backend.Record{ID: fmt.Sprintf("%d", fund.ID), Label: fund.Label()})
		}
		return records, nil

	case "donations":
		donations, err := c.ListDonations(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(donations))
		for _, donation := range donations {
			records = append(records, backend.Record{ID: fmt.Sprintf("%d", donation.ID), Label: donation.Label()})
		}
		return records, nil

	case "grants":
		grants, err := c.ListGrants(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(grants))
		for _, grant := range grants {
			label := grant.Amount + " to " + grant.Grantee
			if grant.Status != "" {
				label += " [" + grant.Status + "]"
			}
			records = append(records, backend.Record{ID: fmt.Sprintf("%d", grant.ID), Label: label})
		}
		return records, nil

	case "events":
		events, err := c.ListEventDates(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(events))
		for _, event := range events {
			label := event.Name + " | " + event.Date
			if event.StartTime != "" {
				label += " " + event.StartTime
			}
			if event.Archived == 1 {
				label += " (archived)"
			}
			records = append(records, backend.Record{ID: fmt.Sprintf("%d", event.ID), Label: label})
		}
		return records, nil

	case "vouchers":
		vouchers, err := c.ListVouchers(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(vouchers))
		for _, voucher := range vouchers {
			records = append(records, backend.Record{ID: fmt.Sprintf("%d", voucher.ID), Label: voucher.Amount + " to " + voucher.Payee})
		}
		return records, nil

	case "accounts":
		accounts, err := c.ListAccounts(ctx, query.Limit)
		if err != nil {
			return nil, err
		}
		records := make([]backend.Record, 0, len(accounts))
		for _, account := range accounts {
			label := account.Name
			if account.Balance != "" {
				label += " | balance " + account.Balance
			}
			records = append(records, backend.Record{ID: fmt.Sprintf("%d", account.ID), Label: label})
		}
		return records, nil
	}

	return nil, c.wrap(fmt.Errorf("unsupported query kind: %s", query.Kind))
}
