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
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jidhr/internal/backend"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{
		BaseURL:   server.URL,
		APIKey:    "signer-key",
		APISecret: "super-secret",
		Env:       "amcf",
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	client.now = func() time.Time { return time.Unix(1700000000, 0) }
	return client
}

func okEnvelope(results string) string {
	return `{"success":1,"data":{"results":` + results + `,"total":1}}`
}

func TestCallSignsBody(t *testing.T) {
	var gotSigner, gotSignature string
	var gotBody []byte
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSigner = r.Header.Get("SIGNER")
		gotSignature = r.Header.Get("SIGNATURE")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(okEnvelope(`[]`)))
	}))

	if _, err := client.ListFunds(context.Background(), 5); err != nil {
		t.Fatalf("list funds failed: %v", err)
	}

	if gotSigner != "signer-key" {
		t.Fatalf("SIGNER = %q", gotSigner)
	}
	mac := hmac.New(sha256.New, []byte("super-secret"))
	mac.Write(gotBody)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if gotSignature != want {
		t.Fatalf("SIGNATURE = %q, want %q", gotSignature, want)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("body not json: %v", err)
	}
	if payload["env"] != "amcf" {
		t.Fatalf("env = %v", payload["env"])
	}
	if payload["epoch"] != float64(1700000000) {
		t.Fatalf("epoch = %v", payload["epoch"])
	}
}

func TestCallRejectedEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":0,"error":"bad signature"}`))
	}))

	_, err := client.ListFunds(context.Background(), 5)
	var backendErr *backend.Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("error = %v, want *backend.Error", err)
	}
	if backendErr.Source != backend.SourceAccounting {
		t.Fatalf("source = %s", backendErr.Source)
	}
}

func TestCallMalformedEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))

	_, err := client.ListFunds(context.Background(), 5)
	var backendErr *backend.Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("malformed body should degrade to a backend error, got %v", err)
	}
}

func TestFetchFundsUsesSearchTerm(t *testing.T) {
	var gotPath string
	var gotQuery interface{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		gotQuery = payload["query"]
		w.Write([]byte(okEnvelope(`[{"id":7,"name":"Tanvir Fund","fund_type":"DAF","balance":"15200.00"}]`)))
	}))

	records, err := client.Fetch(context.Background(), backend.Query{Kind: "funds", Term: "tanvir", Limit: 10})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotPath != "/fund/search" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotQuery != "tanvir" {
		t.Fatalf("query = %v", gotQuery)
	}
	if len(records) != 1 || records[0].Label != "Tanvir Fund (DAF) | balance 15200.00" {
		t.Fatalf("records = %+v", records)
	}
}

func TestAllProfilesPaginates(t *testing.T) {
	var offsets []int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		offset := int(payload["offset"].(float64))
		offsets = append(offsets, offset)
		if offset == 0 {
			// full first page
			profiles := make([]Profile, pageSize)
			for i := range profiles {
				profiles[i] = Profile{ProfileID: i + 1, Name: "p"}
			}
			body, _ := json.Marshal(profiles)
			w.Write([]byte(okEnvelope(string(body))))
			return
		}
		w.Write([]byte(okEnvelope(`[{"profile_id":999,"name":"last","primary_email":"last@example.org","newsletter":1}]`)))
	}))

	profiles, err := client.AllProfiles(context.Background())
	if err != nil {
		t.Fatalf("all profiles failed: %v", err)
	}
	if len(profiles) != pageSize+1 {
		t.Fatalf("profiles = %d, want %d", len(profiles), pageSize+1)
	}
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != pageSize {
		t.Fatalf("offsets = %v", offsets)
	}
	last := profiles[pageSize]
	if last.PrimaryEmail != "last@example.org" || last.Newsletter != 1 {
		t.Fatalf("last profile = %+v", last)
	}
}

func TestFetchEventsAnnotatesArchived(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okEnvelope(`[
			{"id":1,"name":"Annual Gala","event_type":"fundraiser","date":"2026-10-01","start_time":"18:00"},
			{"id":2,"name":"Old Dinner","event_type":"dinner","date":"2024-01-01","archived":1}
		]`)))
	}))

	records, err := client.Fetch(context.Background(), backend.Query{Kind: "events", Limit: 10})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if records[0].Label != "Annual Gala | 2026-10-01 18:00" {
		t.Fatalf("label = %q", records[0].Label)
	}
	if records[1].Label != "Old Dinner | 2024-01-01 (archived)" {
		t.Fatalf("label = %q", records[1].Label)
	}
}

func TestGetProfile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profile/display" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(okEnvelope(`{"profile_id":7,"name":"Tanvir Ahmed","primary_email":"tanvir@example.org","newsletter":1}`)))
	}))

	profile, err := client.GetProfile(context.Background(), 7)
	if err != nil {
		t.Fatalf("display failed: %v", err)
	}
	if profile.Name != "Tanvir Ahmed" || profile.Newsletter != 1 {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestGetFund(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fund/display" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var payload map[string]interface{}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		if payload["id"] != float64(7) {
			t.Errorf("id = %v", payload["id"])
		}
		w.Write([]byte(okEnvelope(`{"id":7,"name":"Tanvir Fund","fund_type":"DAF","balance":"15200.00"}`)))
	}))

	fund, err := client.GetFund(context.Background(), 7)
	if err != nil {
		t.Fatalf("display failed: %v", err)
	}
	if fund.Name != "Tanvir Fund" || fund.Balance != "15200.00" {
		t.Fatalf("fund = %+v", fund)
	}
}

func TestFundGroups(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fundgroup/list" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(okEnvelope(`[{"name":"Endowments"},{"name":"Donor Advised"}]`)))
	}))

	groups, err := client.FundGroups(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(groups) != 2 || groups[0] != "Endowments" {
		t.Fatalf("groups = %v", groups)
	}
}

func TestDonationsByProfile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		if payload["profile_id"] != float64(42) {
			t.Errorf("profile_id = %v", payload["profile_id"])
		}
		w.Write([]byte(okEnvelope(`[{"id":1,"profile_id":42,"fund_name":"Tanvir Fund","amount":"250.00","date":"2026-05-01"}]`)))
	}))

	donations, err := client.DonationsByProfile(context.Background(), 42)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(donations) != 1 || donations[0].Label() != "250.00 to Tanvir Fund on 2026-05-01" {
		t.Fatalf("donations = %+v", donations)
	}
}

func TestFetchAccounts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account/list" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(okEnvelope(`[{"id":3,"name":"Operating","balance":"80000.00"}]`)))
	}))

	records, err := client.Fetch(context.Background(), backend.Query{Kind: "accounts", Limit: 10})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(records) != 1 || records[0].Label != "Operating | balance 80000.00" {
		t.Fatalf("records = %+v", records)
	}
}
