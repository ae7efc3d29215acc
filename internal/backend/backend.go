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

package backend

import "context"

// Source identifies a backend system.
type Source string

const (
	// SourceAccounting is the CSuite fund accounting system.
	SourceAccounting Source = "accounting"
	// SourceCRM is the HubSpot CRM / marketing system.
	SourceCRM Source = "crm"
)

// Query is one bounded context fetch against a backend.
type Query struct {
	Kind  string // funds | donations | grants | events | contacts | forms | campaigns | social | tickets | tasks
	Term  string // optional search term extracted from the user query
	Limit int    // max rows to fetch
}

// Record is one fetched row, already rendered to a display line.
type Record struct {
	ID    string
	Label string
}

// Client fetches bounded context rows from one backend.
type Client interface {
	// Source returns which system this client talks to.
	Source() Source

	// Fetch runs one bounded query. Implementations honor ctx deadlines and
	// return an *Error on any transport, status, or decode failure.
	Fetch(ctx context.Context, query Query) ([]Record, error)
}

// Error tags a backend failure with its source so callers can degrade the
// matching fragment without aborting the request.
type Error struct {
	Source Source
	Err    error
}

func (e *Error) Error() string {
	return string(e.Source) + " backend: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a backend Error.
func NewError(source Source, err error) *Error {
	return &Error{Source: source, Err: err}
}
