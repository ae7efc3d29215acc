package assistant

import (
	"testing"

	"jidhr/internal/backend"
)

func kinds(needs []Need) []string {
	var out []string
	for _, need := range needs {
		out = append(out, string(need.Source)+":"+need.Kind)
	}
	return out
}

func TestClassifyFundBalance(t *testing.T) {
	needs := Classify("What's the balance in the Tanvir Fund?")
	if len(needs) != 1 {
		t.Fatalf("needs = %v", kinds(needs))
	}
	if needs[0].Source != backend.SourceAccounting || needs[0].Kind != "funds" {
		t.Fatalf("need = %+v", needs[0])
	}
	if needs[0].Term != "Tanvir Fund" {
		t.Fatalf("term = %q", needs[0].Term)
	}
}

func TestClassifyFormQueryIsCRMOnly(t *testing.T) {
	needs := Classify("Who submitted the endowment form?")
	if len(needs) != 1 {
		t.Fatalf("needs = %v", kinds(needs))
	}
	if needs[0].Source != backend.SourceCRM || needs[0].Kind != "forms" {
		t.Fatalf("need = %+v", needs[0])
	}
}

func TestClassifyCrossSystem(t *testing.T) {
	needs := Classify("Draft a thank you email for the Ahmeds")
	var sawAccounting, sawCRM bool
	for _, need := range needs {
		switch need.Source {
		case backend.SourceAccounting:
			sawAccounting = true
		case backend.SourceCRM:
			sawCRM = true
		}
	}
	if !sawAccounting || !sawCRM {
		t.Fatalf("expected both sources, got %v", kinds(needs))
	}
}

func TestClassifyConversational(t *testing.T) {
	if needs := Classify("Good morning! How are you today?"); len(needs) != 0 {
		t.Fatalf("needs = %v", kinds(needs))
	}
}

func TestClassifyEventsHitBothBackends(t *testing.T) {
	needs := Classify("When is the next gala?")
	if len(needs) != 2 {
		t.Fatalf("needs = %v", kinds(needs))
	}
	if needs[0].Source != backend.SourceAccounting || needs[1].Source != backend.SourceCRM {
		t.Fatalf("order = %v", kinds(needs))
	}
	if needs[0].Kind != "events" || needs[1].Kind != "events" {
		t.Fatalf("kinds = %v", kinds(needs))
	}
}

func TestClassifyAccountingBeforeCRM(t *testing.T) {
	needs := Classify("Show donations and contacts")
	if len(needs) != 2 {
		t.Fatalf("needs = %v", kinds(needs))
	}
	if needs[0].Source != backend.SourceAccounting || needs[1].Source != backend.SourceCRM {
		t.Fatalf("order = %v", kinds(needs))
	}
}

func TestClassifyQuotedTerm(t *testing.T) {
	needs := Classify(`Find the contact "Rashid Ahmed"`)
	if len(needs) != 1 || needs[0].Kind != "contacts" {
		t.Fatalf("needs = %v", kinds(needs))
	}
	if needs[0].Term != "Rashid Ahmed" {
		t.Fatalf("term = %q", needs[0].Term)
	}
}

func TestClassifyIsStable(t *testing.T) {
	query := "Which funds received donations before the gala?"
	first := Classify(query)
	second := Classify(query)
	if len(first) != len(second) {
		t.Fatalf("lengths differ")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("need %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestClassifyLedgerAccounts(t *testing.T) {
	needs := Classify("Show the ledger accounts")
	if len(needs) != 1 {
		t.Fatalf("needs = %v", kinds(needs))
	}
	if needs[0].Source != backend.SourceAccounting || needs[0].Kind != "accounts" {
		t.Fatalf("need = %+v", needs[0])
	}
}

func TestClassifyNewsletters(t *testing.T) {
	needs := Classify("Which newsletters went out this quarter?")
	if len(needs) != 1 {
		t.Fatalf("needs = %v", kinds(needs))
	}
	if needs[0].Source != backend.SourceCRM || needs[0].Kind != "emails" {
		t.Fatalf("need = %+v", needs[0])
	}
}
