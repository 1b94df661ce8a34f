package repository

import (
	"strconv"
	"strings"
	"testing"

	"skaleclub_backend/internal/leadform/scoring"
)

func TestLegacyScoreColumnsCoverEveryLegacyKey(t *testing.T) {
	columns := make(map[string]string, len(legacyScoreColumns))
	for _, col := range legacyScoreColumns {
		columns[col.Key] = col.Column
	}

	for id, key := range scoring.LegacyScoreKeys() {
		column, ok := columns[key]
		if !ok {
			t.Fatalf("legacy key %s (question %s) has no form_leads column", key, id)
		}
		if !strings.Contains(upsertLeadQuery, column+" = EXCLUDED."+column) {
			t.Fatalf("upsert does not refresh column %s", column)
		}
	}
	if len(columns) != len(scoring.LegacyScoreKeys()) {
		t.Fatalf("column table has %d entries, scoring has %d legacy keys", len(columns), len(scoring.LegacyScoreKeys()))
	}
}

func TestLegacyScoreArgsFollowColumnOrder(t *testing.T) {
	args := legacyScoreArgs(map[string]int{"scoreTipoNegocio": 10, "scoreDisponibilidade": 15, "scoreCustom": 4})

	if len(args) != len(legacyScoreColumns) {
		t.Fatalf("expected %d args, got %d", len(legacyScoreColumns), len(args))
	}
	if args[1] != 10 || args[6] != 15 || args[0] != 0 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestUpsertLeadQueryIsSessionScoped(t *testing.T) {
	query := strings.ToLower(upsertLeadQuery)

	requiredFragments := []string{
		"on conflict (session_id) do update",
		"answers = form_leads.answers || excluded.answers",
		"form_completed = form_leads.form_completed or excluded.form_completed",
		"where form_leads.status not in ('converted', 'lost')",
		"(xmax = 0) as created",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected upsert fragment %q to be present", fragment)
		}
	}
	if strings.Contains(query, "notification_sent") {
		t.Fatal("progress upserts must never touch notification_sent")
	}
}

func TestUpsertLeadPlaceholdersMatchArgs(t *testing.T) {
	// id, session, answers, contact x3, total, legacy columns, breakdown, classification, completed
	want := 7 + len(legacyScoreColumns) + 3
	for i := 1; i <= want; i++ {
		if !strings.Contains(upsertLeadQuery, "$"+strconv.Itoa(i)) {
			t.Fatalf("placeholder $%d missing", i)
		}
	}
	if strings.Contains(upsertLeadQuery, "$"+strconv.Itoa(want+1)) {
		t.Fatalf("unexpected placeholder $%d", want+1)
	}
}

func TestClaimHotNotificationQueryIsConditional(t *testing.T) {
	query := strings.ToLower(claimHotNotificationQuery)
	if !strings.Contains(query, "where id = $1 and notification_sent = false") {
		t.Fatal("claim must only flip an unset notification flag")
	}
}

func TestReleaseHotNotificationQueryOnlyClearsClaims(t *testing.T) {
	query := strings.ToLower(releaseHotNotificationQuery)
	if !strings.Contains(query, "set notification_sent = false") || !strings.Contains(query, "where id = $1 and notification_sent = true") {
		t.Fatal("release must only clear a set notification flag")
	}
}

func TestListLeadsQueryPaginates(t *testing.T) {
	query := strings.ToLower(listLeadsQuery)
	for _, fragment := range []string{"classification = $1", "form_completed = $2", "order by created_at desc", "limit $5 offset $6"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected list fragment %q to be present", fragment)
		}
	}
	if !strings.Contains(strings.ToLower(countLeadsQuery), "classification = $1") {
		t.Fatal("count query must share the list filter")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusNew, StatusContacted, StatusConverted, StatusLost} {
		if !ValidStatus(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if ValidStatus("archived") {
		t.Fatal("unexpected status accepted")
	}
}
