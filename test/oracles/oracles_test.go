package oracles

import (
	"strings"
	"testing"
	"time"

	"appealdesk/appeal"
	"appealdesk/test/actors"
)

var base = time.Date(2024, 10, 31, 12, 0, 0, 0, time.UTC)

func stored(id string, deadlineHours int, resolved bool) appeal.Appeal {
	return appeal.Appeal{
		ID:                 id,
		Description:        "Stored appeal used by oracle tests",
		EntryTime:          base,
		ResolutionDeadline: base.Add(time.Duration(deadlineHours) * time.Hour),
		IsResolved:         resolved,
	}
}

func TestRun_CleanSnapshotPasses(t *testing.T) {
	s := Snapshot{
		Stored: []appeal.Appeal{stored("a", 2, false), stored("b", 1, true), stored("c", 1, false)},
		Active: []appeal.Appeal{stored("c", 1, false), stored("a", 2, false)},
		Order:  appeal.OrderNearestFirst,
		Ledger: map[string]actors.State{
			"a": actors.Live, "b": actors.Resolved, "c": actors.Uncertain, "d": actors.Deleted,
		},
	}

	if name, detail := Run(s); name != "" {
		t.Fatalf("unexpected failure %s: %s", name, detail)
	}
}

func TestRun_DetectsViolations(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
		want string
	}{
		{
			name: "duplicate",
			snap: Snapshot{Stored: []appeal.Appeal{stored("a", 1, true), stored("a", 1, true)}},
			want: "O1_unique_ids",
		},
		{
			name: "lost create",
			snap: Snapshot{Ledger: map[string]actors.State{"a": actors.Live}},
			want: "O2_acknowledged_present",
		},
		{
			name: "resurrected",
			snap: Snapshot{
				Stored: []appeal.Appeal{stored("a", 1, true)},
				Ledger: map[string]actors.State{"a": actors.Deleted},
			},
			want: "O3_deleted_absent",
		},
		{
			name: "lost resolution",
			snap: Snapshot{
				Stored: []appeal.Appeal{stored("a", 1, false)},
				Active: []appeal.Appeal{stored("a", 1, false)},
				Ledger: map[string]actors.State{"a": actors.Resolved},
			},
			want: "O4_resolution_matches_ledger",
		},
		{
			name: "unordered listing",
			snap: Snapshot{
				Stored: []appeal.Appeal{stored("a", 2, false), stored("b", 1, false)},
				Active: []appeal.Appeal{stored("a", 2, false), stored("b", 1, false)},
				Order:  appeal.OrderNearestFirst,
			},
			want: "O5_active_listing",
		},
		{
			name: "short lead",
			snap: Snapshot{
				Stored: []appeal.Appeal{{ID: "a", EntryTime: base, ResolutionDeadline: base.Add(10 * time.Minute), IsResolved: true}},
			},
			want: "O6_deadline_lead",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, detail := Run(tc.snap)
			if name != tc.want {
				t.Fatalf("expected %s, got %q (%s)", tc.want, name, detail)
			}
			if strings.TrimSpace(detail) == "" {
				t.Fatal("expected a failure detail")
			}
		})
	}
}
