package oracles

import (
	"fmt"

	"appealdesk/appeal"
	"appealdesk/test/actors"
)

// Snapshot is a quiescent view of one run: the stored collection, the active
// listing computed from it, and what the actors were told.
type Snapshot struct {
	Stored []appeal.Appeal
	Active []appeal.Appeal
	Order  appeal.ListOrder
	Ledger map[string]actors.State
}

type Oracle struct {
	Name  string
	Check func(Snapshot) string
}

func All() []Oracle {
	return []Oracle{
		{Name: "O1_unique_ids", Check: uniqueIDs},
		{Name: "O2_acknowledged_present", Check: acknowledgedPresent},
		{Name: "O3_deleted_absent", Check: deletedAbsent},
		{Name: "O4_resolution_matches_ledger", Check: resolutionMatchesLedger},
		{Name: "O5_active_listing", Check: activeListing},
		{Name: "O6_deadline_lead", Check: deadlineLead},
	}
}

// Run evaluates every oracle and returns the first failure (name and detail),
// or empty strings when all pass.
func Run(s Snapshot) (string, string) {
	for _, o := range All() {
		if detail := o.Check(s); detail != "" {
			return o.Name, detail
		}
	}
	return "", ""
}

func index(stored []appeal.Appeal) map[string]appeal.Appeal {
	out := make(map[string]appeal.Appeal, len(stored))
	for _, a := range stored {
		out[a.ID] = a
	}
	return out
}

func uniqueIDs(s Snapshot) string {
	seen := make(map[string]bool, len(s.Stored))
	for _, a := range s.Stored {
		if seen[a.ID] {
			return fmt.Sprintf("id %s stored twice", a.ID)
		}
		seen[a.ID] = true
	}
	return ""
}

func acknowledgedPresent(s Snapshot) string {
	stored := index(s.Stored)
	for id, st := range s.Ledger {
		if st != actors.Live && st != actors.Resolved {
			continue
		}
		if _, ok := stored[id]; !ok {
			return fmt.Sprintf("%s appeal %s missing from store", st, id)
		}
	}
	return ""
}

func deletedAbsent(s Snapshot) string {
	stored := index(s.Stored)
	for id, st := range s.Ledger {
		if st != actors.Deleted {
			continue
		}
		if _, ok := stored[id]; ok {
			return fmt.Sprintf("deleted appeal %s still stored", id)
		}
	}
	return ""
}

func resolutionMatchesLedger(s Snapshot) string {
	stored := index(s.Stored)
	for id, st := range s.Ledger {
		a, ok := stored[id]
		if !ok {
			continue
		}
		if st == actors.Live && a.IsResolved {
			return fmt.Sprintf("appeal %s resolved without an acknowledged resolve", id)
		}
		if st == actors.Resolved && !a.IsResolved {
			return fmt.Sprintf("appeal %s lost its resolution", id)
		}
	}
	return ""
}

func activeListing(s Snapshot) string {
	unresolved := 0
	for _, a := range s.Stored {
		if !a.IsResolved {
			unresolved++
		}
	}
	if len(s.Active) != unresolved {
		return fmt.Sprintf("listing has %d appeals, store has %d unresolved", len(s.Active), unresolved)
	}
	return actors.CheckListing(s.Active, s.Order)
}

func deadlineLead(s Snapshot) string {
	for _, a := range s.Stored {
		if !a.ResolutionDeadline.After(a.EntryTime.Add(appeal.MinResolutionLead)) {
			return fmt.Sprintf("appeal %s deadline %s too close to entry %s", a.ID, a.ResolutionDeadline, a.EntryTime)
		}
	}
	return ""
}
