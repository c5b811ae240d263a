// Command validate checks a seed fixture before it is loaded into a gateway.
// It verifies that every record maps to a well-formed event, that stations and
// seismographs are described consistently, and reports which events awaiting
// review could not be rejected as they stand.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/mock/events.json
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/models"
	"github.com/couchcryptid/seismic-review-service/internal/review"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixture := flag.String("fixture", "data/mock/events.json", "path to the JSON event fixture")
	flag.Parse()

	if code := run(*fixture); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Seismic Event Fixture Validation ===")
	fmt.Println()

	recs, err := models.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 1
	}

	mapping, events := validateMapping(recs)
	phases := []*phase{
		mapping,
		validateInstruments(recs),
	}
	notes := reviewReadiness(events)

	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}
	fmt.Println()
	fmt.Printf("Records: %d, mapped events: %d, awaiting review: %d\n", len(recs), len(events), countPending(events))

	failed := false
	for _, p := range phases {
		if p.passed() {
			continue
		}
		failed = true
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}
	if len(notes) > 0 {
		fmt.Println("\n--- Not rejectable as loaded ---")
		for _, n := range notes {
			fmt.Printf("  %s\n", n)
		}
	}

	if failed {
		fmt.Println("\nValidation FAILED.")
		return 1
	}
	fmt.Println("\nAll validations passed.")
	return 0
}

func validateMapping(recs []models.EventRecord) (*phase, []*domain.SeismicEvent) {
	p := &phase{name: "Phase 1: Record mapping"}
	catalog := domain.LoadCatalog()
	instruments := models.NewInstruments()

	seen := make(map[string]int, len(recs))
	events := make([]*domain.SeismicEvent, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		if first, dup := seen[rec.Key]; dup {
			p.errorf("record %d: key %s duplicates record %d", i, rec.Key, first)
			continue
		}
		seen[rec.Key] = i

		if rec.OccurredAt.IsZero() {
			p.errorf("record %d (%s): occurred_at is missing", i, rec.Key)
		}
		if !rec.EndedAt.IsZero() && rec.EndedAt.Before(rec.OccurredAt) {
			p.errorf("record %d (%s): ended_at precedes occurred_at", i, rec.Key)
		}

		ev, err := models.ToDomain(rec, catalog, instruments)
		if err != nil {
			p.errorf("record %d: %v", i, err)
			continue
		}
		if err := domain.CheckHistory(ev); err != nil {
			p.errorf("record %d (%s): %v", i, rec.Key, err)
			continue
		}
		events = append(events, ev)
	}
	return p, events
}

func validateInstruments(recs []models.EventRecord) *phase {
	p := &phase{name: "Phase 2: Station and seismograph consistency"}
	stations := make(map[string]string)
	seismographs := make(map[string]models.SeismographRecord)

	for _, rec := range recs {
		for j, sr := range rec.Series {
			sg := sr.Seismograph
			if sg == nil {
				continue
			}
			if sg.Identifier == "" {
				p.errorf("%s series %d: seismograph without identifier", rec.Key, j)
				continue
			}
			if sg.Station != nil {
				if sg.Station.Code == "" {
					p.errorf("%s series %d: station without code", rec.Key, j)
				} else if name, ok := stations[sg.Station.Code]; ok && name != sg.Station.Name {
					p.errorf("station %s named both %q and %q", sg.Station.Code, name, sg.Station.Name)
				} else {
					stations[sg.Station.Code] = sg.Station.Name
				}
			}
			if prev, ok := seismographs[sg.Identifier]; ok {
				if prev.SerialNumber != sg.SerialNumber || stationCode(prev) != stationCode(*sg) {
					p.errorf("seismograph %s described differently in %s series %d", sg.Identifier, rec.Key, j)
				}
				continue
			}
			seismographs[sg.Identifier] = *sg
		}
	}
	return p
}

func stationCode(sg models.SeismographRecord) string {
	if sg.Station == nil {
		return ""
	}
	return sg.Station.Code
}

// reviewReadiness lists pending events a rejection would refuse. These are
// expected in a realistic fixture and do not fail validation.
func reviewReadiness(events []*domain.SeismicEvent) []string {
	var notes []string
	for _, ev := range events {
		if !ev.InState(domain.StateAutoDetected) {
			continue
		}
		var incomplete *review.IncompleteDataError
		if err := review.CheckRejectable(ev); errors.As(err, &incomplete) {
			notes = append(notes, fmt.Sprintf("%s: %s (%s)", ev.ID, incomplete.Field, incomplete.Reason))
		}
	}
	return notes
}

func countPending(events []*domain.SeismicEvent) int {
	n := 0
	for _, ev := range events {
		if ev.InState(domain.StateAutoDetected) {
			n++
		}
	}
	return n
}
