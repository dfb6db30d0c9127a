package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
)

// Stats summarises one reconciliation for the run audit.
type Stats struct {
	InputRecords  int
	LedgerRecords int
	Rejected      int // invalid quantity, never in the ledger
	Overridden    int // lost a duplicate-key conflict
	DuplicateKeys int // keys reported by more than one record
}

// Result is the canonical ledger plus the exceptions raised while building it.
type Result struct {
	Ledger     []domain.CountRecord
	Exceptions []domain.ExceptionRecord
	Stats      Stats
}

// Reconciler merges count sources into one deduplicated ledger.
type Reconciler struct {
	now func() time.Time
}

// NewReconciler creates a reconciler stamping exceptions with the wall clock.
func NewReconciler() *Reconciler {
	return &Reconciler{now: time.Now}
}

// WithClock overrides the exception timestamp source.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile runs a reconciler with the wall clock.
func Reconcile(sources ...domain.CountSource) Result {
	return NewReconciler().Reconcile(sources...)
}

type candidate struct {
	rec   domain.CountRecord
	order int
}

// Reconcile concatenates the sources, rejects invalid quantities and resolves duplicate canonical
// keys. A source with an empty Source keeps the tags already on its records, which is how a
// reconciled ledger is fed back in.
//
// Within a key the latest SubmittedAt wins; equal timestamps go to the higher source priority
// (System over Forms over Manual), and a remaining tie goes to the record read last.
func (r *Reconciler) Reconcile(sources ...domain.CountSource) Result {
	at := r.now()
	res := Result{}

	groups := make(map[string][]candidate)
	var keys []string
	order := 0

	for _, src := range sources {
		for _, rec := range src.Records {
			if src.Source != "" {
				rec.Source = src.Source
			}
			res.Stats.InputRecords++
			order++

			if !rec.HasValidQty() {
				res.Exceptions = append(res.Exceptions, domain.NewInvalidQuantity(rec, at))
				res.Stats.Rejected++
				log.Debug().Str("key", rec.UniqueKey()).Str("source", string(rec.Source)).
					Msg("reconcile: rejected invalid quantity")
				continue
			}

			key := rec.UniqueKey()
			if _, seen := groups[key]; !seen {
				keys = append(keys, key)
			}
			groups[key] = append(groups[key], candidate{rec: rec, order: order})
		}
	}

	sort.Strings(keys)
	res.Ledger = make([]domain.CountRecord, 0, len(keys))

	for _, key := range keys {
		group := groups[key]
		winner := pickWinner(group)
		res.Ledger = append(res.Ledger, group[winner].rec)

		if len(group) == 1 {
			continue
		}

		res.Stats.DuplicateKeys++
		origins := groupSources(group)
		kept := group[winner].rec
		for i, c := range group {
			if i == winner {
				continue
			}
			res.Stats.Overridden++
			res.Exceptions = append(res.Exceptions, domain.ExceptionRecord{
				Kind:     domain.ExceptionDuplicateKey,
				Severity: domain.SeverityMedium,
				Key:      key,
				SKU:      c.rec.SKU,
				Sources:  origins,
				Detail: fmt.Sprintf("%d records share key; kept %s submitted %s",
					len(group), kept.Source, kept.SubmittedAt.Format(time.RFC3339)),
				Record:   c.rec.String(),
				Status:   domain.ExceptionStatusOpen,
				LoggedAt: at,
			})
		}
	}

	res.Stats.LedgerRecords = len(res.Ledger)

	log.Info().
		Int("input", res.Stats.InputRecords).
		Int("ledger", res.Stats.LedgerRecords).
		Int("rejected", res.Stats.Rejected).
		Int("duplicate_keys", res.Stats.DuplicateKeys).
		Int("overridden", res.Stats.Overridden).
		Msg("reconcile: counts unified")

	return res
}

// pickWinner returns the index of the record that survives a key conflict.
func pickWinner(group []candidate) int {
	best := 0
	for i := 1; i < len(group); i++ {
		if beats(group[i], group[best]) {
			best = i
		}
	}
	return best
}

func beats(a, b candidate) bool {
	if !a.rec.SubmittedAt.Equal(b.rec.SubmittedAt) {
		return a.rec.SubmittedAt.After(b.rec.SubmittedAt)
	}
	if pa, pb := a.rec.Source.Priority(), b.rec.Source.Priority(); pa != pb {
		return pa > pb
	}
	return a.order > b.order
}

// groupSources lists the distinct origins of a group, lowest priority first.
func groupSources(group []candidate) []domain.Source {
	seen := make(map[domain.Source]bool)
	var out []domain.Source
	for _, c := range group {
		if seen[c.rec.Source] {
			continue
		}
		seen[c.rec.Source] = true
		out = append(out, c.rec.Source)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}
