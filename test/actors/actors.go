package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"appealdesk/appeal"
)

// Service is the part of appeal.Service the actors drive.
type Service interface {
	ListActive(ctx context.Context) ([]appeal.Appeal, error)
	Create(ctx context.Context, draft appeal.Draft) (appeal.Appeal, error)
	Resolve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Env is shared by every actor of a run. Actors hold Gate for reading around
// each call and its ledger update; oracles take it for writing to observe a
// quiescent store.
type Env struct {
	Service Service
	Ledger  *Ledger
	Gate    *sync.RWMutex
}

func (e Env) do(fn func()) {
	e.Gate.RLock()
	defer e.Gate.RUnlock()
	fn()
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func nap(rng *rand.Rand, base, spread int) {
	time.Sleep(time.Duration(base+rng.Intn(spread)) * time.Millisecond)
}

// Creator submits appeals. Roughly one draft in eight is deliberately invalid
// and must be rejected without being stored.
func Creator(ctx context.Context, env Env, seed int64, stop <-chan struct{}) error {
	rng := rand.New(rand.NewSource(seed))
	for !stopped(ctx, stop) {
		invalid := rng.Intn(8) == 0
		draft := randomDraft(rng, invalid)

		var err error
		env.do(func() {
			var created appeal.Appeal
			created, err = env.Service.Create(ctx, draft)
			if err == nil {
				env.Ledger.Created(created.ID)
			}
		})

		var verr *appeal.ValidationError
		switch {
		case invalid && err == nil:
			return fmt.Errorf("creator: invalid draft accepted: %q", draft.Description)
		case !invalid && errors.As(err, &verr):
			return fmt.Errorf("creator: valid draft rejected: %w", err)
		case err != nil && !errors.As(err, &verr) && ctx.Err() == nil:
			env.Ledger.Failed("")
		}
		nap(rng, 5, 20)
	}
	return nil
}

// Resolver resolves known ids, and sometimes ids nobody created.
func Resolver(ctx context.Context, env Env, seed int64, stop <-chan struct{}) error {
	rng := rand.New(rand.NewSource(seed))
	for !stopped(ctx, stop) {
		id := target(env.Ledger, rng)
		env.do(func() {
			if err := env.Service.Resolve(ctx, id); err != nil {
				if ctx.Err() == nil {
					env.Ledger.Failed(id)
				}
				return
			}
			env.Ledger.Resolved(id)
		})
		nap(rng, 10, 30)
	}
	return nil
}

// Deleter removes known ids, and sometimes ids nobody created.
func Deleter(ctx context.Context, env Env, seed int64, stop <-chan struct{}) error {
	rng := rand.New(rand.NewSource(seed))
	for !stopped(ctx, stop) {
		id := target(env.Ledger, rng)
		env.do(func() {
			if err := env.Service.Delete(ctx, id); err != nil {
				if ctx.Err() == nil {
					env.Ledger.Failed(id)
				}
				return
			}
			env.Ledger.Deleted(id)
		})
		nap(rng, 30, 60)
	}
	return nil
}

// Lister checks every listing it sees is unresolved and ordered.
func Lister(ctx context.Context, env Env, order appeal.ListOrder, seed int64, stop <-chan struct{}) error {
	rng := rand.New(rand.NewSource(seed))
	for !stopped(ctx, stop) {
		active, err := env.Service.ListActive(ctx)
		if err == nil {
			if msg := CheckListing(active, order); msg != "" {
				return fmt.Errorf("lister: %s", msg)
			}
		}
		nap(rng, 5, 15)
	}
	return nil
}

// CheckListing returns a description of the first problem in an active
// listing, or "" when it is well formed.
func CheckListing(active []appeal.Appeal, order appeal.ListOrder) string {
	for i, a := range active {
		if a.IsResolved {
			return fmt.Sprintf("resolved appeal %s listed as active", a.ID)
		}
		if i == 0 {
			continue
		}
		prev := active[i-1].ResolutionDeadline
		outOfOrder := a.ResolutionDeadline.Before(prev)
		if order == appeal.OrderLatestFirst {
			outOfOrder = a.ResolutionDeadline.After(prev)
		}
		if outOfOrder {
			return fmt.Sprintf("appeal %s out of %s order", a.ID, order)
		}
	}
	return ""
}

func target(l *Ledger, rng *rand.Rand) string {
	if rng.Intn(10) == 0 {
		return uuid.NewString()
	}
	if id := l.Pick(rng); id != "" {
		return id
	}
	return uuid.NewString()
}

func randomDraft(rng *rand.Rand, invalid bool) appeal.Draft {
	if invalid {
		if rng.Intn(2) == 0 {
			return appeal.Draft{Description: "too short", ResolutionDeadline: time.Now().Add(time.Hour)}
		}
		return appeal.Draft{
			Description:        "Deadline is far too close to the entry time",
			ResolutionDeadline: time.Now().Add(time.Duration(rng.Intn(25)) * time.Minute),
		}
	}
	words := 4 + rng.Intn(16)
	var b strings.Builder
	b.WriteString("Appeal about")
	for i := 0; i < words; i++ {
		fmt.Fprintf(&b, " item-%d", rng.Intn(1000))
	}
	return appeal.Draft{
		Description:        b.String(),
		ResolutionDeadline: time.Now().Add(35*time.Minute + time.Duration(rng.Intn(48*60))*time.Minute),
	}
}
