package presence

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

// RosterSource fetches the full roster of a team.
type RosterSource interface {
	Roster(ctx context.Context, teamID string) ([]model.MemberWithActivity, error)
}

// Subscription keeps one team's roster fresh.
//
// Change notifications land in a one-slot queue; a notification that arrives
// while the slot is full is dropped, because the pending refresh will already
// observe it. A single worker drains the queue, so each fetch and its onUpdate
// call finish before the next fetch starts. Refresh shares that ordering.
type Subscription struct {
	teamID  string
	source  RosterSource
	fetchMu sync.Mutex // held across a fetch and the apply of its result
	pending chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	unsubs  []func()
	once    sync.Once
}

// StartSubscription subscribes to member and activity changes of the store and
// calls onUpdate with a freshly fetched roster after each burst of changes.
// Callers fetch the initial roster themselves with Refresh.
func StartSubscription(ctx context.Context, feed repository.Changefeed, source RosterSource, teamID string, onUpdate func([]model.MemberWithActivity), logger *slog.Logger) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		teamID:  teamID,
		source:  source,
		pending: make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	notify := func() {
		select {
		case s.pending <- struct{}{}:
		default:
		}
	}
	s.unsubs = []func(){
		feed.SubscribeTable(repository.TableActivities, notify),
		feed.SubscribeTable(repository.TableMembers, notify),
	}

	go s.run(ctx, onUpdate, logger)
	return s
}

// Refresh fetches the roster and hands it to apply without overlapping a
// worker refresh, so a slower fetch never replaces a newer roster.
func (s *Subscription) Refresh(ctx context.Context, apply func([]model.MemberWithActivity)) error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	roster, err := s.source.Roster(ctx, s.teamID)
	if err != nil {
		return err
	}
	apply(roster)
	return nil
}

func (s *Subscription) run(ctx context.Context, onUpdate func([]model.MemberWithActivity), logger *slog.Logger) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.pending:
		}

		if !s.refreshOnce(ctx, onUpdate, logger) {
			return
		}
	}
}

// refreshOnce reports false once ctx is done.
func (s *Subscription) refreshOnce(ctx context.Context, onUpdate func([]model.MemberWithActivity), logger *slog.Logger) bool {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	roster, err := s.source.Roster(ctx, s.teamID)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		logger.Warn("roster refresh failed",
			slog.String("teamID", s.teamID),
			slog.String("error", err.Error()),
		)
		return true
	}
	onUpdate(roster)
	return true
}

// TeamID returns the team this subscription follows.
func (s *Subscription) TeamID() string {
	return s.teamID
}

// Stop unsubscribes and waits for an in-flight refresh to finish. It is safe
// to call more than once and on a nil Subscription.
func (s *Subscription) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		for _, unsub := range s.unsubs {
			unsub()
		}
		s.cancel()
		<-s.done
	})
}
