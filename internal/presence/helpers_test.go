package presence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/changefeed"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository/sqlite"
	"github.com/sakif/teamsync/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIdentity signs in as profile. Error fields make the matching call fail.
type fakeIdentity struct {
	mu         sync.Mutex
	profile    model.Profile
	signedIn   bool
	signInErr  error
	signOutErr error
	signIns    int
}

func (f *fakeIdentity) GetSession(ctx context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signedIn {
		return nil, nil
	}
	return &model.Session{UserID: f.profile.ID}, nil
}

func (f *fakeIdentity) GetUserProfile(ctx context.Context) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signedIn {
		return model.Profile{}, apperror.AuthRequired("please sign in first")
	}
	return f.profile, nil
}

func (f *fakeIdentity) SignIn(ctx context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.signedIn = true
	return &model.Session{UserID: f.profile.ID}, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.signedIn = false
	return nil
}

type upsertCall struct {
	MemberID string
	FilePath string
	Status   *string
}

// recordingActivities records every Upsert before passing it on.
type recordingActivities struct {
	Activities
	mu      sync.Mutex
	calls   []upsertCall
	failErr error
}

func (r *recordingActivities) Upsert(ctx context.Context, memberID, filePath string, status *string) error {
	r.mu.Lock()
	r.calls = append(r.calls, upsertCall{MemberID: memberID, FilePath: filePath, Status: status})
	failErr := r.failErr
	r.mu.Unlock()
	if failErr != nil {
		return failErr
	}
	return r.Activities.Upsert(ctx, memberID, filePath, status)
}

func (r *recordingActivities) upserts() []upsertCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]upsertCall(nil), r.calls...)
}

type notice struct {
	Level string
	Msg   string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *recordingNotifier) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{level, msg})
}

func (n *recordingNotifier) Info(msg string)  { n.add("info", msg) }
func (n *recordingNotifier) Warn(msg string)  { n.add("warn", msg) }
func (n *recordingNotifier) Error(msg string) { n.add("error", msg) }

func (n *recordingNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = nil
}

func (n *recordingNotifier) count(level string) int {
	c := 0
	for _, x := range n.all() {
		if x.Level == level {
			c++
		}
	}
	return c
}

type recordingRenderer struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (r *recordingRenderer) Render(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recordingRenderer) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return Snapshot{}
	}
	return r.snapshots[len(r.snapshots)-1]
}

type scriptedConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (s *scriptedConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	s.prompts = append(s.prompts, prompt)
	return s.answer, s.err
}

type fakeClipboard struct {
	copied []string
	err    error
}

func (f *fakeClipboard) Copy(text string) error {
	if f.err != nil {
		return f.err
	}
	f.copied = append(f.copied, text)
	return nil
}

// env is a coordinator wired to an in-memory store and real services.
type env struct {
	coord      *Coordinator
	identity   *fakeIdentity
	activities *recordingActivities
	teams      *service.TeamService
	db         *sqlite.DB
	hub        *changefeed.Hub
	notifier   *recordingNotifier
	renderer   *recordingRenderer
	confirmer  *scriptedConfirmer
	clipboard  *fakeClipboard
}

func newEnv(t *testing.T, profile model.Profile) *env {
	t.Helper()

	hub := changefeed.NewHub()
	db, err := sqlite.New(":memory:", hub)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	e := &env{
		identity:   &fakeIdentity{profile: profile},
		activities: &recordingActivities{Activities: service.NewActivityService(db, db, logger)},
		teams:      service.NewTeamService(db, db, logger),
		db:         db,
		hub:        hub,
		notifier:   &recordingNotifier{},
		renderer:   &recordingRenderer{},
		confirmer:  &scriptedConfirmer{answer: true},
		clipboard:  &fakeClipboard{},
	}
	e.coord = NewCoordinator(NewState(), Deps{
		Identity:   e.identity,
		Teams:      e.teams,
		Activities: e.activities,
		Feed:       db,
		Renderer:   e.renderer,
		Notifier:   e.notifier,
		Confirmer:  e.confirmer,
		Clipboard:  e.clipboard,
		Logger:     logger,
	})
	t.Cleanup(e.coord.Close)
	return e
}

// login signs in and discards the notices it produced.
func (e *env) login(t *testing.T) {
	t.Helper()
	require.NoError(t, e.coord.Login(context.Background()))
	e.notifier.reset()
}

// eventually polls cond until it holds or a second has passed.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

var errBoom = errors.New("boom")
