package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/metrics"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

// Identity is the session adapter.
type Identity interface {
	GetSession(ctx context.Context) (*model.Session, error)
	GetUserProfile(ctx context.Context) (model.Profile, error)
	SignIn(ctx context.Context) (*model.Session, error)
	SignOut(ctx context.Context) error
}

// Teams is the team and membership service.
type Teams interface {
	Create(ctx context.Context, profile model.Profile, name string) (*model.Team, *model.Member, error)
	Join(ctx context.Context, profile model.Profile, code string) (*model.Team, *model.Member, error)
	Leave(ctx context.Context, teamID, userID string) error
	MyTeam(ctx context.Context, userID string) (*model.Team, error)
	MyMember(ctx context.Context, teamID, userID string) (*model.Member, error)
}

// Activities is the activity service.
type Activities interface {
	RosterSource
	Upsert(ctx context.Context, memberID, filePath string, status *string) error
}

// Renderer draws a snapshot of presence state.
type Renderer interface {
	Render(Snapshot)
}

// Renderers fans a snapshot out to several renderers in order.
type Renderers []Renderer

func (rs Renderers) Render(s Snapshot) {
	for _, r := range rs {
		r.Render(s)
	}
}

// Notifier shows one-line status messages to the user.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Confirmer asks the user a yes/no question. Only an explicit yes confirms.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Clipboard receives text the user asked to copy.
type Clipboard interface {
	Copy(text string) error
}

// Deps are the collaborators of a Coordinator. All fields are required.
type Deps struct {
	Identity   Identity
	Teams      Teams
	Activities Activities
	Feed       repository.Changefeed
	Renderer   Renderer
	Notifier   Notifier
	Confirmer  Confirmer
	Clipboard  Clipboard
	Logger     *slog.Logger
}

// Coordinator owns State and runs every command that changes it.
//
// Commands are serialized by cmdMu. Roster updates from the subscription only
// take State's own lock, so stopping a subscription while holding cmdMu cannot
// deadlock against its worker. File-focus events do not take cmdMu either, so
// they are not held up by a pending sign-in.
type Coordinator struct {
	state      *State
	identity   Identity
	teams      Teams
	activities Activities
	feed       repository.Changefeed
	renderer   Renderer
	notifier   Notifier
	confirmer  Confirmer
	clipboard  Clipboard
	logger     *slog.Logger

	cmdMu   sync.Mutex
	profile model.Profile // guarded by cmdMu
	sub     *Subscription // guarded by cmdMu

	fileMu     sync.Mutex
	activeFile string
}

func NewCoordinator(state *State, deps Deps) *Coordinator {
	return &Coordinator{
		state:      state,
		identity:   deps.Identity,
		teams:      deps.Teams,
		activities: deps.Activities,
		feed:       deps.Feed,
		renderer:   deps.Renderer,
		notifier:   deps.Notifier,
		confirmer:  deps.Confirmer,
		clipboard:  deps.Clipboard,
		logger:     deps.Logger,
	}
}

// State returns the state the coordinator writes to.
func (c *Coordinator) State() *State {
	return c.state
}

// Restore picks up a persisted session at startup. With no session the state
// stays LoggedOut. Restore is not a user command and shows no notice.
func (c *Coordinator) Restore(ctx context.Context) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	session, err := c.identity.GetSession(ctx)
	if err != nil {
		c.logger.Warn("session restore failed", slog.String("error", err.Error()))
		c.render()
		return err
	}
	if session == nil {
		c.logger.Info("no saved session")
		c.render()
		return nil
	}

	if err := c.establish(ctx); err != nil {
		c.logger.Warn("session restore incomplete", slog.String("error", err.Error()))
		return err
	}
	c.logger.Info("session restored",
		slog.String("user", c.profile.Username),
		slog.String("team", c.state.TeamName()),
	)
	return nil
}

// establish loads the signed-in profile and, if the user belongs to a team,
// that team, membership and roster. Restore and Login both end here.
func (c *Coordinator) establish(ctx context.Context) error {
	profile, err := c.identity.GetUserProfile(ctx)
	if err != nil {
		c.render()
		return err
	}
	c.profile = profile
	c.state.SetLoggedIn(profile.Username, profile.AvatarURL)

	team, err := c.teams.MyTeam(ctx, profile.ID)
	if err != nil {
		c.render()
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}

	member, err := c.teams.MyMember(ctx, team.ID, profile.ID)
	if err != nil {
		c.render()
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}

	c.enterTeam(ctx, team, member)
	return nil
}

// enterTeam makes team current: the previous subscription is stopped, team
// and member ids are set together, a new subscription is started and the
// initial roster is fetched before rendering.
func (c *Coordinator) enterTeam(ctx context.Context, team *model.Team, member *model.Member) {
	c.stopSubscription()

	c.state.SetTeam(team.ID, team.Name, team.InviteCode)
	c.state.SetMemberID(member.ID)
	c.state.SetMembers(nil)

	// Subscribe before the initial fetch so no change falls between the two.
	c.sub = StartSubscription(context.WithoutCancel(ctx), c.feed, c.activities, team.ID, c.rosterHandler(team.ID), c.logger)

	err := c.sub.Refresh(ctx, func(roster []model.MemberWithActivity) {
		c.state.SetMembersForTeam(team.ID, roster)
	})
	if err != nil {
		c.logger.Warn("initial roster fetch failed",
			slog.String("teamID", team.ID),
			slog.String("error", err.Error()),
		)
	}
	c.render()
}

// rosterHandler applies subscription snapshots for teamID. A snapshot that
// arrives after the team was left or switched is dropped.
func (c *Coordinator) rosterHandler(teamID string) func([]model.MemberWithActivity) {
	return func(roster []model.MemberWithActivity) {
		if !c.state.SetMembersForTeam(teamID, roster) {
			c.logger.Debug("dropping roster for inactive team", slog.String("teamID", teamID))
			return
		}
		metrics.IncrementRosterRefreshes()
		c.render()
		c.warnConflicts(roster)
	}
}

func (c *Coordinator) warnConflicts(roster []model.MemberWithActivity) {
	conflicts := DetectConflicts(roster, c.state.MemberID(), c.ActiveFile())
	for _, conflict := range conflicts {
		c.notifier.Warn(conflict.Message())
	}
	metrics.AddConflicts(len(conflicts))
}

func (c *Coordinator) stopSubscription() {
	c.sub.Stop()
	c.sub = nil
}

func (c *Coordinator) render() {
	c.renderer.Render(c.state.Snapshot())
}

// fail reports err as the command's single notice. Validation failures are
// silent: the input is dropped without a message.
func (c *Coordinator) fail(command string, err error, fallback string) {
	if errors.Is(err, apperror.ErrValidation) {
		c.logger.Debug("input rejected", slog.String("command", command), slog.String("error", err.Error()))
		return
	}
	c.logger.Warn("command failed", slog.String("command", command), slog.String("error", err.Error()))
	c.notifier.Error(apperror.UserMessage(err, fallback))
}

// ActiveFile returns the last focused workspace-relative path.
func (c *Coordinator) ActiveFile() string {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()
	return c.activeFile
}

// FileFocused records path as the active file and reports it as the user's
// activity when they are in a team. Failures are logged only.
func (c *Coordinator) FileFocused(ctx context.Context, path string) {
	c.fileMu.Lock()
	c.activeFile = path
	c.fileMu.Unlock()

	teamID, memberID := c.state.Identity()
	if teamID == "" || memberID == "" {
		return
	}

	err := c.activities.Upsert(ctx, memberID, path, nil)
	metrics.RecordActivityUpsert(metrics.SourceFocus, err)
	if err != nil {
		c.logger.Warn("activity update failed",
			slog.String("memberID", memberID),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// Close stops the roster subscription.
func (c *Coordinator) Close() {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	c.stopSubscription()
}
