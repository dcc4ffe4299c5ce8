package presence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/metrics"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/service"
)

// CommandKind names a user intent coming from a UI surface.
type CommandKind string

const (
	CmdLogin          CommandKind = "login"
	CmdLogout         CommandKind = "logout"
	CmdCreateTeam     CommandKind = "createTeam"
	CmdJoinTeam       CommandKind = "joinTeam"
	CmdLeaveTeam      CommandKind = "leaveTeam"
	CmdSetStatus      CommandKind = "setStatus"
	CmdSaveStatus     CommandKind = "saveStatus"
	CmdCopyInviteCode CommandKind = "copyInviteCode"
)

// Confirms reports whether the command asks the user before acting.
func (k CommandKind) Confirms() bool {
	return k == CmdLeaveTeam
}

// Command is one user intent. Arg carries the team name, invite code or
// status text for the kinds that take one. Done, when set, is closed once
// Dispatch has finished with the command.
type Command struct {
	Kind CommandKind
	Arg  string
	Done chan struct{}
}

// Dispatch runs cmd. Every command except rejected input ends with exactly
// one notice; the returned error is for logging and tests.
func (c *Coordinator) Dispatch(ctx context.Context, cmd Command) error {
	if cmd.Done != nil {
		defer close(cmd.Done)
	}
	var err error
	switch cmd.Kind {
	case CmdLogin:
		err = c.Login(ctx)
	case CmdLogout:
		err = c.Logout(ctx)
	case CmdCreateTeam:
		err = c.CreateTeam(ctx, cmd.Arg)
	case CmdJoinTeam:
		err = c.JoinTeam(ctx, cmd.Arg)
	case CmdLeaveTeam:
		err = c.LeaveTeam(ctx)
	case CmdSetStatus, CmdSaveStatus:
		err = c.SetStatus(ctx, cmd.Arg)
	case CmdCopyInviteCode:
		err = c.CopyInviteCode(ctx)
	default:
		err = apperror.ValidationFailed("command", fmt.Sprintf("unknown command %q", cmd.Kind))
	}
	metrics.RecordCommand(string(cmd.Kind), err)
	return err
}

// Login runs the interactive sign-in and then the same routine as Restore.
// A failed sign-in leaves state untouched.
func (c *Coordinator) Login(ctx context.Context) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.state.IsLoggedIn() {
		c.notifier.Info(fmt.Sprintf("Already signed in as %s", c.state.Username()))
		return nil
	}

	if _, err := c.identity.SignIn(ctx); err != nil {
		c.fail("login", err, "Sign-in failed")
		return err
	}

	if err := c.establish(ctx); err != nil {
		c.fail("login", err, "Signed in, but loading your team failed")
		return err
	}

	c.notifier.Info(fmt.Sprintf("Signed in as %s", c.state.Username()))
	return nil
}

// Logout signs out and resets state. When sign-out fails the state is kept,
// so the UI never shows "signed out" for a live session.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if err := c.identity.SignOut(ctx); err != nil {
		c.fail("logout", err, "Sign-out failed")
		return err
	}

	c.stopSubscription()
	c.state.Reset()
	c.profile = model.Profile{}
	c.render()
	c.notifier.Info("Signed out")
	return nil
}

// CreateTeam creates a team named name and makes it current.
func (c *Coordinator) CreateTeam(ctx context.Context, name string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if strings.TrimSpace(name) == "" {
		return apperror.ValidationFailed("name", "team name must not be empty")
	}
	if err := c.requireLogin("create a team"); err != nil {
		return err
	}

	previous := c.state.TeamID()
	team, member, err := c.teams.Create(ctx, c.profile, name)
	if err != nil {
		c.fail("createTeam", err, "Could not create team")
		return err
	}

	c.enterTeam(ctx, team, member)
	c.leavePrevious(ctx, previous, team.ID)
	c.notifier.Info(fmt.Sprintf("Created team %s. Invite code: %s", team.Name, team.InviteCode))
	return nil
}

// JoinTeam joins the team owning code and makes it current. Joining switches
// away from any team that was current before and drops that membership.
func (c *Coordinator) JoinTeam(ctx context.Context, code string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if strings.TrimSpace(code) == "" {
		return apperror.ValidationFailed("inviteCode", "invite code must not be empty")
	}
	if err := c.requireLogin("join a team"); err != nil {
		return err
	}

	previous := c.state.TeamID()
	team, member, err := c.teams.Join(ctx, c.profile, code)
	if err != nil {
		c.fail("joinTeam", err, "Could not join team")
		return err
	}

	c.enterTeam(ctx, team, member)
	c.leavePrevious(ctx, previous, team.ID)
	c.notifier.Info(fmt.Sprintf("Joined team %s", team.Name))
	return nil
}

// LeaveTeam asks for confirmation, deletes the membership and clears the
// team from state.
func (c *Coordinator) LeaveTeam(ctx context.Context) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if err := c.requireLogin("leave a team"); err != nil {
		return err
	}
	teamID, teamName := c.state.TeamID(), c.state.TeamName()
	if teamID == "" {
		err := apperror.NotFoundMessage("You are not in a team")
		c.fail("leaveTeam", err, "")
		return err
	}

	ok, err := c.confirmer.Confirm(ctx, fmt.Sprintf("Leave team %s? Type yes to confirm", teamName))
	if err != nil {
		c.fail("leaveTeam", err, "Could not confirm leaving the team")
		return err
	}
	if !ok {
		c.notifier.Info(fmt.Sprintf("Still in team %s", teamName))
		return nil
	}

	if err := c.teams.Leave(ctx, teamID, c.profile.ID); err != nil {
		c.fail("leaveTeam", err, "Could not leave team")
		return err
	}

	c.stopSubscription()
	c.state.ClearTeam()
	c.render()
	c.notifier.Info(fmt.Sprintf("Left team %s", teamName))
	return nil
}

// SetStatus stores text as the user's status together with the active file.
// Empty or oversized text is dropped without a message.
func (c *Coordinator) SetStatus(ctx context.Context, text string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if strings.TrimSpace(text) == "" {
		return apperror.ValidationFailed("status", "status must not be empty")
	}
	if utf8.RuneCountInString(text) > service.MaxStatusLength {
		return apperror.ValidationFailed("status", "status is too long")
	}
	if err := c.requireLogin("set a status"); err != nil {
		return err
	}
	_, memberID := c.state.Identity()
	if memberID == "" {
		err := apperror.NotFoundMessage("Join a team to set a status")
		c.fail("setStatus", err, "")
		return err
	}

	err := c.activities.Upsert(ctx, memberID, c.ActiveFile(), &text)
	metrics.RecordActivityUpsert(metrics.SourceStatus, err)
	if err != nil {
		c.fail("setStatus", err, "Could not update status")
		return err
	}

	c.notifier.Info("Status updated")
	return nil
}

// CopyInviteCode puts the current team's invite code on the clipboard.
func (c *Coordinator) CopyInviteCode(ctx context.Context) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	code := c.state.InviteCode()
	if code == "" {
		err := apperror.NotFoundMessage("You are not in a team")
		c.fail("copyInviteCode", err, "")
		return err
	}

	if err := c.clipboard.Copy(code); err != nil {
		c.fail("copyInviteCode", apperror.Remote("Could not copy the invite code", err), "")
		return err
	}

	c.notifier.Info(fmt.Sprintf("Invite code %s copied", code))
	return nil
}

// leavePrevious deletes the membership of the team the user switched away
// from, so a user belongs to one team at a time. A failure is logged; the
// command's notice is about the team entered.
func (c *Coordinator) leavePrevious(ctx context.Context, previousTeamID, currentTeamID string) {
	if previousTeamID == "" || previousTeamID == currentTeamID {
		return
	}
	if err := c.teams.Leave(ctx, previousTeamID, c.profile.ID); err != nil {
		c.logger.Warn("could not leave previous team",
			slog.String("teamID", previousTeamID),
			slog.String("error", err.Error()),
		)
	}
}

// requireLogin reports AuthRequired as the command's notice when nobody is
// signed in.
func (c *Coordinator) requireLogin(action string) error {
	if c.state.IsLoggedIn() {
		return nil
	}
	err := apperror.AuthRequired(fmt.Sprintf("Please sign in to %s", action))
	c.fail(action, err, "")
	return err
}
