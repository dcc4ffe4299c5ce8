// Package presence is the client-side synchronization core of teamsync.
//
// State is the single local source of truth for "am I signed in, which team
// and member am I, and what is everyone doing". The Coordinator is the only
// writer: it runs commands against the identity adapter and the services,
// mutates State, and pushes a Snapshot to every Renderer.
//
// PHASES:
//
//	LoggedOut ──login/restore──▶ LoggedInNoTeam ──create/join/restore──▶ LoggedInWithTeam
//	    ▲                              ▲                                        │
//	    └────────────logout────────────┴──────────────────leave─────────────────┘
package presence

import (
	"slices"
	"sync"

	"github.com/sakif/teamsync/internal/model"
)

// Phase is the coarse state derived from State's fields.
type Phase int

const (
	LoggedOut Phase = iota
	LoggedInNoTeam
	LoggedInWithTeam
)

func (p Phase) String() string {
	switch p {
	case LoggedOut:
		return "logged-out"
	case LoggedInNoTeam:
		return "logged-in-no-team"
	case LoggedInWithTeam:
		return "logged-in-with-team"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of State handed to renderers.
type Snapshot struct {
	LoggedIn   bool
	Username   string
	AvatarURL  string
	TeamID     string
	TeamName   string
	InviteCode string
	MemberID   string
	Members    []model.MemberWithActivity
}

// Phase reports which of the three phases the snapshot is in.
func (s Snapshot) Phase() Phase {
	switch {
	case !s.LoggedIn:
		return LoggedOut
	case s.TeamID == "":
		return LoggedInNoTeam
	default:
		return LoggedInWithTeam
	}
}

// State is the presence state container. Setters never fail and getters
// report absence as the zero value. It is safe for concurrent use.
type State struct {
	mu         sync.RWMutex
	loggedIn   bool
	username   string
	avatarURL  string
	teamID     string
	teamName   string
	inviteCode string
	memberID   string
	members    []model.MemberWithActivity
}

func NewState() *State {
	return &State{}
}

func (s *State) SetLoggedIn(username, avatarURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = true
	s.username = username
	s.avatarURL = avatarURL
}

// SetTeam records the current team. The roster is left alone.
func (s *State) SetTeam(teamID, teamName, inviteCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teamID = teamID
	s.teamName = teamName
	s.inviteCode = inviteCode
}

func (s *State) SetMemberID(memberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberID = memberID
}

// SetMembers replaces the roster wholesale.
func (s *State) SetMembers(members []model.MemberWithActivity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = slices.Clone(members)
}

// SetMembersForTeam replaces the roster only while teamID is still the current
// team. It reports whether the roster was applied.
func (s *State) SetMembersForTeam(teamID string, members []model.MemberWithActivity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if teamID == "" || s.teamID != teamID {
		return false
	}
	s.members = slices.Clone(members)
	return true
}

// ClearTeam drops the team identity, member id and roster. Login is kept.
func (s *State) ClearTeam() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teamID = ""
	s.teamName = ""
	s.inviteCode = ""
	s.memberID = ""
	s.members = nil
}

// Reset returns the state to LoggedOut.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = false
	s.username = ""
	s.avatarURL = ""
	s.teamID = ""
	s.teamName = ""
	s.inviteCode = ""
	s.memberID = ""
	s.members = nil
}

func (s *State) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

func (s *State) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *State) AvatarURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avatarURL
}

func (s *State) TeamID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.teamID
}

func (s *State) TeamName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.teamName
}

func (s *State) InviteCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inviteCode
}

func (s *State) MemberID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memberID
}

// Members returns a copy of the roster.
func (s *State) Members() []model.MemberWithActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.members)
}

// Identity returns the team and member id together, read under one lock.
func (s *State) Identity() (teamID, memberID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.teamID, s.memberID
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		LoggedIn:   s.loggedIn,
		Username:   s.username,
		AvatarURL:  s.avatarURL,
		TeamID:     s.teamID,
		TeamName:   s.teamName,
		InviteCode: s.inviteCode,
		MemberID:   s.memberID,
		Members:    slices.Clone(s.members),
	}
}
