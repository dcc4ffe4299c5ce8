// Package ui turns a presence snapshot into the items of the team tree and
// the context keys that gate editor commands.
//
// The tree is a flat list of Items. Each Item is one of a fixed set of kinds
// and every kind has its own render function; Render switches on the kind.
package ui

import (
	"fmt"
	"strings"

	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/presence"
)

// ItemKind tags the variant an Item holds.
type ItemKind int

const (
	KindStatus ItemKind = iota
	KindMember
	KindInviteHeader
	KindInviteDescription
	KindInviteAction
)

func (k ItemKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindMember:
		return "member"
	case KindInviteHeader:
		return "invite-header"
	case KindInviteDescription:
		return "invite-description"
	case KindInviteAction:
		return "invite-action"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Item is one row of the tree.
//
// Command is the command a click on the row emits, if any. Member is set only
// for KindMember rows; IsSelf marks the signed-in user's own row.
type Item struct {
	Kind        ItemKind
	Label       string
	Description string
	Tooltip     string
	Command     presence.CommandKind
	Member      *model.MemberWithActivity
	IsSelf      bool
}

// BuildTree lays out the rows for s. The shape depends only on the phase:
//
//	logged out:        a sign-in row
//	signed in, no team: who is signed in plus create and join rows
//	in a team:         the team, one row per member, then the invite section
func BuildTree(s presence.Snapshot) []Item {
	switch s.Phase() {
	case presence.LoggedOut:
		return []Item{{
			Kind:        KindStatus,
			Label:       "Not signed in",
			Description: "Sign in with GitHub",
			Command:     presence.CmdLogin,
		}}

	case presence.LoggedInNoTeam:
		return []Item{
			{Kind: KindStatus, Label: "Signed in as " + s.Username, Description: "No team yet"},
			{Kind: KindStatus, Label: "Create a team", Command: presence.CmdCreateTeam},
			{Kind: KindStatus, Label: "Join a team", Description: "with an invite code", Command: presence.CmdJoinTeam},
		}
	}

	items := make([]Item, 0, len(s.Members)+4)
	items = append(items, Item{
		Kind:        KindStatus,
		Label:       s.TeamName,
		Description: memberCount(len(s.Members)),
		Tooltip:     "Signed in as " + s.Username,
	})
	for i := range s.Members {
		items = append(items, memberItem(&s.Members[i], s.MemberID))
	}
	items = append(items,
		Item{Kind: KindInviteHeader, Label: "Invite teammates"},
		Item{Kind: KindInviteDescription, Label: "Share this code: " + s.InviteCode},
		Item{Kind: KindInviteAction, Label: "Copy invite code", Tooltip: s.InviteCode, Command: presence.CmdCopyInviteCode},
	)
	return items
}

func memberItem(m *model.MemberWithActivity, myMemberID string) Item {
	it := Item{
		Kind:   KindMember,
		Label:  m.GitHubUsername,
		Member: m,
		IsSelf: m.ID == myMemberID,
	}
	if file := m.FilePath(); file != "" {
		it.Description = "editing " + file
	} else {
		it.Description = "idle"
	}
	if status := m.StatusMessage(); status != "" {
		it.Tooltip = status
	} else {
		it.Tooltip = "No status"
	}
	return it
}

func memberCount(n int) string {
	if n == 1 {
		return "1 member"
	}
	return fmt.Sprintf("%d members", n)
}

// ContextKeys are the booleans the editor uses to show or hide commands.
type ContextKeys struct {
	LoggedIn bool `json:"teamSync.loggedIn"`
	HasTeam  bool `json:"teamSync.hasTeam"`
}

// KeysFor derives the context keys from s.
func KeysFor(s presence.Snapshot) ContextKeys {
	return ContextKeys{
		LoggedIn: s.LoggedIn,
		HasTeam:  s.TeamID != "",
	}
}

// Title is the view title for s: the team name when there is one.
func Title(s presence.Snapshot) string {
	if name := strings.TrimSpace(s.TeamName); name != "" {
		return "Team Sync: " + name
	}
	return "Team Sync"
}
