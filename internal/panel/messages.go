package panel

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/presence"
	"github.com/sakif/teamsync/internal/service"
)

// Message types the page posts to /api/messages.
const (
	MsgReady          = "ready"
	MsgLogin          = "login"
	MsgLogout         = "logout"
	MsgCreateTeam     = "createTeam"
	MsgJoinTeam       = "joinTeam"
	MsgLeaveTeam      = "leaveTeam"
	MsgSaveStatus     = "saveStatus"
	MsgCopyInviteCode = "copyInviteCode"
)

// Message is the envelope of a page message. Payload fields are kept raw
// until the type is known so each one can be checked for its JSON type.
type Message struct {
	Type   string          `json:"type"`
	Status json.RawMessage `json:"status,omitempty"`
	Name   json.RawMessage `json:"name,omitempty"`
	Code   json.RawMessage `json:"code,omitempty"`
}

// ToCommand validates m and converts it to a command. A "ready" message has
// no command; ok is false for it.
func (m Message) ToCommand() (cmd presence.Command, ok bool, err error) {
	switch m.Type {
	case MsgReady:
		return presence.Command{}, false, nil
	case MsgLogin:
		return presence.Command{Kind: presence.CmdLogin}, true, nil
	case MsgLogout:
		return presence.Command{Kind: presence.CmdLogout}, true, nil
	case MsgLeaveTeam:
		return presence.Command{Kind: presence.CmdLeaveTeam}, true, nil
	case MsgCopyInviteCode:
		return presence.Command{Kind: presence.CmdCopyInviteCode}, true, nil
	case MsgCreateTeam:
		name, err := optionalString("name", m.Name)
		if err != nil {
			return presence.Command{}, false, err
		}
		return presence.Command{Kind: presence.CmdCreateTeam, Arg: name}, true, nil
	case MsgJoinTeam:
		code, err := optionalString("code", m.Code)
		if err != nil {
			return presence.Command{}, false, err
		}
		return presence.Command{Kind: presence.CmdJoinTeam, Arg: code}, true, nil
	case MsgSaveStatus:
		status, err := statusString(m.Status)
		if err != nil {
			return presence.Command{}, false, err
		}
		return presence.Command{Kind: presence.CmdSaveStatus, Arg: status}, true, nil
	case "":
		return presence.Command{}, false, apperror.ValidationFailed("type", "message type is required")
	}
	return presence.Command{}, false, apperror.ValidationFailed("type", fmt.Sprintf("unknown message type %q", m.Type))
}

// statusString accepts only a JSON string of at most service.MaxStatusLength
// characters.
func statusString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", apperror.ValidationFailed("status", "status is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", apperror.ValidationFailed("status", "status must be a string")
	}
	if utf8.RuneCountInString(s) > service.MaxStatusLength {
		return "", apperror.ValidationFailed("status",
			fmt.Sprintf("status must be at most %d characters", service.MaxStatusLength))
	}
	return s, nil
}

func optionalString(field string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", apperror.ValidationFailed(field, field+" must be a string")
	}
	return s, nil
}
