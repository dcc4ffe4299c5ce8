package presence

import (
	"fmt"
	"path"

	"github.com/sakif/teamsync/internal/model"
)

// Conflict is another member reporting the same file as the local user.
type Conflict struct {
	Member   model.MemberWithActivity
	FilePath string
}

// Message is the notice shown to the local user.
func (c Conflict) Message() string {
	return fmt.Sprintf("%s is editing %s", c.Member.GitHubUsername, path.Base(c.FilePath))
}

// DetectConflicts returns one Conflict per other member whose reported file is
// myFile. Paths are compared in their stored, workspace-relative form. An
// empty myFile never conflicts.
func DetectConflicts(roster []model.MemberWithActivity, myMemberID, myFile string) []Conflict {
	if myFile == "" {
		return nil
	}

	var conflicts []Conflict
	for _, m := range roster {
		if m.ID == myMemberID || m.Activity == nil {
			continue
		}
		if m.Activity.FilePath == myFile {
			conflicts = append(conflicts, Conflict{Member: m, FilePath: myFile})
		}
	}
	return conflicts
}
