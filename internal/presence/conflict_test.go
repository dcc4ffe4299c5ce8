package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teamsync/internal/model"
)

func withActivity(id, username, file string) model.MemberWithActivity {
	return model.MemberWithActivity{
		Member:   model.Member{ID: id, GitHubUsername: username},
		Activity: &model.Activity{MemberID: id, FilePath: file},
	}
}

func TestDetectConflicts(t *testing.T) {
	team := []model.MemberWithActivity{
		withActivity("me", "alice", "src/app.ts"),
		withActivity("m2", "bob", "src/app.ts"),
		withActivity("m3", "carol", "src/other.ts"),
		{Member: model.Member{ID: "m4", GitHubUsername: "dave"}},
	}

	tests := []struct {
		name   string
		myFile string
		want   []string
	}{
		{"same file as bob", "src/app.ts", []string{"bob"}},
		{"different file", "src/main.ts", nil},
		{"no active file", "", nil},
		{"same file as carol", "src/other.ts", []string{"carol"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := DetectConflicts(team, "me", tt.myFile)

			var got []string
			for _, c := range conflicts {
				got = append(got, c.Member.GitHubUsername)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectConflicts_OneNoticePerMember(t *testing.T) {
	team := []model.MemberWithActivity{
		withActivity("me", "alice", "src/app.ts"),
		withActivity("m2", "bob", "src/app.ts"),
		withActivity("m3", "carol", "src/app.ts"),
	}

	conflicts := DetectConflicts(team, "me", "src/app.ts")
	require.Len(t, conflicts, 2)
	assert.Equal(t, "bob is editing app.ts", conflicts[0].Message())
	assert.Equal(t, "carol is editing app.ts", conflicts[1].Message())
}

func TestDetectConflicts_ComparesStoredForm(t *testing.T) {
	team := []model.MemberWithActivity{
		withActivity("m2", "bob", "src/app.ts"),
	}

	assert.Empty(t, DetectConflicts(team, "me", "/home/alice/project/src/app.ts"))
}
