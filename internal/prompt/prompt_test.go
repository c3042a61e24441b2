package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-shuttle/wingman/internal/history"
)

func TestBuildTemplateOrdering(t *testing.T) {
	turns := []history.Turn{{ID: 1, Role: history.RolePeer, Text: "hi"}}

	tpl := BuildTemplate(turns, "be nice", "Alice")

	systemBlock := TurnStart + "system\nbe nice" + TurnEnd + "\n"
	peerBlock := TurnStart + "user\nhi" + TurnEnd + "\n"
	openBlock := TurnStart + "model\n"

	sysIdx := strings.Index(tpl.Prompt, systemBlock)
	peerIdx := strings.Index(tpl.Prompt, peerBlock)
	require.GreaterOrEqual(t, sysIdx, 0)
	require.Greater(t, peerIdx, sysIdx)
	assert.True(t, strings.HasSuffix(tpl.Prompt, openBlock))
}

func TestBuildTemplateRoleTags(t *testing.T) {
	turns := []history.Turn{
		{ID: 1, Role: history.RolePeer, Text: "question"},
		{ID: 2, Role: history.RoleSelf, Text: "answer"},
	}

	tpl := BuildTemplate(turns, "sys", "Alice")

	assert.Contains(t, tpl.Prompt, TurnStart+"user\nquestion"+TurnEnd)
	assert.Contains(t, tpl.Prompt, TurnStart+"model\nanswer"+TurnEnd)
}

func TestBuildTemplateStopSequences(t *testing.T) {
	tpl := BuildTemplate(nil, "sys", "Alice")

	assert.Equal(t, []string{TurnStart, TurnEnd, "Alice:", "Me:"}, tpl.StopSequences)
}

func TestBuildRoleArrayMergesAdjacentRoles(t *testing.T) {
	turns := []history.Turn{
		{ID: 1, Role: history.RolePeer, Text: "a"},
		{ID: 2, Role: history.RolePeer, Text: "b"},
		{ID: 3, Role: history.RoleSelf, Text: "c"},
	}

	out, err := BuildRoleArray(turns)
	require.NoError(t, err)
	assert.Equal(t, []RoleTurn{
		{Role: history.RolePeer, Text: "a\nb"},
		{Role: history.RoleSelf, Text: "c"},
	}, out)
}

func TestBuildRoleArrayDropsLeadingSelfRun(t *testing.T) {
	turns := []history.Turn{
		{ID: 1, Role: history.RoleSelf, Text: "me first"},
		{ID: 2, Role: history.RoleSelf, Text: "me again"},
		{ID: 3, Role: history.RolePeer, Text: "them"},
		{ID: 4, Role: history.RoleSelf, Text: "me"},
	}

	out, err := BuildRoleArray(turns)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, RoleTurn{Role: history.RolePeer, Text: "them"}, out[0])
	assert.Equal(t, RoleTurn{Role: history.RoleSelf, Text: "me"}, out[1])
}

func TestBuildRoleArrayEmptyContext(t *testing.T) {
	tests := []struct {
		name  string
		turns []history.Turn
	}{
		{"no turns", nil},
		{"only self turns", []history.Turn{
			{ID: 1, Role: history.RoleSelf, Text: "a"},
			{ID: 2, Role: history.RoleSelf, Text: "b"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRoleArray(tt.turns)
			assert.ErrorIs(t, err, ErrEmptyContext)
		})
	}
}

func TestRoleStops(t *testing.T) {
	assert.Equal(t, []string{"Bob:", "Me:"}, RoleStops("Bob"))
}
