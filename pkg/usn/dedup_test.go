package usn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ram-shortage/brindex/pkg/types"
)

func TestDeduplicateRemovesCreateDelete(t *testing.T) {
	changes := []types.UsnChange{
		{FileRef: 100, Name: "temp.tmp", ChangeType: types.ChangeCreate},
		{FileRef: 100, Name: "temp.tmp", ChangeType: types.ChangeDelete},
	}
	out := Deduplicate(changes)
	assert.Empty(t, out)
}

func TestDeduplicateKeepsFinalState(t *testing.T) {
	changes := []types.UsnChange{
		{FileRef: 100, Name: "old.txt", ChangeType: types.ChangeCreate},
		{FileRef: 100, Name: "new.txt", ChangeType: types.ChangeRename},
	}
	out := Deduplicate(changes)
	require := assert.New(t)
	require.Len(out, 1)
	require.Equal("new.txt", out[0].Name)
	require.Equal(types.ChangeRename, out[0].ChangeType)
}

func TestDeduplicateMultipleFiles(t *testing.T) {
	changes := []types.UsnChange{
		{FileRef: 100, Name: "a.txt", ChangeType: types.ChangeCreate},
		{FileRef: 200, Name: "b.txt", ChangeType: types.ChangeCreate},
		{FileRef: 100, Name: "a.txt", ChangeType: types.ChangeModify},
	}
	out := Deduplicate(changes)
	assert.Len(t, out, 2)
}

// A delete that lands on a ref whose accumulated state is not Create
// (e.g. a Modify) is not annihilated, matching the original reducer
// which only collapses the Create-then-Delete pair, never Modify-then-Delete.
func TestDeduplicateModifyThenDeleteSurvives(t *testing.T) {
	changes := []types.UsnChange{
		{FileRef: 100, Name: "a.txt", ChangeType: types.ChangeCreate},
		{FileRef: 100, Name: "a.txt", ChangeType: types.ChangeModify},
		{FileRef: 100, Name: "a.txt", ChangeType: types.ChangeDelete},
	}
	out := Deduplicate(changes)
	require := assert.New(t)
	require.Len(out, 1)
	require.Equal(types.ChangeDelete, out[0].ChangeType)
}

func TestDeduplicateRecreateAfterAnnihilationSurvives(t *testing.T) {
	changes := []types.UsnChange{
		{FileRef: 100, Name: "a.txt", ChangeType: types.ChangeCreate},
		{FileRef: 100, Name: "a.txt", ChangeType: types.ChangeDelete},
		{FileRef: 100, Name: "a.txt", ChangeType: types.ChangeCreate},
	}
	out := Deduplicate(changes)
	require := assert.New(t)
	require.Len(out, 1)
	require.Equal(types.ChangeCreate, out[0].ChangeType)
}

func TestDeduplicateEmptyInput(t *testing.T) {
	out := Deduplicate(nil)
	assert.Empty(t, out)
}
