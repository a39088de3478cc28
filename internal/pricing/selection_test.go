package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectionKeepsStandardEditing(t *testing.T) {
	sel, err := NewSelection(map[string]bool{"standardEditing": false, "virtualStaging": true})
	require.NoError(t, err)
	require.True(t, sel.Has(StandardEditing))
	require.True(t, sel.Has(VirtualStaging))

	sel.Toggle(StandardEditing)
	sel.Set(StandardEditing, false)
	require.True(t, sel.Has(StandardEditing))

	var zero Selection
	require.True(t, zero.Has(StandardEditing))
	require.Equal(t, []ServiceID{StandardEditing}, zero.IDs())
}

func TestSelectionRejectsUnknownServices(t *testing.T) {
	_, err := NewSelection(map[string]bool{"hdrMerge": true, "aerial": false})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Contains(t, err.Error(), "aerial, hdrMerge")
}

func TestSelectionToggle(t *testing.T) {
	sel := DefaultSelection()
	sel.Toggle(Decluttering)
	require.Equal(t, []ServiceID{StandardEditing, Decluttering}, sel.IDs())
	sel.Toggle(Decluttering)
	require.Equal(t, []ServiceID{StandardEditing}, sel.IDs())
}

func TestSelectionJSON(t *testing.T) {
	var sel Selection
	require.NoError(t, json.Unmarshal([]byte(`{"standardEditing":false,"twilightConversion":true}`), &sel))
	require.Equal(t, []ServiceID{StandardEditing, TwilightConversion}, sel.IDs())

	out, err := json.Marshal(sel)
	require.NoError(t, err)
	require.JSONEq(t, `{"standardEditing":true,"virtualStaging":false,"twilightConversion":true,"decluttering":false}`, string(out))

	err = json.Unmarshal([]byte(`{"skyReplacement":true}`), &sel)
	require.ErrorIs(t, err, ErrInvalidInput)
}
