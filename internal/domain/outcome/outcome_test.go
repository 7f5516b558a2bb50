package outcome

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOK(t *testing.T) {
	o := OK(map[string]any{"k": "v"}, "abc-123")

	require.True(t, o.Success)
	require.Equal(t, "abc-123", o.AnalysisID)
	require.Empty(t, o.Error)
	require.Empty(t, o.ErrorKind)
	require.Empty(t, o.SaveWarning)
}

func TestDegraded(t *testing.T) {
	o := Degraded(map[string]any{"k": "v"}, "could not save")

	require.True(t, o.Success)
	require.Equal(t, "could not save", o.SaveWarning)
	require.Empty(t, o.AnalysisID)
	require.Empty(t, o.Error)
	require.Empty(t, o.ErrorKind)
}

func TestFail(t *testing.T) {
	o := Fail(KindTimeout, "took too long")

	require.False(t, o.Success)
	require.Equal(t, KindTimeout, o.ErrorKind)
	require.Equal(t, "took too long", o.Error)
	require.Nil(t, o.Data)
	require.Empty(t, o.AnalysisID)
	require.Empty(t, o.SaveWarning)
}

func TestFailureOmitsSuccessFieldsOnTheWire(t *testing.T) {
	raw, err := json.Marshal(Fail(KindValidation, "file is empty"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	require.NotContains(t, m, "data")
	require.NotContains(t, m, "analysis_id")
	require.NotContains(t, m, "save_warning")
}

func TestSuccessOmitsFailureFieldsOnTheWire(t *testing.T) {
	raw, err := json.Marshal(OK(map[string]any{"k": "v"}, "id-1"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	require.NotContains(t, m, "error")
	require.NotContains(t, m, "error_kind")
}
