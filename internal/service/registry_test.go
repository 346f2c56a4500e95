package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/artifactd/internal/artifact"
)

type fakeRunner struct {
	id    string
	types []artifact.Type
	ran   int
}

func (f *fakeRunner) Definition() Info {
	return Info{ID: f.id, Name: f.id, Types: f.types}
}

func (f *fakeRunner) Run(ctx context.Context, instanceID string, art *artifact.Parsed) (*Result, error) {
	f.ran++
	return Success(map[string]any{"instance": instanceID}), nil
}

func TestRegisterAndDispatch(t *testing.T) {
	r := NewRegistry()
	code := &fakeRunner{id: "code", types: []artifact.Type{artifact.TypeCode}}
	require.NoError(t, r.Register(code))

	result, err := r.Run(context.Background(), "inst_1", &artifact.Parsed{Type: artifact.TypeCode})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "inst_1", result.Data["instance"])
	assert.Equal(t, 1, code.ran)
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&fakeRunner{id: "", types: []artifact.Type{artifact.TypeCode}})
	assert.Error(t, err, "empty ID rejected")

	err = r.Register(&fakeRunner{id: "empty", types: nil})
	assert.Error(t, err, "runner with no types rejected")
}

func TestRegisterDuplicateType(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeRunner{id: "first", types: []artifact.Type{artifact.TypeSql}}))

	err := r.Register(&fakeRunner{id: "second", types: []artifact.Type{artifact.TypeSql}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
}

func TestRunUnknownType(t *testing.T) {
	r := NewRegistry()

	result, err := r.Run(context.Background(), "inst_1", &artifact.Parsed{Type: artifact.TypeApi})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "api")
}

func TestListSortedByID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeRunner{id: "sql", types: []artifact.Type{artifact.TypeSql}}))
	require.NoError(t, r.Register(&fakeRunner{id: "api", types: []artifact.Type{artifact.TypeApi}}))
	require.NoError(t, r.Register(&fakeRunner{id: "code", types: []artifact.Type{artifact.TypeCode}}))

	infos := r.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "api", infos[0].ID)
	assert.Equal(t, "code", infos[1].ID)
	assert.Equal(t, "sql", infos[2].ID)
}

func TestForType(t *testing.T) {
	r := NewRegistry()
	multi := &fakeRunner{id: "viewer", types: []artifact.Type{artifact.TypeJSON, artifact.TypeTable}}
	require.NoError(t, r.Register(multi))

	got, ok := r.ForType(artifact.TypeJSON)
	require.True(t, ok)
	assert.Equal(t, "viewer", got.Definition().ID)

	got, ok = r.ForType(artifact.TypeTable)
	require.True(t, ok)
	assert.Equal(t, "viewer", got.Definition().ID)

	_, ok = r.ForType(artifact.TypeFile)
	assert.False(t, ok)
}
