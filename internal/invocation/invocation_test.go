package invocation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bassista/go_action/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFetcher is a mock implementation of ActionFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetAction(ctx context.Context, name string) (*platform.Action, error) {
	args := m.Called(ctx, name)
	if a := args.Get(0); a != nil {
		return a.(*platform.Action), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestBuilder_IsLocal(t *testing.T) {
	b := NewBuilder(nil, nil)
	assert.True(t, b.IsLocal("hello.js"))
	assert.True(t, b.IsLocal("dir/HELLO.JS"))
	assert.False(t, b.IsLocal("hello"))
	assert.False(t, b.IsLocal("pkg/hello.py"))

	b = NewBuilder([]string{".js", ".py"}, nil)
	assert.True(t, b.IsLocal("pkg/hello.py"))
}

func TestBuilder_LocalInvocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.js")
	require.NoError(t, os.WriteFile(path, []byte("function main(p) { return p }"), 0o644))

	inv, err := NewBuilder(nil, nil).Invocation(path, []string{"name=world", "n=2"})
	require.NoError(t, err)
	assert.Equal(t, KindLocal, inv.Kind())
	assert.Equal(t, path, inv.ID())

	instance, err := inv.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "function main(p) { return p }", instance.Source)
	assert.Equal(t, map[string]any{"name": "world", "n": 2.0}, instance.Parameters)
}

func TestBuilder_LocalInvocation_MissingFile(t *testing.T) {
	inv, err := NewBuilder(nil, nil).Invocation(filepath.Join(t.TempDir(), "missing.js"), nil)
	require.NoError(t, err)

	_, err = inv.Retrieve(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuilder_RemoteWithoutCredentials(t *testing.T) {
	_, err := NewBuilder(nil, nil).Invocation("hello", nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestBuilder_RemoteInvocation(t *testing.T) {
	fetcher := &MockFetcher{}
	ctx := context.Background()
	fetcher.On("GetAction", ctx, "utils/hello").
		Return(&platform.Action{Name: "hello", Exec: platform.Exec{Kind: "nodejs:20", Code: "remote code"}}, nil)

	inv, err := NewBuilder(nil, fetcher).InvocationWithParams("utils/hello", map[string]any{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, KindRemote, inv.Kind())
	assert.Equal(t, "utils/hello", inv.ID())

	instance, err := inv.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, Instance{Source: "remote code", Parameters: map[string]any{"a": "b"}}, instance)
	fetcher.AssertExpectations(t)
}

func TestRemoteInvocation_Errors(t *testing.T) {
	ctx := context.Background()

	fetcher := &MockFetcher{}
	fetcher.On("GetAction", ctx, "missing").Return(nil, platform.ErrActionNotFound)
	fetcher.On("GetAction", ctx, "zipped").Return(&platform.Action{Exec: platform.Exec{Binary: true}}, nil)

	b := NewBuilder(nil, fetcher)

	inv, _ := b.Invocation("missing", nil)
	_, err := inv.Retrieve(ctx)
	assert.True(t, errors.Is(err, platform.ErrActionNotFound))

	inv, _ = b.Invocation("zipped", nil)
	_, err = inv.Retrieve(ctx)
	assert.ErrorIs(t, err, ErrBinaryAction)
}
