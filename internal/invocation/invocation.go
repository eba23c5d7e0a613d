package invocation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bassista/go_action/internal/platform"
)

const (
	KindLocal  = "local file"
	KindRemote = "remote action"
)

var (
	// ErrMissingCredentials is returned for a remote action when no platform credentials are configured.
	ErrMissingCredentials = errors.New("remote actions need platform credentials (APIHOST and AUTH)")
	// ErrBinaryAction is returned for remote actions whose code is an archive.
	ErrBinaryAction = errors.New("binary actions are not supported")
)

// Instance is everything needed to run an action once.
type Instance struct {
	Source     string
	Parameters map[string]any
}

// Invocation resolves an action identifier into an Instance.
type Invocation interface {
	ID() string
	Kind() string
	Retrieve(ctx context.Context) (Instance, error)
}

// ActionFetcher loads action documents from the remote platform.
type ActionFetcher interface {
	GetAction(ctx context.Context, name string) (*platform.Action, error)
}

// LocalInvocation reads the action source from a file.
type LocalInvocation struct {
	path   string
	params map[string]any
}

func (l *LocalInvocation) ID() string   { return l.path }
func (l *LocalInvocation) Kind() string { return KindLocal }

func (l *LocalInvocation) Retrieve(_ context.Context) (Instance, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return Instance{}, fmt.Errorf("read action source: %w", err)
	}
	return Instance{Source: string(data), Parameters: l.params}, nil
}

// RemoteInvocation fetches the action source from the platform.
type RemoteInvocation struct {
	name    string
	params  map[string]any
	fetcher ActionFetcher
}

func (r *RemoteInvocation) ID() string   { return r.name }
func (r *RemoteInvocation) Kind() string { return KindRemote }

func (r *RemoteInvocation) Retrieve(ctx context.Context) (Instance, error) {
	action, err := r.fetcher.GetAction(ctx, r.name)
	if err != nil {
		return Instance{}, err
	}
	if action.Exec.Binary {
		return Instance{}, fmt.Errorf("%s: %w", r.name, ErrBinaryAction)
	}
	return Instance{Source: action.Exec.Code, Parameters: r.params}, nil
}

// Builder chooses between local and remote resolution.
type Builder struct {
	localExtensions []string
	fetcher         ActionFetcher
}

// NewBuilder returns a Builder. fetcher may be nil, in which case only local
// actions resolve. An empty extension list defaults to ".js".
func NewBuilder(localExtensions []string, fetcher ActionFetcher) *Builder {
	if len(localExtensions) == 0 {
		localExtensions = []string{".js"}
	}
	return &Builder{localExtensions: localExtensions, fetcher: fetcher}
}

// IsLocal reports whether id names a local source file.
func (b *Builder) IsLocal(id string) bool {
	ext := strings.ToLower(filepath.Ext(id))
	for _, e := range b.localExtensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Invocation builds the Invocation for id with the raw "key=value" parameters.
func (b *Builder) Invocation(id string, rawParams []string) (Invocation, error) {
	return b.InvocationWithParams(id, ParseParameters(rawParams))
}

// InvocationWithParams is Invocation for already decoded parameters.
func (b *Builder) InvocationWithParams(id string, params map[string]any) (Invocation, error) {
	if params == nil {
		params = map[string]any{}
	}
	if b.IsLocal(id) {
		return &LocalInvocation{path: id, params: params}, nil
	}
	if b.fetcher == nil {
		return nil, ErrMissingCredentials
	}
	return &RemoteInvocation{name: id, params: params, fetcher: b.fetcher}, nil
}
