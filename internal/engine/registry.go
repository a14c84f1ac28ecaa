package engine

import (
	"context"
	"slices"
	"sync"

	"finance-backend/internal/query"
)

// Resource is one listable entity exposed under /api/:resource.
type Resource interface {
	Name() string
	Fields() []FieldInfo
	// List runs req for user. Non-admin users only see rows they own.
	// Without pagination it serves page 1 at the default page size.
	List(ctx context.Context, user *UserContext, req query.Request) (any, error)
}

// FieldInfo describes a queryable field and the operators it accepts.
type FieldInfo struct {
	Name      string   `json:"name"`
	Column    string   `json:"column"`
	Kind      string   `json:"kind"`
	Nullable  bool     `json:"nullable"`
	Operators []string `json:"operators"`
}

type resource[T any] struct {
	name   string
	engine *query.Engine[T]
	source func() query.Source[T]
	owner  string
}

// NewResource exposes an engine over a source. source is called once per
// request; owner names the field holding the owning user's id, or is empty
// for resources that are not owned.
func NewResource[T any](name string, e *query.Engine[T], source func() query.Source[T], owner string) Resource {
	return &resource[T]{name: name, engine: e, source: source, owner: owner}
}

func (r *resource[T]) Name() string { return r.name }

func (r *resource[T]) Fields() []FieldInfo {
	fields := r.engine.Schema().Fields()
	out := make([]FieldInfo, 0, len(fields))
	for _, f := range fields {
		info := FieldInfo{Name: f.Name(), Column: f.Column(), Kind: f.Kind().String(), Nullable: f.Nullable()}
		for op := query.Equal; op.Valid(); op++ {
			if query.Supports(f.Kind(), op) {
				info.Operators = append(info.Operators, op.String())
			}
		}
		out = append(out, info)
	}
	return out
}

func (r *resource[T]) List(ctx context.Context, user *UserContext, req query.Request) (any, error) {
	scope, err := r.scope(user)
	if err != nil {
		return nil, err
	}
	if req.Pagination == nil {
		req.Pagination = &query.Pagination{}
	}
	return r.engine.List(ctx, r.source(), req, scope...)
}

// scope returns the row-level read filter for user. Admins see everything.
func (r *resource[T]) scope(user *UserContext) ([]query.Criterion, error) {
	if r.owner == "" {
		return nil, nil
	}
	if user == nil {
		return nil, UnauthorizedError("Missing auth token")
	}
	if user.IsAdmin() {
		return nil, nil
	}
	f, err := r.engine.Schema().Field(r.owner)
	if err != nil {
		return nil, err
	}
	if _, err := f.Parse(user.ID); err != nil {
		return nil, ForbiddenError("Token subject cannot own " + r.name)
	}
	c, err := query.Normalize(query.FilterDescriptor{
		Field:    r.owner,
		Operator: query.Equal,
		Values:   []string{user.ID},
		Logic:    query.And,
	})
	if err != nil {
		return nil, err
	}
	return []query.Criterion{c}, nil
}

type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]Resource)}
}

// Register adds or replaces a resource.
func (r *Registry) Register(res Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[res.Name()] = res
}

// Get returns the resource with the given name, or nil.
func (r *Registry) Get(name string) Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resources[name]
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
