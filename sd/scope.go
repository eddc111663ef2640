package sd

import "fmt"

type ScopeKind int

const (
	ScopeRoot ScopeKind = iota
	ScopeTransparent
	ScopeIsolated
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeRoot:
		return "root"
	case ScopeTransparent:
		return "transparent"
	case ScopeIsolated:
		return "isolated"
	default:
		return fmt.Sprintf("scope(%d)", int(k))
	}
}

// Param is a function parameter together with the particle that marks it at call sites.
type Param struct {
	Name     string
	Particle string
}

// Scope holds bindings. A function definition is itself a Scope carrying its
// parameters and body; calling it executes a clone of that scope.
type Scope struct {
	Kind   ScopeKind
	Parent int
	Vars   map[string]Value
	Funcs  map[string]*Scope
	Params []Param
	Body   []Token
}

func newScope(kind ScopeKind, parent int) *Scope {
	return &Scope{
		Kind:   kind,
		Parent: parent,
		Vars:   make(map[string]Value),
		Funcs:  make(map[string]*Scope),
	}
}

// Clone copies s deeply. The body tokens are immutable and copied by value.
func (s *Scope) Clone() *Scope {
	out := newScope(s.Kind, s.Parent)
	for name, v := range s.Vars {
		out.Vars[name] = v.Copy()
	}
	for name, fn := range s.Funcs {
		out.Funcs[name] = fn.Clone()
	}
	out.Params = append([]Param(nil), s.Params...)
	out.Body = append([]Token(nil), s.Body...)
	return out
}

// Scopes is an arena of live scopes addressed by index. The root is always
// index 0; scopes are pushed and popped in stack order so indices of live
// ancestors stay valid.
type Scopes struct {
	nodes []*Scope
}

func NewScopes() *Scopes {
	return &Scopes{nodes: []*Scope{newScope(ScopeRoot, -1)}}
}

func (s *Scopes) Len() int {
	return len(s.nodes)
}

func (s *Scopes) At(id int) *Scope {
	return s.nodes[id]
}

// Push opens a new empty scope under parent and returns its index.
func (s *Scopes) Push(kind ScopeKind, parent int) int {
	s.nodes = append(s.nodes, newScope(kind, parent))
	return len(s.nodes) - 1
}

// Enter installs a prepared scope, typically a function frame.
func (s *Scopes) Enter(scope *Scope) int {
	s.nodes = append(s.nodes, scope)
	return len(s.nodes) - 1
}

// Pop discards the innermost scope. The root is never removed.
func (s *Scopes) Pop() {
	if len(s.nodes) > 1 {
		s.nodes[len(s.nodes)-1] = nil
		s.nodes = s.nodes[:len(s.nodes)-1]
	}
}

// storage resolves the scope that actually holds bindings for id:
// transparent scopes write through to their nearest non-transparent ancestor.
func (s *Scopes) storage(id int) int {
	for s.nodes[id].Kind == ScopeTransparent {
		id = s.nodes[id].Parent
	}
	return id
}

// Get reads a variable visible from id. Arrays are returned as copies.
func (s *Scopes) Get(id int, name string) (Value, error) {
	v, ok := s.nodes[s.storage(id)].Vars[name]
	if !ok {
		return NewNull(), newError(ErrUndefinedVariable, 0, name, "")
	}
	return v.Copy(), nil
}

func (s *Scopes) Set(id int, name string, v Value) {
	s.nodes[s.storage(id)].Vars[name] = v.Copy()
}

// DefineFunction registers a function in the storage scope of id, replacing
// any earlier definition with the same name.
func (s *Scopes) DefineFunction(id int, name string, params []Param, body []Token) {
	home := s.storage(id)
	fn := newScope(ScopeIsolated, home)
	fn.Params = append([]Param(nil), params...)
	fn.Body = append([]Token(nil), body...)
	s.nodes[home].Funcs[name] = fn
}

// Function looks name up from id outward and returns a private clone of the
// definition together with the index of the scope that defined it.
func (s *Scopes) Function(id int, name string) (*Scope, int, error) {
	for cur := s.storage(id); cur >= 0; {
		if fn, ok := s.nodes[cur].Funcs[name]; ok {
			return fn.Clone(), cur, nil
		}
		parent := s.nodes[cur].Parent
		if parent < 0 {
			break
		}
		cur = s.storage(parent)
	}
	return nil, -1, newError(ErrUndefinedFunction, 0, name, "")
}

// Snapshot copies the variables visible from id.
func (s *Scopes) Snapshot(id int) map[string]Value {
	vars := s.nodes[s.storage(id)].Vars
	out := make(map[string]Value, len(vars))
	for name, v := range vars {
		out[name] = v.Copy()
	}
	return out
}
