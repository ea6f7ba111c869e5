package domain

import "maps"

// Pipeline is a compiled tree together with its token map, the pair the
// runtime persists and later consults for rollback checks.
type Pipeline struct {
	Tree   *Tree    `json:"tree"`
	Tokens TokenMap `json:"tokens"`
}

// ID returns the id of the top-level tree.
func (p *Pipeline) ID() string {
	if p == nil || p.Tree == nil {
		return ""
	}
	return p.Tree.ID
}

// Clone returns a deep copy of p.
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}
	return &Pipeline{Tree: p.Tree.Clone(), Tokens: maps.Clone(p.Tokens)}
}
