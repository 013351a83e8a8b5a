// Package exploration records the branching routes a reader takes through the
// nexus graph.
//
// A Tracker owns an append-only list of paths. Moving forward from the tip of
// the current path extends it; moving from any earlier position forks a new
// path that copies the shared prefix, so every route ever explored remains
// reconstructible by walking Paths.
package exploration

import (
	"errors"
	"fmt"

	"optio-backend/domain/core/valueobjects"
)

var (
	// ErrAtPathStart is returned by Back when the current nexus is the first of its path.
	ErrAtPathStart = errors.New("already at the start of the path")

	// ErrInvalidBranchIndex is returned by BranchPath for an index outside the current path.
	ErrInvalidBranchIndex = errors.New("branch index out of range")
)

// Path is a sequence of visited nexuses and the optios chosen between them.
// len(Optios) == len(Nexuses)-1 when built through Follow.
type Path struct {
	Nexuses []valueobjects.NexusID `json:"nexuses"`
	Optios  []valueobjects.OptioID `json:"optios"`
}

func (p Path) clone() Path {
	nexuses := make([]valueobjects.NexusID, len(p.Nexuses))
	copy(nexuses, p.Nexuses)
	optios := make([]valueobjects.OptioID, len(p.Optios))
	copy(optios, p.Optios)
	return Path{Nexuses: nexuses, Optios: optios}
}

// Tip returns the index of the last nexus in the path
func (p Path) Tip() int {
	return len(p.Nexuses) - 1
}

// Tracker is not safe for concurrent use; callers serialize access.
type Tracker struct {
	paths    []Path
	current  int
	position int
}

// NewTracker starts a single path at the given nexus
func NewTracker(start valueobjects.NexusID) *Tracker {
	return &Tracker{
		paths: []Path{{
			Nexuses: []valueobjects.NexusID{start},
			Optios:  []valueobjects.OptioID{},
		}},
	}
}

// AddToPath appends a nexus and the optio that led to it to the current path.
// The pair is not checked against the graph.
func (t *Tracker) AddToPath(nexusID valueobjects.NexusID, optioID valueobjects.OptioID) {
	p := &t.paths[t.current]
	p.Nexuses = append(p.Nexuses, nexusID)
	p.Optios = append(p.Optios, optioID)
}

// AppendNexus appends a nexus to the current path without an optio.
func (t *Tracker) AppendNexus(nexusID valueobjects.NexusID) {
	p := &t.paths[t.current]
	p.Nexuses = append(p.Nexuses, nexusID)
}

// BranchPath forks the current path at fromNexusIndex. The new path holds
// nexuses [0, fromNexusIndex] and optios [0, fromNexusIndex) and becomes the
// current path. The original path is left untouched.
func (t *Tracker) BranchPath(fromNexusIndex int) error {
	src := t.paths[t.current]
	if fromNexusIndex < 0 || fromNexusIndex >= len(src.Nexuses) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidBranchIndex, fromNexusIndex, src.Tip())
	}

	optioEnd := fromNexusIndex
	if optioEnd > len(src.Optios) {
		optioEnd = len(src.Optios)
	}

	branch := Path{Nexuses: src.Nexuses[:fromNexusIndex+1], Optios: src.Optios[:optioEnd]}.clone()
	t.paths = append(t.paths, branch)
	t.current = len(t.paths) - 1
	if t.position > fromNexusIndex {
		t.position = fromNexusIndex
	}
	return nil
}

// Follow moves along an optio to its destination. Choosing from any position
// other than the tip forks a new path first.
func (t *Tracker) Follow(optioID valueobjects.OptioID, destination valueobjects.NexusID) {
	if !t.AtTip() {
		// position is always a valid index of the current path
		_ = t.BranchPath(t.position)
	}
	t.AddToPath(destination, optioID)
	t.position = t.paths[t.current].Tip()
}

// Back steps to the previous nexus of the current path and returns it. When
// the reader is not at the tip, the path is forked at the previous nexus so the
// explored tail is kept.
func (t *Tracker) Back() (valueobjects.NexusID, error) {
	if t.position == 0 {
		return t.CurrentNexus(), ErrAtPathStart
	}
	if !t.AtTip() {
		if err := t.BranchPath(t.position - 1); err != nil {
			return t.CurrentNexus(), err
		}
	} else {
		t.position--
	}
	return t.CurrentNexus(), nil
}

// CurrentNexus returns the nexus presently displayed
func (t *Tracker) CurrentNexus() valueobjects.NexusID {
	return t.paths[t.current].Nexuses[t.position]
}

// CurrentPathIndex returns the index of the current path in Paths
func (t *Tracker) CurrentPathIndex() int {
	return t.current
}

// Position returns the index of the current nexus within the current path
func (t *Tracker) Position() int {
	return t.position
}

// AtTip reports whether the current nexus is the last of the current path
func (t *Tracker) AtTip() bool {
	return t.position == t.paths[t.current].Tip()
}

// CanGoBack reports whether Back would move
func (t *Tracker) CanGoBack() bool {
	return t.position > 0
}

// CurrentPath returns a copy of the current path
func (t *Tracker) CurrentPath() Path {
	return t.paths[t.current].clone()
}

// Paths returns copies of every recorded path, oldest first
func (t *Tracker) Paths() []Path {
	out := make([]Path, len(t.paths))
	for i, p := range t.paths {
		out[i] = p.clone()
	}
	return out
}

// KnownNexuses returns each nexus seen on any path once, in first-seen order
func (t *Tracker) KnownNexuses() []valueobjects.NexusID {
	seen := make(map[valueobjects.NexusID]struct{})
	var out []valueobjects.NexusID
	for _, p := range t.paths {
		for _, id := range p.Nexuses {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
