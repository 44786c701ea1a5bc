// Package lifecycle holds the explicit transition tables used by the order
// and return workflows. A transition that is not listed is rejected.
package lifecycle

import (
	"errors"
	"fmt"
	"slices"
)

var ErrTransitionNotAllowed = errors.New("transition not allowed")

// Table maps every known state to the states it may move to.
type Table[S ~string] struct {
	name  string
	edges map[S]map[S]struct{}
}

// NewTable builds a table. States that only appear as targets are registered
// as terminal.
func NewTable[S ~string](name string, edges map[S][]S) *Table[S] {
	t := &Table[S]{name: name, edges: make(map[S]map[S]struct{}, len(edges))}
	for from, tos := range edges {
		if _, ok := t.edges[from]; !ok {
			t.edges[from] = make(map[S]struct{}, len(tos))
		}
		for _, to := range tos {
			t.edges[from][to] = struct{}{}
			if _, ok := t.edges[to]; !ok {
				t.edges[to] = map[S]struct{}{}
			}
		}
	}
	return t
}

// Known reports whether s is a state of the table.
func (t *Table[S]) Known(s S) bool {
	_, ok := t.edges[s]
	return ok
}

func (t *Table[S]) Allowed(from, to S) bool {
	next, ok := t.edges[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

func (t *Table[S]) Terminal(s S) bool {
	next, ok := t.edges[s]
	return ok && len(next) == 0
}

// Next lists the successors of s, sorted.
func (t *Table[S]) Next(s S) []S {
	out := make([]S, 0, len(t.edges[s]))
	for to := range t.edges[s] {
		out = append(out, to)
	}
	slices.Sort(out)
	return out
}

// Check returns a TransitionError wrapping ErrTransitionNotAllowed when the
// move is not in the table.
func (t *Table[S]) Check(from, to S) error {
	if t.Allowed(from, to) {
		return nil
	}
	return &TransitionError{Machine: t.name, From: string(from), To: string(to)}
}

// Path checks a chain of transitions, e.g. PENDING -> APPROVED -> COMPLETED.
func (t *Table[S]) Path(from S, steps ...S) error {
	cur := from
	for _, next := range steps {
		if err := t.Check(cur, next); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

type TransitionError struct {
	Machine string
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %s to %s", e.Machine, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrTransitionNotAllowed }
