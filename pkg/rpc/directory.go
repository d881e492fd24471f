package rpc

import (
	"fmt"
)

const directoryLogPrefix = "rpc:directory"

// StaticDirectory holds a fixed list of invokers for one capability and
// answers version-constrained lookups. Selection policy beyond availability
// and version matching (load balancing, failover) belongs to the embedder.
type StaticDirectory struct {
	invokers []Invoker
}

// NewStaticDirectory builds a directory over the given invokers.
func NewStaticDirectory(invokers ...Invoker) *StaticDirectory {
	return &StaticDirectory{invokers: invokers}
}

// List returns the available invokers whose endpoint version satisfies the
// SemVer constraint (empty constraint matches all). Invokers without an
// endpoint descriptor match any constraint.
func (d *StaticDirectory) List(constraint string) ([]Invoker, error) {
	var out []Invoker
	for _, inv := range d.invokers {
		if !inv.IsAvailable() {
			continue
		}
		ep := inv.Endpoint()
		if ep != nil {
			ok, err := ep.MatchesVersion(constraint)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, inv)
	}
	return out, nil
}

// First returns the first invoker List would yield, or NO_AVAILABLE_INVOKER.
func (d *StaticDirectory) First(constraint string) (Invoker, error) {
	matches, err := d.List(constraint)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, &InvocationError{Code: CodeNoAvailableInvoker, Message: fmt.Sprintf("%s - no available invoker matches %q", directoryLogPrefix, constraint)}
	}
	return matches[0], nil
}
