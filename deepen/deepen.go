// Package deepen layers iterative and exponential deepening (spec
// §4.6) on top of a single pwalk.Walk call: a depth-filtering shim
// keeps out-of-range visits from the real callback (Prune past the
// window's bottom, Continue above its top), remembers every path the
// real callback pruned so later, deeper passes honor it too, and the
// outer driver re-runs the base traversal with a widening depth window
// until a pass finds nothing new. An optional final pass re-delivers
// every surviving file to the real callback in Post mode, bottom-up.
package deepen

import (
	"fmt"

	"github.com/gowalk/pwalk"
)

// Config selects the deepening strategy and its depth bounds.
type Config struct {
	// Strategy must be pwalk.IDS or pwalk.EDS.
	Strategy pwalk.Strategy
	// MinDepth is the shallowest depth ever delivered to the real
	// callback (0 meaning the starting paths themselves).
	MinDepth int
	// MaxDepth caps how deep any pass will go; zero or negative means
	// unlimited.
	MaxDepth int
	// PostOrder, if set, runs one additional bottom-up pass once the
	// forward passes finish, re-invoking the real callback with
	// Visit == pwalk.Post for every file that survived pruning.
	PostOrder bool
}

// driver holds the mutable state threaded through every pass: the
// real callback and its user handle, the current pass's depth window,
// whether this pass uncovered anything past its own horizon, and the
// accumulated set of real-Prune paths.
type driver struct {
	real pwalk.Callback

	curMin, curMax int
	sawDeeper      bool

	// finalMin/finalMax are the user's original bounds, consulted by
	// the bottom-up final pass instead of curMin/curMax (which the
	// forward loop keeps rewriting as it widens its window).
	finalMin, finalMax int

	pruned *pruneSet
}

// Run drives args.Callback through iterative or exponential deepening
// instead of a single unbounded pwalk.Walk call. args is used as a
// template for every pass: each pass walks its own shallow copy with
// Callback swapped for the deepening shim and the PostOrder flag
// adjusted; User is passed through unchanged and args itself is never
// mutated.
func Run(args *pwalk.Args, cfg Config) error {
	if cfg.Strategy != pwalk.IDS && cfg.Strategy != pwalk.EDS {
		return fmt.Errorf("deepen: strategy must be IDS or EDS")
	}

	d := &driver{
		real:     args.Callback,
		pruned:   newPruneSet(),
		finalMin: cfg.MinDepth,
		finalMax: cfg.MaxDepth,
	}

	min, max := cfg.MinDepth, cfg.MaxDepth
	if max < min {
		max = min
	}

	for {
		d.curMin, d.curMax = min, max
		d.sawDeeper = false

		pass := *args
		pass.Callback = d.shimCallback
		pass.Flags = args.Flags &^ pwalk.PostOrder

		if err := pwalk.Walk(&pass); err != nil {
			return err
		}

		if !d.sawDeeper || (cfg.MaxDepth > 0 && max >= cfg.MaxDepth) {
			break
		}

		switch cfg.Strategy {
		case pwalk.IDS:
			min++
			max++
		case pwalk.EDS:
			min = max + 1
			if max == 0 {
				max = 1
			} else {
				max *= 2
			}
		}
		if cfg.MaxDepth > 0 && max > cfg.MaxDepth {
			max = cfg.MaxDepth
		}
	}

	if !cfg.PostOrder {
		return nil
	}

	final := *args
	final.Callback = d.postCallback
	final.Flags = args.Flags | pwalk.PostOrder
	return pwalk.Walk(&final)
}

// shimCallback implements the depth-filtering half of the shim: files
// outside [curMin, curMax] never reach the real callback, and any
// file beyond curMax that gets pruned this way flags the pass as
// incomplete so the outer loop widens the window and tries again.
func (d *driver) shimCallback(rec *pwalk.Record, user any) pwalk.Action {
	if d.pruned.ContainsAncestor(rec.Path) {
		return pwalk.Prune
	}
	if rec.Depth > d.curMax {
		d.sawDeeper = true
		return pwalk.Prune
	}
	if rec.Depth < d.curMin {
		return pwalk.Continue
	}

	action := d.real(rec, user)
	if action == pwalk.Prune {
		d.pruned.Insert(rec.Path)
	}
	return action
}

// postCallback implements the final descending pass: pre-order visits
// just drive the traversal (honoring the accumulated prune set and the
// original depth ceiling) and are never shown to the real callback,
// which only sees the Post visit, its Visit field rewritten to Post
// regardless of what the inner engine already set it to.
func (d *driver) postCallback(rec *pwalk.Record, user any) pwalk.Action {
	if d.pruned.ContainsAncestor(rec.Path) {
		return pwalk.Prune
	}
	if d.finalMax > 0 && rec.Depth > d.finalMax {
		return pwalk.Prune
	}
	if rec.Visit == pwalk.Pre {
		return pwalk.Continue
	}
	if rec.Depth < d.finalMin {
		return pwalk.Continue
	}
	rec.Visit = pwalk.Post
	return d.real(rec, user)
}
