// Package dispatch routes parsed directives to capability handlers under the
// lifecycle contract preHandle → handle → {complete | fail | cancel}, with
// one single-consumer executor per handler and per-dialog ordering.
package dispatch

// Medium is a logical shared channel a directive's handling may occupy.
// Arbitration of mediums belongs to an external arbiter; this package only
// carries the descriptor.
type Medium uint8

const (
	MediumAudio Medium = 1 << iota
	MediumVisual
)

// MediumSet is a set of Mediums.
type MediumSet uint8

const MediumsNone MediumSet = 0

// Mediums builds a MediumSet from its members.
func Mediums(ms ...Medium) MediumSet {
	var set MediumSet
	for _, m := range ms {
		set |= MediumSet(m)
	}
	return set
}

// Has reports whether m is in the set.
func (s MediumSet) Has(m Medium) bool {
	return s&MediumSet(m) != 0
}

// BlockingPolicy describes what shared mediums handling a directive occupies
// and whether subsequent directives must wait for it. Consumed, not produced,
// by this package.
type BlockingPolicy struct {
	Mediums  MediumSet
	Blocking bool
}

// The policies handlers declare in practice.
var (
	PolicyAudioBlocking      = BlockingPolicy{Mediums: Mediums(MediumAudio), Blocking: true}
	PolicyAudioNonBlocking   = BlockingPolicy{Mediums: Mediums(MediumAudio)}
	PolicyVisualBlocking     = BlockingPolicy{Mediums: Mediums(MediumVisual), Blocking: true}
	PolicyVisualNonBlocking  = BlockingPolicy{Mediums: Mediums(MediumVisual)}
	PolicyNeitherNonBlocking = BlockingPolicy{Mediums: MediumsNone}
)

// CapabilityTag is the (namespace, name) key a directive is routed by.
type CapabilityTag struct {
	Namespace string
	Name      string
}

// HandlerConfiguration maps the directives a handler accepts to their
// blocking policies. Declared once per handler and read-only after
// registration.
type HandlerConfiguration map[CapabilityTag]BlockingPolicy
