// Package query defines the query-side model of a keystream session: which
// queryables a get reaches, how multiple replies are consolidated along the
// routing path, and the reply values themselves.
package query

import (
	"github.com/c360/keystream/keyexpr"
	"github.com/c360/keystream/message"
)

// TargetKind selects which class of queryables a query reaches.
type TargetKind uint8

// Target kinds
const (
	BestMatching TargetKind = iota
	All
	AllComplete
	None
	CompleteN
)

// String returns the string representation of TargetKind
func (k TargetKind) String() string {
	switch k {
	case BestMatching:
		return "best_matching"
	case All:
		return "all"
	case AllComplete:
		return "all_complete"
	case None:
		return "none"
	case CompleteN:
		return "complete"
	default:
		return "unknown"
	}
}

// Target is the queryable-selection policy of a get. N is meaningful only
// for the CompleteN kind.
type Target struct {
	Kind TargetKind
	N    uint64
}

// TargetBestMatching targets the nearest complete queryable set.
func TargetBestMatching() Target { return Target{Kind: BestMatching} }

// TargetAll targets every matching queryable.
func TargetAll() Target { return Target{Kind: All} }

// TargetAllComplete targets every matching complete queryable.
func TargetAllComplete() Target { return Target{Kind: AllComplete} }

// TargetNone targets no queryable at all.
func TargetNone() Target { return Target{Kind: None} }

// TargetComplete targets n complete queryables, when the engine supports
// counted completeness.
func TargetComplete(n uint64) Target { return Target{Kind: CompleteN, N: n} }

// ConsolidationMode is the merge policy applied to replies at one stage of
// the routing path.
type ConsolidationMode uint8

// Consolidation modes
const (
	ModeNone ConsolidationMode = iota
	ModeLazy
	ModeFull
)

// String returns the string representation of ConsolidationMode
func (m ConsolidationMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeLazy:
		return "lazy"
	case ModeFull:
		return "full"
	default:
		return "unknown"
	}
}

// ConsolidationStrategy sets the consolidation mode independently for the
// three stages of the reply path: the first routers, the last router, and
// reception at the querier.
type ConsolidationStrategy struct {
	FirstRouters ConsolidationMode
	LastRouter   ConsolidationMode
	Reception    ConsolidationMode
}

// StrategyNone performs no consolidation at any stage. Useful when querying
// time-series stores or when using quorums.
func StrategyNone() ConsolidationStrategy {
	return ConsolidationStrategy{ModeNone, ModeNone, ModeNone}
}

// StrategyLazy performs lazy consolidation at all stages, favoring latency
// over duplicate suppression.
func StrategyLazy() ConsolidationStrategy {
	return ConsolidationStrategy{ModeLazy, ModeLazy, ModeLazy}
}

// StrategyReception performs full consolidation at reception only. Best
// latency while guaranteeing no duplicates.
func StrategyReception() ConsolidationStrategy {
	return ConsolidationStrategy{ModeNone, ModeNone, ModeFull}
}

// StrategyLastRouter performs full consolidation on the last router and at
// reception, optimizing the last transport link.
func StrategyLastRouter() ConsolidationStrategy {
	return ConsolidationStrategy{ModeNone, ModeFull, ModeFull}
}

// StrategyFull performs full consolidation everywhere, optimizing bandwidth
// on all links at the cost of latency.
func StrategyFull() ConsolidationStrategy {
	return ConsolidationStrategy{ModeFull, ModeFull, ModeFull}
}

// Consolidation is either automatic strategy selection or a manual
// strategy.
type Consolidation struct {
	auto     bool
	strategy ConsolidationStrategy
}

// Auto lets the engine select a strategy from the query selector: if the
// selector carries a time-range selection no consolidation is performed,
// otherwise the reception strategy is used.
func Auto() Consolidation {
	return Consolidation{auto: true}
}

// Manual fixes the consolidation strategy.
func Manual(s ConsolidationStrategy) Consolidation {
	return Consolidation{strategy: s}
}

// Default returns the automatic consolidation selection.
func Default() Consolidation {
	return Auto()
}

// Time-range property keys recognized by the automatic strategy selection.
const (
	startTimeProperty = "starttime"
	stopTimeProperty  = "stoptime"
)

// Resolve returns the concrete strategy for a query on the given selector.
// Manual consolidation resolves to its strategy unchanged. Auto resolves
// to StrategyNone when the selector properties carry a time-range
// selection and StrategyReception otherwise; a selector whose value
// selector does not parse also resolves to StrategyReception.
func (c Consolidation) Resolve(sel keyexpr.Selector) ConsolidationStrategy {
	if !c.auto {
		return c.strategy
	}
	vs, err := sel.ParseValueSelector()
	if err != nil {
		return StrategyReception()
	}
	if _, ok := vs.Properties[startTimeProperty]; ok {
		return StrategyNone()
	}
	if _, ok := vs.Properties[stopTimeProperty]; ok {
		return StrategyNone()
	}
	return StrategyReception()
}

// Reply is one queryable's answer to a get: either a sample or an error
// value, plus the identity of the replier.
type Reply struct {
	Sample    *message.Sample
	Err       *message.Value
	ReplierID string
}

// OK reports whether the reply carries a sample rather than an error value.
func (r Reply) OK() bool {
	return r.Err == nil
}

// ReplyOK builds a successful reply.
func ReplyOK(sample message.Sample, replierID string) Reply {
	return Reply{Sample: &sample, ReplierID: replierID}
}

// ReplyErr builds an error reply carrying the given error value.
func ReplyErr(value message.Value, replierID string) Reply {
	return Reply{Err: &value, ReplierID: replierID}
}
