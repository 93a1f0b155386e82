package domain

// StrategyKind names an answering strategy.
type StrategyKind string

// Strategy kinds.
const (
	StrategyDocumentOnly StrategyKind = "DOCUMENT_ONLY"
	StrategyWebOnly      StrategyKind = "WEB_ONLY"
	StrategyHybrid       StrategyKind = "HYBRID"
)

// Strategy is a closed set of answering strategies. Each variant carries
// only the evidence it needs, so synthesis never branches on loosely
// typed fields.
type Strategy interface {
	// Kind returns the strategy tag for telemetry and dispatch.
	Kind() StrategyKind

	// sealed prevents implementations outside this package.
	sealed()
}

// DocumentOnlyStrategy answers purely from corpus evidence.
type DocumentOnlyStrategy struct {
	// Evidence is the reranked document evidence, best first.
	Evidence []Candidate
}

// Kind returns StrategyDocumentOnly.
func (DocumentOnlyStrategy) Kind() StrategyKind { return StrategyDocumentOnly }

func (DocumentOnlyStrategy) sealed() {}

// WebOnlyStrategy answers purely from live web results.
type WebOnlyStrategy struct {
	// Results are the web search hits, best first.
	Results []WebResult
}

// Kind returns StrategyWebOnly.
func (WebOnlyStrategy) Kind() StrategyKind { return StrategyWebOnly }

func (WebOnlyStrategy) sealed() {}

// HybridStrategy blends corpus evidence with web results.
type HybridStrategy struct {
	// Evidence is the reranked document evidence, best first.
	Evidence []Candidate

	// Results are the web search hits, best first. May be empty when
	// the web lookup failed; a web failure never aborts a hybrid answer.
	Results []WebResult
}

// Kind returns StrategyHybrid.
func (HybridStrategy) Kind() StrategyKind { return StrategyHybrid }

func (HybridStrategy) sealed() {}
