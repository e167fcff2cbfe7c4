package model

// Provenance records which resolution step produced a category.
type Provenance string

const (
	// ProvenancePersonal means one of the owner's learned keywords matched.
	ProvenancePersonal Provenance = "personal_keyword"
	// ProvenanceGlobal means the shared locale dictionary matched.
	ProvenanceGlobal Provenance = "global_keyword"
	// ProvenanceAI means an AI provider chose the category.
	ProvenanceAI Provenance = "ai"
	// ProvenanceDefault means nothing matched and the catch-all bucket was used.
	ProvenanceDefault Provenance = "default"
)

// MatchTier names the keyword matcher tier that fired.
type MatchTier string

// Matcher tiers, evaluated in this order.
const (
	TierExact      MatchTier = "exact"
	TierPrefix     MatchTier = "prefix"
	TierInflection MatchTier = "inflection"
)

// CategorizationResult is the answer handed back to the front-end.
type CategorizationResult struct {
	Confidence     *float64
	CategoryName   string
	Provenance     Provenance
	ProviderUsed   string
	MatchedKeyword string
	MatchTier      MatchTier
	RequestID      string
	CategoryID     int64
}

// FunctionalArea selects a provider route.
type FunctionalArea string

// Functional areas with their own provider routes.
const (
	AreaCategorization FunctionalArea = "categorization"
	AreaConversational FunctionalArea = "conversational"
	AreaAnalytical     FunctionalArea = "analytical"
)

// Areas lists every functional area.
func Areas() []FunctionalArea {
	return []FunctionalArea{AreaCategorization, AreaConversational, AreaAnalytical}
}
