package enums

// ItemKind discriminates the source event family behind a normalized
// interaction item. The path miner only sees the normalized shape.
type ItemKind string

const (
	ItemTicker    ItemKind = "ticker"
	ItemCreator   ItemKind = "creator"
	ItemPortfolio ItemKind = "portfolio"
)

// KindForEvent maps a raw event type to the interaction item kind it yields.
func KindForEvent(e EventType) ItemKind {
	switch e {
	case EventProfileVisit, EventSubscribe:
		return ItemCreator
	case EventPortfolioOpen, EventCopy:
		return ItemPortfolio
	default:
		return ItemTicker
	}
}
