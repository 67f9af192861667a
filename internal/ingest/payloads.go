package ingest

import "github.com/matiasvr/folioscope-analytics/pkg/enums"

// Each event type carries a fixed attribute schema. The profile aggregator
// reads the premium flag straight from the stored attributes, so view and tap
// keep it at the top level.

// ViewAttributes accompany feed and search impressions.
type ViewAttributes struct {
	Premium bool   `json:"premium"`
	Surface string `json:"surface" validate:"omitempty,oneof=feed search watchlist profile"`
}

// TapAttributes accompany taps on a rendered item.
type TapAttributes struct {
	Premium bool   `json:"premium"`
	Target  string `json:"target" validate:"required"`
}

// CopyAttributes accompany portfolio copy actions.
type CopyAttributes struct {
	PortfolioID string `json:"portfolio_id" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
}

// SubscribeAttributes accompany creator subscription payments. Renewal marks
// a recurring charge as opposed to the first payment.
type SubscribeAttributes struct {
	PlanID  string `json:"plan_id" validate:"required"`
	Renewal bool   `json:"renewal"`
}

// ProfileVisitAttributes accompany creator profile page visits.
type ProfileVisitAttributes struct {
	Referrer string `json:"referrer" validate:"omitempty,oneof=feed search share notification"`
}

// PortfolioOpenAttributes accompany portfolio detail opens.
type PortfolioOpenAttributes struct {
	PortfolioID string `json:"portfolio_id" validate:"required"`
}

// FundingLinkedAttributes accompany a brokerage or bank link completion.
type FundingLinkedAttributes struct {
	Provider string `json:"provider" validate:"required"`
}

func attributesFor(eventType enums.EventType) any {
	switch eventType {
	case enums.EventTap:
		return &TapAttributes{}
	case enums.EventCopy:
		return &CopyAttributes{}
	case enums.EventSubscribe:
		return &SubscribeAttributes{}
	case enums.EventProfileVisit:
		return &ProfileVisitAttributes{}
	case enums.EventPortfolioOpen:
		return &PortfolioOpenAttributes{}
	case enums.EventFundingLinked:
		return &FundingLinkedAttributes{}
	default:
		return &ViewAttributes{}
	}
}
