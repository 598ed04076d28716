package service

import (
	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
)

// promotionTransitions is the regular lifecycle. Direct updates may still set
// any status; those outside this table are audited as overrides.
var promotionTransitions = map[domain.PromotionStatus]map[domain.PromotionStatus]struct{}{
	domain.PromotionPending: {
		domain.PromotionActive:    {},
		domain.PromotionCompleted: {},
		domain.PromotionExpired:   {},
	},
	domain.PromotionActive: {
		domain.PromotionCompleted: {},
		domain.PromotionExpired:   {},
	},
	domain.PromotionCompleted: {},
	domain.PromotionExpired: {
		domain.PromotionCompleted: {},
	},
}

func isRegularTransition(current, next domain.PromotionStatus) bool {
	if current == next {
		return true
	}
	nextStates, ok := promotionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// checkRolloverCompletion marks the promotion COMPLETED once the rollover done
// reaches a set target. It never moves a promotion out of COMPLETED.
func checkRolloverCompletion(p *models.Promotion) bool {
	if !p.RolloverTarget.Valid {
		return false
	}
	if p.RolloverDone.LessThan(p.RolloverTarget.Decimal) {
		return false
	}
	if p.Status == domain.PromotionCompleted {
		return false
	}
	p.Status = domain.PromotionCompleted
	return true
}
