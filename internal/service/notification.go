package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/betflow/betflow-api/internal/gateway"
	"github.com/betflow/betflow-api/internal/observability"
	"go.uber.org/zap"
)

const alertDateLayout = "2006-01-02"

// NotificationService renders staff alerts and hands them to a Notifier.
// Delivery failures are logged and counted, never returned.
type NotificationService struct {
	notifier gateway.Notifier
}

func NewNotificationService(notifier gateway.Notifier) *NotificationService {
	if notifier == nil {
		notifier = gateway.NewLogNotifier()
	}
	return &NotificationService{notifier: notifier}
}

func (s *NotificationService) send(ctx context.Context, kind gateway.AlertKind, text string) {
	if err := s.notifier.Send(ctx, gateway.Alert{Kind: kind, Text: text}); err != nil {
		observability.IncrementNotification(string(kind), "failed")
		zap.L().Error("notification failed", zap.Error(err), zap.String("kind", string(kind)))
		return
	}
	observability.IncrementNotification(string(kind), "sent")
}

func (s *NotificationService) DocumentExpiry(ctx context.Context, identityName, fiscalCode string, expiry time.Time) {
	s.send(ctx, gateway.AlertDocumentExpiry, fmt.Sprintf(
		"⚠️ <b>DOCUMENT EXPIRY ALERT</b>\n\n"+
			"📋 Identity: <b>%s</b>\n"+
			"🆔 Fiscal Code: %s\n"+
			"📅 Expiry Date: <b>%s</b>\n\n"+
			"Please renew the document as soon as possible!",
		html.EscapeString(identityName), html.EscapeString(fiscalCode), expiry.Format(alertDateLayout),
	))
}

func (s *NotificationService) PromotionDeadline(ctx context.Context, description, accountUsername, platformName string, deadline time.Time) {
	s.send(ctx, gateway.AlertPromotionDeadline, fmt.Sprintf(
		"🎁 <b>PROMOTION EXPIRY ALERT</b>\n\n"+
			"📝 Promotion: <b>%s</b>\n"+
			"👤 Account: %s\n"+
			"🎰 Platform: %s\n"+
			"⏰ Deadline: <b>%s</b>\n\n"+
			"Complete the rollover before the deadline!",
		html.EscapeString(description), html.EscapeString(accountUsername), html.EscapeString(platformName), deadline.Format(alertDateLayout),
	))
}

func (s *NotificationService) Welcome(ctx context.Context, username string) {
	s.send(ctx, gateway.AlertWelcome, fmt.Sprintf(
		"👋 <b>Welcome to BetFlow Manager!</b>\n\n"+
			"User <b>%s</b> has been successfully registered.\n"+
			"Start managing your matched betting operations now!",
		html.EscapeString(username),
	))
}

// DailySummary is skipped when there is nothing to report.
func (s *NotificationService) DailySummary(ctx context.Context, expiringDocuments, promotionsDueToday int) bool {
	if expiringDocuments == 0 && promotionsDueToday == 0 {
		return false
	}
	s.send(ctx, gateway.AlertDailySummary, fmt.Sprintf(
		"📊 <b>DAILY SUMMARY</b>\n\n"+
			"📄 Documents expiring in 7 days: <b>%d</b>\n"+
			"🎁 Promotions expiring today: <b>%d</b>\n\n"+
			"Check the dashboard for details!",
		expiringDocuments, promotionsDueToday,
	))
	return true
}
