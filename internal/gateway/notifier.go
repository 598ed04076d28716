package gateway

import (
	"context"

	"go.uber.org/zap"
)

// AlertKind labels an outbound alert for metrics and logs.
type AlertKind string

const (
	AlertDocumentExpiry    AlertKind = "document_expiry"
	AlertPromotionDeadline AlertKind = "promotion_deadline"
	AlertDailySummary      AlertKind = "daily_summary"
	AlertWelcome           AlertKind = "welcome"
)

// Alert is a rendered message ready for delivery. Text may contain the HTML
// subset accepted by Telegram.
type Alert struct {
	Kind AlertKind
	Text string
}

// Notifier delivers alerts to back-office staff.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the process log. It is used when no chat
// transport is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	zap.L().Info("alert", zap.String("kind", string(alert.Kind)), zap.String("text", alert.Text))
	return nil
}
