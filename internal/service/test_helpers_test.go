package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/gateway"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []gateway.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event gateway.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []gateway.Alert
}

func (n *recordingNotifier) Send(ctx context.Context, alert gateway.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func (n *recordingNotifier) count(kind gateway.AlertKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, a := range n.alerts {
		if a.Kind == kind {
			c++
		}
	}
	return c
}

// fixture wires every service against one in-memory store.
type fixture struct {
	store      *memory.Store
	publisher  *recordingPublisher
	notifier   *recordingNotifier
	identities *IdentityService
	platforms  *PlatformService
	accounts   *AccountService
	ledger     *LedgerService
	promotions *PromotionService
	stats      *StatisticsService
	reminders  *ReminderService
	users      *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := memory.NewStore().WithClock(clock)
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	notify := NewNotificationService(notifier)
	promotions := NewPromotionService(store, pub)

	return &fixture{
		store:      store,
		publisher:  pub,
		notifier:   notifier,
		identities: NewIdentityService(store),
		platforms:  NewPlatformService(store),
		accounts:   NewAccountService(store),
		ledger:     NewLedgerService(store, pub).WithClock(clock),
		promotions: promotions,
		stats:      NewStatisticsService(store).WithClock(clock),
		reminders:  NewReminderService(store, notify, promotions).WithAlertDelay(0).WithLocation(time.UTC).WithClock(clock),
		users:      NewUserService(store, notify).WithHashCost(4),
	}
}

func (f *fixture) identity(t *testing.T, first, last, fiscal string) *IdentityView {
	t.Helper()
	v, err := f.identities.Create(context.Background(), CreateIdentityCommand{FirstName: first, LastName: last, FiscalCode: fiscal})
	require.NoError(t, err)
	return v
}

func (f *fixture) platform(t *testing.T, name string) *models.Platform {
	t.Helper()
	p, err := f.platforms.Create(context.Background(), CreatePlatformCommand{Name: name, Type: domain.PlatformBookmaker})
	require.NoError(t, err)
	return p
}

func (f *fixture) account(t *testing.T, identityID, platformID uuid.UUID, balance string) *models.Account {
	t.Helper()
	a, err := f.accounts.Create(context.Background(), CreateAccountCommand{
		IdentityID:     identityID,
		PlatformID:     platformID,
		Username:       "user-" + platformID.String()[:8],
		InitialBalance: dec(balance),
	})
	require.NoError(t, err)
	return a
}

// seedAccount creates an identity, a platform and an account with the given balance.
func (f *fixture) seedAccount(t *testing.T, balance string) *models.Account {
	t.Helper()
	i := f.identity(t, "Mario", "Rossi", "RSSMRA80A01H501U")
	p := f.platform(t, "Bet365")
	return f.account(t, i.ID, p.ID, balance)
}

func (f *fixture) balance(t *testing.T, accountID uuid.UUID) string {
	t.Helper()
	a, err := f.accounts.Get(context.Background(), accountID)
	require.NoError(t, err)
	return a.CurrentBalance.StringFixed(domain.MoneyScale)
}
