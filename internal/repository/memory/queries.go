package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errForeignKey = errors.New("violates foreign key constraint")

// Queries implements repository.Querier over the in-memory state.
type Queries struct {
	store *Store
	tx    *state
}

var _ repository.Querier = (*Queries)(nil)

func (q *Queries) with(fn func(st *state) error) error {
	if q.tx != nil {
		return fn(q.tx)
	}
	q.store.mu.Lock()
	defer q.store.mu.Unlock()
	return fn(q.store.state)
}

func (q *Queries) now() time.Time {
	return q.store.now()
}

// dateKey compares calendar dates independent of clock time and location.
func dateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func sortBySeq[T any](st *state, items []T, id func(T) uuid.UUID) {
	sort.SliceStable(items, func(i, j int) bool {
		return st.order[id(items[i])] < st.order[id(items[j])]
	})
}

func copyOperation(op models.FinancialOperation) models.FinancialOperation {
	if op.Deposit != nil {
		d := *op.Deposit
		op.Deposit = &d
	}
	if op.Withdrawal != nil {
		w := *op.Withdrawal
		op.Withdrawal = &w
	}
	if op.Bet != nil {
		b := *op.Bet
		op.Bet = &b
	}
	return op
}

// Users

func (q *Queries) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	err := q.with(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == u.Username {
				return domain.NewConflictError("username already exists: %s", u.Username)
			}
		}
		u.CreatedAt = q.now()
		st.users[u.ID] = u
		st.track(u.ID)
		return nil
	})
	return u, err
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := q.with(func(st *state) error {
		found, ok := st.users[id]
		if !ok {
			return domain.NewNotFoundError("user", id)
		}
		u = found
		return nil
	})
	return u, err
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := q.with(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == username {
				u = existing
				return nil
			}
		}
		return &domain.NotFoundError{Entity: "user", ID: username}
	})
	return u, err
}

// Identities

func (q *Queries) CreateIdentity(ctx context.Context, i models.Identity) (models.Identity, error) {
	err := q.with(func(st *state) error {
		if fiscalCodeTaken(st, i.FiscalCode, uuid.Nil) {
			return domain.NewConflictError("identity already exists with fiscal code: %s", i.FiscalCode)
		}
		if i.ManagerID != nil {
			if _, ok := st.users[*i.ManagerID]; !ok {
				return fmt.Errorf("create identity: manager: %w", errForeignKey)
			}
		}
		now := q.now()
		i.CreatedAt, i.UpdatedAt = now, now
		st.identities[i.ID] = i
		st.track(i.ID)
		return nil
	})
	return i, err
}

func fiscalCodeTaken(st *state, code string, except uuid.UUID) bool {
	for id, existing := range st.identities {
		if id != except && existing.FiscalCode == code {
			return true
		}
	}
	return false
}

func (q *Queries) GetIdentity(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	var i models.Identity
	err := q.with(func(st *state) error {
		found, ok := st.identities[id]
		if !ok {
			return domain.NewNotFoundError("identity", id)
		}
		i = found
		return nil
	})
	return i, err
}

func (q *Queries) GetIdentityByFiscalCode(ctx context.Context, fiscalCode string) (models.Identity, error) {
	var i models.Identity
	err := q.with(func(st *state) error {
		for _, existing := range st.identities {
			if existing.FiscalCode == fiscalCode {
				i = existing
				return nil
			}
		}
		return &domain.NotFoundError{Entity: "identity", ID: fiscalCode}
	})
	return i, err
}

func (q *Queries) ListIdentities(ctx context.Context, filter repository.IdentityFilter) ([]models.Identity, error) {
	out := []models.Identity{}
	err := q.with(func(st *state) error {
		for _, i := range st.identities {
			if filter.ManagerID != nil && (i.ManagerID == nil || *i.ManagerID != *filter.ManagerID) {
				continue
			}
			if filter.DocumentExpiryFrom != nil || filter.DocumentExpiryTo != nil {
				if i.DocumentExpiryDate == nil {
					continue
				}
				if filter.DocumentExpiryFrom != nil && dateKey(*i.DocumentExpiryDate) < dateKey(*filter.DocumentExpiryFrom) {
					continue
				}
				if filter.DocumentExpiryTo != nil && dateKey(*i.DocumentExpiryDate) > dateKey(*filter.DocumentExpiryTo) {
					continue
				}
			}
			out = append(out, i)
		}
		sortBySeq(st, out, func(i models.Identity) uuid.UUID { return i.ID })
		return nil
	})
	return out, err
}

func (q *Queries) UpdateIdentity(ctx context.Context, i models.Identity) (models.Identity, error) {
	err := q.with(func(st *state) error {
		existing, ok := st.identities[i.ID]
		if !ok {
			return domain.NewNotFoundError("identity", i.ID)
		}
		if fiscalCodeTaken(st, i.FiscalCode, i.ID) {
			return domain.NewConflictError("identity already exists with fiscal code: %s", i.FiscalCode)
		}
		i.CreatedAt = existing.CreatedAt
		i.UpdatedAt = q.now()
		st.identities[i.ID] = i
		return nil
	})
	return i, err
}

func (q *Queries) DeleteIdentity(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		if _, ok := st.identities[id]; !ok {
			return nil
		}
		for _, a := range st.accounts {
			if a.IdentityID == id {
				return fmt.Errorf("delete identity: %w", errForeignKey)
			}
		}
		delete(st.identities, id)
		n = 1
		return nil
	})
	return n, err
}

// Platforms

func platformNameTaken(st *state, name string, except uuid.UUID) bool {
	for id, existing := range st.platforms {
		if id != except && strings.EqualFold(existing.Name, name) {
			return true
		}
	}
	return false
}

func (q *Queries) CreatePlatform(ctx context.Context, p models.Platform) (models.Platform, error) {
	err := q.with(func(st *state) error {
		if platformNameTaken(st, p.Name, uuid.Nil) {
			return domain.NewConflictError("platform already exists with name: %s", p.Name)
		}
		now := q.now()
		p.CreatedAt, p.UpdatedAt = now, now
		st.platforms[p.ID] = p
		st.track(p.ID)
		return nil
	})
	return p, err
}

func (q *Queries) GetPlatform(ctx context.Context, id uuid.UUID) (models.Platform, error) {
	var p models.Platform
	err := q.with(func(st *state) error {
		found, ok := st.platforms[id]
		if !ok {
			return domain.NewNotFoundError("platform", id)
		}
		p = found
		return nil
	})
	return p, err
}

func (q *Queries) GetPlatformByName(ctx context.Context, name string) (models.Platform, error) {
	var p models.Platform
	err := q.with(func(st *state) error {
		for _, existing := range st.platforms {
			if strings.EqualFold(existing.Name, name) {
				p = existing
				return nil
			}
		}
		return &domain.NotFoundError{Entity: "platform", ID: name}
	})
	return p, err
}

func (q *Queries) ListPlatforms(ctx context.Context, filter repository.PlatformFilter) ([]models.Platform, error) {
	out := []models.Platform{}
	needle := strings.ToLower(strings.TrimSpace(filter.Name))
	err := q.with(func(st *state) error {
		for _, p := range st.platforms {
			if filter.Type != nil && p.Type != *filter.Type {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (q *Queries) UpdatePlatform(ctx context.Context, p models.Platform) (models.Platform, error) {
	err := q.with(func(st *state) error {
		existing, ok := st.platforms[p.ID]
		if !ok {
			return domain.NewNotFoundError("platform", p.ID)
		}
		if platformNameTaken(st, p.Name, p.ID) {
			return domain.NewConflictError("platform already exists with name: %s", p.Name)
		}
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = q.now()
		st.platforms[p.ID] = p
		return nil
	})
	return p, err
}

func (q *Queries) DeletePlatform(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		if _, ok := st.platforms[id]; !ok {
			return nil
		}
		for _, a := range st.accounts {
			if a.PlatformID == id {
				return fmt.Errorf("delete platform: %w", errForeignKey)
			}
		}
		delete(st.platforms, id)
		n = 1
		return nil
	})
	return n, err
}

// Accounts

func (q *Queries) CreateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	err := q.with(func(st *state) error {
		if _, ok := st.identities[a.IdentityID]; !ok {
			return fmt.Errorf("create account: identity: %w", errForeignKey)
		}
		if _, ok := st.platforms[a.PlatformID]; !ok {
			return fmt.Errorf("create account: platform: %w", errForeignKey)
		}
		for _, existing := range st.accounts {
			if existing.IdentityID == a.IdentityID && existing.PlatformID == a.PlatformID {
				return domain.NewConflictError("account already exists for this identity on this platform")
			}
		}
		now := q.now()
		a.CreatedAt, a.UpdatedAt = now, now
		a.CurrentBalance = domain.RoundMoney(a.CurrentBalance)
		st.accounts[a.ID] = a
		st.track(a.ID)
		return nil
	})
	return a, err
}

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	var a models.Account
	err := q.with(func(st *state) error {
		found, ok := st.accounts[id]
		if !ok {
			return domain.NewNotFoundError("account", id)
		}
		a = found
		return nil
	})
	return a, err
}

func (q *Queries) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (models.Account, error) {
	return q.GetAccount(ctx, id)
}

func (q *Queries) GetAccountByIdentityAndPlatform(ctx context.Context, identityID, platformID uuid.UUID) (models.Account, error) {
	var a models.Account
	err := q.with(func(st *state) error {
		for _, existing := range st.accounts {
			if existing.IdentityID == identityID && existing.PlatformID == platformID {
				a = existing
				return nil
			}
		}
		return &domain.NotFoundError{Entity: "account", ID: identityID.String() + "/" + platformID.String()}
	})
	return a, err
}

func (q *Queries) ListAccounts(ctx context.Context, filter repository.AccountFilter) ([]models.Account, error) {
	out := []models.Account{}
	err := q.with(func(st *state) error {
		for _, a := range st.accounts {
			if filter.IdentityID != nil && a.IdentityID != *filter.IdentityID {
				continue
			}
			if filter.PlatformID != nil && a.PlatformID != *filter.PlatformID {
				continue
			}
			out = append(out, a)
		}
		sortBySeq(st, out, func(a models.Account) uuid.UUID { return a.ID })
		return nil
	})
	return out, err
}

func (q *Queries) UpdateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	var updated models.Account
	err := q.with(func(st *state) error {
		existing, ok := st.accounts[a.ID]
		if !ok {
			return domain.NewNotFoundError("account", a.ID)
		}
		existing.Username = a.Username
		existing.Password = a.Password
		existing.Email = a.Email
		existing.Notes = a.Notes
		existing.IsActive = a.IsActive
		existing.IsLimited = a.IsLimited
		existing.UpdatedAt = q.now()
		st.accounts[a.ID] = existing
		updated = existing
		return nil
	})
	return updated, err
}

func (q *Queries) AddAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.with(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return domain.NewNotFoundError("account", id)
		}
		a.CurrentBalance = domain.RoundMoney(a.CurrentBalance.Add(delta))
		a.UpdatedAt = q.now()
		st.accounts[id] = a
		balance = a.CurrentBalance
		return nil
	})
	return balance, err
}

func (q *Queries) SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return nil
		}
		a.CurrentBalance = domain.RoundMoney(balance)
		a.UpdatedAt = q.now()
		st.accounts[id] = a
		n = 1
		return nil
	})
	return n, err
}

func (q *Queries) DeleteAccount(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return nil
		}
		for _, op := range st.operations {
			if op.AccountID == id {
				return fmt.Errorf("delete account: operations: %w", errForeignKey)
			}
		}
		for _, p := range st.promotions {
			if p.AccountID == id {
				return fmt.Errorf("delete account: promotions: %w", errForeignKey)
			}
		}
		delete(st.accounts, id)
		n = 1
		return nil
	})
	return n, err
}

// Operations

func (q *Queries) CreateOperation(ctx context.Context, op models.FinancialOperation) (models.FinancialOperation, error) {
	err := q.with(func(st *state) error {
		if _, ok := st.accounts[op.AccountID]; !ok {
			return fmt.Errorf("create operation: account: %w", errForeignKey)
		}
		op.Amount = domain.RoundMoney(op.Amount)
		op.CreatedAt = q.now()
		op = copyOperation(op)
		st.operations[op.ID] = op
		st.track(op.ID)
		return nil
	})
	return copyOperation(op), err
}

func (q *Queries) GetOperation(ctx context.Context, id uuid.UUID) (models.FinancialOperation, error) {
	var op models.FinancialOperation
	err := q.with(func(st *state) error {
		found, ok := st.operations[id]
		if !ok {
			return domain.NewNotFoundError("operation", id)
		}
		op = copyOperation(found)
		return nil
	})
	return op, err
}

func (q *Queries) GetOperationForUpdate(ctx context.Context, id uuid.UUID) (models.FinancialOperation, error) {
	return q.GetOperation(ctx, id)
}

func (q *Queries) ListOperations(ctx context.Context, filter repository.OperationFilter) ([]models.FinancialOperation, error) {
	out := []models.FinancialOperation{}
	err := q.with(func(st *state) error {
		for _, op := range st.operations {
			if filter.AccountID != nil && op.AccountID != *filter.AccountID {
				continue
			}
			if filter.IdentityID != nil {
				a, ok := st.accounts[op.AccountID]
				if !ok || a.IdentityID != *filter.IdentityID {
					continue
				}
			}
			if filter.Kind != nil && op.Kind != *filter.Kind {
				continue
			}
			if filter.WithdrawalStatus != nil && (op.Withdrawal == nil || op.Withdrawal.Status != *filter.WithdrawalStatus) {
				continue
			}
			if filter.PendingBets && !op.IsPendingBet() {
				continue
			}
			if filter.From != nil && op.OperationDate.Before(*filter.From) {
				continue
			}
			if filter.To != nil && op.OperationDate.After(*filter.To) {
				continue
			}
			out = append(out, copyOperation(op))
		}
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].OperationDate.Equal(out[j].OperationDate) {
				return out[i].OperationDate.After(out[j].OperationDate)
			}
			return st.order[out[i].ID] > st.order[out[j].ID]
		})
		return nil
	})
	return out, err
}

func (q *Queries) UpdateWithdrawal(ctx context.Context, arg repository.UpdateWithdrawalParams) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		op, ok := st.operations[arg.ID]
		if !ok || op.Kind != domain.OperationWithdrawal {
			return nil
		}
		op.Withdrawal = &models.WithdrawalDetails{Status: arg.Status, ArrivalDate: arg.ArrivalDate}
		st.operations[arg.ID] = op
		n = 1
		return nil
	})
	return n, err
}

func (q *Queries) SettleBet(ctx context.Context, id uuid.UUID, outcome domain.BetOutcome) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		op, ok := st.operations[id]
		if !ok || !op.IsPendingBet() {
			return nil
		}
		bet := *op.Bet
		bet.Outcome = &outcome
		op.Bet = &bet
		st.operations[id] = op
		n = 1
		return nil
	})
	return n, err
}

func (q *Queries) DeleteOperation(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		if _, ok := st.operations[id]; ok {
			delete(st.operations, id)
			n = 1
		}
		return nil
	})
	return n, err
}

func (q *Queries) DeleteOperationsByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		for id, op := range st.operations {
			if op.AccountID == accountID {
				delete(st.operations, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// Promotions

func (q *Queries) CreatePromotion(ctx context.Context, p models.Promotion) (models.Promotion, error) {
	err := q.with(func(st *state) error {
		if _, ok := st.accounts[p.AccountID]; !ok {
			return fmt.Errorf("create promotion: account: %w", errForeignKey)
		}
		now := q.now()
		p.CreatedAt, p.UpdatedAt = now, now
		st.promotions[p.ID] = p
		st.track(p.ID)
		return nil
	})
	return p, err
}

func (q *Queries) GetPromotion(ctx context.Context, id uuid.UUID) (models.Promotion, error) {
	var p models.Promotion
	err := q.with(func(st *state) error {
		found, ok := st.promotions[id]
		if !ok {
			return domain.NewNotFoundError("promotion", id)
		}
		p = found
		return nil
	})
	return p, err
}

func (q *Queries) GetPromotionForUpdate(ctx context.Context, id uuid.UUID) (models.Promotion, error) {
	return q.GetPromotion(ctx, id)
}

func (q *Queries) ListPromotions(ctx context.Context, filter repository.PromotionFilter) ([]models.Promotion, error) {
	out := []models.Promotion{}
	err := q.with(func(st *state) error {
		for _, p := range st.promotions {
			if filter.AccountID != nil && p.AccountID != *filter.AccountID {
				continue
			}
			if filter.Status != nil && p.Status != *filter.Status {
				continue
			}
			if filter.DeadlineFrom != nil || filter.DeadlineTo != nil {
				if p.DeadlineDate == nil {
					continue
				}
				if filter.DeadlineFrom != nil && dateKey(*p.DeadlineDate) < dateKey(*filter.DeadlineFrom) {
					continue
				}
				if filter.DeadlineTo != nil && dateKey(*p.DeadlineDate) > dateKey(*filter.DeadlineTo) {
					continue
				}
			}
			out = append(out, p)
		}
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := out[i].DeadlineDate, out[j].DeadlineDate
			switch {
			case di == nil && dj == nil:
			case di == nil:
				return false
			case dj == nil:
				return true
			case dateKey(*di) != dateKey(*dj):
				return dateKey(*di) < dateKey(*dj)
			}
			return st.order[out[i].ID] < st.order[out[j].ID]
		})
		return nil
	})
	return out, err
}

func (q *Queries) UpdatePromotion(ctx context.Context, p models.Promotion) (models.Promotion, error) {
	err := q.with(func(st *state) error {
		existing, ok := st.promotions[p.ID]
		if !ok {
			return domain.NewNotFoundError("promotion", p.ID)
		}
		p.AccountID = existing.AccountID
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = q.now()
		st.promotions[p.ID] = p
		return nil
	})
	return p, err
}

func (q *Queries) ExpirePromotions(ctx context.Context, before time.Time) ([]models.Promotion, error) {
	out := []models.Promotion{}
	err := q.with(func(st *state) error {
		for id, p := range st.promotions {
			if p.Status != domain.PromotionActive || p.DeadlineDate == nil || dateKey(*p.DeadlineDate) >= dateKey(before) {
				continue
			}
			p.Status = domain.PromotionExpired
			p.UpdatedAt = q.now()
			st.promotions[id] = p
			out = append(out, p)
		}
		sortBySeq(st, out, func(p models.Promotion) uuid.UUID { return p.ID })
		return nil
	})
	return out, err
}

func (q *Queries) DeletePromotion(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		if _, ok := st.promotions[id]; ok {
			delete(st.promotions, id)
			n = 1
		}
		return nil
	})
	return n, err
}

func (q *Queries) DeletePromotionsByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := q.with(func(st *state) error {
		for id, p := range st.promotions {
			if p.AccountID == accountID {
				delete(st.promotions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// Statistics

func identityTotals(st *state, i models.Identity) models.IdentityTotals {
	t := models.IdentityTotals{
		IdentityID:       i.ID,
		FirstName:        i.FirstName,
		LastName:         i.LastName,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TotalBalance:     decimal.Zero,
	}
	for _, a := range st.accounts {
		if a.IdentityID != i.ID {
			continue
		}
		t.AccountsCount++
		t.TotalBalance = t.TotalBalance.Add(a.CurrentBalance)
	}
	for _, op := range st.operations {
		a, ok := st.accounts[op.AccountID]
		if !ok || a.IdentityID != i.ID {
			continue
		}
		switch op.Kind {
		case domain.OperationDeposit:
			t.TotalDeposits = t.TotalDeposits.Add(op.Amount)
		case domain.OperationWithdrawal:
			t.TotalWithdrawals = t.TotalWithdrawals.Add(op.Amount)
		}
	}
	return t
}

func (q *Queries) GetIdentityTotals(ctx context.Context, identityID uuid.UUID) (models.IdentityTotals, error) {
	var t models.IdentityTotals
	err := q.with(func(st *state) error {
		i, ok := st.identities[identityID]
		if !ok {
			return domain.NewNotFoundError("identity", identityID)
		}
		t = identityTotals(st, i)
		return nil
	})
	return t, err
}

func (q *Queries) ListIdentityTotals(ctx context.Context) ([]models.IdentityTotals, error) {
	out := []models.IdentityTotals{}
	err := q.with(func(st *state) error {
		for _, i := range st.identities {
			out = append(out, identityTotals(st, i))
		}
		sortBySeq(st, out, func(t models.IdentityTotals) uuid.UUID { return t.IdentityID })
		return nil
	})
	return out, err
}

func (q *Queries) GetDashboardTotals(ctx context.Context, arg repository.DashboardParams) (models.DashboardTotals, error) {
	t := models.DashboardTotals{
		TotalDeposits:      decimal.Zero,
		TotalWithdrawals:   decimal.Zero,
		TotalBalance:       decimal.Zero,
		PromotionsByStatus: make(map[domain.PromotionStatus]int64),
	}
	today, horizon := dateKey(arg.Today), dateKey(arg.Horizon)
	err := q.with(func(st *state) error {
		t.Identities = int64(len(st.identities))
		t.Platforms = int64(len(st.platforms))
		for _, i := range st.identities {
			if i.DocumentExpiryDate != nil {
				if d := dateKey(*i.DocumentExpiryDate); d >= today && d <= horizon {
					t.ExpiringDocuments++
				}
			}
		}
		for _, a := range st.accounts {
			t.Accounts++
			if a.IsActive {
				t.ActiveAccounts++
			}
			if a.IsLimited {
				t.LimitedAccounts++
			}
			t.TotalBalance = t.TotalBalance.Add(a.CurrentBalance)
		}
		for _, op := range st.operations {
			switch op.Kind {
			case domain.OperationDeposit:
				t.TotalDeposits = t.TotalDeposits.Add(op.Amount)
			case domain.OperationWithdrawal:
				t.TotalWithdrawals = t.TotalWithdrawals.Add(op.Amount)
			}
		}
		for _, p := range st.promotions {
			t.PromotionsByStatus[p.Status]++
			if p.Status == domain.PromotionActive && p.DeadlineDate != nil && dateKey(*p.DeadlineDate) <= horizon {
				t.ExpiringPromotions++
			}
		}
		return nil
	})
	return t, err
}

// Audit

func (q *Queries) InsertAuditLog(ctx context.Context, arg repository.InsertAuditLogParams) (int64, error) {
	var id int64
	err := q.with(func(st *state) error {
		id = int64(len(st.audit) + 1)
		st.audit = append(st.audit, models.AuditEntry{
			ID:         id,
			EntityType: arg.EntityType,
			EntityID:   arg.EntityID,
			ActorID:    arg.ActorID,
			Action:     arg.Action,
			PrevState:  arg.PrevState,
			NextState:  arg.NextState,
			Metadata:   arg.Metadata,
			CreatedAt:  q.now(),
		})
		return nil
	})
	return id, err
}
