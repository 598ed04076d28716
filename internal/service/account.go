package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AccountService struct {
	store QueryStore
	audit *AuditService
}

func NewAccountService(store QueryStore) *AccountService {
	return &AccountService{store: store, audit: NewAuditService()}
}

type CreateAccountCommand struct {
	IdentityID     uuid.UUID
	PlatformID     uuid.UUID
	Username       string `validate:"required,max=100"`
	Password       string `validate:"max=255"`
	Email          string `validate:"omitempty,email,max=255"`
	InitialBalance decimal.Decimal
	Notes          string `validate:"max=2000"`
	IsActive       *bool
	IsLimited      bool
	ActorID        *uuid.UUID
}

type AccountPatch struct {
	Username  *string `validate:"omitempty,min=1,max=100"`
	Password  *string `validate:"omitempty,max=255"`
	Email     *string `validate:"omitempty,email,max=255"`
	Notes     *string `validate:"omitempty,max=2000"`
	IsActive  *bool
	IsLimited *bool
}

func (s *AccountService) Create(ctx context.Context, cmd CreateAccountCommand) (*models.Account, error) {
	if cmd.IdentityID == uuid.Nil || cmd.PlatformID == uuid.Nil {
		return nil, domain.NewValidationError("", "identity_id and platform_id are required")
	}
	cmd.Username = strings.TrimSpace(cmd.Username)
	if err := validateStruct(cmd); err != nil {
		return nil, err
	}
	balance := domain.RoundMoney(cmd.InitialBalance)
	if err := requireNonNegative("initial_balance", balance); err != nil {
		return nil, err
	}
	active := true
	if cmd.IsActive != nil {
		active = *cmd.IsActive
	}

	var created models.Account
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetIdentity(ctx, cmd.IdentityID); err != nil {
			return err
		}
		if _, err := qtx.GetPlatform(ctx, cmd.PlatformID); err != nil {
			return err
		}
		_, err := qtx.GetAccountByIdentityAndPlatform(ctx, cmd.IdentityID, cmd.PlatformID)
		switch {
		case err == nil:
			return domain.NewConflictError("account already exists for this identity on this platform")
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("check existing account: %w", err)
		}

		created, err = qtx.CreateAccount(ctx, models.Account{
			ID:             uuid.New(),
			IdentityID:     cmd.IdentityID,
			PlatformID:     cmd.PlatformID,
			Username:       cmd.Username,
			Password:       cmd.Password,
			Email:          cmd.Email,
			CurrentBalance: balance,
			Notes:          cmd.Notes,
			IsActive:       active,
			IsLimited:      cmd.IsLimited,
		})
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "account", created.ID, cmd.ActorID, "created", "", created.CurrentBalance.StringFixed(domain.MoneyScale), nil)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("account created", zap.String("account_id", created.ID.String()), zap.String("identity_id", created.IdentityID.String()))
	return &created, nil
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := s.store.Queries().GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AccountService) List(ctx context.Context, filter repository.AccountFilter) ([]models.Account, error) {
	return s.store.Queries().ListAccounts(ctx, filter)
}

// Update changes descriptive fields only. Balances move through the ledger
// or SetBalance.
func (s *AccountService) Update(ctx context.Context, id uuid.UUID, patch AccountPatch, actorID *uuid.UUID) (*models.Account, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	var updated models.Account
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		a, err := qtx.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if patch.Username != nil {
			a.Username = strings.TrimSpace(*patch.Username)
		}
		if patch.Password != nil {
			a.Password = *patch.Password
		}
		if patch.Email != nil {
			a.Email = *patch.Email
		}
		if patch.Notes != nil {
			a.Notes = *patch.Notes
		}
		if patch.IsActive != nil {
			a.IsActive = *patch.IsActive
		}
		if patch.IsLimited != nil {
			a.IsLimited = *patch.IsLimited
		}
		updated, err = qtx.UpdateAccount(ctx, a)
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "account", id, actorID, "updated", "", "", map[string]any{
			"username":   patch.Username,
			"email":      patch.Email,
			"is_active":  patch.IsActive,
			"is_limited": patch.IsLimited,
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetBalance overwrites the balance, typically to reconcile with the platform.
func (s *AccountService) SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, actorID *uuid.UUID) (*models.Account, error) {
	balance = domain.RoundMoney(balance)
	if balance.IsNegative() {
		return nil, domain.NewValidationError("balance", "balance cannot be negative")
	}

	var updated models.Account
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		a, err := qtx.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		rows, err := qtx.SetAccountBalance(ctx, id, balance)
		if err != nil {
			return fmt.Errorf("set balance: %w", err)
		}
		if err := requireExactlyOne(rows, "set balance"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, "account", id, actorID, "balance_set",
			a.CurrentBalance.StringFixed(domain.MoneyScale), balance.StringFixed(domain.MoneyScale), nil); err != nil {
			return err
		}
		updated, err = qtx.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("account balance set", zap.String("account_id", id.String()), zap.String("balance", balance.StringFixed(domain.MoneyScale)))
	return &updated, nil
}

// Delete removes the account with its promotions and operations.
func (s *AccountService) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	return s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetAccountForUpdate(ctx, id); err != nil {
			return err
		}
		if err := deleteAccountCascade(ctx, qtx, id); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "account", id, actorID, "deleted", "", "", nil)
	})
}

func deleteAccountCascade(ctx context.Context, qtx repository.Querier, accountID uuid.UUID) error {
	if _, err := qtx.DeletePromotionsByAccount(ctx, accountID); err != nil {
		return fmt.Errorf("delete promotions of account %s: %w", accountID, err)
	}
	if _, err := qtx.DeleteOperationsByAccount(ctx, accountID); err != nil {
		return fmt.Errorf("delete operations of account %s: %w", accountID, err)
	}
	rows, err := qtx.DeleteAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", accountID, err)
	}
	return requireExactlyOne(rows, "delete account")
}
