package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityService manages the people whose accounts are tracked.
type IdentityService struct {
	store QueryStore
	audit *AuditService
}

func NewIdentityService(store QueryStore) *IdentityService {
	return &IdentityService{store: store, audit: NewAuditService()}
}

type CreateIdentityCommand struct {
	FirstName          string `validate:"required,max=100"`
	LastName           string `validate:"required,max=100"`
	FiscalCode         string `validate:"required,max=32"`
	DocumentExpiryDate *time.Time
	Notes              string `validate:"max=2000"`
	ManagerID          *uuid.UUID
	ActorID            *uuid.UUID
}

type IdentityPatch struct {
	FirstName          *string `validate:"omitempty,min=1,max=100"`
	LastName           *string `validate:"omitempty,min=1,max=100"`
	FiscalCode         *string `validate:"omitempty,min=1,max=32"`
	DocumentExpiryDate *time.Time
	Notes              *string `validate:"omitempty,max=2000"`
	ManagerID          *uuid.UUID
}

// IdentityView is an identity with its derived fields.
type IdentityView struct {
	models.Identity
	FullName      string `json:"full_name"`
	AccountsCount int    `json:"accounts_count"`
}

func normalizeFiscalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *IdentityService) view(ctx context.Context, q repository.Querier, i models.Identity) (IdentityView, error) {
	accounts, err := q.ListAccounts(ctx, repository.AccountFilter{IdentityID: &i.ID})
	if err != nil {
		return IdentityView{}, fmt.Errorf("count identity accounts: %w", err)
	}
	return IdentityView{Identity: i, FullName: i.FullName(), AccountsCount: len(accounts)}, nil
}

func (s *IdentityService) Create(ctx context.Context, cmd CreateIdentityCommand) (*IdentityView, error) {
	if err := validateStruct(cmd); err != nil {
		return nil, err
	}
	identity := models.Identity{
		ID:                 uuid.New(),
		FirstName:          strings.TrimSpace(cmd.FirstName),
		LastName:           strings.TrimSpace(cmd.LastName),
		FiscalCode:         normalizeFiscalCode(cmd.FiscalCode),
		DocumentExpiryDate: dateOnly(cmd.DocumentExpiryDate),
		Notes:              cmd.Notes,
		ManagerID:          cmd.ManagerID,
	}

	var created models.Identity
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if err := ensureFiscalCodeFree(ctx, qtx, identity.FiscalCode, uuid.Nil); err != nil {
			return err
		}
		if identity.ManagerID != nil {
			if _, err := qtx.GetUser(ctx, *identity.ManagerID); err != nil {
				return err
			}
		}
		var err error
		created, err = qtx.CreateIdentity(ctx, identity)
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "identity", created.ID, cmd.ActorID, "created", "", "", nil)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("identity created", zap.String("identity_id", created.ID.String()))
	return &IdentityView{Identity: created, FullName: created.FullName()}, nil
}

func ensureFiscalCodeFree(ctx context.Context, q repository.Querier, code string, self uuid.UUID) error {
	existing, err := q.GetIdentityByFiscalCode(ctx, code)
	switch {
	case err == nil && existing.ID != self:
		return domain.NewConflictError("identity already exists with fiscal code: %s", code)
	case err == nil, errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check fiscal code: %w", err)
	}
}

func (s *IdentityService) Get(ctx context.Context, id uuid.UUID) (*IdentityView, error) {
	q := s.store.Queries()
	identity, err := q.GetIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, q, identity)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *IdentityService) List(ctx context.Context, filter repository.IdentityFilter) ([]IdentityView, error) {
	q := s.store.Queries()
	identities, err := q.ListIdentities(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]IdentityView, 0, len(identities))
	for _, i := range identities {
		v, err := s.view(ctx, q, i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *IdentityService) Update(ctx context.Context, id uuid.UUID, patch IdentityPatch, actorID *uuid.UUID) (*IdentityView, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	var updated models.Identity
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		identity, err := qtx.GetIdentity(ctx, id)
		if err != nil {
			return err
		}
		if patch.FirstName != nil {
			identity.FirstName = strings.TrimSpace(*patch.FirstName)
		}
		if patch.LastName != nil {
			identity.LastName = strings.TrimSpace(*patch.LastName)
		}
		if patch.FiscalCode != nil {
			code := normalizeFiscalCode(*patch.FiscalCode)
			if code != identity.FiscalCode {
				if err := ensureFiscalCodeFree(ctx, qtx, code, id); err != nil {
					return err
				}
				identity.FiscalCode = code
			}
		}
		if patch.DocumentExpiryDate != nil {
			identity.DocumentExpiryDate = dateOnly(patch.DocumentExpiryDate)
		}
		if patch.Notes != nil {
			identity.Notes = *patch.Notes
		}
		if patch.ManagerID != nil {
			if _, err := qtx.GetUser(ctx, *patch.ManagerID); err != nil {
				return err
			}
			identity.ManagerID = patch.ManagerID
		}

		updated, err = qtx.UpdateIdentity(ctx, identity)
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "identity", id, actorID, "updated", "", "", patch)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, updated.ID)
}

// Delete removes the identity together with its accounts and everything they
// own, in one transaction.
func (s *IdentityService) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	var removed int
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetIdentity(ctx, id); err != nil {
			return err
		}
		accounts, err := qtx.ListAccounts(ctx, repository.AccountFilter{IdentityID: &id})
		if err != nil {
			return fmt.Errorf("list identity accounts: %w", err)
		}
		for _, a := range accounts {
			if err := deleteAccountCascade(ctx, qtx, a.ID); err != nil {
				return err
			}
		}
		removed = len(accounts)

		rows, err := qtx.DeleteIdentity(ctx, id)
		if err != nil {
			return fmt.Errorf("delete identity: %w", err)
		}
		if err := requireExactlyOne(rows, "delete identity"); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "identity", id, actorID, "deleted", "", "", map[string]int{"accounts": removed})
	})
	if err != nil {
		return err
	}
	zap.L().Info("identity deleted", zap.String("identity_id", id.String()), zap.Int("accounts", removed))
	return nil
}
