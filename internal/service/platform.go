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
	"go.uber.org/zap"
)

type PlatformService struct {
	store QueryStore
	audit *AuditService
}

func NewPlatformService(store QueryStore) *PlatformService {
	return &PlatformService{store: store, audit: NewAuditService()}
}

type CreatePlatformCommand struct {
	Name       string `validate:"required,max=100"`
	WebsiteURL string `validate:"omitempty,url,max=255"`
	Type       domain.PlatformType
	ActorID    *uuid.UUID
}

type PlatformPatch struct {
	Name       *string `validate:"omitempty,min=1,max=100"`
	WebsiteURL *string `validate:"omitempty,max=255"`
	Type       *domain.PlatformType
}

func ensurePlatformNameFree(ctx context.Context, q repository.Querier, name string, self uuid.UUID) error {
	existing, err := q.GetPlatformByName(ctx, name)
	switch {
	case err == nil && existing.ID != self:
		return domain.NewConflictError("platform already exists with name: %s", name)
	case err == nil, errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check platform name: %w", err)
	}
}

func (s *PlatformService) Create(ctx context.Context, cmd CreatePlatformCommand) (*models.Platform, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if err := validateStruct(cmd); err != nil {
		return nil, err
	}
	if _, err := domain.ParsePlatformType(string(cmd.Type)); err != nil {
		return nil, err
	}

	var created models.Platform
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if err := ensurePlatformNameFree(ctx, qtx, cmd.Name, uuid.Nil); err != nil {
			return err
		}
		var err error
		created, err = qtx.CreatePlatform(ctx, models.Platform{
			ID:         uuid.New(),
			Name:       cmd.Name,
			WebsiteURL: cmd.WebsiteURL,
			Type:       cmd.Type,
		})
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "platform", created.ID, cmd.ActorID, "created", "", "", nil)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("platform created", zap.String("platform_id", created.ID.String()), zap.String("name", created.Name))
	return &created, nil
}

func (s *PlatformService) Get(ctx context.Context, id uuid.UUID) (*models.Platform, error) {
	p, err := s.store.Queries().GetPlatform(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List filters by type and by a case-insensitive name substring.
func (s *PlatformService) List(ctx context.Context, filter repository.PlatformFilter) ([]models.Platform, error) {
	return s.store.Queries().ListPlatforms(ctx, filter)
}

func (s *PlatformService) Update(ctx context.Context, id uuid.UUID, patch PlatformPatch, actorID *uuid.UUID) (*models.Platform, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	if patch.Type != nil {
		if _, err := domain.ParsePlatformType(string(*patch.Type)); err != nil {
			return nil, err
		}
	}

	var updated models.Platform
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		p, err := qtx.GetPlatform(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if !strings.EqualFold(name, p.Name) {
				if err := ensurePlatformNameFree(ctx, qtx, name, id); err != nil {
					return err
				}
			}
			p.Name = name
		}
		if patch.WebsiteURL != nil {
			p.WebsiteURL = *patch.WebsiteURL
		}
		if patch.Type != nil {
			p.Type = *patch.Type
		}
		updated, err = qtx.UpdatePlatform(ctx, p)
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "platform", id, actorID, "updated", "", "", patch)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the platform and cascades to its accounts.
func (s *PlatformService) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	return s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetPlatform(ctx, id); err != nil {
			return err
		}
		accounts, err := qtx.ListAccounts(ctx, repository.AccountFilter{PlatformID: &id})
		if err != nil {
			return fmt.Errorf("list platform accounts: %w", err)
		}
		for _, a := range accounts {
			if err := deleteAccountCascade(ctx, qtx, a.ID); err != nil {
				return err
			}
		}
		rows, err := qtx.DeletePlatform(ctx, id)
		if err != nil {
			return fmt.Errorf("delete platform: %w", err)
		}
		if err := requireExactlyOne(rows, "delete platform"); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "platform", id, actorID, "deleted", "", "", map[string]int{"accounts": len(accounts)})
	})
}
