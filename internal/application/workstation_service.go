package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/pkg/errors"
	"github.com/marmot-vision/marmot/pkg/logging"
)

// WorkstationService handles workstation use cases
type WorkstationService struct {
	workstationRepo domain.WorkstationRepository
	zoneRepo        domain.ZoneRepository
	logger          *logging.Logger
}

// NewWorkstationService creates a new workstation service
func NewWorkstationService(
	workstationRepo domain.WorkstationRepository,
	zoneRepo domain.ZoneRepository,
	logger *logging.Logger,
) *WorkstationService {
	return &WorkstationService{
		workstationRepo: workstationRepo,
		zoneRepo:        zoneRepo,
		logger:          logger.WithComponent("workstation-service"),
	}
}

// CreateWorkstation creates a new workstation
func (s *WorkstationService) CreateWorkstation(ctx context.Context, cmd CreateWorkstationCommand) (*WorkstationDTO, error) {
	workstationID := fmt.Sprintf("WS-%s", uuid.New().String()[:8])

	workstation, err := domain.NewWorkstation(
		workstationID,
		cmd.Name,
		cmd.Description,
		domain.VideoSourceType(cmd.SourceType),
		cmd.SourceURL,
		cmd.VideoConfig,
	)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.workstationRepo.Save(ctx, workstation); err != nil {
		s.logger.WithError(err).Error("Failed to save workstation", "workstationId", workstationID)
		return nil, fmt.Errorf("failed to save workstation: %w", err)
	}

	s.logger.Info("Workstation created", "workstationId", workstationID, "name", cmd.Name)

	return ToWorkstationDTO(workstation, nil), nil
}

// GetWorkstation retrieves a workstation with its zones
func (s *WorkstationService) GetWorkstation(ctx context.Context, query GetWorkstationQuery) (*WorkstationDTO, error) {
	workstation, zones, err := s.load(ctx, query.WorkstationID)
	if err != nil {
		return nil, err
	}
	return ToWorkstationDTO(workstation, zones), nil
}

// ListWorkstations retrieves workstations with pagination
func (s *WorkstationService) ListWorkstations(ctx context.Context, query ListWorkstationsQuery) ([]*WorkstationDTO, error) {
	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	workstations, err := s.workstationRepo.FindAll(ctx, query.Skip, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list workstations")
		return nil, fmt.Errorf("failed to list workstations: %w", err)
	}

	dtos := make([]*WorkstationDTO, 0, len(workstations))
	for _, workstation := range workstations {
		zones, err := s.zoneRepo.FindByWorkstationID(ctx, workstation.WorkstationID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to load zones", "workstationId", workstation.WorkstationID)
			return nil, fmt.Errorf("failed to load zones: %w", err)
		}
		dtos = append(dtos, ToWorkstationDTO(workstation, zones))
	}

	return dtos, nil
}

// UpdateWorkstation applies a partial update to a workstation
func (s *WorkstationService) UpdateWorkstation(ctx context.Context, cmd UpdateWorkstationCommand) (*WorkstationDTO, error) {
	workstation, err := s.workstationRepo.FindByID(ctx, cmd.WorkstationID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find workstation", "workstationId", cmd.WorkstationID)
		return nil, fmt.Errorf("failed to find workstation: %w", err)
	}
	if workstation == nil {
		return nil, errors.ErrNotFoundWithID("workstation", cmd.WorkstationID)
	}

	var sourceType *domain.VideoSourceType
	if cmd.SourceType != nil {
		t := domain.VideoSourceType(*cmd.SourceType)
		sourceType = &t
	}

	if err := workstation.UpdateDetails(cmd.Name, cmd.Description, sourceType, cmd.SourceURL, cmd.VideoConfig, cmd.IsActive); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.workstationRepo.Save(ctx, workstation); err != nil {
		s.logger.WithError(err).Error("Failed to save workstation", "workstationId", cmd.WorkstationID)
		return nil, fmt.Errorf("failed to save workstation: %w", err)
	}

	zones, err := s.zoneRepo.FindByWorkstationID(ctx, cmd.WorkstationID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load zones", "workstationId", cmd.WorkstationID)
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}

	s.logger.Info("Workstation updated", "workstationId", cmd.WorkstationID)

	return ToWorkstationDTO(workstation, zones), nil
}

// DeleteWorkstation removes a workstation and cascades to its zones
func (s *WorkstationService) DeleteWorkstation(ctx context.Context, cmd DeleteWorkstationCommand) error {
	workstation, err := s.workstationRepo.FindByID(ctx, cmd.WorkstationID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find workstation", "workstationId", cmd.WorkstationID)
		return fmt.Errorf("failed to find workstation: %w", err)
	}
	if workstation == nil {
		return errors.ErrNotFoundWithID("workstation", cmd.WorkstationID)
	}

	if err := s.zoneRepo.DeleteByWorkstationID(ctx, cmd.WorkstationID); err != nil {
		s.logger.WithError(err).Error("Failed to delete zones", "workstationId", cmd.WorkstationID)
		return fmt.Errorf("failed to delete zones: %w", err)
	}

	if err := s.workstationRepo.Delete(ctx, cmd.WorkstationID); err != nil {
		s.logger.WithError(err).Error("Failed to delete workstation", "workstationId", cmd.WorkstationID)
		return fmt.Errorf("failed to delete workstation: %w", err)
	}

	s.logger.Info("Workstation deleted", "workstationId", cmd.WorkstationID)
	return nil
}

// GetWorkstationStatus summarizes the live state of a workstation
func (s *WorkstationService) GetWorkstationStatus(ctx context.Context, query GetWorkstationQuery) (*WorkstationStatusDTO, error) {
	workstation, zones, err := s.load(ctx, query.WorkstationID)
	if err != nil {
		return nil, err
	}
	return ToWorkstationStatusDTO(workstation, zones), nil
}

func (s *WorkstationService) load(ctx context.Context, workstationID string) (*domain.Workstation, []*domain.Zone, error) {
	workstation, err := s.workstationRepo.FindByID(ctx, workstationID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find workstation", "workstationId", workstationID)
		return nil, nil, fmt.Errorf("failed to find workstation: %w", err)
	}
	if workstation == nil {
		return nil, nil, errors.ErrNotFoundWithID("workstation", workstationID)
	}

	zones, err := s.zoneRepo.FindByWorkstationID(ctx, workstationID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load zones", "workstationId", workstationID)
		return nil, nil, fmt.Errorf("failed to load zones: %w", err)
	}

	return workstation, zones, nil
}
