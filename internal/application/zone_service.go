package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/errors"
	"github.com/marmot-vision/marmot/pkg/logging"
)

// ZoneService handles zone use cases
type ZoneService struct {
	zoneRepo        domain.ZoneRepository
	workstationRepo domain.WorkstationRepository
	logger          *logging.Logger
}

// NewZoneService creates a new zone service
func NewZoneService(
	zoneRepo domain.ZoneRepository,
	workstationRepo domain.WorkstationRepository,
	logger *logging.Logger,
) *ZoneService {
	return &ZoneService{
		zoneRepo:        zoneRepo,
		workstationRepo: workstationRepo,
		logger:          logger.WithComponent("zone-service"),
	}
}

// CreateZone creates a new zone on an existing workstation
func (s *ZoneService) CreateZone(ctx context.Context, cmd CreateZoneCommand) (*ZoneDTO, error) {
	workstation, err := s.workstationRepo.FindByID(ctx, cmd.WorkstationID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find workstation", "workstationId", cmd.WorkstationID)
		return nil, fmt.Errorf("failed to find workstation: %w", err)
	}
	if workstation == nil {
		return nil, errors.ErrNotFoundWithID("workstation", cmd.WorkstationID)
	}

	existing, err := s.zoneRepo.FindByWorkstationID(ctx, cmd.WorkstationID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count zones", "workstationId", cmd.WorkstationID)
		return nil, fmt.Errorf("failed to count zones: %w", err)
	}
	if len(existing) >= video.MaxZonesPerStream {
		return nil, errors.ErrLimitExceeded(
			fmt.Sprintf("workstation %s already has the maximum of %d zones", cmd.WorkstationID, video.MaxZonesPerStream))
	}

	zoneID := fmt.Sprintf("ZONE-%s", uuid.New().String()[:8])

	zone, err := domain.NewZone(zoneID, cmd.Name, cmd.WorkstationID, domain.Polygon(cmd.Points), cmd.Color)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.zoneRepo.Save(ctx, zone); err != nil {
		s.logger.WithError(err).Error("Failed to save zone", "zoneId", zoneID)
		return nil, fmt.Errorf("failed to save zone: %w", err)
	}

	s.logger.Info("Zone created", "zoneId", zoneID, "workstationId", cmd.WorkstationID)

	return ToZoneDTO(zone), nil
}

// GetZone retrieves a zone by ID
func (s *ZoneService) GetZone(ctx context.Context, query GetZoneQuery) (*ZoneDTO, error) {
	zone, err := s.find(ctx, query.ZoneID)
	if err != nil {
		return nil, err
	}
	return ToZoneDTO(zone), nil
}

// ListZones retrieves zones, optionally filtered by workstation
func (s *ZoneService) ListZones(ctx context.Context, query ListZonesQuery) ([]*ZoneDTO, error) {
	var (
		zones []*domain.Zone
		err   error
	)

	if query.WorkstationID != "" {
		zones, err = s.zoneRepo.FindByWorkstationID(ctx, query.WorkstationID)
	} else {
		limit := query.Limit
		if limit <= 0 || limit > 100 {
			limit = 50
		}
		zones, err = s.zoneRepo.FindAll(ctx, query.Skip, limit)
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to list zones")
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}

	dtos := make([]*ZoneDTO, 0, len(zones))
	for _, zone := range zones {
		dtos = append(dtos, ToZoneDTO(zone))
	}
	return dtos, nil
}

// UpdateZone applies a partial update to a zone
func (s *ZoneService) UpdateZone(ctx context.Context, cmd UpdateZoneCommand) (*ZoneDTO, error) {
	zone, err := s.find(ctx, cmd.ZoneID)
	if err != nil {
		return nil, err
	}

	var coordinates domain.Polygon
	if cmd.Points != nil {
		coordinates = domain.Polygon(cmd.Points)
	}

	if err := zone.UpdateDetails(cmd.Name, coordinates, cmd.Color, cmd.IsActive); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.zoneRepo.Save(ctx, zone); err != nil {
		s.logger.WithError(err).Error("Failed to save zone", "zoneId", cmd.ZoneID)
		return nil, fmt.Errorf("failed to save zone: %w", err)
	}

	s.logger.Info("Zone updated", "zoneId", cmd.ZoneID)

	return ToZoneDTO(zone), nil
}

// DeleteZone removes a zone
func (s *ZoneService) DeleteZone(ctx context.Context, cmd DeleteZoneCommand) error {
	zone, err := s.find(ctx, cmd.ZoneID)
	if err != nil {
		return err
	}

	if err := s.zoneRepo.Delete(ctx, zone.ZoneID); err != nil {
		s.logger.WithError(err).Error("Failed to delete zone", "zoneId", cmd.ZoneID)
		return fmt.Errorf("failed to delete zone: %w", err)
	}

	s.logger.Info("Zone deleted", "zoneId", cmd.ZoneID)
	return nil
}

// GetZoneStatus summarizes the live state of a zone
func (s *ZoneService) GetZoneStatus(ctx context.Context, query GetZoneQuery) (*ZoneStatusDTO, error) {
	zone, err := s.find(ctx, query.ZoneID)
	if err != nil {
		return nil, err
	}
	return ToZoneStatusDTO(zone), nil
}

func (s *ZoneService) find(ctx context.Context, zoneID string) (*domain.Zone, error) {
	zone, err := s.zoneRepo.FindByID(ctx, zoneID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find zone", "zoneId", zoneID)
		return nil, fmt.Errorf("failed to find zone: %w", err)
	}
	if zone == nil {
		return nil, errors.ErrNotFoundWithID("zone", zoneID)
	}
	return zone, nil
}
