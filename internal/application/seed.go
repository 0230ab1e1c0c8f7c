package application

import (
	"context"
	"fmt"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/pkg/logging"
)

// SeedSampleData inserts a demo workstation with zones when the database
// is empty. Useful for local development against a fresh MongoDB.
func SeedSampleData(
	ctx context.Context,
	workstationRepo domain.WorkstationRepository,
	zoneRepo domain.ZoneRepository,
	logger *logging.Logger,
) error {
	existing, err := workstationRepo.FindAll(ctx, 0, 1)
	if err != nil {
		return fmt.Errorf("failed to check existing workstations: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	workstation, err := domain.NewWorkstation(
		"WS-DEMO-01",
		"Assembly Station 1",
		"Demo assembly workstation",
		domain.SourceFile,
		"/data/samples/assembly.mp4",
		nil,
	)
	if err != nil {
		return err
	}
	if err := workstationRepo.Save(ctx, workstation); err != nil {
		return fmt.Errorf("failed to seed workstation: %w", err)
	}

	zones := []struct {
		id, name, color string
		points          domain.Polygon
	}{
		{
			id: "ZONE-DEMO-01", name: "Work Area", color: "#00CC66",
			points: domain.Polygon{{X: 100, Y: 100}, {X: 500, Y: 100}, {X: 500, Y: 400}, {X: 100, Y: 400}},
		},
		{
			id: "ZONE-DEMO-02", name: "Material Buffer", color: "#FFAA00",
			points: domain.Polygon{{X: 550, Y: 100}, {X: 900, Y: 100}, {X: 900, Y: 400}, {X: 550, Y: 400}},
		},
	}

	for _, z := range zones {
		zone, err := domain.NewZone(z.id, z.name, workstation.WorkstationID, z.points, z.color)
		if err != nil {
			return err
		}
		if err := zoneRepo.Save(ctx, zone); err != nil {
			return fmt.Errorf("failed to seed zone %s: %w", z.id, err)
		}
	}

	logger.Info("Sample data seeded", "workstationId", workstation.WorkstationID, "zones", len(zones))
	return nil
}
