package application

import (
	"github.com/marmot-vision/marmot/internal/analyzer"
	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
)

// ToWorkstationDTO converts a workstation aggregate and its zones to a DTO
func ToWorkstationDTO(w *domain.Workstation, zones []*domain.Zone) *WorkstationDTO {
	dto := &WorkstationDTO{
		WorkstationID:   w.WorkstationID,
		Name:            w.Name,
		Description:     w.Description,
		IsActive:        w.IsActive,
		VideoSourceType: string(w.VideoSourceType),
		VideoSourceURL:  w.VideoSourceURL,
		VideoConfig:     w.VideoConfig,
		CurrentStatus:   string(w.CurrentStatus),
		LastDetectionAt: w.LastDetectionAt,
		Zones:           make([]ZoneDTO, 0, len(zones)),
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}

	for _, z := range zones {
		dto.Zones = append(dto.Zones, *ToZoneDTO(z))
	}

	return dto
}

// ToZoneDTO converts a zone aggregate to a DTO
func ToZoneDTO(z *domain.Zone) *ZoneDTO {
	coordinates := make([][]float64, 0, len(z.Coordinates))
	for _, p := range z.Coordinates {
		coordinates = append(coordinates, []float64{p.X, p.Y})
	}

	return &ZoneDTO{
		ZoneID:        z.ZoneID,
		Name:          z.Name,
		WorkstationID: z.WorkstationID,
		Coordinates:   coordinates,
		IsActive:      z.IsActive,
		Color:         z.Color,
		PersonCount:   z.PersonCount,
		Status:        string(z.Status),
		CreatedAt:     z.CreatedAt,
		UpdatedAt:     z.UpdatedAt,
	}
}

// ToWorkstationStatusDTO summarizes a workstation and its zones
func ToWorkstationStatusDTO(w *domain.Workstation, zones []*domain.Zone) *WorkstationStatusDTO {
	dto := &WorkstationStatusDTO{
		WorkstationID:   w.WorkstationID,
		CurrentStatus:   string(w.CurrentStatus),
		IsActive:        w.IsActive,
		LastDetectionAt: w.LastDetectionAt,
		ZoneCount:       len(zones),
	}

	for _, z := range zones {
		if z.IsActive {
			dto.ActiveZoneCount++
		}
		dto.TotalPersons += z.PersonCount
	}

	return dto
}

// ToZoneStatusDTO summarizes the live state of a zone
func ToZoneStatusDTO(z *domain.Zone) *ZoneStatusDTO {
	return &ZoneStatusDTO{
		ZoneID:      z.ZoneID,
		Status:      string(z.Status),
		PersonCount: z.PersonCount,
		IsActive:    z.IsActive,
		UpdatedAt:   z.UpdatedAt,
	}
}

// ToStreamDTO converts a running stream to a DTO
func ToStreamDTO(stream *video.Stream) *StreamDTO {
	config := stream.Worker.Config()

	zones := stream.Analyzer.Zones()
	zoneDTOs := make([]StreamZoneDTO, 0, len(zones))
	for _, z := range zones {
		zoneDTOs = append(zoneDTOs, StreamZoneDTO{
			ZoneID: z.ZoneID,
			Name:   z.Name,
			XMin:   z.Rect.XMin,
			YMin:   z.Rect.YMin,
			XMax:   z.Rect.XMax,
			YMax:   z.Rect.YMax,
		})
	}

	return &StreamDTO{
		StreamID:      config.StreamID,
		Name:          config.Name,
		WorkstationID: config.WorkstationID,
		SourceType:    string(config.SourceType),
		SourceURL:     config.SourceURL,
		TargetFPS:     config.TargetFPS,
		AutoReconnect: config.AutoReconnect,
		Status:        string(stream.Worker.Status()),
		Zones:         zoneDTOs,
	}
}

func toAnalyzerZones(configs []StreamZoneConfig) []analyzer.Zone {
	if configs == nil {
		return nil
	}

	zones := make([]analyzer.Zone, 0, len(configs))
	for _, c := range configs {
		zones = append(zones, analyzer.Zone{
			ZoneID: c.ZoneID,
			Name:   c.Name,
			Rect: domain.Rectangle{
				XMin: c.XMin,
				YMin: c.YMin,
				XMax: c.XMax,
				YMax: c.YMax,
			},
		})
	}
	return zones
}

// ToDetectionResultDTO converts raw trackings to a detection response
func ToDetectionResultDTO(tracks []domain.Tracking, analysis analyzer.FrameAnalysis) *DetectionResultDTO {
	dto := &DetectionResultDTO{
		PersonCount: len(tracks),
		Detections:  make([]DetectedPerson, 0, len(tracks)),
		Timestamp:   analysis.Timestamp,
	}

	for _, t := range tracks {
		dto.Detections = append(dto.Detections, DetectedPerson{
			BBox:       []float64{t.BBox.X1, t.BBox.Y1, t.BBox.X2, t.BBox.Y2},
			Confidence: t.Confidence,
			TrackID:    t.TrackID,
		})
	}

	return dto
}
