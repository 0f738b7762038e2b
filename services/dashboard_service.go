package services

import (
	"context"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/dashboard"
	"time"
)

type DashboardService struct {
	data *DataService
}

func NewDashboardService(data *DataService) *DashboardService {
	return &DashboardService{data: data}
}

// GetDashboard computes the caller's dashboard. heatmapView is week, month or year.
func (s *DashboardService) GetDashboard(ctx context.Context, clerkID string, now time.Time, heatmapView string) (*dashboard.Dashboard, error) {
	data, err := s.data.Load(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return tracker.BuildDashboard(data, now, heatmapView), nil
}
