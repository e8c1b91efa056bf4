package handler

import (
	"time"

	"processguard/internal/process/models"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
)

// ProcessResponse is the JSON view of a stored process version.
type ProcessResponse struct {
	ID           domain.ProcessIdentifier  `json:"id"`
	Version      domain.ProcessVersion     `json:"version"`
	Status       models.Status             `json:"status"`
	Restrictions []restriction.Restriction `json:"restrictions"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

func toProcessResponse(p *models.Process) ProcessResponse {
	rs := p.Restrictions
	if rs == nil {
		rs = []restriction.Restriction{}
	}
	return ProcessResponse{
		ID:           p.ID,
		Version:      p.Version,
		Status:       p.Status,
		Restrictions: rs,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// VersionListResponse is returned by GET /processes/{id}/versions.
type VersionListResponse struct {
	ID       domain.ProcessIdentifier `json:"id"`
	Versions []ProcessResponse        `json:"versions"`
}

// CurrentVersionResponse is returned by GET /processes/{id}/version.
type CurrentVersionResponse struct {
	ID      domain.ProcessIdentifier `json:"id"`
	Version domain.ProcessVersion    `json:"version"`
}

type ValidateResponse struct {
	Valid bool `json:"valid"`
}

type ValidateBatchResponse struct {
	Results []bool `json:"results"`
}
