package http

import (
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/models"
)

type shortenRequest struct {
	OriginalURL string     `json:"original_url" validate:"required,url,max=2048"`
	CustomAlias string     `json:"custom_alias,omitempty" validate:"omitempty,alphanum,max=10"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Project     *string    `json:"project,omitempty" validate:"omitempty,max=50"`
}

func (req shortenRequest) toLinkCreate() models.LinkCreate {
	return models.LinkCreate{
		OriginalURL: req.OriginalURL,
		CustomCode:  req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
		Project:     req.Project,
	}
}

type updateRequest struct {
	OriginalURL *string    `json:"original_url,omitempty" validate:"omitempty,url,max=2048"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (req updateRequest) toLinkUpdate() models.LinkUpdate {
	return models.LinkUpdate{
		OriginalURL: req.OriginalURL,
		ExpiresAt:   req.ExpiresAt,
	}
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func toTokenResponse(token string) tokenResponse {
	return tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	}
}

type linkResponse struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Clicks      int64      `json:"clicks"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
	IsActive    bool       `json:"is_active"`
	Project     *string    `json:"project,omitempty"`
}

func toLinkResponse(link *models.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		Clicks:      link.Clicks,
		LastUsed:    link.LastUsed,
		IsActive:    link.IsActive,
		Project:     link.Project,
	}
}

func toLinkResponses(links []*models.Link) []linkResponse {
	resp := make([]linkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, toLinkResponse(link))
	}
	return resp
}

type statsResponse struct {
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	Clicks      int64      `json:"clicks"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
}

func toStatsResponse(stats *models.LinkStats) statsResponse {
	return statsResponse{
		OriginalURL: stats.OriginalURL,
		CreatedAt:   stats.CreatedAt,
		Clicks:      stats.Clicks,
		LastUsed:    stats.LastUsed,
	}
}
