package gif

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"retroboard/internal/domain"
	"retroboard/internal/service"
	"retroboard/pkg/errors"
	"retroboard/pkg/logger"
)

const defaultBaseURL = "https://tenor.googleapis.com/v2"

// clientKey identifies this integration to the Tenor API.
const clientKey = "retroboard"

// Service implements the GifService interface against the Tenor API
type Service struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewService creates a new GIF proxy service
func NewService(apiKey string, logger *logger.Logger) service.GifService {
	return &Service{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Search returns GIFs matching a free-text query
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.GifResult, error) {
	params := url.Values{}
	params.Set("q", query)
	return s.fetch(ctx, "search", params, limit)
}

// Trending returns currently trending GIFs
func (s *Service) Trending(ctx context.Context, limit int) ([]domain.GifResult, error) {
	return s.fetch(ctx, "featured", url.Values{}, limit)
}

// tenorResponse mirrors the subset of the Tenor payload we consume
type tenorResponse struct {
	Results []struct {
		ID           string `json:"id"`
		MediaFormats map[string]struct {
			URL  string `json:"url"`
			Dims []int  `json:"dims"`
		} `json:"media_formats"`
	} `json:"results"`
}

func (s *Service) fetch(ctx context.Context, endpoint string, params url.Values, limit int) ([]domain.GifResult, error) {
	if s.apiKey == "" {
		return nil, errors.NewInternalError("GIF search is not configured", nil)
	}
	if limit <= 0 || limit > 50 {
		limit = 24
	}

	params.Set("key", s.apiKey)
	params.Set("client_key", clientKey)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("media_filter", "gif")
	requestURL := fmt.Sprintf("%s/%s?%s", s.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.NewInternalError("failed to build GIF request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("GIF request failed")
		return nil, errors.NewExternalError("GIF request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.WithField("status", resp.StatusCode).Error("GIF request returned non-OK status")
		return nil, errors.NewExternalError(fmt.Sprintf("GIF request returned status %d", resp.StatusCode), nil)
	}

	var payload tenorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewExternalError("failed to decode GIF response", err)
	}

	results := make([]domain.GifResult, 0, len(payload.Results))
	for _, item := range payload.Results {
		// Prefer the full-size format, falling back to smaller renditions
		var media struct {
			URL  string `json:"url"`
			Dims []int  `json:"dims"`
		}
		for _, format := range []string{"gif", "mediumgif", "tinygif"} {
			if m, ok := item.MediaFormats[format]; ok && m.URL != "" {
				media = m
				break
			}
		}
		if media.URL == "" {
			continue
		}
		results = append(results, domain.GifResult{
			ID:   item.ID,
			URL:  media.URL,
			Dims: media.Dims,
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"results":  len(results),
	}).Debug("GIF request completed")
	return results, nil
}
