package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/geofencing/internal/adapters/http"
	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/usecases"
)

// statusError is a non-2xx answer from the API.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

// rejected reports whether the API refused the input itself, as opposed to
// being unreachable or failing.
func rejected(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == fiber.StatusBadRequest
}

// apiClient drives the region endpoints of a running API. The API owns the
// region list, so every change goes through it.
type apiClient struct {
	base     string
	timeout  time.Duration
	backoff  time.Duration // first wait after a 429
	attempts int
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	return &apiClient{base: base, timeout: timeout, backoff: time.Second, attempts: 6}
}

// do sends the request built by newAgent, retrying while rate limited.
func (c *apiClient) do(newAgent func() *fiber.Agent, want int) ([]byte, error) {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		code, body, errs := newAgent().Timeout(c.timeout).Bytes()
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		if code == want {
			return body, nil
		}
		if code == fiber.StatusTooManyRequests && attempt < c.attempts {
			time.Sleep(wait)
			wait *= 2
			continue
		}
		return nil, decodeStatus(code, body)
	}
}

func decodeStatus(code int, body []byte) error {
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		return &statusError{Status: code, Message: string(body)}
	}
	return &statusError{Status: code, Message: apiErr.Message}
}

func (c *apiClient) addRegion(in usecases.AddRegionInput) (*domain.Region, error) {
	body, err := c.do(func() *fiber.Agent {
		return fiber.Post(c.base + "/v1/regions").JSON(in)
	}, fiber.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("add region: %w", err)
	}
	var r domain.Region
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode region: %w", err)
	}
	return &r, nil
}

func (c *apiClient) removeRegion(id string) error {
	_, err := c.do(func() *fiber.Agent {
		return fiber.Delete(c.base + "/v1/regions/" + url.PathEscape(id))
	}, fiber.StatusOK)
	var se *statusError
	if errors.As(err, &se) && se.Status == fiber.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove region %s: %w", id, err)
	}
	return nil
}

// listRegions pages through the full view.
func (c *apiClient) listRegions() ([]domain.Region, error) {
	const pageSize = 200
	var out []domain.Region
	for offset := 0; ; {
		body, err := c.do(func() *fiber.Agent {
			return fiber.Get(fmt.Sprintf("%s/v1/regions?event=all&offset=%d&limit=%d", c.base, offset, pageSize))
		}, fiber.StatusOK)
		if err != nil {
			return nil, fmt.Errorf("list regions: %w", err)
		}
		var page handler.RegionListResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode region list: %w", err)
		}
		out = append(out, page.Data...)
		offset += len(page.Data)
		if len(page.Data) == 0 || offset >= page.Pagination.Total {
			return out, nil
		}
	}
}

func (c *apiClient) summary() (domain.RegionSummary, error) {
	body, err := c.do(func() *fiber.Agent {
		return fiber.Get(c.base + "/v1/regions/summary")
	}, fiber.StatusOK)
	if err != nil {
		return domain.RegionSummary{}, fmt.Errorf("region summary: %w", err)
	}
	var sum handler.SummaryResponse
	if err := json.Unmarshal(body, &sum); err != nil {
		return domain.RegionSummary{}, fmt.Errorf("decode summary: %w", err)
	}
	return sum.RegionSummary, nil
}
