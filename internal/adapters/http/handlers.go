package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/usecases"
)

// RegionListResponse is one filtered view of the region collection.
type RegionListResponse struct {
	Data       []domain.Region `json:"data"`
	Pagination Pagination      `json:"pagination"`
	Filter     domain.Filter   `json:"filter"`
	Count      int             `json:"count"` // length of the whole view
	Label      string          `json:"label"`
}

// SummaryResponse holds the size of every view with display labels.
type SummaryResponse struct {
	domain.RegionSummary
	Labels map[domain.Filter]string `json:"labels"`
}

// MonitorResponse is the monitor state plus what it is watching.
type MonitorResponse struct {
	domain.MonitorStatus
	Regions []domain.MonitoredRegion `json:"regions"`
}

// LocationResponse lists the events a location update produced.
type LocationResponse struct {
	Events []domain.RegionEvent `json:"events"`
}

type authorizationRequest struct {
	Authorization string `json:"authorization"`
}

// CreateRegionHandler adds a region from the add-region form.
func CreateRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.AddRegionInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		r, err := deps.Regions.Add(c.UserContext(), in)
		if err != nil {
			return errFromService(c, err)
		}

		c.Location("/v1/regions/" + r.ID)
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// ListRegionsHandler returns the view selected by ?event=all|on-entry|on-exit.
func ListRegionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := domain.ParseFilter(c.Query("event"))
		if err != nil {
			return errFromService(c, err)
		}
		offset, limit := pageParams(c, 50, 200)

		regions := deps.Regions.List(c.UserContext(), f)
		total := len(regions)

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg, "event="+string(f))
		return c.JSON(RegionListResponse{
			Data:       page(regions, offset, limit),
			Pagination: pg,
			Filter:     f,
			Count:      total,
			Label:      domain.Label(total),
		})
	}
}

// RegionSummaryHandler returns the count of every view.
func RegionSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum := deps.Regions.Summary(c.UserContext())
		return c.JSON(SummaryResponse{
			RegionSummary: sum,
			Labels: map[domain.Filter]string{
				domain.FilterAll:   domain.Label(sum.All),
				domain.FilterEntry: domain.Label(sum.Entry),
				domain.FilterExit:  domain.Label(sum.Exit),
			},
		})
	}
}

// GetRegionHandler returns a single region by identifier.
func GetRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := deps.Regions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(r)
	}
}

// DeleteRegionHandler stops monitoring a region and removes it from every view.
func DeleteRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := deps.Regions.Remove(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(r)
	}
}

// RegionEventsHandler returns recent entry/exit events for a region.
func RegionEventsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Alerts == nil {
			return errUnavailable(c, "event history not configured")
		}
		events, err := deps.Alerts.History(c.UserContext(), c.Params("id"), c.QueryInt("limit", 50))
		if err != nil {
			return errInternal(c, err.Error())
		}
		if events == nil {
			events = []domain.RegionEvent{}
		}
		return c.JSON(fiber.Map{"data": events})
	}
}

// PostLocationHandler feeds one device position fix through the monitor.
func PostLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Monitor == nil {
			return errUnavailable(c, "monitoring not configured")
		}

		var update domain.LocationUpdate
		if err := c.BodyParser(&update); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if update.Time.IsZero() {
			update.Time = time.Now().UTC()
		}

		events, err := deps.Monitor.ProcessLocation(c.UserContext(), "http", &update)
		if err != nil {
			return errFromService(c, err)
		}
		if events == nil {
			events = []domain.RegionEvent{}
		}
		return c.Status(fiber.StatusAccepted).JSON(LocationResponse{Events: events})
	}
}

// GetMonitorHandler reports authorization, limits and current registrations.
func GetMonitorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(monitorResponse(deps, c))
	}
}

// SetAuthorizationHandler changes the monitor's location permission level.
func SetAuthorizationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req authorizationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		auth, err := domain.ParseAuthorization(req.Authorization)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		deps.Regions.SetAuthorization(c.UserContext(), auth)
		return c.JSON(monitorResponse(deps, c))
	}
}

func monitorResponse(deps *Dependencies, c *fiber.Ctx) MonitorResponse {
	return MonitorResponse{
		MonitorStatus: deps.Regions.MonitorStatus(c.UserContext()),
		Regions:       deps.Regions.Monitored(c.UserContext()),
	}
}
