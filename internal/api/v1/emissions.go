// internal/api/v1/emissions.go
package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/ecotrack/emissions-api/internal/datastore"
	"github.com/ecotrack/emissions-api/internal/errors"
)

// initEmissionRoutes registers emission record CRUD endpoints. The summary
// route is registered before the parameterized routes so the static segment
// wins over :id.
func (c *Controller) initEmissionRoutes() {
	c.Group.GET("/emissions/summary", c.GetEmissionsSummary)
	c.Group.GET("/emissions", c.ListEmissions)
	c.Group.POST("/emissions", c.CreateEmission)
	c.Group.GET("/emissions/:id", c.GetEmission)
	c.Group.PUT("/emissions/:id", c.UpdateEmission)
	c.Group.PATCH("/emissions/:id", c.PatchEmission)
	c.Group.DELETE("/emissions/:id", c.DeleteEmission)
}

// bindEmissionRequest decodes the JSON body, translating type mismatches
// into per-field validation messages instead of a generic parse error.
func bindEmissionRequest(ctx echo.Context, req *EmissionRequest) error {
	decoder := json.NewDecoder(ctx.Request().Body)
	if err := decoder.Decode(req); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok && typeErr.Field != "" {
			ve := errors.NewValidationError()
			ve.Add(typeErr.Field, typeMismatchMessage(typeErr.Field))
			return ve
		}
		return echo.NewHTTPError(http.StatusBadRequest,
			map[string]string{"detail": "JSON parse error - malformed request body."})
	}
	return nil
}

func typeMismatchMessage(field string) string {
	switch field {
	case "year":
		return "A valid integer is required."
	case "emissions":
		return "A valid number is required."
	default:
		return "Not a valid string."
	}
}

// renderBindError writes the response for a failed bind.
func (c *Controller) renderBindError(ctx echo.Context, err error) error {
	switch e := err.(type) {
	case *errors.ValidationError:
		return c.handleValidationError(ctx, e)
	case *echo.HTTPError:
		return ctx.JSON(e.Code, e.Message)
	default:
		return c.HandleError(ctx, err, "Failed to read request body", http.StatusBadRequest)
	}
}

// ListEmissions handles GET /api/v1/emissions with filtering, search,
// ordering and page-number pagination.
func (c *Controller) ListEmissions(ctx echo.Context) error {
	filter, err := datastore.ParseEmissionFilter(ctx.QueryParams())
	if err != nil {
		if ve, ok := err.(*errors.ValidationError); ok {
			return c.handleValidationError(ctx, ve)
		}
		return c.HandleError(ctx, err, "Invalid filter parameters", http.StatusBadRequest)
	}

	ordering, err := datastore.ParseOrdering(ctx.QueryParam("ordering"))
	if err != nil {
		if ve, ok := err.(*errors.ValidationError); ok {
			return c.handleValidationError(ctx, ve)
		}
		return c.HandleError(ctx, err, "Invalid ordering parameter", http.StatusBadRequest)
	}

	params, err := c.parsePageParams(ctx)
	if err != nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{"detail": "Invalid page."})
	}

	count, err := c.DS.Count(filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to count emission records", http.StatusInternalServerError)
	}

	if err := params.validatePage(count); err != nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{"detail": "Invalid page."})
	}

	records, err := c.DS.List(filter, ordering, params.PageSize, params.offset())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list emission records", http.StatusInternalServerError)
	}

	next, previous := params.buildPageLinks(ctx, count)

	return ctx.JSON(http.StatusOK, PaginatedResponse{
		Count:    count,
		Next:     next,
		Previous: previous,
		Results:  toResponses(records),
	})
}

// CreateEmission handles POST /api/v1/emissions.
func (c *Controller) CreateEmission(ctx echo.Context) error {
	var req EmissionRequest
	if err := bindEmissionRequest(ctx, &req); err != nil {
		return c.renderBindError(ctx, err)
	}

	if ve := req.Validate(false); ve != nil {
		return c.handleValidationError(ctx, ve)
	}

	var record datastore.Emission
	req.Apply(&record)

	if err := c.DS.Save(&record); err != nil {
		if ve, ok := asValidationError(err); ok {
			return c.handleValidationError(ctx, ve)
		}
		return c.HandleError(ctx, err, "Failed to create emission record", http.StatusInternalServerError)
	}

	c.invalidateSummaryCache()

	return ctx.JSON(http.StatusCreated, toResponse(&record))
}

// GetEmission handles GET /api/v1/emissions/:id.
func (c *Controller) GetEmission(ctx echo.Context) error {
	record, err := c.DS.Get(ctx.Param("id"))
	if err != nil {
		if datastore.IsNotFound(err) {
			return c.handleNotFound(ctx)
		}
		return c.HandleError(ctx, err, "Failed to retrieve emission record", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, toResponse(&record))
}

// UpdateEmission handles PUT /api/v1/emissions/:id. All fields are required.
func (c *Controller) UpdateEmission(ctx echo.Context) error {
	return c.updateEmission(ctx, false)
}

// PatchEmission handles PATCH /api/v1/emissions/:id. Only the fields present
// in the body are modified.
func (c *Controller) PatchEmission(ctx echo.Context) error {
	return c.updateEmission(ctx, true)
}

func (c *Controller) updateEmission(ctx echo.Context, partial bool) error {
	record, err := c.DS.Get(ctx.Param("id"))
	if err != nil {
		if datastore.IsNotFound(err) {
			return c.handleNotFound(ctx)
		}
		return c.HandleError(ctx, err, "Failed to retrieve emission record", http.StatusInternalServerError)
	}

	var req EmissionRequest
	if err := bindEmissionRequest(ctx, &req); err != nil {
		return c.renderBindError(ctx, err)
	}

	if ve := req.Validate(partial); ve != nil {
		return c.handleValidationError(ctx, ve)
	}

	req.Apply(&record)

	if err := c.DS.Update(&record); err != nil {
		if ve, ok := asValidationError(err); ok {
			return c.handleValidationError(ctx, ve)
		}
		return c.HandleError(ctx, err, "Failed to update emission record", http.StatusInternalServerError)
	}

	c.invalidateSummaryCache()

	return ctx.JSON(http.StatusOK, toResponse(&record))
}

// DeleteEmission handles DELETE /api/v1/emissions/:id.
func (c *Controller) DeleteEmission(ctx echo.Context) error {
	if err := c.DS.Delete(ctx.Param("id")); err != nil {
		if datastore.IsNotFound(err) {
			return c.handleNotFound(ctx)
		}
		return c.HandleError(ctx, err, "Failed to delete emission record", http.StatusInternalServerError)
	}

	c.invalidateSummaryCache()

	return ctx.NoContent(http.StatusNoContent)
}

// SummaryResponse aggregates emissions over the filtered set.
type SummaryResponse struct {
	Count          int64           `json:"count"`
	TotalEmissions decimal.Decimal `json:"total_emissions"`
	TotalKilotons  decimal.Decimal `json:"total_emissions_in_kilotons"`
	TotalMegatons  decimal.Decimal `json:"total_emissions_in_megatons"`
}

// GetEmissionsSummary handles GET /api/v1/emissions/summary. Results are
// cached per query string and invalidated on any successful write.
func (c *Controller) GetEmissionsSummary(ctx echo.Context) error {
	cacheKey := "summary:" + ctx.Request().URL.RawQuery
	if cached, found := c.summaryCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	filter, err := datastore.ParseEmissionFilter(ctx.QueryParams())
	if err != nil {
		if ve, ok := err.(*errors.ValidationError); ok {
			return c.handleValidationError(ctx, ve)
		}
		return c.HandleError(ctx, err, "Invalid filter parameters", http.StatusBadRequest)
	}

	count, err := c.DS.Count(filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to count emission records", http.StatusInternalServerError)
	}

	total, err := c.DS.TotalEmissions(filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to aggregate emission records", http.StatusInternalServerError)
	}

	summary := SummaryResponse{
		Count:          count,
		TotalEmissions: total,
		TotalKilotons:  total.Shift(-3),
		TotalMegatons:  total.Shift(-6),
	}

	c.summaryCache.SetDefault(cacheKey, summary)

	return ctx.JSON(http.StatusOK, summary)
}

func (c *Controller) invalidateSummaryCache() {
	c.summaryCache.Flush()
}

func asValidationError(err error) (*errors.ValidationError, bool) {
	ve, ok := err.(*errors.ValidationError)
	if ok {
		return ve, true
	}
	var target *errors.ValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
