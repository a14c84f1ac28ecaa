package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"finance-backend/internal/query"
)

type Handler struct {
	registry *Registry
	log      logrus.FieldLogger
	recorder Recorder
	timeout  time.Duration
}

func NewHandler(reg *Registry, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{registry: reg, log: log, recorder: nopRecorder{}}
}

// WithRecorder sends an event for every list request that reaches a
// resource to r. A nil r disables recording.
func (h *Handler) WithRecorder(r Recorder) *Handler {
	if r == nil {
		r = nopRecorder{}
	}
	h.recorder = r
	return h
}

// WithTimeout bounds each list request, count and fetch together. A
// request over the limit fails as CANCELLED. Zero means no limit.
func (h *Handler) WithTimeout(d time.Duration) *Handler {
	h.timeout = d
	return h
}

// Resources handles GET /api
func (h *Handler) Resources(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.Names()})
}

// Schema handles GET /api/:resource/schema
func (h *Handler) Schema(c *fiber.Ctx) error {
	res, err := h.resolveResource(c)
	if err != nil {
		return h.fail(c, c.Params("resource"), err)
	}
	return c.JSON(fiber.Map{"data": res.Fields()})
}

// List handles GET /api/:resource
func (h *Handler) List(c *fiber.Ctx) error {
	res, err := h.resolveResource(c)
	if err != nil {
		return h.fail(c, c.Params("resource"), err)
	}

	req, err := ParseQueryParams(c)
	if err != nil {
		return h.fail(c, res.Name(), err)
	}
	return h.run(c, res, req)
}

// Query handles POST /api/:resource/query with a JSON query.Request body.
func (h *Handler) Query(c *fiber.Ctx) error {
	res, err := h.resolveResource(c)
	if err != nil {
		return h.fail(c, c.Params("resource"), err)
	}

	var req query.Request
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			if QueryError(err) != nil {
				return h.fail(c, res.Name(), err)
			}
			return respondError(c, InvalidPayloadError("Invalid JSON body"))
		}
	}
	return h.run(c, res, req)
}

func (h *Handler) run(c *fiber.Ctx, res Resource, req query.Request) error {
	user := getUser(c)
	if user == nil {
		return respondError(c, UnauthorizedError("Missing auth token"))
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	page, err := res.List(ctx, user, req)
	h.record(res.Name(), user, req, page, err, start)
	if err != nil {
		return h.fail(c, res.Name(), err)
	}

	h.log.WithFields(logrus.Fields{
		"resource": res.Name(),
		"user":     user.ID,
	}).Debug("list served")
	return c.JSON(page)
}

func (h *Handler) record(resource string, user *UserContext, req query.Request, page any, err error, start time.Time) {
	ev := ListEvent{
		Resource: resource,
		UserID:   user.ID,
		Sorts:    len(req.Orders),
		Search:   req.SearchTerm != "",
		Duration: time.Since(start),
		Status:   "ok",
		At:       start,
	}
	if req.Filter != nil {
		ev.Filters = len(req.Filter.Details)
	}
	if p, ok := page.(interface{ Page() query.Pagination }); ok {
		ev.Total = p.Page().TotalRow
	}
	if err != nil {
		ev.Status = "INTERNAL_ERROR"
		var appErr *AppError
		if errors.As(err, &appErr) {
			ev.Status = appErr.Code
		} else if qe := QueryError(err); qe != nil {
			ev.Status = qe.Code
		}
	}
	h.recorder.RecordList(ev)
}

// fail answers client errors directly; anything else goes to the app's
// error handler as a 500.
func (h *Handler) fail(c *fiber.Ctx, resource string, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return respondError(c, appErr)
	}
	if appErr := QueryError(err); appErr != nil {
		h.log.WithFields(logrus.Fields{
			"resource": resource,
			"code":     appErr.Code,
		}).WithError(err).Info("query rejected")
		return respondError(c, appErr)
	}
	return fmt.Errorf("list %s: %w", resource, err)
}

func (h *Handler) resolveResource(c *fiber.Ctx) (Resource, error) {
	name := c.Params("resource")
	res := h.registry.Get(name)
	if res == nil {
		return nil, UnknownEntityError(name)
	}
	return res, nil
}

func getUser(c *fiber.Ctx) *UserContext {
	user, _ := c.Locals("user").(*UserContext)
	return user
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}
