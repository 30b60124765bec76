package pages

import (
	"errors"

	"github.com/Kyz7/kingsbuilder/internal/history"
	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/Kyz7/kingsbuilder/internal/response"
	"github.com/Kyz7/kingsbuilder/internal/shopify"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// IdentityLocal is the fiber locals key the identity middleware stores the
// caller's Identity under.
const IdentityLocal = "identity"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type previewRequest struct {
	Content models.PageContent `json:"content"`
}

func identityOf(c *fiber.Ctx) Identity {
	ident, _ := c.Locals(IdentityLocal).(Identity)
	return ident
}

func (h *Handler) ListPagesHandler(c *fiber.Ctx) error {
	list, err := h.svc.ListPages(c.UserContext(), identityOf(c))
	if err != nil {
		return handleError(c, err)
	}
	return response.SuccessWithMeta(c, list, &response.Meta{Total: int64(len(list))}, "Pages retrieved successfully")
}

func (h *Handler) GetPageHandler(c *fiber.Ctx) error {
	page, err := h.svc.GetPage(c.UserContext(), identityOf(c), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, page, "Page retrieved successfully")
}

func (h *Handler) CreatePageHandler(c *fiber.Ctx) error {
	var data PageData
	if err := c.BodyParser(&data); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}

	res, err := h.svc.Create(c.UserContext(), identityOf(c), data)
	if err != nil {
		return handleError(c, err)
	}
	return response.Created(c, res, "Page created successfully")
}

func (h *Handler) SavePageHandler(c *fiber.Ctx) error {
	var data PageData
	if err := c.BodyParser(&data); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}

	res, err := h.svc.Save(c.UserContext(), identityOf(c), c.Params("id"), data)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, res, "Page saved successfully")
}

func (h *Handler) PublishPageHandler(c *fiber.Ctx) error {
	var data PageData
	if err := c.BodyParser(&data); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}

	res, err := h.svc.Publish(c.UserContext(), identityOf(c), c.Params("id"), data)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, res, "Page published successfully")
}

func (h *Handler) DeletePageHandler(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), identityOf(c), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return response.Success(c, nil, "Page deleted successfully")
}

func (h *Handler) ListVersionsHandler(c *fiber.Ctx) error {
	list, err := h.svc.ListVersions(c.UserContext(), identityOf(c), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, list, "Versions retrieved successfully")
}

func (h *Handler) GetVersionHandler(c *fiber.Ctx) error {
	version, err := c.ParamsInt("version")
	if err != nil || version < 1 {
		return response.BadRequest(c, "Invalid version number", nil)
	}

	v, err := h.svc.GetVersion(c.UserContext(), identityOf(c), c.Params("id"), version)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, v, "Version retrieved successfully")
}

func (h *Handler) RestoreVersionHandler(c *fiber.Ctx) error {
	version, err := c.ParamsInt("version")
	if err != nil || version < 1 {
		return response.BadRequest(c, "Invalid version number", nil)
	}

	res, err := h.svc.Restore(c.UserContext(), identityOf(c), c.Params("id"), version)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, res, "Version restored successfully")
}

func (h *Handler) PreviewHandler(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}

	return response.Success(c, fiber.Map{
		"html": h.svc.Preview(req.Content),
		"kind": req.Content.Kind.String(),
	}, "Preview rendered successfully")
}

func handleError(c *fiber.Ctx, err error) error {
	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrValidation):
		return response.BadRequest(c, err.Error(), nil)
	case errors.Is(err, history.ErrNotFound):
		return response.NotFound(c, "Version")
	case errors.Is(err, history.ErrUnavailable):
		return response.HistoryUnavailable(c)
	case errors.As(err, &upstream):
		details := fiber.Map{"operation": upstream.Op}

		var apiErr *shopify.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Status == fiber.StatusNotFound {
				return response.NotFound(c, "Page")
			}
			details["status"] = apiErr.Status
			details["body"] = apiErr.Body
		}
		return response.BadGateway(c, "Shopify request failed", details)
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("❌ Request failed")
		return response.InternalError(c, "Something went wrong")
	}
}
