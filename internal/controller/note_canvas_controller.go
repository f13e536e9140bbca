package controller

import (
	"errors"

	"studyhub-be/internal/dto"
	"studyhub-be/internal/pkg/serverutils"
	"studyhub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type INoteCanvasController interface {
	RegisterRoutes(r fiber.Router)
	Get(ctx *fiber.Ctx) error
	Save(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type noteCanvasController struct {
	noteCanvasService service.INoteCanvasService
	jwtSecret         string
}

func NewNoteCanvasController(noteCanvasService service.INoteCanvasService, jwtSecret string) INoteCanvasController {
	return &noteCanvasController{
		noteCanvasService: noteCanvasService,
		jwtSecret:         jwtSecret,
	}
}

// RegisterRoutes keeps the paths and bodies the web client already speaks.
func (c *noteCanvasController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/note-canvas")
	h.Get("", serverutils.JwtMiddleware(c.jwtSecret), c.List)
	h.Get(":userId", c.Get)
	h.Post("", c.Save)
	h.Delete(":userId", serverutils.JwtMiddleware(c.jwtSecret), c.Delete)

	r.Get("/health", c.Health)
}

func (c *noteCanvasController) Get(ctx *fiber.Ctx) error {
	res, err := c.noteCanvasService.Load(ctx.UserContext(), ctx.Params("userId"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unable to load notes."})
	}
	return ctx.JSON(res)
}

func (c *noteCanvasController) Save(ctx *fiber.Ctx) error {
	var req dto.SaveNoteCanvasRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	res, err := c.noteCanvasService.Save(ctx.UserContext(), &req)
	if errors.Is(err, service.ErrUserIDRequired) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId is required"})
	}
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unable to save notes."})
	}
	return ctx.JSON(res)
}

// Delete only lets a user remove their own canvas.
func (c *noteCanvasController) Delete(ctx *fiber.Ctx) error {
	userId := ctx.Params("userId")
	if serverutils.UserID(ctx) != userId {
		return serverutils.NewHTTPError(fiber.StatusForbidden, "Cannot delete another user's notes")
	}
	if err := c.noteCanvasService.Delete(ctx.UserContext(), userId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete note canvas", nil))
}

func (c *noteCanvasController) List(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)
	if limit <= 0 || limit > 100 || offset < 0 {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, "limit must be 1-100 and offset >= 0")
	}

	res, err := c.noteCanvasService.List(ctx.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list note canvases", res))
}

func (c *noteCanvasController) Health(ctx *fiber.Ctx) error {
	if err := c.noteCanvasService.Ping(ctx.UserContext()); err != nil {
		return serverutils.NewHTTPError(fiber.StatusServiceUnavailable, "Snapshot store unavailable")
	}
	return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{"status": "up"}))
}
