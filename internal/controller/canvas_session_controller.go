package controller

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"studyhub-be/internal/dto"
	"studyhub-be/internal/pkg/serverutils"
	"studyhub-be/internal/service"
	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/raster"
	"studyhub-be/pkg/slide"

	"github.com/gofiber/fiber/v2"
)

type ICanvasSessionController interface {
	RegisterRoutes(r fiber.Router)
}

type canvasSessionController struct {
	sessionService service.ICanvasSessionService
	jwtSecret      string
	maxFileBytes   int64
}

func NewCanvasSessionController(sessionService service.ICanvasSessionService, jwtSecret string, maxFileBytes int64) ICanvasSessionController {
	return &canvasSessionController{
		sessionService: sessionService,
		jwtSecret:      jwtSecret,
		maxFileBytes:   maxFileBytes,
	}
}

func (c *canvasSessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/canvas/v1")
	h.Use(serverutils.OptionalJwtMiddleware(c.jwtSecret))

	h.Post("sessions", c.Open)
	h.Get("sessions/:id", c.State)
	h.Delete("sessions/:id", c.Close)
	h.Put("sessions/:id/user", c.Identify)

	h.Post("sessions/:id/pages", c.CreatePage)
	h.Delete("sessions/:id/pages/current", c.DeletePage)
	h.Put("sessions/:id/pages/current", c.SetCurrentPage)

	h.Post("sessions/:id/strokes", c.BeginStroke)
	h.Post("sessions/:id/strokes/extend", c.ExtendStroke)
	h.Post("sessions/:id/strokes/end", c.EndStroke)
	h.Post("sessions/:id/erase", c.Erase)

	h.Post("sessions/:id/text-boxes", c.AddTextBox)
	h.Put("sessions/:id/text-boxes/:boxId", c.UpdateTextBox)
	h.Put("sessions/:id/slides/:slideId", c.MoveSlide)
	h.Delete("sessions/:id/items/:itemId", c.DeleteItem)
	h.Put("sessions/:id/zoom", c.Zoom)

	h.Post("sessions/:id/import", c.Import)
	h.Post("sessions/:id/save", c.Save)
	h.Get("sessions/:id/export", c.Export)
}

// toHTTPError maps session errors onto statuses for the error middleware.
func toHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrSessionNotFound):
		return serverutils.NewHTTPError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotPersistent), errors.Is(err, service.ErrNoFiles), errors.Is(err, canvas.ErrUnknownTool):
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSaveInProgress), errors.Is(err, service.ErrLoadInProgress):
		return serverutils.NewHTTPError(fiber.StatusConflict, err.Error())
	case errors.Is(err, raster.ErrTooLarge):
		return serverutils.NewHTTPError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return err
}

// session resolves :id and checks the caller may use it. Anonymous sessions
// are open to anyone holding the id.
func (c *canvasSessionController) session(ctx *fiber.Ctx) (string, error) {
	id := ctx.Params("id")
	owner, err := c.sessionService.Owner(id)
	if err != nil {
		return "", toHTTPError(err)
	}
	if owner != "" && owner != serverutils.UserID(ctx) {
		return "", serverutils.NewHTTPError(fiber.StatusForbidden, "Session belongs to another user")
	}
	return id, nil
}

func parseBody[T any](ctx *fiber.Ctx) (*T, error) {
	var req T
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return nil, serverutils.NewHTTPError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func paramInt64(ctx *fiber.Ctx, name string) (int64, error) {
	v, err := strconv.ParseInt(ctx.Params(name), 10, 64)
	if err != nil {
		return 0, serverutils.NewHTTPError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return v, nil
}

func (c *canvasSessionController) Open(ctx *fiber.Ctx) error {
	res, err := c.sessionService.Open(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.Response[*dto.OpenSessionResponse]{
		Code:    fiber.StatusCreated,
		Success: true,
		Message: "Session opened",
		Data:    res,
	})
}

func (c *canvasSessionController) State(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	st, err := c.sessionService.State(id)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", st))
}

func (c *canvasSessionController) Close(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := c.sessionService.Close(id); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session closed", nil))
}

// Identify binds an anonymous session to the caller and loads their notes.
func (c *canvasSessionController) Identify(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := c.sessionService.Identify(ctx.UserContext(), id, serverutils.UserID(ctx)); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session identified", nil))
}

func (c *canvasSessionController) CreatePage(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.CreatePage(id)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Page created", res))
}

func (c *canvasSessionController) DeletePage(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.DeletePage(id)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete page", res))
}

func (c *canvasSessionController) SetCurrentPage(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.NavigatePageRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.SetCurrentPage(id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success change page", res))
}

func (c *canvasSessionController) BeginStroke(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.BeginStrokeRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.BeginStroke(id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Stroke started", res))
}

func (c *canvasSessionController) ExtendStroke(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.ExtendStrokeRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.ExtendStroke(id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Stroke extended", res))
}

func (c *canvasSessionController) EndStroke(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.PageRef](ctx)
	if err != nil {
		return err
	}
	if err := c.sessionService.EndStroke(id, req); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Stroke ended", nil))
}

func (c *canvasSessionController) Erase(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.EraseRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.Erase(id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success erase", res))
}

func (c *canvasSessionController) AddTextBox(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.AddTextBoxRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.AddTextBox(id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success add text box", res))
}

func (c *canvasSessionController) UpdateTextBox(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	boxId, err := paramInt64(ctx, "boxId")
	if err != nil {
		return err
	}
	req, err := parseBody[dto.UpdateTextBoxRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.UpdateTextBox(id, boxId, req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update text box", res))
}

func (c *canvasSessionController) MoveSlide(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	slideId, err := paramInt64(ctx, "slideId")
	if err != nil {
		return err
	}
	req, err := parseBody[dto.MoveSlideRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.MoveSlide(id, slideId, req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success move slide", res))
}

func (c *canvasSessionController) DeleteItem(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	itemId, err := paramInt64(ctx, "itemId")
	if err != nil {
		return err
	}
	ref := &dto.PageRef{}
	if v := ctx.QueryInt("page_index", -1); v >= 0 {
		ref.PageIndex = &v
	}
	res, err := c.sessionService.DeleteItem(id, itemId, ref)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete item", res))
}

func (c *canvasSessionController) Zoom(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.ZoomRequest](ctx)
	if err != nil {
		return err
	}
	zoom, err := c.sessionService.Zoom(id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success zoom", fiber.Map{"zoom": zoom}))
}

func (c *canvasSessionController) Import(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, "Expected multipart form with files")
	}

	var files []slide.File
	for _, fh := range form.File["files"] {
		f, err := c.readFile(fh)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	res, err := c.sessionService.Import(ctx.UserContext(), id, files)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Import finished", res))
}

func (c *canvasSessionController) readFile(fh *multipart.FileHeader) (slide.File, error) {
	if c.maxFileBytes > 0 && fh.Size > c.maxFileBytes {
		return slide.File{}, serverutils.NewHTTPError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("%s is too large", fh.Filename))
	}
	src, err := fh.Open()
	if err != nil {
		return slide.File{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return slide.File{}, err
	}
	return slide.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

func (c *canvasSessionController) Save(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	st, err := c.sessionService.Save(ctx.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse(st.Status, st))
}

func (c *canvasSessionController) Export(ctx *fiber.Ctx) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}
	res, err := c.sessionService.Export(id)
	if err != nil {
		return toHTTPError(err)
	}
	ctx.Attachment(res.FileName)
	ctx.Set(fiber.HeaderContentType, "application/pdf")
	return ctx.Send(res.Content)
}
