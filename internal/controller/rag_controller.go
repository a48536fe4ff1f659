package controller

import (
	"errors"
	"fmt"
	"io"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/pkg/serverutils"
	"ai-agent-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRagController interface {
	RegisterRoutes(r fiber.Router)
	ListTags(ctx *fiber.Ctx) error
	ContextSummary(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	DeleteContext(ctx *fiber.Ctx) error
}

type ragController struct {
	ragService     service.IRagService
	authMiddleware fiber.Handler
	maxUploadBytes int64
}

func NewRagController(ragService service.IRagService, authMiddleware fiber.Handler, maxUploadBytes int64) IRagController {
	return &ragController{
		ragService:     ragService,
		authMiddleware: authMiddleware,
		maxUploadBytes: maxUploadBytes,
	}
}

func (c *ragController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag")
	h.Use(c.authMiddleware)
	h.Get("/tags", c.ListTags)
	h.Post("/file/upload", c.Upload)
	h.Get("/context/:tag", c.ContextSummary)
	h.Delete("/context/:tag", c.DeleteContext)
}

func (c *ragController) ListTags(ctx *fiber.Ctx) error {
	subject := ctx.Locals("user_id").(string)

	tags, err := c.ragService.ListContextTags(ctx.UserContext(), subject)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list context tags", dto.ContextTagsResponse{
		Tags:  tags,
		Limit: c.ragService.TagLimit(),
	}))
}

func (c *ragController) ContextSummary(ctx *fiber.Ctx) error {
	subject := ctx.Locals("user_id").(string)

	res, err := c.ragService.ContextSummary(ctx.UserContext(), subject, ctx.Params("tag"))
	if err != nil {
		return ragError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get context", res))
}

func (c *ragController) Upload(ctx *fiber.Ctx) error {
	subject := ctx.Locals("user_id").(string)

	var req dto.UploadContextRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}

	files := make([]service.ContextFile, 0, len(form.File["file"]))
	for _, fh := range form.File["file"] {
		if c.maxUploadBytes > 0 && fh.Size > c.maxUploadBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d bytes", fh.Filename, c.maxUploadBytes))
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, service.ContextFile{Name: fh.Filename, Content: content})
	}

	res, err := c.ragService.UploadContext(ctx.UserContext(), subject, req.RagTag, files)
	if err != nil {
		return ragError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success upload context", res))
}

func (c *ragController) DeleteContext(ctx *fiber.Ctx) error {
	subject := ctx.Locals("user_id").(string)

	if err := c.ragService.DeleteContext(ctx.UserContext(), subject, ctx.Params("tag")); err != nil {
		return ragError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete context", nil))
}

func ragError(err error) error {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrInvalidTag), errors.Is(err, service.ErrNoFiles), errors.Is(err, service.ErrNotText),
		errors.Is(err, service.ErrTooManyFiles):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrContextNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return err
}
