package controller

import (
	"errors"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/pkg/serverutils"
	"ai-agent-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAccountController interface {
	RegisterRoutes(r fiber.Router)
	Quota(ctx *fiber.Ctx) error
	AdjustQuota(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
}

type accountController struct {
	accountService  service.IAccountService
	authMiddleware  fiber.Handler
	adminMiddleware fiber.Handler
}

func NewAccountController(accountService service.IAccountService, authMiddleware, adminMiddleware fiber.Handler) IAccountController {
	return &accountController{
		accountService:  accountService,
		authMiddleware:  authMiddleware,
		adminMiddleware: adminMiddleware,
	}
}

func (c *accountController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/account")
	h.Get("/quota", c.authMiddleware, c.Quota)

	admin := r.Group("/admin/account")
	admin.Use(c.adminMiddleware)
	admin.Post("/:subject/quota", c.AdjustQuota)
	admin.Put("/:subject/status", c.UpdateStatus)
}

func (c *accountController) Quota(ctx *fiber.Ctx) error {
	subject := ctx.Locals("user_id").(string)

	res, err := c.accountService.GetQuota(ctx.UserContext(), subject)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get quota", res))
}

func (c *accountController) AdjustQuota(ctx *fiber.Ctx) error {
	var req dto.AdjustQuotaRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.accountService.AdjustQuota(ctx.UserContext(), ctx.Params("subject"), req.Amount)
	if err != nil {
		return accountError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success adjust quota", res))
}

func (c *accountController) UpdateStatus(ctx *fiber.Ctx) error {
	var req dto.UpdateAccountStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.accountService.UpdateStatus(ctx.UserContext(), ctx.Params("subject"), req.Status)
	if err != nil {
		return accountError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update status", res))
}

func accountError(err error) error {
	if errors.Is(err, service.ErrInvalidQuotaAmount) || errors.Is(err, service.ErrInvalidStatus) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}
