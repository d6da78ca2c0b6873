package handlers

import (
	"errors"

	"video_transcode_service/internal/member/app"
	"video_transcode_service/internal/member/domain"
	"video_transcode_service/pkg/encrypt"
	"video_transcode_service/pkg/logger"
	"video_transcode_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MemberHandler 处理用户相关的 HTTP 请求
type MemberHandler struct {
	Usecase app.MemberUseCase
}

// NewMemberHandler 创建新的 MemberHandler
func NewMemberHandler(usecase app.MemberUseCase) *MemberHandler {
	return &MemberHandler{Usecase: usecase}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register 注册新用户
// @Summary 注册新用户
// @Tags Members
// @Accept json
// @Produce json
// @Param request body credentials true "注册请求"
// @Success 201 {object} map[string]string "注册成功"
// @Failure 400 {object} map[string]string "请求错误"
// @Failure 409 {object} map[string]string "用户名已存在"
// @Router /member/register [post]
func (h *MemberHandler) Register(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	member, err := h.Usecase.Register(c.UserContext(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidUsername), errors.Is(err, encrypt.ErrWeakPassword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.Log.Error("register failed", zap.String("username", req.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "register failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "register success",
		"member_id": member.MemberID,
	})
}

// Login 用户登录
// @Summary 用户登录
// @Tags Members
// @Accept json
// @Produce json
// @Param request body credentials true "用户登录信息"
// @Success 200 {object} map[string]string "登录成功"
// @Failure 401 {object} map[string]string "登录失败"
// @Router /member/login [post]
func (h *MemberHandler) Login(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	token, err := h.Usecase.Login(c.UserContext(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrMemberBanned):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieToken,
		Value:    token,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"token": token, "message": "login success"})
}

// Logout 用户登出
// @Summary 用户登出
// @Tags Members
// @Produce json
// @Param auth query string false "token"
// @Success 200 {object} map[string]string "注销成功"
// @Failure 500 {object} map[string]string "服务器错误"
// @Router /member/logout [post]
func (h *MemberHandler) Logout(c *fiber.Ctx) error {
	token, ok := c.Locals(middlewares.TokenRaw).(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	if err := h.Usecase.Logout(c.UserContext(), token); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "logout failed"})
	}

	c.ClearCookie(middlewares.CookieToken)
	return c.JSON(fiber.Map{"message": "logout success"})
}
