package apihandler

import (
	"net/http"

	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/internal/user"
	"github.com/labstack/echo/v4"
)

// UserHandler 用户服务路由
type UserHandler struct {
	svc *user.Service
}

// NewUserHandler 创建用户路由
func NewUserHandler(svc *user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register 注册用户路由
// 最后内容更新时间接口同时挂在/api/users和/users下
func (h *UserHandler) Register(e *echo.Echo) {
	g := e.Group("/users")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PATCH("/:id/lastcontentupdated", h.updateLastContentUpdated)

	e.PATCH("/api/users/:id/lastcontentupdated", h.updateLastContentUpdated)
}

func (h *UserHandler) list(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) create(c echo.Context) error {
	var req model.UserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	created, err := h.svc.CreateUser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, "/users/"+created.ID.String())
	return c.JSON(http.StatusCreated, created)
}

func (h *UserHandler) update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req model.UserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.svc.UpdateUser(c.Request().Context(), id, req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) updateLastContentUpdated(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req model.LastContentUpdatedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.svc.UpdateLastContentUpdated(c.Request().Context(), id, req.LastContentUpdated); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
