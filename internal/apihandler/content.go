package apihandler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/content"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/internal/failure"
	"github.com/labstack/echo/v4"
)

// 更新并通知接口的响应文案，保持与现有调用方兼容
const (
	msgUpdateAndNotifyOK     = "Content and user updated successfully."
	msgUpdateAndNotifyFailed = "An error occurred while updating content and user."
	msgContentNotFound       = "Content not found."
)

// MessageResponse 成功消息响应
type MessageResponse struct {
	Message string `json:"message"`
}

// ContentHandler 内容服务路由
type ContentHandler struct {
	svc *content.Service
}

// NewContentHandler 创建内容路由
func NewContentHandler(svc *content.Service) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// Register 注册内容路由
func (h *ContentHandler) Register(e *echo.Echo) {
	g := e.Group("/contents")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PATCH("/:contentId/update-and-notify-user/:userId", h.updateAndNotify)
}

func (h *ContentHandler) list(c echo.Context) error {
	contents, err := h.svc.ListContents(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contents)
}

func (h *ContentHandler) get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.svc.GetContent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ContentHandler) create(c echo.Context) error {
	var req model.ContentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	created, err := h.svc.CreateContent(c.Request().Context(), req)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, "/contents/"+created.ID.String())
	return c.JSON(http.StatusCreated, created)
}

func (h *ContentHandler) update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req model.ContentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.svc.UpdateContent(c.Request().Context(), id, req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ContentHandler) delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteContent(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// updateAndNotify 更新内容并通知用户服务
// 内容不存在返回404，其余失败（包括通知失败）返回500，此时内容修改已提交
func (h *ContentHandler) updateAndNotify(c echo.Context) error {
	contentID, err := parseID(c, "contentId")
	if err != nil {
		return err
	}
	userID, err := parseID(c, "userId")
	if err != nil {
		return err
	}
	var req model.ContentUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.svc.UpdateAndNotify(c.Request().Context(), contentID, req, userID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{Message: msgUpdateAndNotifyOK})
	case failure.IsNotFound(err):
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: msgContentNotFound, Details: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: msgUpdateAndNotifyFailed, Details: err.Error()})
	}
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "无效的ID: "+c.Param(name))
	}
	return id, nil
}
