package handlers

import (
	"errors"
	"net/http"

	"github.com/chnk8802/task-manager/internal/api/middleware"
	"github.com/chnk8802/task-manager/internal/service"
	"github.com/chnk8802/task-manager/pkg/utils/response"
	"github.com/labstack/echo/v4"
)

// AvatarFormField is the multipart field carrying the upload
const AvatarFormField = "avatar"

// AvatarHandler is the handler for the avatar API
type AvatarHandler struct {
	service *service.AvatarService
}

// NewAvatarHandler creates a new handler for the avatar API
func NewAvatarHandler(service *service.AvatarService) *AvatarHandler {
	return &AvatarHandler{service: service}
}

// Upload stores the uploaded image as the account's avatar
func (h *AvatarHandler) Upload(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}

	file, err := c.FormFile(AvatarFormField)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`avatar` file is required")
	}
	src, err := file.Open()
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid File!")
	}
	defer src.Close()

	if _, err := h.service.Ingest(c.Request().Context(), auth.Account.ID, file.Filename, file.Size, src); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, map[string]string{"message": "Avatar uploaded successfully!"})
}

// Delete clears the account's avatar
func (h *AvatarHandler) Delete(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}
	if err := h.service.Remove(c.Request().Context(), auth.Account.ID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, map[string]string{"message": "Avatar deleted successfully, upload a new one anytime"})
}

// Get serves the avatar of the account in the path as image/png
func (h *AvatarHandler) Get(c echo.Context) error {
	data, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		return response.ErrorResponse(c, http.StatusBadRequest, response.NotFoundException, "No avatar found")
	}
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}
