package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
	"github.com/techjoejoe/Engagesuite-sub001/internal/service"
)

// IdentityHandler обрабатывает выпуск гостевых идентичностей
type IdentityHandler struct {
	identityService *service.IdentityService
}

// NewIdentityHandler создает новый обработчик идентичности
func NewIdentityHandler(identityService *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identityService: identityService}
}

// IssueGuestRequest представляет запрос на гостевую идентичность
type IssueGuestRequest struct {
	Nickname string `json:"nickname" binding:"required,min=1,max=30"`
	Role     string `json:"role" binding:"omitempty,oneof=host participant"`
}

// IssueGuest выдает гостевой токен по нику, без регистрации
func (h *IdentityHandler) IssueGuest(c *gin.Context) {
	var req IssueGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := h.identityService.IssueGuest(req.Nickname, req.Role)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue identity"})
		return
	}

	c.JSON(http.StatusCreated, identity)
}
