package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyForge/internal/apierror"
	"storyForge/internal/chat"
	"storyForge/internal/entity"
	"storyForge/internal/validation"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"breakers": s.breakers.States(),
	})
}

func (s *Server) handleChat(c *gin.Context) {
	req, ok := s.bindChat(c)
	if !ok {
		return
	}
	reply, err := s.chat.Handle(c.Request.Context(), clientKey(c), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handlePreview(c *gin.Context) {
	req, ok := s.bindChat(c)
	if !ok {
		return
	}
	prep, err := s.chat.Preview(c.Request.Context(), clientKey(c), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prep)
}

func (s *Server) bindChat(c *gin.Context) (*validation.ChatRequest, bool) {
	var req validation.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg := fmt.Sprintf("Request size exceeds limit of %d bytes", tooLarge.Limit)
			c.JSON(http.StatusRequestEntityTooLarge, apierror.ValidationResponse([]string{msg}))
			return nil, false
		}
		c.JSON(http.StatusBadRequest, apierror.ValidationResponse([]string{"Request body must be valid JSON"}))
		return nil, false
	}
	return &req, true
}

// fail переводит ошибку конвейера в HTTP ответ.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		invalid *chat.ValidationError
		limited *chat.RateLimitError
		upErr   *apierror.Error
	)
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, apierror.ValidationResponse(invalid.Errors))
	case errors.As(err, &limited):
		resp := apierror.RateLimitResponse(limited.RetryAfter)
		s.metrics.RecordRateLimitDenial(c.FullPath())
		c.Header("Retry-After", strconv.Itoa(resp.RetryAfter))
		c.JSON(http.StatusTooManyRequests, resp)
	case errors.As(err, &upErr):
		resp := upErr.Response()
		if resp.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(resp.RetryAfter))
		}
		c.JSON(upErr.Status(), resp)
	default:
		s.log.Error("Ошибка обработки запроса", zap.Error(err), zap.String("request_id", c.GetString(ctxRequestID)))
		c.JSON(http.StatusInternalServerError, apierror.Response{Error: "Internal server error", Code: apierror.KindUnknown.Code()})
	}
}

func (s *Server) entityID(c *gin.Context) (entity.ID, bool) {
	id, err := entity.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.ValidationResponse([]string{err.Error()}))
		return entity.ID{}, false
	}
	return id, true
}

func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, entity.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.log.Error("Ошибка хранилища", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
}

func (s *Server) getEntity(c *gin.Context) {
	id, ok := s.entityID(c)
	if !ok {
		return
	}
	e, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": id.Kind.String(), "entity": e})
}

func (s *Server) deleteEntity(c *gin.Context) {
	id, ok := s.entityID(c)
	if !ok {
		return
	}
	if err := s.store.SoftDelete(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) restoreEntity(c *gin.Context) {
	id, ok := s.entityID(c)
	if !ok {
		return
	}
	if err := s.store.Restore(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listQueue(c *gin.Context) {
	items, err := s.store.ListQueue(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) listTrash(c *gin.Context) {
	items, err := s.store.Trash(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
