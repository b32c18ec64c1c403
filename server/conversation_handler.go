package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/server/response"
)

func (s *Server) handleListConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, err := s.ConversationService.ListConversations(
			c.Request.Context(),
			c.Query("search"),
			c.Query("category"),
			c.Query("sort"),
		)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversations retrieved successfully", http.StatusOK, listing, nil)
	}
}

func (s *Server) handleGetConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := s.ConversationService.GetConversation(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversation retrieved successfully", http.StatusOK, detail, nil)
	}
}

type editConversationRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

func (s *Server) handleUpdateConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req editConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		conv, err := s.ConversationService.EditConversation(c.Request.Context(), c.Param("id"), req.Title, req.Category)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversation updated successfully", http.StatusOK, conv, nil)
	}
}

// handleDeleteConversation requires the caller to acknowledge the deletion;
// there is no undo once the record is gone.
func (s *Server) handleDeleteConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("confirm") != "true" {
			response.JSON(c, "", http.StatusBadRequest, nil,
				errs.New("deleting a conversation cannot be undone; pass confirm=true to proceed", http.StatusBadRequest))
			return
		}

		deleted, err := s.ConversationService.DeleteConversation(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversation deleted", http.StatusOK, gin.H{"deleted": deleted}, nil)
	}
}

func (s *Server) handleGetCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.JSON(c, "categories retrieved successfully", http.StatusOK, gin.H{"categories": s.Config.Categories}, nil)
	}
}
