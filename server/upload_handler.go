package server

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/server/response"
	"github.com/techagentng/memorybox/services"
)

func (s *Server) handleUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		fields := services.UploadFields{
			Title:    c.PostForm("title"),
			Category: c.PostForm("category"),
			Tags:     c.PostForm("tags"),
		}

		attempt := s.UploadService.NewAttempt()
		defer attempt.Close()

		var formFiles []*multipart.FileHeader
		if c.Request.MultipartForm != nil {
			formFiles = c.Request.MultipartForm.File["files"]
		}
		for _, fh := range formFiles {
			file, err := fh.Open()
			if err != nil {
				response.JSON(c, "", http.StatusBadRequest, nil,
					errs.New(fmt.Sprintf("failed to read file %s", fh.Filename), http.StatusBadRequest))
				return
			}
			_, err = attempt.AddFile(fh.Filename, fh.Header.Get("Content-Type"), file)
			file.Close()
			if err != nil {
				response.HandleErrors(c, err)
				return
			}
		}

		conv, err := attempt.Submit(c.Request.Context(), fields)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "upload successful", http.StatusCreated, gin.H{
			"conversation_id": conv.ID,
			"conversation":    conv,
		}, nil)
	}
}

// handleOCR extracts a single image, for the upload page's per-file preview.
func (s *Server) handleOCR() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, header, err := c.Request.FormFile("image")
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil,
				errs.New("please attach an image", http.StatusBadRequest))
			return
		}
		defer file.Close()

		result, err := s.OCRService.Extract(c.Request.Context(), header.Filename, file)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		if !result.Success {
			response.JSON(c, "", http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"error":   result.Error,
			}, nil)
			return
		}

		messages := services.NormalizeMessages(0, result.Messages, s.Config.SelfSenders, time.Now())
		response.JSON(c, "image processed", http.StatusOK, gin.H{
			"success":  true,
			"messages": messages,
		}, nil)
	}
}
