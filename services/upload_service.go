package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/leebenson/conform"
	"github.com/techagentng/memorybox/config"
	"github.com/techagentng/memorybox/db"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/models"
)

// acceptedImageTypes are the only MIME types the upload flow stages. Anything
// else is dropped silently at selection time.
var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadFields are the user-entered form fields of one upload attempt. Tags is
// the raw comma-separated input.
type UploadFields struct {
	Title    string `conform:"trim"`
	Category string `conform:"trim"`
	Tags     string `conform:"trim"`
}

// StagedFile is one accepted screenshot waiting for submission.
type StagedFile struct {
	Name string
	MIME string
	Data []byte

	previewPath string
	released    bool
}

// PreviewPath returns the on-disk thumbnail for this file, or "" when no
// preview could be generated.
func (f *StagedFile) PreviewPath() string {
	return f.previewPath
}

// UploadService interface
type UploadService interface {
	NewAttempt() *UploadAttempt
}

// uploadService struct
type uploadService struct {
	Config *config.Config
	repo   db.ConversationRepository
	remote RemoteDataClient
	ocr    OCRService
}

// NewUploadService creates a new instance of UploadService. Exactly one of
// repo (local mode) and remote (remote mode) is used for persistence.
func NewUploadService(repo db.ConversationRepository, remote RemoteDataClient, ocr OCRService, conf *config.Config) UploadService {
	return &uploadService{
		Config: conf,
		repo:   repo,
		remote: remote,
		ocr:    ocr,
	}
}

func (s *uploadService) NewAttempt() *UploadAttempt {
	return &UploadAttempt{svc: s}
}

// UploadAttempt accumulates the files of one submission. It owns the preview
// thumbnails it creates: each one is released exactly once, on file removal,
// on successful submit, or on Close.
type UploadAttempt struct {
	svc       *uploadService
	files     []*StagedFile
	submitted bool
}

// AddFile stages a selected file. Files whose MIME type is not an accepted
// image type are dropped silently; the return value reports acceptance.
func (a *UploadAttempt) AddFile(name, mimeType string, r io.Reader) (bool, error) {
	mimeType = strings.TrimSpace(strings.ToLower(strings.Split(mimeType, ";")[0]))
	if !acceptedImageTypes[mimeType] {
		return false, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return false, errs.New(fmt.Sprintf("failed to read file %s", name), http.StatusBadRequest)
	}

	staged := &StagedFile{Name: name, MIME: mimeType, Data: data}
	staged.previewPath = a.svc.writePreview(name, data)
	a.files = append(a.files, staged)
	return true, nil
}

// writePreview renders a thumbnail for the staged screenshot. Preview
// generation is best-effort; a file that claims an image type but fails to
// decode is still staged (the OCR service is the authority on rejecting it).
func (s *uploadService) writePreview(name string, data []byte) string {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("no preview for %s: %v", name, err)
		return ""
	}
	thumb := imaging.Thumbnail(img, 160, 160, imaging.Lanczos)

	if err := os.MkdirAll(s.Config.PreviewDir, os.ModePerm); err != nil {
		log.Printf("no preview for %s: %v", name, err)
		return ""
	}
	path := filepath.Join(s.Config.PreviewDir, uuid.New().String()+".jpg")
	if err := imaging.Save(thumb, path); err != nil {
		log.Printf("no preview for %s: %v", name, err)
		return ""
	}
	return path
}

// Files returns the staged files in selection order.
func (a *UploadAttempt) Files() []*StagedFile {
	return a.files
}

// RemoveFile drops a staged file and releases its preview.
func (a *UploadAttempt) RemoveFile(index int) {
	if index < 0 || index >= len(a.files) {
		return
	}
	release(a.files[index])
	a.files = append(a.files[:index], a.files[index+1:]...)
}

// Close releases whatever previews are still held. Safe to call after a
// successful Submit; releases never happen twice.
func (a *UploadAttempt) Close() {
	for _, f := range a.files {
		release(f)
	}
}

func release(f *StagedFile) {
	if f.released {
		return
	}
	f.released = true
	if f.previewPath != "" {
		if err := os.Remove(f.previewPath); err != nil {
			log.Printf("removing preview %s: %v", f.previewPath, err)
		}
	}
}

// Submit validates the form, runs OCR over the staged files strictly in
// selection order, and persists the assembled conversation exactly once. The
// first file whose extraction fails aborts the whole attempt: messages
// already extracted from earlier files are discarded and the error names the
// failing file. File N+1 is never started before file N's result is known.
func (a *UploadAttempt) Submit(ctx context.Context, fields UploadFields) (*models.Conversation, error) {
	if a.submitted {
		return nil, errs.New("this upload was already submitted", http.StatusConflict)
	}
	if err := conform.Strings(&fields); err != nil {
		return nil, errs.ErrBadRequest
	}

	if len(a.files) == 0 {
		return nil, errs.New("please upload at least one image", http.StatusBadRequest)
	}
	if fields.Title == "" {
		return nil, errs.New("please provide a title", http.StatusBadRequest)
	}
	if !a.svc.validCategory(fields.Category) {
		return nil, errs.New("please select a category", http.StatusBadRequest)
	}

	allMessages := []models.Message{}
	for i, f := range a.files {
		result, err := a.svc.ocr.Extract(ctx, f.Name, bytes.NewReader(f.Data))
		if err != nil {
			return nil, errs.New(fmt.Sprintf("failed to process image %s: %v", f.Name, err), errs.Status(err))
		}
		if !result.Success {
			reason := result.Error
			if reason == "" {
				reason = "OCR processing failed"
			}
			return nil, errs.New(fmt.Sprintf("failed to process image %s: %s", f.Name, reason), http.StatusUnprocessableEntity)
		}
		allMessages = append(allMessages, NormalizeMessages(i, result.Messages, a.svc.Config.SelfSenders, time.Now())...)
	}

	conv, err := a.svc.persist(ctx, fields, allMessages, a.files)
	if err != nil {
		return nil, err
	}

	a.submitted = true
	for _, f := range a.files {
		release(f)
	}
	return conv, nil
}

func (s *uploadService) persist(ctx context.Context, fields UploadFields, messages []models.Message, files []*StagedFile) (*models.Conversation, error) {
	if s.remote != nil {
		return s.remote.UploadConversation(ctx, fields, files)
	}
	return s.repo.Create(ctx, models.ConversationDraft{
		Title:    fields.Title,
		Category: fields.Category,
		Tags:     ParseTags(fields.Tags),
		Messages: messages,
	})
}

func (s *uploadService) validCategory(category string) bool {
	for _, c := range s.Config.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// ParseTags splits the comma-separated tag input: entries are trimmed, empty
// ones dropped, order preserved, duplicates kept.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
