package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/memorybox/config"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/models"
)

// RawMessage is the shape the OCR provider returns. Any of the fields may be
// missing; NormalizeMessages fills the gaps.
type RawMessage struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ExtractionResult is the OCR provider's verdict for one image. When Success
// is false the whole file is unprocessed; no partial messages are salvaged.
type ExtractionResult struct {
	Success  bool         `json:"success"`
	Messages []RawMessage `json:"messages"`
	Error    string       `json:"error,omitempty"`
}

// OCRService interface
type OCRService interface {
	Extract(ctx context.Context, filename string, image io.Reader) (*ExtractionResult, error)
}

// ocrService struct
type ocrService struct {
	Config *config.Config
	client *http.Client
}

// NewOCRService creates a new instance of OCRService talking to the configured
// OCR endpoint.
func NewOCRService(conf *config.Config) OCRService {
	return &ocrService{
		Config: conf,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *ocrService) Extract(ctx context.Context, filename string, image io.Reader) (*ExtractionResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, errors.Wrap(err, "building OCR request")
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, errors.Wrap(err, "building OCR request")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "building OCR request")
	}

	url := strings.TrimSuffix(s.Config.OCRServiceURL, "/") + "/api/ocr"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, errors.Wrap(err, "building OCR request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.New(fmt.Sprintf("OCR service unreachable: %v", err), http.StatusBadGateway)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.New(fmt.Sprintf("OCR service returned status %d", resp.StatusCode), http.StatusBadGateway)
	}

	var result ExtractionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errs.New("OCR service returned an unreadable response", http.StatusBadGateway)
	}
	return &result, nil
}

// NormalizeMessages maps raw OCR output onto fully-populated messages. The
// defaults are best-effort, not a correctness guarantee: a missing sender
// becomes "Unknown", missing content the empty string, and a missing timestamp
// the processing time (not the message time). Message ids embed the index of
// the source file so ids stay unique across a multi-file upload.
func NormalizeMessages(fileIndex int, raw []RawMessage, selfSenders []string, processedAt time.Time) []models.Message {
	messages := make([]models.Message, 0, len(raw))
	for i, rm := range raw {
		sender := strings.TrimSpace(rm.Sender)
		if sender == "" {
			sender = "Unknown"
		}
		timestamp := strings.TrimSpace(rm.Timestamp)
		if timestamp == "" {
			timestamp = processedAt.Format(time.RFC3339)
		}
		messages = append(messages, models.Message{
			ID:        fmt.Sprintf("msg_%d_%d", fileIndex, i),
			Sender:    sender,
			Content:   rm.Content,
			Timestamp: timestamp,
			IsUser:    models.IsSelfSender(sender, selfSenders),
		})
	}
	return messages
}
