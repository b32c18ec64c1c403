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
	"github.com/techagentng/memorybox/db"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/models"
)

// RemoteDataClient is the remote-mode counterpart of the local repository: the
// same store surface, plus the multipart create the conversation service
// exposes. Every call is a fresh request; nothing is cached client-side.
type RemoteDataClient interface {
	db.ConversationStore
	UploadConversation(ctx context.Context, fields UploadFields, files []*StagedFile) (*models.Conversation, error)
}

// remoteClient struct
type remoteClient struct {
	Config  *config.Config
	baseURL string
	client  *http.Client
}

// NewRemoteClient creates a new instance of RemoteDataClient against the
// configured conversation service.
func NewRemoteClient(conf *config.Config) RemoteDataClient {
	return &remoteClient{
		Config:  conf,
		baseURL: strings.TrimSuffix(conf.RemoteAPIURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// requestFailed turns any transport or non-2xx outcome into the generic
// surfaced error. No retry is attempted.
func requestFailed(op string, err error) error {
	return errs.New(fmt.Sprintf("%s: request failed: %v", op, err), http.StatusBadGateway)
}

func (r *remoteClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return r.client.Do(req)
}

func (r *remoteClient) List(ctx context.Context) ([]models.Conversation, error) {
	resp, err := r.do(ctx, http.MethodGet, "/api/conversations", nil, "")
	if err != nil {
		return nil, requestFailed("list conversations", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, requestFailed("list conversations", fmt.Errorf("status %d", resp.StatusCode))
	}

	var all []models.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, requestFailed("list conversations", err)
	}
	return all, nil
}

func (r *remoteClient) Get(ctx context.Context, id string) (*models.Conversation, error) {
	resp, err := r.do(ctx, http.MethodGet, "/api/conversations/"+id, nil, "")
	if err != nil {
		return nil, requestFailed("get conversation", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, requestFailed("get conversation", fmt.Errorf("status %d", resp.StatusCode))
	}

	var conv models.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, requestFailed("get conversation", err)
	}
	return &conv, nil
}

func (r *remoteClient) Update(ctx context.Context, id string, patch models.ConversationUpdate) (*models.Conversation, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, errors.Wrap(err, "serializing update")
	}
	resp, err := r.do(ctx, http.MethodPut, "/api/conversations/"+id, bytes.NewReader(raw), "application/json")
	if err != nil {
		return nil, requestFailed("update conversation", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, requestFailed("update conversation", fmt.Errorf("status %d", resp.StatusCode))
	}

	var conv models.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, requestFailed("update conversation", err)
	}
	return &conv, nil
}

// Delete is idempotent from the client's perspective: an already-deleted id
// reports false rather than failing.
func (r *remoteClient) Delete(ctx context.Context, id string) (bool, error) {
	resp, err := r.do(ctx, http.MethodDelete, "/api/conversations/"+id, nil, "")
	if err != nil {
		return false, requestFailed("delete conversation", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, requestFailed("delete conversation", fmt.Errorf("status %d", resp.StatusCode))
	}
	return true, nil
}

func (r *remoteClient) UploadConversation(ctx context.Context, fields UploadFields, files []*StagedFile) (*models.Conversation, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("title", fields.Title)
	_ = writer.WriteField("category", fields.Category)
	_ = writer.WriteField("tags", fields.Tags)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, errors.Wrap(err, "building upload request")
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, errors.Wrap(err, "building upload request")
		}
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "building upload request")
	}

	resp, err := r.do(ctx, http.MethodPost, "/api/upload", &body, writer.FormDataContentType())
	if err != nil {
		return nil, requestFailed("upload conversation", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, requestFailed("upload conversation", fmt.Errorf("status %d", resp.StatusCode))
	}

	// The service answers with the new id under either key.
	var created struct {
		ConversationID string `json:"conversation_id"`
		ID             string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, requestFailed("upload conversation", err)
	}
	id := created.ConversationID
	if id == "" {
		id = created.ID
	}

	conv, err := r.Get(ctx, id)
	if err != nil {
		// Creation succeeded; fall back to the id for navigation.
		return &models.Conversation{ID: id, Title: fields.Title, Category: fields.Category}, nil
	}
	return conv, nil
}
