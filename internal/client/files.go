package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/jonboulle/clockwork"
)

var (
	ErrFileProcessingTimeout = errors.New("file processing timeout")
	ErrFileProcessingFailed  = errors.New("file processing failed")
)

// ListFiles returns the uploaded files of the current user
func (c *Client) ListFiles(ctx context.Context) ([]domain.UploadedFile, error) {
	var resp struct {
		Files []domain.UploadedFile `json:"files"`
	}
	if err := c.get(ctx, "/files", &resp); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return resp.Files, nil
}

// FileStatus returns the ingestion progress of a file
func (c *Client) FileStatus(ctx context.Context, id int64) (*domain.FileStatusReport, error) {
	var report domain.FileStatusReport
	if err := c.get(ctx, "/files/"+strconv.FormatInt(id, 10)+"/status", &report); err != nil {
		return nil, fmt.Errorf("failed to get file status: %w", err)
	}
	return &report, nil
}

// FilePreview returns the detected columns and sample rows of a file
func (c *Client) FilePreview(ctx context.Context, id int64) (*domain.FileMetadata, error) {
	var meta domain.FileMetadata
	if err := c.get(ctx, "/files/"+strconv.FormatInt(id, 10)+"/preview", &meta); err != nil {
		return nil, fmt.Errorf("failed to get file preview: %w", err)
	}
	return &meta, nil
}

// DeleteFile deletes an uploaded file
func (c *Client) DeleteFile(ctx context.Context, id int64) error {
	if err := c.delete(ctx, "/files/"+strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// UploadFile uploads a data file as multipart form data. name is optional.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader, name string) (*domain.UploadedFile, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if name != "" {
		if err := form.WriteField("name", name); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var file domain.UploadedFile
	if err := c.send(req, &file); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	return &file, nil
}

// PollFileStatus polls a file until ingestion completes or fails, reporting
// progress on every poll. It gives up after the configured poll timeout.
func (c *Client) PollFileStatus(ctx context.Context, id int64, onProgress func(progress float64)) (*domain.UploadedFile, error) {
	ctx, cancel := clockwork.WithTimeout(ctx, c.clock, c.pollTimeout)
	defer cancel()

	ticker := c.clock.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrFileProcessingTimeout
			}
			return nil, ctx.Err()
		case <-ticker.Chan():
		}

		status, err := c.FileStatus(ctx, id)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrFileProcessingTimeout
			}
			return nil, err
		}
		if onProgress != nil {
			onProgress(status.Progress)
		}

		switch status.Status {
		case domain.FileCompleted:
			files, err := c.ListFiles(ctx)
			if err != nil {
				return nil, err
			}
			for i := range files {
				if files[i].ID == id {
					return &files[i], nil
				}
			}
			return nil, fmt.Errorf("file %d not found after processing", id)
		case domain.FileFailed:
			msg := status.ErrorMessage
			if msg == "" {
				msg = "File processing failed"
			}
			return nil, fmt.Errorf("%w: %s", ErrFileProcessingFailed, msg)
		}
	}
}
