package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps blobs as raw Cloudinary assets whose public ID is the blob name.
type CloudinaryStore struct {
	cld        *cloudinary.Cloudinary
	httpClient *http.Client
	urlFor     func(name string) (string, error)
}

// NewCloudinaryStore creates a CloudinaryStore from account credentials.
func NewCloudinaryStore(cloudName, apiKey, apiSecret string) (*CloudinaryStore, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials not set in configuration")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	s := &CloudinaryStore{
		cld:        cld,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	s.urlFor = s.deliveryURL
	return s, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if err := validateName(name); err != nil {
		return err
	}
	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:       name,
		ResourceType:   "raw",
		Overwrite:      api.Bool(true),
		UniqueFilename: api.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", name, err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to upload blob %s: %s", name, result.Error.Message)
	}
	if result.PublicID == "" {
		return fmt.Errorf("no public ID returned for blob %s", name)
	}
	return nil
}

func (s *CloudinaryStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	url, err := s.urlFor(name)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrBlobNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to download blob %s: status %d", name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *CloudinaryStore) deliveryURL(name string) (string, error) {
	a, err := s.cld.File(name)
	if err != nil {
		return "", fmt.Errorf("failed to get asset: %w", err)
	}
	a.Config.URL.Secure = true
	url, err := a.String()
	if err != nil {
		return "", fmt.Errorf("failed to get URL string: %w", err)
	}
	return url, nil
}
