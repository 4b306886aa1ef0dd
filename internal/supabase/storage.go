package supabase

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) (*StorageClient, error) {
	baseURL := supabaseURL
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// UploadAudio stores rendered audio under {userId}/{orderId}/variant-{n}.mp3
// (storagePath is the {orderId}/variant-{n}.mp3 suffix kept on the variant
// row) and returns the public playback URL.
func (s *StorageClient) UploadAudio(userID uuid.UUID, storagePath string, data []byte) (string, error) {
	objectPath := fmt.Sprintf("%s/%s", userID.String(), storagePath)

	contentType := "audio/mpeg"
	upsert := true
	_, err := s.client.UploadFile(s.bucket, objectPath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}

	return s.PublicURL(userID, storagePath), nil
}

func (s *StorageClient) PublicURL(userID uuid.UUID, storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s/%s",
		s.baseURL, s.bucket, userID.String(), storagePath)
}

func (s *StorageClient) DownloadAudio(userID uuid.UUID, storagePath string) ([]byte, error) {
	objectPath := fmt.Sprintf("%s/%s", userID.String(), storagePath)
	data, err := s.client.DownloadFile(s.bucket, objectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}
	return data, nil
}
