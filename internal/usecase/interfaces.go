package usecase

import (
	"context"
	"io"
)

// Notifier is the realtime fan-out surface the ingestion path publishes to
// after a message is durably persisted. Delivery is best effort; clients
// reconcile through the REST API.
type Notifier interface {
	BroadcastToRoom(chatID string, payload []byte, excludeUserID string)
	SendToUser(userID string, payload []byte)
}

// Uploader is the opaque blob store for image attachments.
type Uploader interface {
	UploadImage(ctx context.Context, file io.Reader, mimeType string) (string, error)
}
