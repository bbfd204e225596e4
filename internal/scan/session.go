package scan

import (
	"fmt"
	"strings"
	"time"
)

// MediaCD is the only media type handled by the identification pipeline.
const MediaCD = "cd"

// SessionStatus tracks the lifecycle of a scan session.
type SessionStatus string

const (
	SessionProcessing      SessionStatus = "processing"
	SessionDone            SessionStatus = "done"
	SessionNeedsMorePhotos SessionStatus = "needs_more_photos"
)

// ParseSessionStatus validates a status string coming from storage or a query parameter.
func ParseSessionStatus(value string) (SessionStatus, error) {
	switch status := SessionStatus(strings.ToLower(strings.TrimSpace(value))); status {
	case SessionProcessing, SessionDone, SessionNeedsMorePhotos:
		return status, nil
	default:
		return "", fmt.Errorf("unknown session status %q", value)
	}
}

// Session is one user-initiated identification attempt.
type Session struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId,omitempty"`
	MediaType string        `json:"mediaType"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ImageKind is the semantic role of a photo.
type ImageKind string

const (
	ImageFront     ImageKind = "front"
	ImageBackCover ImageKind = "back_cover"
	ImageDiscHub   ImageKind = "disc_hub"
	ImageOther     ImageKind = "other"
)

// KindForPosition maps upload order to the conventional front, back, hub sequence.
func KindForPosition(position int) ImageKind {
	switch position {
	case 0:
		return ImageFront
	case 1:
		return ImageBackCover
	case 2:
		return ImageDiscHub
	default:
		return ImageOther
	}
}

// ParseImageKind accepts the canonical kind names plus a few common spellings.
func ParseImageKind(value string) (ImageKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "front", "front_cover", "cover":
		return ImageFront, nil
	case "back", "back_cover":
		return ImageBackCover, nil
	case "disc", "disc_hub", "hub", "cd":
		return ImageDiscHub, nil
	case "other", "":
		return ImageOther, nil
	default:
		return "", fmt.Errorf("unknown image kind %q", value)
	}
}

// Image is an immutable photo reference attached to a session.
type Image struct {
	SessionID string    `json:"sessionId"`
	Position  int       `json:"position"`
	URL       string    `json:"url"`
	Kind      ImageKind `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}
