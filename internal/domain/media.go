package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MediaKind discriminates the Media variant.
type MediaKind string

const (
	MediaKindNone  MediaKind = ""
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MaxImagesPerListing bounds the image gallery of one listing.
const MaxImagesPerListing = 10

// Media is either a gallery of image references or a single video reference.
// The zero value means the listing has no media.
type Media struct {
	kind   MediaKind
	images []string
	video  string
}

// ImageMedia builds the image variant.
func ImageMedia(refs ...string) Media {
	return Media{kind: MediaKindImage, images: append([]string(nil), refs...)}
}

// VideoMedia builds the video variant.
func VideoMedia(ref string) Media {
	return Media{kind: MediaKindVideo, video: ref}
}

// Kind returns the variant tag.
func (m Media) Kind() MediaKind { return m.kind }

// Images returns the image references, or nil for the other variants.
func (m Media) Images() []string {
	if m.kind != MediaKindImage {
		return nil
	}
	return append([]string(nil), m.images...)
}

// Video returns the video reference and whether the media is a video.
func (m Media) Video() (string, bool) {
	return m.video, m.kind == MediaKindVideo
}

// IsZero reports whether no media is attached.
func (m Media) IsZero() bool { return m.kind == MediaKindNone }

// Validate checks the variant carries well formed references.
func (m Media) Validate() error {
	switch m.kind {
	case MediaKindNone:
		return nil
	case MediaKindImage:
		if len(m.images) == 0 {
			return fmt.Errorf("%w: image media needs at least one reference", ErrInvalidInput)
		}
		if len(m.images) > MaxImagesPerListing {
			return fmt.Errorf("%w: at most %d images per listing", ErrInvalidInput, MaxImagesPerListing)
		}
		for _, ref := range m.images {
			if strings.TrimSpace(ref) == "" {
				return fmt.Errorf("%w: empty image reference", ErrInvalidInput)
			}
		}
		return nil
	case MediaKindVideo:
		if strings.TrimSpace(m.video) == "" {
			return fmt.Errorf("%w: empty video reference", ErrInvalidInput)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown media kind %q", ErrInvalidInput, m.kind)
	}
}

type mediaJSON struct {
	Kind   MediaKind `json:"kind"`
	Images []string  `json:"images,omitempty"`
	Video  string    `json:"video,omitempty"`
}

// MarshalJSON encodes the variant as {"kind": ..., "images"|"video": ...}.
func (m Media) MarshalJSON() ([]byte, error) {
	if m.kind == MediaKindNone {
		return []byte("null"), nil
	}
	return json.Marshal(mediaJSON{Kind: m.kind, Images: m.images, Video: m.video})
}

// UnmarshalJSON decodes the tagged form produced by MarshalJSON.
func (m *Media) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Media{}
		return nil
	}
	var raw mediaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case MediaKindImage:
		*m = ImageMedia(raw.Images...)
	case MediaKindVideo:
		*m = VideoMedia(raw.Video)
	case MediaKindNone:
		*m = Media{}
	default:
		return fmt.Errorf("%w: unknown media kind %q", ErrInvalidInput, raw.Kind)
	}
	return nil
}
