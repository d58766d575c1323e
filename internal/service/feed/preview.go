package feed

import (
	"context"
	"encoding/base64"
	"mime"
	"net/http"
	"strings"

	"github.com/IlianBuh/Wall/internal/domain/models"
)

// PreviewFunc renders local preview of the selected image
type PreviewFunc func(ctx context.Context, f models.File) (models.Preview, error)

// DataURLPreview renders the image as data URL
func DataURLPreview(ctx context.Context, f models.File) (models.Preview, error) {
	if err := ctx.Err(); err != nil {
		return models.Preview{}, err
	}

	var b strings.Builder
	b.Grow(len("data:;base64,") + len(f.MediaType) + base64.StdEncoding.EncodedLen(len(f.Data)))
	b.WriteString("data:")
	b.WriteString(f.MediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(f.Data))

	if err := ctx.Err(); err != nil {
		return models.Preview{}, err
	}

	return models.Preview{MediaType: f.MediaType, DataURL: b.String()}, nil
}

// mediaType returns declared media type or sniffs it from the content
func mediaType(f models.File) string {
	if f.MediaType != "" {
		return f.MediaType
	}

	return http.DetectContentType(f.Data)
}

func isImage(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}

	return strings.HasPrefix(mt, "image/")
}
