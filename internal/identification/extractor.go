package identification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"musicscan/internal/logging"
	"musicscan/internal/scan"
	"musicscan/internal/services"
)

// VisionModel is a chat model that can read images.
type VisionModel interface {
	CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt string, imageURLs []string) (string, error)
}

type namedModel interface {
	Model() string
}

// Extractor reads printed identifiers from photos.
type Extractor struct {
	model  VisionModel
	logger *slog.Logger
}

// NewExtractor constructs an extractor around model.
func NewExtractor(model VisionModel, logger *slog.Logger) *Extractor {
	return &Extractor{model: model, logger: logging.NewComponentLogger(logger, "extractor")}
}

// Extract sends the images to the model and parses the reply. Any failure is
// an ErrExtraction; callers must not continue with guessed values.
func (e *Extractor) Extract(ctx context.Context, images []scan.Image, audit *scan.AuditLog) (ParsedExtraction, error) {
	logger := logging.WithContext(ctx, e.logger)
	if e.model == nil {
		return ParsedExtraction{}, services.Wrap(services.ErrConfiguration, "extraction", "vision model", "not configured", nil)
	}
	if len(images) == 0 {
		return ParsedExtraction{}, services.Wrap(services.ErrValidation, "extraction", "images", "no images supplied", nil)
	}

	urls := make([]string, len(images))
	for i, image := range images {
		urls[i] = image.URL
	}

	started := time.Now()
	reply, err := e.model.CompleteVisionJSON(ctx, ExtractionSystemPrompt, buildExtractionPrompt(images), urls)
	latency := time.Since(started)
	if err != nil {
		logging.ErrorWithContext(logger, "vision extraction failed", "extraction_failed",
			logging.Error(err),
			logging.Duration("latency", latency),
			logging.String(logging.FieldErrorHint, "check llm.api_key, llm.model and that the image URLs are reachable"))
		return ParsedExtraction{}, services.Wrap(services.ErrExtraction, "extraction", "vision call", "model request failed", err)
	}

	parsed, err := ParseExtraction(reply)
	if err != nil {
		var parseErr *ParseError
		hint := "the model reply did not match the extraction schema"
		if errors.As(err, &parseErr) && parseErr.Key != "" {
			hint = fmt.Sprintf("unexpected value for %q", parseErr.Key)
		}
		logging.ErrorWithContext(logger, "vision reply unparsable", "extraction_parse_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint))
		return ParsedExtraction{}, services.Wrap(services.ErrExtraction, "extraction", "parse reply", "", err)
	}

	model := "unknown"
	if named, ok := e.model.(namedModel); ok {
		model = named.Model()
	}
	audit.Append("extraction", fmt.Sprintf("model=%s images=%d fields_read=%d latency=%s",
		model, len(images), len(parsed.Fields), latency.Round(time.Millisecond)))
	logger.Info("vision extraction complete",
		logging.String("model", model),
		logging.Int("image_count", len(images)),
		logging.Int("fields_read", len(parsed.Fields)),
		logging.Bool("artist_known", parsed.Artist != ""),
		logging.Bool("title_known", parsed.Title != ""),
		logging.Duration("latency", latency))
	return parsed, nil
}
