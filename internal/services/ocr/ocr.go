package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"invoice-ingestion-backend/internal/errs"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"
)

// TextExtractor produces raw text for a document file. Implementations must
// honor the context deadline; exceeding it is a pipeline failure, never an
// indefinite block.
type TextExtractor interface {
	ExtractText(ctx context.Context, path, language string) (string, error)
}

// Service performs OCR through the Azure computer vision API.
type Service struct {
	client *computervision.BaseClient
}

// NewService creates a new OCR service.
func NewService(endpoint, apiKey string) *Service {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &Service{client: &client}
}

// ExtractText performs OCR on a document and returns the extracted text.
// Image files are enhanced first; the provider call runs under ctx.
func (s *Service) ExtractText(ctx context.Context, path, language string) (string, error) {
	readPath := path
	if isImage(path) {
		enhanced, err := s.enhanceImageForOCR(path)
		if err == nil {
			readPath = enhanced
			defer os.Remove(enhanced)
		}
		// An enhancement failure is not fatal; OCR runs on the original.
	}

	data, err := os.ReadFile(readPath)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	result, err := s.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(data)),
		ocrLanguage(language),
	)
	if err != nil {
		return "", &errs.ExtractionError{Stage: "ocr", Err: err}
	}

	text := flattenOCRResult(result)
	if strings.TrimSpace(text) == "" {
		return "", &errs.ExtractionError{Stage: "ocr", Err: fmt.Errorf("no text recognized")}
	}
	return text, nil
}

// enhanceImageForOCR applies contrast and sharpening so scanned documents
// read better, writing the result next to the temp dir.
func (s *Service) enhanceImageForOCR(imagePath string) (string, error) {
	src, err := imaging.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	out, err := os.CreateTemp("", "ocr-enhanced-*.jpg")
	if err != nil {
		return "", err
	}
	processedPath := out.Name()
	out.Close()

	if err := imaging.Save(img, processedPath); err != nil {
		os.Remove(processedPath)
		return "", fmt.Errorf("failed to save processed image: %w", err)
	}
	return processedPath, nil
}

func flattenOCRResult(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var b strings.Builder
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var words []string
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			b.WriteString(strings.Join(words, " "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// SupportedLanguages maps the settings-level OCR language codes to the
// provider's language identifiers.
var SupportedLanguages = map[string]computervision.OcrLanguages{
	"deu": computervision.OcrLanguagesDe,
	"eng": computervision.OcrLanguagesEn,
	"fra": computervision.OcrLanguagesFr,
	"ita": computervision.OcrLanguagesIt,
	"nld": computervision.OcrLanguagesNl,
	"por": computervision.OcrLanguagesPt,
	"spa": computervision.OcrLanguagesEs,
}

func ocrLanguage(code string) computervision.OcrLanguages {
	if lang, ok := SupportedLanguages[code]; ok {
		return lang
	}
	return computervision.OcrLanguagesDe
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
