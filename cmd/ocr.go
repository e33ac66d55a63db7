package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"pikabook/internal/logger"
	"pikabook/internal/ocr"
	"pikabook/internal/textproc"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image-file]",
	Short: "Extract text from a single image without creating a note",
	Long: `Run OCR on one image and print the extracted text. Useful for checking
image quality and OCR settings before importing.

By default the text is cleaned and segmented the same way the import
pipeline does it; use --raw for the unprocessed OCR output.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID`,
	Example: `  # Extract and segment text from a photo
  pikabook ocr page.jpg

  # Raw OCR output as JSON with confidence
  pikabook ocr page.jpg --raw --json

  # Save to file
  pikabook ocr page.jpg -o extracted.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// ocrOutput is the JSON shape printed with --json.
type ocrOutput struct {
	Text       string   `json:"text"`
	Segments   []string `json:"segments,omitempty"`
	Confidence float32  `json:"confidence,omitempty"`
	FileName   string   `json:"file_name"`
	FileSize   int64    `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("raw", false, "Skip cleaning and segmentation")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	raw, _ := cmd.Flags().GetBool("raw")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	fileInfo, err := validateImageFile(imagePath, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeoutSecs, log)
	defer cancel()

	service, err := ocr.New(ctx, os.Getenv("OCR_PROVIDER"))
	if err != nil {
		return handleOCRError(err, log)
	}
	defer func() {
		if closeErr := service.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR service")
		}
	}()

	imageFile, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer imageFile.Close()

	log.Info().
		Str("file", imagePath).
		Int64("size", fileInfo.Size()).
		Msg("Processing image")

	start := time.Now()
	result, err := service.ProcessImageWithMetadata(ctx, imageFile)
	if err != nil {
		return handleOCRError(err, log)
	}

	text := result.Text
	var segments []string
	if !raw {
		text = textproc.Clean(text, textproc.DefaultCleanOptions())
		segments = textproc.Segment(text)
	}

	log.Info().
		Float32("confidence", result.Confidence).
		Dur("duration", time.Since(start)).
		Int("text_length", len(text)).
		Msg("OCR completed")

	var out string
	if jsonOutput {
		payload, err := json.MarshalIndent(ocrOutput{
			Text:       text,
			Segments:   segments,
			Confidence: result.Confidence,
			FileName:   fileInfo.Name(),
			FileSize:   fileInfo.Size(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		out = string(payload)
	} else if len(segments) > 0 {
		out = strings.Join(segments, "\n")
	} else {
		out = text
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(out+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Output written to %s\n", outputPath)
		return nil
	}
	fmt.Println(out)
	return nil
}

// validateImageFile checks that the path is a readable, non-empty regular
// file within the OCR size limit.
func validateImageFile(imagePath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", imagePath).
				Msg("Image file not found")
			return nil, fmt.Errorf("image file not found: %s", imagePath)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing image: %s", imagePath)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", imagePath)
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("image file is empty: %s", imagePath)
	}
	if fileInfo.Size() > ocr.MaxImageSizeBytes {
		log.Error().
			Str("file", imagePath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", ocr.MaxImageSizeBytes).
			Msg("Image exceeds maximum size limit")
		return nil, fmt.Errorf("image too large (%d bytes), maximum is %d bytes",
			fileInfo.Size(), ocr.MaxImageSizeBytes)
	}
	return fileInfo, nil
}

// handleOCRError maps service errors to actionable messages.
func handleOCRError(err error, log zerolog.Logger) error {
	switch {
	case errors.Is(err, ocr.ErrMissingCredentials):
		log.Error().Err(err).Msg("Google Cloud credentials not configured")
		return fmt.Errorf("Google Cloud credentials not configured. Set GOOGLE_APPLICATION_CREDENTIALS " +
			"to a service account JSON file, or GOOGLE_CREDENTIALS to inline JSON, " +
			"or run \"gcloud auth application-default login\"")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported image format (JPEG, PNG and WebP are accepted): %w", err)
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image exceeds the 20MB processing limit: %w", err)
	case errors.Is(err, ocr.ErrEmptyPage):
		return fmt.Errorf("no text detected in the image: %w", err)
	default:
		log.Error().Err(err).Msg("OCR processing failed")
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
