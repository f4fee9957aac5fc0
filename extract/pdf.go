// Package extract holds the thin document-to-markdown adapters that sit in
// front of the ingestion pipeline. Heavy format parsing is delegated to an
// external docling conversion service; this package only preprocesses PDFs
// and formats mail messages.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// CropHeaderFooter обрезает верхние и нижние колонтитулы PDF файла.
// top and bottom are in points (1 pt = 1/72 inch).
func CropHeaderFooter(inputPath, outputPath string, top, bottom float64) error {
	conf := api.LoadConfiguration()

	pages := []string{"1-"}

	cropStr := fmt.Sprintf("%.2f 0 %.2f 0", top, bottom)

	box, err := model.ParseBox(cropStr, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse crop box: %w", err)
	}

	if err := api.CropFile(inputPath, outputPath, pages, box, conf); err != nil {
		return fmt.Errorf("failed to crop PDF: %w", err)
	}

	return nil
}

// ValidatePDF rejects broken files before they are sent to the converter.
func ValidatePDF(path string) error {
	if err := api.ValidateFile(path, api.LoadConfiguration()); err != nil {
		return fmt.Errorf("invalid PDF %s: %w", path, err)
	}
	return nil
}

type doclingResponse struct {
	Document struct {
		MdContent string `json:"md_content"`
	} `json:"document"`
}

// ConvertToMarkdown sends a document to the docling conversion service and
// returns the markdown it produced. Works for PDF, DOCX and XLSX inputs.
func ConvertToMarkdown(convertURL, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", filePath)
	if err != nil {
		return "", err
	}

	if _, err = io.Copy(part, file); err != nil {
		return "", err
	}

	writer.Close()

	req, err := http.NewRequest("POST", convertURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("convert service error: status %d, body: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var d doclingResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return "", err
	}

	return d.Document.MdContent, nil
}
