package billing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"print-order-system/models"
)

// Rendered is the renderer's output: a stored document location plus
// an integrity checksum. Placeholder marks documents synthesized
// locally after the renderer missed its deadline.
type Rendered struct {
	DocumentRef string `json:"document_ref"`
	Checksum    string `json:"checksum,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

type renderResponse struct {
	Location string `json:"location"`
	Document []byte `json:"document"`
}

// Renderer calls the external document renderer. It may reject
// malformed input; that error propagates. Slowness is handled by the
// caller's bounded wait, not here.
type Renderer struct {
	httpClient *http.Client
	baseURL    string
}

// NewRenderer builds a renderer client.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

// Render submits the structured invoice data and returns the rendered
// document's location and checksum.
func (r *Renderer) Render(ctx context.Context, doc models.InvoiceDocument) (Rendered, error) {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return Rendered{}, fmt.Errorf("failed to marshal invoice document: %w", err)
	}

	url := fmt.Sprintf("%s/render", r.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return Rendered{}, fmt.Errorf("failed to create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Rendered{}, fmt.Errorf("failed to call document renderer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Rendered{}, fmt.Errorf("document renderer returned status %d: %s", resp.StatusCode, string(body))
	}

	var rendered renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&rendered); err != nil {
		return Rendered{}, fmt.Errorf("failed to decode render response: %w", err)
	}
	if rendered.Location == "" {
		return Rendered{}, fmt.Errorf("document renderer returned an empty location")
	}

	return Rendered{
		DocumentRef: rendered.Location,
		Checksum:    checksum(rendered.Document),
	}, nil
}

// Placeholder synthesizes the minimal stand-in document used when the
// renderer misses its deadline, so that every settled order still gets
// exactly one invoice id.
func Placeholder(doc models.InvoiceDocument) Rendered {
	body := []byte(fmt.Sprintf(
		"INVOICE %s\norder %s (%s)\ntotal %d %s (taxable %d, CGST %d, SGST %d)\n",
		doc.InvoiceID, doc.OrderID, doc.TrackingCode,
		doc.TotalMinor, doc.Currency, doc.TaxableMinor, doc.CGSTMinor, doc.SGSTMinor,
	))
	return Rendered{
		DocumentRef: fmt.Sprintf("placeholder/%s.txt", doc.InvoiceID),
		Checksum:    checksum(body),
		Placeholder: true,
	}
}

func checksum(document []byte) string {
	if len(document) == 0 {
		return ""
	}
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}
