package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// AnalyzeUpload submits a PDF as multipart form data: the file under "file"
// and the options as a JSON string under "analysis_data".
func (c *Client) AnalyzeUpload(ctx context.Context, fileName string, file io.Reader, opts AnalysisOptions) (Analysis, error) {
	sidecar, err := json.Marshal(opts)
	if err != nil {
		return Analysis{}, fmt.Errorf("encode analysis data: %w", err)
	}
	body, contentType := multipartBody("file", fileName, file, [][2]string{{"analysis_data", string(sidecar)}})

	resp, err := c.do(ctx, requestSpec{
		method:      http.MethodPost,
		path:        "/documents/analyze",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return Analysis{}, err
	}
	defer resp.Body.Close()

	var out Analysis
	if err := decodeJSON(resp.Body, &out); err != nil {
		return Analysis{}, err
	}
	return out, nil
}

// AnalyzeText submits raw text. An empty DocumentName defaults to "Text Input".
func (c *Client) AnalyzeText(ctx context.Context, in TextAnalysis) (Analysis, error) {
	if in.DocumentName == "" {
		in.DocumentName = TextDocumentName
	}
	var out Analysis
	err := c.doJSON(ctx, http.MethodPost, "/documents/analyze-text", nil, in, &out)
	return out, err
}

// ListAnalyses returns the user's analyses, newest first.
func (c *Client) ListAnalyses(ctx context.Context) ([]Analysis, error) {
	var out []Analysis
	if err := c.doJSON(ctx, http.MethodGet, "/documents/analyses", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadAnalysis fetches the plain-text report for one analysis.
func (c *Client) DownloadAnalysis(ctx context.Context, id string) (Download, error) {
	resp, err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   "/documents/analyses/" + url.PathEscape(id) + "/download",
	})
	if err != nil {
		return Download{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Download{}, fmt.Errorf("read download: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	return Download{FileName: DownloadFileName(id), ContentType: contentType, Body: body}, nil
}
