package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// productRequest mirrors the cardgrab API request model.
type productRequest struct {
	URL  string `json:"url"`
	Site string `json:"site,omitempty"`
}

// productResponse mirrors the cardgrab API response model.
type productResponse struct {
	Success bool `json:"success"`
	Product *struct {
		Title       string   `json:"title"`
		Description *string  `json:"description"`
		Rating      *string  `json:"rating"`
		Reviews     *int     `json:"reviews"`
		Price       *int     `json:"price"`
		Images      []string `json:"images"`
		Source      string   `json:"source"`
	} `json:"product"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("CARDGRAB_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("CARDGRAB_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "CARDGRAB_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"cardgrab",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_product",
		mcp.WithDescription("Extract a product card (title, price, rating, reviews, description, images) from an Ozon or Wildberries product page. Opens a real browser, so a call can take up to a minute."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Product page URL on ozon.ru or wildberries.ru"),
		),
		mcp.WithString("site",
			mcp.Description("Force the marketplace instead of detecting it from the URL"),
			mcp.Enum("ozon", "wb"),
		),
	)
	s.AddTool(extractTool, handleExtractProduct(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleExtractProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := json.Marshal(productRequest{URL: url, Site: request.GetString("site", "")})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/product", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var pr productResponse
		if err := json.Unmarshal(respBody, &pr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !pr.Success || pr.Product == nil {
			errMsg := "extraction failed"
			if pr.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", pr.Error.Code, pr.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatProduct(pr)), nil
	}
}

func formatProduct(pr productResponse) string {
	p := pr.Product
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title: %s\nSource: %s\n", p.Title, p.Source))
	if p.Price != nil {
		sb.WriteString(fmt.Sprintf("Price: %d ₽\n", *p.Price))
	}
	if p.Rating != nil {
		sb.WriteString("Rating: " + *p.Rating)
		if p.Reviews != nil {
			sb.WriteString(fmt.Sprintf(" (%d reviews)", *p.Reviews))
		}
		sb.WriteString("\n")
	}
	if p.Description != nil {
		sb.WriteString("\n" + *p.Description + "\n")
	}
	if len(p.Images) > 0 {
		sb.WriteString(fmt.Sprintf("\nImages (%d):\n", len(p.Images)))
		for _, img := range p.Images {
			sb.WriteString(img + "\n")
		}
	}
	return sb.String()
}
