// gather-mcp is a stdio MCP server that exposes the gather search API as
// tools for LLM clients. It talks to a running gather instance over HTTP;
// it does not embed the pipeline itself.
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

// searchRequest mirrors the gather API request model.
type searchRequest struct {
	Query      string `json:"query"`
	Region     string `json:"region,omitempty"`
	SafeSearch bool   `json:"safe_search,omitempty"`
	TimeRange  string `json:"time_range,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
	FollowUp   bool   `json:"follow_up,omitempty"`
}

// searchResponse mirrors the gather API response model.
type searchResponse struct {
	Success bool `json:"success"`
	Results []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Provider    string `json:"provider"`
		Date        string `json:"date"`
	} `json:"results"`
	FollowUpQueries []string `json:"follow_up_queries"`
	Error           *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("GATHER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("GATHER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GATHER_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"gather",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	webSearchTool := mcp.NewTool("web_search",
		mcp.WithDescription("Search the web and return structured results (title, url, description, provider, date). Falls back from static parsing to a rendered browser to text mining, so it works even against anti-scraping-hardened result pages."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithString("region",
			mcp.Description("Engine region code, e.g. 'us-en'"),
		),
		mcp.WithString("time_range",
			mcp.Description("Restrict results by recency: 'd' (day), 'w' (week), 'm' (month), 'y' (year)"),
			mcp.Enum("d", "w", "m", "y"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results (default: 10, max: 50)"),
		),
	)
	s.AddTool(webSearchTool, handleWebSearch(apiURL, apiKey))

	followUpTool := mcp.NewTool("follow_up_queries",
		mcp.WithDescription("Derive templated follow-up query variants for a query (e.g. '<query> statistics'). Useful for widening a research session."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The original query"),
		),
	)
	s.AddTool(followUpTool, handleFollowUp(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleWebSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		reqBody := searchRequest{
			Query:      query,
			Region:     request.GetString("region", ""),
			TimeRange:  request.GetString("time_range", ""),
			MaxResults: request.GetInt("max_results", 0),
		}

		resp, err := callSearchAPI(ctx, client, apiURL, apiKey, reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if !resp.Success {
			errMsg := "search failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("search failed: %s (%s)", resp.Error.Message, resp.Error.Code)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		for i, r := range resp.Results {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
			if r.Description != "" {
				fmt.Fprintf(&sb, "   %s\n", r.Description)
			}
			if r.Date != "" {
				fmt.Fprintf(&sb, "   (%s)\n", r.Date)
			}
		}
		if sb.Len() == 0 {
			sb.WriteString("no results")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleFollowUp(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		// The API derives follow-ups alongside a search; max_results is
		// kept minimal since only the variants are wanted here.
		reqBody := searchRequest{Query: query, MaxResults: 1, FollowUp: true}

		resp, err := callSearchAPI(ctx, client, apiURL, apiKey, reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if len(resp.FollowUpQueries) == 0 {
			return mcp.NewToolResultText("no follow-up queries"), nil
		}
		return mcp.NewToolResultText(strings.Join(resp.FollowUpQueries, "\n")), nil
	}
}

func callSearchAPI(ctx context.Context, client *http.Client, apiURL, apiKey string, reqBody searchRequest) (*searchResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &searchResp, nil
}
