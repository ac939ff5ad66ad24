// Package search provides a client for the upstream web search provider.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"knowledge-assistant-go/internal/apperr"
	"knowledge-assistant-go/internal/config"
	"knowledge-assistant-go/pkg/log"
)

// 搜索调用的固定超时预算。
const requestTimeout = 10 * time.Second

// Result 是归一化后的单条搜索结果。
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Client defines the interface for a web search client.
type Client interface {
	// Search 以用户原始问题为查询词执行一次网络搜索，返回归一化的结果列表。
	Search(ctx context.Context, query string) ([]Result, error)
}

type search1APIClient struct {
	cfg    config.SearchConfig
	client *http.Client
}

// NewClient creates a new search client for the configured provider.
func NewClient(cfg config.SearchConfig) Client {
	return &search1APIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}
}

type searchRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	Language      string `json:"hl"`
	CrawlResults  int    `json:"crawl_results"`
	SearchService string `json:"search_service"`
	Image         bool   `json:"image"`
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

type rawResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Search 执行一次搜索调用并归一化结果。
func (c *search1APIClient) Search(ctx context.Context, query string) ([]Result, error) {
	start := time.Now()
	log.Infof("[Search] Starting search for query: %s", query)

	reqBody := searchRequest{
		Query:         query,
		MaxResults:    c.cfg.MaxResults,
		Language:      c.cfg.Language,
		CrawlResults:  0,
		SearchService: "google",
		Image:         false,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if apperr.IsTimeout(err) {
			log.Errorf("[Search] Request timed out after %.2fs", time.Since(start).Seconds())
			return nil, apperr.Timeout(apperr.ProviderSearch)
		}
		log.Errorf("[Search] Failed to call search api: %v", err)
		return nil, &apperr.UpstreamError{
			Provider: apperr.ProviderSearch,
			Status:   http.StatusInternalServerError,
			Message:  "failed to reach search provider",
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("[Search] Failed to read response body: %v", err)
		return nil, apperr.InvalidShape(apperr.ProviderSearch)
	}

	log.Infof("[Search] Received response in %.2fs with status code: %d", time.Since(start).Seconds(), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		msg := apperr.ExtractUpstreamMessage(body)
		log.Errorf("[Search] API request failed: %s", msg)
		return nil, &apperr.UpstreamError{
			Provider: apperr.ProviderSearch,
			Status:   resp.StatusCode,
			Message:  msg,
		}
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		log.Errorf("[Search] Failed to parse response JSON: %v", err)
		return nil, apperr.InvalidShape(apperr.ProviderSearch)
	}

	results := formatResults(searchResp.Results)
	log.Infof("[Search] Got %d results, total time: %.2fs", len(results), time.Since(start).Seconds())
	return results, nil
}

// formatResults 归一化原始结果：缺失字段按空字符串处理，
// 单条解析失败只记录并跳过，不影响整个列表。
func formatResults(raw []json.RawMessage) []Result {
	formatted := make([]Result, 0, len(raw))
	for i, r := range raw {
		var item rawResult
		if err := json.Unmarshal(r, &item); err != nil {
			log.Warnf("[Search] Skipping malformed result at index %d: %v", i, err)
			continue
		}
		formatted = append(formatted, Result{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		})
	}
	return formatted
}

