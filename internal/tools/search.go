// Package tools provides the retrieval capabilities interviews draw on: a
// bounded web search and an encyclopedic lookup, plus the shared document
// formatting that feeds interview context.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/config"
	"github.com/roundtable-ai/orchestrator/internal/metrics"
	"github.com/roundtable-ai/orchestrator/internal/research"
)

// Searcher turns a query into a bounded list of documents. Zero results is not
// an error; implementations return an empty slice.
type Searcher interface {
	Search(ctx context.Context, query string) ([]research.Document, error)
}

// WebSearch queries a DuckDuckGo-style instant-answer API.
type WebSearch struct {
	endpoint string
	maxDocs  int
	client   *http.Client
	logger   *zap.Logger
}

// NewWebSearch builds the web search tool from config.
func NewWebSearch(cfg config.SearchConfig, logger *zap.Logger) *WebSearch {
	maxDocs := cfg.WebMaxDocs
	if maxDocs <= 0 {
		maxDocs = 3
	}
	return &WebSearch{
		endpoint: strings.TrimRight(cfg.WebEndpoint, "/"),
		maxDocs:  maxDocs,
		client:   &http.Client{Timeout: searchTimeout(cfg)},
		logger:   logger,
	}
}

type ddgResponse struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search returns up to the configured number of web documents for the query.
func (s *WebSearch) Search(ctx context.Context, query string) ([]research.Document, error) {
	reqURL := fmt.Sprintf("%s/?q=%s&format=json&no_html=1", s.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build web search request: %w", err)
	}
	req.Header.Set("User-Agent", "roundtable-orchestrator/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RetrievalCalls.WithLabelValues("web", "error").Inc()
		return nil, research.WrapError(research.KindUpstreamUnavailable, err, "web search failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RetrievalCalls.WithLabelValues("web", "error").Inc()
		return nil, research.NewError(research.KindUpstreamUnavailable,
			"web search returned HTTP %d", resp.StatusCode)
	}

	var parsed ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.RetrievalCalls.WithLabelValues("web", "error").Inc()
		return nil, research.WrapError(research.KindUpstreamUnavailable, err, "decode web search response")
	}

	docs := make([]research.Document, 0, s.maxDocs)
	if parsed.AbstractText != "" && parsed.AbstractURL != "" {
		docs = append(docs, research.Document{Source: parsed.AbstractURL, Content: parsed.AbstractText})
	}
	for _, topic := range parsed.RelatedTopics {
		if len(docs) >= s.maxDocs {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		docs = append(docs, research.Document{Source: topic.FirstURL, Content: topic.Text})
	}
	if len(docs) > s.maxDocs {
		docs = docs[:s.maxDocs]
	}

	metrics.RetrievalCalls.WithLabelValues("web", "ok").Inc()
	s.logger.Debug("Web search completed",
		zap.String("query", query), zap.Int("docs", len(docs)))
	return docs, nil
}

// Wikipedia queries the MediaWiki search API and returns plain-text extracts.
type Wikipedia struct {
	endpoint string
	maxDocs  int
	client   *http.Client
	logger   *zap.Logger
}

// NewWikipedia builds the encyclopedic lookup tool from config.
func NewWikipedia(cfg config.SearchConfig, logger *zap.Logger) *Wikipedia {
	maxDocs := cfg.WikiMaxDocs
	if maxDocs <= 0 {
		maxDocs = 2
	}
	return &Wikipedia{
		endpoint: cfg.WikiEndpoint,
		maxDocs:  maxDocs,
		client:   &http.Client{Timeout: searchTimeout(cfg)},
		logger:   logger,
	}
}

type wikiResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns up to the configured number of encyclopedia extracts.
func (s *Wikipedia) Search(ctx context.Context, query string) ([]research.Document, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", fmt.Sprintf("%d", s.maxDocs))
	params.Set("prop", "extracts|info")
	params.Set("inprop", "url")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", "roundtable-orchestrator/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RetrievalCalls.WithLabelValues("wikipedia", "error").Inc()
		return nil, research.WrapError(research.KindUpstreamUnavailable, err, "wikipedia lookup failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RetrievalCalls.WithLabelValues("wikipedia", "error").Inc()
		return nil, research.NewError(research.KindUpstreamUnavailable,
			"wikipedia returned HTTP %d", resp.StatusCode)
	}

	var parsed wikiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.RetrievalCalls.WithLabelValues("wikipedia", "error").Inc()
		return nil, research.WrapError(research.KindUpstreamUnavailable, err, "decode wikipedia response")
	}

	docs := make([]research.Document, 0, s.maxDocs)
	for _, page := range parsed.Query.Pages {
		if len(docs) >= s.maxDocs {
			break
		}
		if page.Extract == "" {
			continue
		}
		source := page.FullURL
		if source == "" {
			source = page.Title
		}
		docs = append(docs, research.Document{Source: source, Content: page.Extract})
	}

	metrics.RetrievalCalls.WithLabelValues("wikipedia", "ok").Inc()
	s.logger.Debug("Wikipedia lookup completed",
		zap.String("query", query), zap.Int("docs", len(docs)))
	return docs, nil
}

func searchTimeout(cfg config.SearchConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return 20 * time.Second
}
