package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roundtable-ai/orchestrator/internal/config"
	"github.com/roundtable-ai/orchestrator/internal/research"
)

func TestWebSearch_BoundedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tea oxidation", r.URL.Query().Get("q"))
		w.Write([]byte(`{
			"AbstractText": "Oxidation is a chemical process.",
			"AbstractURL": "https://example.com/oxidation",
			"RelatedTopics": [
				{"Text": "Black tea", "FirstURL": "https://example.com/black"},
				{"Text": "Green tea", "FirstURL": "https://example.com/green"},
				{"Text": "Oolong", "FirstURL": "https://example.com/oolong"},
				{"Text": "White tea", "FirstURL": "https://example.com/white"}
			]
		}`))
	}))
	defer srv.Close()

	search := NewWebSearch(config.SearchConfig{WebEndpoint: srv.URL, WebMaxDocs: 3}, zaptest.NewLogger(t))
	docs, err := search.Search(context.Background(), "tea oxidation")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "https://example.com/oxidation", docs[0].Source)
	assert.Equal(t, "https://example.com/black", docs[1].Source)
}

func TestWebSearch_ZeroResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"AbstractText":"","AbstractURL":"","RelatedTopics":[]}`))
	}))
	defer srv.Close()

	search := NewWebSearch(config.SearchConfig{WebEndpoint: srv.URL}, zaptest.NewLogger(t))
	docs, err := search.Search(context.Background(), "no such thing")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestWebSearch_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	search := NewWebSearch(config.SearchConfig{WebEndpoint: srv.URL}, zaptest.NewLogger(t))
	_, err := search.Search(context.Background(), "query")
	require.Error(t, err)
	assert.True(t, research.IsKind(err, research.KindUpstreamUnavailable))
}

func TestWikipedia_BoundedExtracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "query", r.URL.Query().Get("action"))
		assert.Equal(t, "2", r.URL.Query().Get("gsrlimit"))
		w.Write([]byte(`{"query":{"pages":{
			"1":{"title":"Tea","extract":"Tea is a beverage.","fullurl":"https://en.wikipedia.org/wiki/Tea"},
			"2":{"title":"Oolong","extract":"Oolong is partially oxidized.","fullurl":"https://en.wikipedia.org/wiki/Oolong"}
		}}}`))
	}))
	defer srv.Close()

	wiki := NewWikipedia(config.SearchConfig{WikiEndpoint: srv.URL, WikiMaxDocs: 2}, zaptest.NewLogger(t))
	docs, err := wiki.Search(context.Background(), "tea")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.NotEmpty(t, d.Source)
		assert.NotEmpty(t, d.Content)
	}
}

func TestWikipedia_EmptyPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":{}}}`))
	}))
	defer srv.Close()

	wiki := NewWikipedia(config.SearchConfig{WikiEndpoint: srv.URL}, zaptest.NewLogger(t))
	docs, err := wiki.Search(context.Background(), "gibberish")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFormatDocuments(t *testing.T) {
	docs := []research.Document{
		{Source: "https://example.com/a", Content: "alpha"},
		{Source: "https://example.com/b", Content: "beta"},
	}
	got := FormatDocuments(docs)
	assert.Equal(t,
		"<Document source=\"https://example.com/a\"/>\nalpha\n</Document>"+
			"\n\n---\n\n"+
			"<Document source=\"https://example.com/b\"/>\nbeta\n</Document>",
		got)
	assert.Empty(t, FormatDocuments(nil))
}
