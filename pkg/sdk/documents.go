package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// DocumentService manages documents within one collection.
type DocumentService struct {
	client     *Client
	collection string
}

type ingestTextRequest struct {
	Content    string   `json:"content"`
	Collection string   `json:"collection,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

type ingestURLRequest struct {
	URL        string   `json:"url"`
	Collection string   `json:"collection,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// IngestText chunks, embeds and stores raw text as a new document.
func (s *DocumentService) IngestText(
	ctx context.Context, content string, meta Metadata,
) (*Document, error) {
	var doc Document
	err := s.client.doJSON(ctx, http.MethodPost, "/api/v1/documents", nil,
		ingestTextRequest{Content: content, Collection: s.collection, Metadata: meta}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// IngestFile uploads a file for ingestion. The extractor is chosen from
// the filename extension (txt, md, json, csv, html).
func (s *DocumentService) IngestFile(
	ctx context.Context, filename string, content io.Reader, meta Metadata,
) (*Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("rag: build multipart form: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return nil, fmt.Errorf("rag: read file content: %w", err)
	}
	if s.collection != "" {
		if err := mw.WriteField("collection", s.collection); err != nil {
			return nil, fmt.Errorf("rag: build multipart form: %w", err)
		}
	}
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("rag: encode metadata: %w", err)
		}
		if err := mw.WriteField("metadata", string(raw)); err != nil {
			return nil, fmt.Errorf("rag: build multipart form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("rag: build multipart form: %w", err)
	}

	var doc Document
	err = s.client.do(ctx, http.MethodPost, "/api/v1/documents/file", nil,
		&buf, mw.FormDataContentType(), &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// IngestURL fetches a web page, extracts its text and ingests it.
func (s *DocumentService) IngestURL(
	ctx context.Context, pageURL string, meta Metadata,
) (*Document, error) {
	var doc Document
	err := s.client.doJSON(ctx, http.MethodPost, "/api/v1/documents/url", nil,
		ingestURLRequest{URL: pageURL, Collection: s.collection, Metadata: meta}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Get fetches a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := s.client.doJSON(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id),
		s.query(), nil, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns one page of documents, newest first.
// limit 0 means the server default.
func (s *DocumentService) List(ctx context.Context, limit, offset int) (*DocumentList, error) {
	q := s.query()
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var list DocumentList
	if err := s.client.doJSON(ctx, http.MethodGet, "/api/v1/documents", q, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Delete removes a document and all its chunks.
func (s *DocumentService) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	var res DeleteResult
	err := s.client.doJSON(ctx, http.MethodDelete, "/api/v1/documents/"+url.PathEscape(id),
		s.query(), nil, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Stats reports document and chunk counts for the collection.
func (s *DocumentService) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.client.doJSON(ctx, http.MethodGet, "/api/v1/documents/stats", s.query(), nil, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *DocumentService) query() url.Values {
	q := url.Values{}
	if s.collection != "" {
		q.Set("collection", s.collection)
	}
	return q
}
