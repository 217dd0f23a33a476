package dto

import "time"

// RenderLabelsRequest is the body of the PDF and HTML endpoints
type RenderLabelsRequest struct {
	Records []map[string]any `json:"records" binding:"required,max=100000"`
	// Template replaces the configured item template
	Template string `json:"template" binding:"omitempty,max=262144"`
	// ItemsPerPage replaces the configured page size
	ItemsPerPage int `json:"items_per_page" binding:"omitempty,min=1,max=1000"`
	// Defaults are bound for every record unless a record shadows them
	Defaults map[string]any `json:"defaults"`
	// Store uploads the PDF and answers with a download link
	Store bool `json:"store"`
}

// PreviewResponse carries the assembled HTML document
type PreviewResponse struct {
	HTML    string `json:"html"`
	Records int    `json:"records"`
	Pages   int    `json:"pages"`
}

// StoredSheetResponse describes an uploaded label sheet
type StoredSheetResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Records   int       `json:"records,omitempty"`
	Pages     int       `json:"pages,omitempty"`
}

// HealthResponse reports service readiness
type HealthResponse struct {
	Status   string `json:"status"`
	Renderer bool   `json:"renderer"`
	Storage  bool   `json:"storage"`
	Uptime   string `json:"uptime"`
}
