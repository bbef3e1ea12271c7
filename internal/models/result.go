package models

// SearchResult is an ephemeral view of a stored chunk matched by a
// query. Produced only in response to a search and never persisted.
type SearchResult struct {
	Content string  `json:"content"`
	Year    int     `json:"year"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Page    *int    `json:"page,omitempty"`
	Section *string `json:"section,omitempty"`
}

// SearchResponse is the complete output of the retrieval tool.
// A degraded search (embedding or store failure) yields an empty
// Results slice with TotalResults 0 rather than an error.
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"totalResults"`
	SearchQuery  string         `json:"searchQuery"`
}

// EmptyResponse returns the degraded-search response for a query.
func EmptyResponse(query string) *SearchResponse {
	return &SearchResponse{
		Results:      []SearchResult{},
		TotalResults: 0,
		SearchQuery:  query,
	}
}
