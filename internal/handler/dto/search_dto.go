package dto

import (
	"time"

	"github.com/osinthub/search-api/internal/search"
)

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Index string `json:"index"`
}

type SearchResponse struct {
	Success   bool         `json:"success"`
	Results   []search.Hit `json:"results"`
	Total     int64        `json:"total"`
	Remaining int          `json:"remaining"`
}

type SearchHistoryEntry struct {
	Query        string    `json:"query"`
	ResultsCount int       `json:"results_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type SearchHistoryResponse struct {
	Success bool                 `json:"success"`
	Entries []SearchHistoryEntry `json:"entries"`
}
