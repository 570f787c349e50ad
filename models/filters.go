package models

// ResultFilters defines parameters for filtering execution result queries.
type ResultFilters struct {
	TaskID           int64  `json:"task_id"`
	Page             int    `json:"page"`
	Limit            int    `json:"limit"`
	SortBy           string `json:"sort_by"`
	SortOrder        string `json:"sort_order"`
	FilterMethod     string `json:"method,omitempty"`
	FilterStatus     string `json:"status,omitempty"`
	FilterSource     string `json:"source,omitempty"`
	FilterSearchText string `json:"search,omitempty"`
	FailuresOnly     bool   `json:"failures_only"`
}

// RecordFilters defines parameters for paging through a record collection.
type RecordFilters struct {
	Collection string `json:"collection"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// PaginatedResponse is a generic structure for paginated API responses.
type PaginatedResponse struct {
	Page         int         `json:"page"`
	Limit        int         `json:"limit"`
	TotalRecords int64       `json:"total_records"`
	TotalPages   int         `json:"total_pages"`
	Records      interface{} `json:"records"` // Can hold any type of record slice
}
