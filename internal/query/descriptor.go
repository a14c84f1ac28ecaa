package query

// FilterDescriptor is one raw filter instruction as sent by a caller.
type FilterDescriptor struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Values   []string `json:"values"`
	Logic    Logic    `json:"logicalOperator"`
}

// FilterRequest bundles descriptors. Logic is the default for descriptors
// that do not declare their own.
type FilterRequest struct {
	Logic   Logic              `json:"logicalOperator"`
	Details []FilterDescriptor `json:"details"`
}

// Empty reports whether the request carries no descriptors.
func (f *FilterRequest) Empty() bool {
	return f == nil || len(f.Details) == 0
}

// SortDescriptor is one ordering key.
type SortDescriptor struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Pagination is both the requested window (PageIndex, PageSize) and the
// resulting page metadata (TotalRow, PageCount).
type Pagination struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	TotalRow  int `json:"totalRow"`
	PageCount int `json:"pageCount"`
}

// Request is the full query bundle accepted by Engine.List.
type Request struct {
	SearchTerm string           `json:"searchTerm,omitempty"`
	Filter     *FilterRequest   `json:"filter,omitempty"`
	Orders     []SortDescriptor `json:"orders,omitempty"`
	Pagination *Pagination      `json:"pagination,omitempty"`
}

// PagedResult is one materialized page.
type PagedResult[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Page returns the pagination block, letting callers that only hold the
// result as a value of unknown T read the totals.
func (p PagedResult[T]) Page() Pagination {
	return p.Pagination
}
