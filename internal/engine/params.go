package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"finance-backend/internal/query"
)

// opAliases maps the short operator names of the query-string grammar.
// Full operator names ("GreaterThanOrEqual") are accepted as well.
var opAliases = map[string]query.Operator{
	"eq":           query.Equal,
	"neq":          query.NotEqual,
	"ne":           query.NotEqual,
	"gt":           query.GreaterThan,
	"gte":          query.GreaterThanOrEqual,
	"lt":           query.LessThan,
	"lte":          query.LessThanOrEqual,
	"between":      query.Between,
	"in":           query.In,
	"not_in":       query.NotIn,
	"like":         query.Contains,
	"contains":     query.Contains,
	"not_contains": query.NotContains,
	"starts_with":  query.StartsWith,
	"ends_with":    query.EndsWith,
	"is_null":      query.IsNull,
	"is_not_null":  query.IsNotNull,
	"is_empty":     query.IsEmpty,
	"is_not_empty": query.IsNotEmpty,
	"is_blank":     query.IsNullOrWhiteSpace,
	"is_not_blank": query.IsNotNullOrWhiteSpace,
}

// negated pairs the value-less operators, so filter[note.is_null]=false
// reads as IsNotNull.
var negated = map[query.Operator]query.Operator{
	query.IsNull:                query.IsNotNull,
	query.IsNotNull:             query.IsNull,
	query.IsEmpty:               query.IsNotEmpty,
	query.IsNotEmpty:            query.IsEmpty,
	query.IsNullOrWhiteSpace:    query.IsNotNullOrWhiteSpace,
	query.IsNotNullOrWhiteSpace: query.IsNullOrWhiteSpace,
}

// ParseQueryParams parses Fiber query parameters into a query.Request:
//
//	filter[field]=v            Equal
//	filter[field.op]=v1,v2     op from opAliases; lists split on commas
//	logic=or                   combine filters with OR instead of AND
//	sort=-amount,category      "-" for descending
//	page=2&per_page=50
//	q=coffee                   free-text search
//
// Field names are not checked here; the query engine rejects unknown ones.
func ParseQueryParams(c *fiber.Ctx) (query.Request, error) {
	var req query.Request

	queries := c.Queries()
	keys := make([]string, 0, len(queries))
	for key := range queries {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	for _, key := range keys {
		inner := key[7 : len(key)-1] // extract between [ and ]
		d, err := parseFilter(inner, queries[key])
		if err != nil {
			return query.Request{}, err
		}
		if req.Filter == nil {
			req.Filter = &query.FilterRequest{Logic: query.And}
		}
		req.Filter.Details = append(req.Filter.Details, d)
	}

	if logic := c.Query("logic"); logic != "" && req.Filter != nil {
		switch strings.ToLower(logic) {
		case "and":
			req.Filter.Logic = query.And
		case "or":
			req.Filter.Logic = query.Or
		default:
			return query.Request{}, InvalidPayloadError(fmt.Sprintf("Invalid logic: %s", logic))
		}
	}

	// Parse sort: sort=-booked_at,amount
	for _, part := range splitAndTrim(c.Query("sort")) {
		dir := query.Ascending
		field := part
		if strings.HasPrefix(part, "-") {
			dir = query.Descending
			field = part[1:]
		} else {
			field = strings.TrimPrefix(part, "+")
		}
		req.Orders = append(req.Orders, query.SortDescriptor{Field: field, Direction: dir})
	}

	// Invalid page numbers are left to the engine, which clamps them.
	page, hasPage := positiveInt(c.Query("page"))
	perPage, hasPerPage := positiveInt(c.Query("per_page"))
	if hasPage || hasPerPage {
		req.Pagination = &query.Pagination{PageIndex: page, PageSize: perPage}
	}

	req.SearchTerm = c.Query("q")
	return req, nil
}

func parseFilter(key, raw string) (query.FilterDescriptor, error) {
	field, opName := parseFilterKey(key)
	op, err := parseOperator(opName)
	if err != nil {
		return query.FilterDescriptor{}, InvalidPayloadError(fmt.Sprintf("Unknown filter operator %q for %s", opName, field))
	}

	d := query.FilterDescriptor{Field: field, Operator: op}
	if flip, ok := negated[op]; ok {
		on := true
		if strings.TrimSpace(raw) != "" {
			on, err = strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return query.FilterDescriptor{}, InvalidPayloadError(fmt.Sprintf("Invalid flag %q for %s.%s", raw, field, opName))
			}
		}
		if !on {
			d.Operator = flip
		}
		return d, nil
	}

	if multiValue(op) {
		d.Values = strings.Split(raw, ",")
	} else {
		d.Values = []string{raw}
	}
	return d, nil
}

// parseFilterKey splits "amount.gte" into ("amount", "gte") or "category" into ("category", "eq").
func parseFilterKey(key string) (string, string) {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, "eq"
}

func parseOperator(name string) (query.Operator, error) {
	if op, ok := opAliases[strings.ToLower(name)]; ok {
		return op, nil
	}
	return query.ParseOperator(name)
}

func multiValue(op query.Operator) bool {
	switch op {
	case query.In, query.NotIn, query.Between, query.Contains, query.NotContains:
		return true
	}
	return false
}

func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, true
	}
	return n, true
}

func splitAndTrim(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
