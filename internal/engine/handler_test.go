package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-backend/internal/query"
)

type expense struct {
	ID       int64           `json:"id"`
	OwnerID  uuid.UUID       `json:"ownerId"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Note     *string         `json:"note"`
}

var expenseSchema = query.NewSchema(
	query.Int64Field("id", func(e expense) int64 { return e.ID }),
	query.UUIDField("ownerId", func(e expense) uuid.UUID { return e.OwnerID }),
	query.StringField("category", func(e expense) string { return e.Category }),
	query.DecimalField("amount", func(e expense) decimal.Decimal { return e.Amount }),
	query.NullableStringField("note", func(e expense) *string { return e.Note }),
)

var (
	alice = uuid.MustParse("a11ce000-0000-4000-8000-000000000001")
	bob   = uuid.MustParse("b0b00000-0000-4000-8000-000000000002")
)

func note(s string) *string { return &s }

func expenses() []expense {
	return []expense{
		{ID: 1, OwnerID: alice, Category: "food", Amount: decimal.RequireFromString("12.50"), Note: note("lunch with team")},
		{ID: 2, OwnerID: alice, Category: "rent", Amount: decimal.RequireFromString("950")},
		{ID: 3, OwnerID: alice, Category: "food", Amount: decimal.RequireFromString("48.20"), Note: note("Weekly groceries")},
		{ID: 4, OwnerID: alice, Category: "fun", Amount: decimal.RequireFromString("30")},
		{ID: 5, OwnerID: bob, Category: "food", Amount: decimal.RequireFromString("7.10"), Note: note("coffee")},
	}
}

type page struct {
	Data       []expense        `json:"data"`
	Pagination query.Pagination `json:"pagination"`
}

func newApp(user *UserContext) *fiber.App {
	reg := NewRegistry()
	engine := query.New(expenseSchema, query.Options{DefaultPageSize: 3, MaxPageSize: 10})
	reg.Register(NewResource("expenses", engine, func() query.Source[expense] {
		return query.FromSlice(expenses())
	}, "ownerId"))

	log := logrus.New()
	log.SetOutput(io.Discard)

	app := fiber.New()
	RegisterRoutes(app, NewHandler(reg, log), func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	})
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func get(t *testing.T, app *fiber.App, target string) (int, []byte) {
	t.Helper()
	return do(t, app, httptest.NewRequest(http.MethodGet, target, nil))
}

func post(t *testing.T, app *fiber.App, target, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

func decodePage(t *testing.T, body []byte) page {
	t.Helper()
	var p page
	require.NoError(t, json.Unmarshal(body, &p), string(body))
	return p
}

func decodeError(t *testing.T, body []byte) *AppError {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func ids(p page) []int64 {
	out := make([]int64, len(p.Data))
	for i, e := range p.Data {
		out[i] = e.ID
	}
	return out
}

func TestHandler_UnknownResource(t *testing.T) {
	app := newApp(&UserContext{ID: alice.String()})

	status, body := get(t, app, "/api/nonexistent")
	assert.Equal(t, 404, status)
	appErr := decodeError(t, body)
	assert.Equal(t, "UNKNOWN_ENTITY", appErr.Code)
	assert.Contains(t, appErr.Message, "nonexistent")

	status, _ = post(t, app, "/api/nonexistent/query", `{}`)
	assert.Equal(t, 404, status)
}

func TestHandler_ListScopesToOwner(t *testing.T) {
	status, body := get(t, newApp(&UserContext{ID: alice.String()}), "/api/expenses")
	require.Equal(t, 200, status, string(body))
	p := decodePage(t, body)
	assert.Equal(t, []int64{1, 2, 3}, ids(p))
	assert.Equal(t, query.Pagination{PageIndex: 1, PageSize: 3, TotalRow: 4, PageCount: 2}, p.Pagination)

	status, body = get(t, newApp(&UserContext{ID: bob.String()}), "/api/expenses")
	require.Equal(t, 200, status)
	assert.Equal(t, []int64{5}, ids(decodePage(t, body)))
}

func TestHandler_AdminSeesEveryOwner(t *testing.T) {
	app := newApp(&UserContext{ID: "ops", Roles: []string{"admin"}})
	status, body := get(t, app, "/api/expenses?per_page=10")
	require.Equal(t, 200, status, string(body))
	assert.Equal(t, 5, decodePage(t, body).Pagination.TotalRow)
}

func TestHandler_ListQueryString(t *testing.T) {
	app := newApp(&UserContext{ID: alice.String()})

	cases := []struct {
		target string
		want   []int64
	}{
		{"/api/expenses?filter[category]=food", []int64{1, 3}},
		{"/api/expenses?filter[category.in]=food,fun&sort=-amount", []int64{3, 4, 1}},
		{"/api/expenses?filter[amount.between]=10,50&sort=amount", []int64{1, 4, 3}},
		{"/api/expenses?filter[amount.gte]=30&filter[category.eq]=food", []int64{3}},
		{"/api/expenses?filter[amount.gte]=100&filter[category.eq]=fun&logic=or&sort=id", []int64{2, 4}},
		{"/api/expenses?filter[note.is_null]=true&sort=id", []int64{2, 4}},
		{"/api/expenses?filter[note.is_null]=false&sort=id", []int64{1, 3}},
		{"/api/expenses?filter[note.like]=groc", []int64{3}},
		{"/api/expenses?filter[note.NotContains]=team&sort=-id", []int64{4, 3, 2}},
		{"/api/expenses?q=WEEKLY", []int64{3}},
		{"/api/expenses?sort=-amount&page=2&per_page=2", []int64{4, 1}},
		{"/api/expenses?sort=category,-amount&per_page=10", []int64{3, 1, 4, 2}},
	}
	for _, tc := range cases {
		status, body := get(t, app, tc.target)
		require.Equal(t, 200, status, "%s: %s", tc.target, body)
		assert.Equal(t, tc.want, ids(decodePage(t, body)), tc.target)
	}
}

func TestHandler_ClientErrors(t *testing.T) {
	app := newApp(&UserContext{ID: alice.String()})

	cases := []struct {
		target string
		code   string
		field  string
	}{
		{"/api/expenses?filter[colour]=red", "UNKNOWN_FIELD", "colour"},
		{"/api/expenses?sort=-colour", "UNKNOWN_FIELD", "colour"},
		{"/api/expenses?filter[amount.gt]=lots", "VALUE_PARSE_ERROR", "amount"},
		{"/api/expenses?filter[amount.starts_with]=1", "UNSUPPORTED_OPERATOR", "amount"},
		{"/api/expenses?filter[amount.between]=1", "INVALID_FILTER_ARITY", "amount"},
		{"/api/expenses?page=9", "PAGE_INDEX_OUT_OF_RANGE", ""},
		{"/api/expenses?page=9223372036854775807&per_page=10", "PAGE_INDEX_OUT_OF_RANGE", ""},
		{"/api/expenses?filter[amount.around]=1", "INVALID_PAYLOAD", ""},
		{"/api/expenses?filter[note.is_null]=maybe", "INVALID_PAYLOAD", ""},
		{"/api/expenses?filter[category]=food&logic=xor", "INVALID_PAYLOAD", ""},
	}
	for _, tc := range cases {
		status, body := get(t, app, tc.target)
		assert.Equal(t, 400, status, tc.target)
		appErr := decodeError(t, body)
		assert.Equal(t, tc.code, appErr.Code, tc.target)
		if tc.field != "" {
			require.Len(t, appErr.Details, 1, tc.target)
			assert.Equal(t, tc.field, appErr.Details[0].Field, tc.target)
		}
	}
}

func TestHandler_QueryBody(t *testing.T) {
	app := newApp(&UserContext{ID: alice.String()})

	status, body := post(t, app, "/api/expenses/query", `{
		"filter": {
			"logicalOperator": "AND",
			"details": [
				{"field": "category", "operator": "Equal", "values": ["food"]},
				{"field": "amount", "operator": "GreaterThan", "values": ["500"], "logicalOperator": "OR"}
			]
		},
		"orders": [{"field": "amount", "direction": "DESC"}],
		"pagination": {"pageIndex": 1, "pageSize": 2}
	}`)
	require.Equal(t, 200, status, string(body))
	p := decodePage(t, body)
	assert.Equal(t, []int64{2, 3}, ids(p))
	assert.Equal(t, query.Pagination{PageIndex: 1, PageSize: 2, TotalRow: 3, PageCount: 2}, p.Pagination)

	status, body = post(t, app, "/api/expenses/query", "")
	require.Equal(t, 200, status, string(body))
	assert.Equal(t, 4, decodePage(t, body).Pagination.TotalRow)

	status, body = post(t, app, "/api/expenses/query", `{"searchTerm": "lunch"}`)
	require.Equal(t, 200, status, string(body))
	assert.Equal(t, []int64{1}, ids(decodePage(t, body)))
}

func TestHandler_QueryBodyErrors(t *testing.T) {
	app := newApp(&UserContext{ID: alice.String()})

	status, body := post(t, app, "/api/expenses/query", `{"filter": {"details": [{"field": "amount", "operator": "Around", "values": ["1"]}]}}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "UNSUPPORTED_OPERATOR", decodeError(t, body).Code)

	status, body = post(t, app, "/api/expenses/query", `{"filter": `)
	assert.Equal(t, 400, status)
	assert.Equal(t, "INVALID_PAYLOAD", decodeError(t, body).Code)
}

func TestHandler_RequiresUser(t *testing.T) {
	status, body := get(t, newApp(nil), "/api/expenses")
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, body).Code)
}

func TestHandler_SubjectMustParseAsOwner(t *testing.T) {
	status, body := get(t, newApp(&UserContext{ID: "not-a-uuid"}), "/api/expenses")
	assert.Equal(t, 403, status)
	assert.Equal(t, "FORBIDDEN", decodeError(t, body).Code)
}

func TestHandler_ResourcesAndSchema(t *testing.T) {
	app := newApp(&UserContext{ID: alice.String()})

	status, body := get(t, app, "/api")
	require.Equal(t, 200, status)
	var names struct{ Data []string }
	require.NoError(t, json.Unmarshal(body, &names))
	assert.Equal(t, []string{"expenses"}, names.Data)

	status, body = get(t, app, "/api/expenses/schema")
	require.Equal(t, 200, status)
	var schema struct{ Data []FieldInfo }
	require.NoError(t, json.Unmarshal(body, &schema))
	require.Len(t, schema.Data, 5)

	owner := schema.Data[1]
	assert.Equal(t, "ownerId", owner.Name)
	assert.Equal(t, "owner_id", owner.Column)
	assert.Equal(t, "uuid", owner.Kind)
	assert.Contains(t, owner.Operators, "In")
	assert.NotContains(t, owner.Operators, "GreaterThan")

	n := schema.Data[4]
	assert.True(t, n.Nullable)
	assert.Contains(t, n.Operators, "IsNullOrWhiteSpace")
}

func TestQueryError(t *testing.T) {
	assert.Nil(t, QueryError(io.EOF))

	appErr := QueryError(&query.Error{Kind: query.UnknownField, Field: "x", Message: "unknown field: x"})
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "UNKNOWN_FIELD", appErr.Code)

	appErr = QueryError(query.ErrCancelled)
	require.NotNil(t, appErr)
	assert.Equal(t, StatusClientClosedRequest, appErr.Status)
	assert.Empty(t, appErr.Details)
}

func TestErrorHandler(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db down") })
	app.Get("/forbidden", func(c *fiber.Ctx) error { return ForbiddenError("no") })
	app.Get("/gone", func(c *fiber.Ctx) error { return fmt.Errorf("fetch: %w", query.ErrCancelled) })

	cases := []struct {
		target string
		status int
		code   string
	}{
		{"/boom", 500, "INTERNAL_ERROR"},
		{"/forbidden", 403, "FORBIDDEN"},
		{"/gone", StatusClientClosedRequest, "CANCELLED"},
		{"/missing", 404, "HTTP_ERROR"},
	}
	for _, tc := range cases {
		status, body := get(t, app, tc.target)
		assert.Equal(t, tc.status, status, tc.target)
		appErr := decodeError(t, body)
		assert.Equal(t, tc.code, appErr.Code, tc.target)
		assert.NotContains(t, appErr.Message, "db down")
	}
}

type sliceRecorder struct{ events []ListEvent }

func (r *sliceRecorder) RecordList(ev ListEvent) { r.events = append(r.events, ev) }

func TestHandler_RecordsListEvents(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewResource("expenses", query.New(expenseSchema, query.Options{}), func() query.Source[expense] {
		return query.FromSlice(expenses())
	}, "ownerId"))

	rec := &sliceRecorder{}
	app := fiber.New()
	RegisterRoutes(app, NewHandler(reg, nil).WithRecorder(rec), func(c *fiber.Ctx) error {
		c.Locals("user", &UserContext{ID: alice.String()})
		return c.Next()
	})

	status, _ := get(t, app, "/api/expenses?filter[category]=food&sort=-amount&q=lunch")
	require.Equal(t, 200, status)
	status, _ = post(t, app, "/api/expenses/query", `{"orders":[{"field":"colour","direction":"asc"}]}`)
	require.Equal(t, 400, status)
	status, _ = get(t, app, "/api/nonexistent")
	require.Equal(t, 404, status)

	require.Len(t, rec.events, 2)
	ok := rec.events[0]
	assert.Equal(t, "expenses", ok.Resource)
	assert.Equal(t, alice.String(), ok.UserID)
	assert.Equal(t, 1, ok.Filters)
	assert.Equal(t, 1, ok.Sorts)
	assert.True(t, ok.Search)
	assert.Equal(t, 1, ok.Total)
	assert.Equal(t, "ok", ok.Status)
	assert.False(t, ok.At.IsZero())

	assert.Equal(t, "UNKNOWN_FIELD", rec.events[1].Status)
	assert.Equal(t, 0, rec.events[1].Total)
}

// blockingSource holds Count until the request context ends.
type blockingSource struct {
	*query.SliceSource[expense]
}

func (b blockingSource) Count(ctx context.Context) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestHandler_TimeoutCancelsList(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewResource("expenses", query.New(expenseSchema, query.Options{}), func() query.Source[expense] {
		return blockingSource{query.FromSlice(expenses())}
	}, ""))

	app := fiber.New()
	RegisterRoutes(app, NewHandler(reg, nil).WithTimeout(20*time.Millisecond), func(c *fiber.Ctx) error {
		c.Locals("user", &UserContext{ID: alice.String()})
		return c.Next()
	})

	status, body := get(t, app, "/api/expenses")
	assert.Equal(t, StatusClientClosedRequest, status)
	assert.Equal(t, "CANCELLED", decodeError(t, body).Code)
}
