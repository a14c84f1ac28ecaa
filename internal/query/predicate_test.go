package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPredicate_EmptyMatchesEverything(t *testing.T) {
	got, err := filterIDs()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestBuildPredicate_EqualitySubset(t *testing.T) {
	cases := []struct {
		field string
		value string
		want  []int
	}{
		{"category", "Food", []int{1, 3, 5}},
		{"amount", "900.00", []int{2}},
		{"count", "4", []int{4}},
		{"big", "300", []int{3}},
		{"ratio", "0.25", []int{2}},
		{"active", "false", []int{3, 5}},
		{"id", "00000000-0000-0000-0000-000000000004", []int{4}},
		{"delay", "2h", []int{2}},
		{"delay", "00:30:00", []int{3}},
		{"bookedAt", "2024-03-02T10:00:00+01:00", []int{2}},
		{"dueAt", "2024-03-10 09:00:00", []int{5}},
		{"verified", "true", []int{1}},
	}
	for _, tc := range cases {
		got, err := filterIDs(crit(tc.field, Equal, And, tc.value))
		require.NoError(t, err, tc.field)
		assert.Equal(t, tc.want, got, "%s = %s", tc.field, tc.value)
	}
}

func TestBuildPredicate_AndOrFolds(t *testing.T) {
	food := crit("category", Equal, And, "Food")
	active := crit("active", Equal, And, "true")

	got, err := filterIDs(food, active)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got, "AND is the intersection")

	activeOr := crit("active", Equal, Or, "true")
	got, err = filterIDs(food, activeOr)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got, "OR is the union")

	// Uniform logic: order does not matter.
	foodOr := crit("category", Equal, Or, "Food")
	got, err = filterIDs(activeOr, foodOr)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestBuildPredicate_MixedLogicFoldsLeftToRight(t *testing.T) {
	a := crit("category", Equal, And, "Food")     // 1, 3, 5
	b := crit("active", Equal, And, "true")       // 1, 2, 4
	c := crit("description", Equal, Or, "Salary") // 4
	cAnd := crit("description", Equal, And, "Salary")
	bOr := crit("active", Equal, Or, "true")

	fx := fixture()
	manual := func(e entry) bool {
		return (e.Category == "Food" && e.Active) || e.Description == "Salary"
	}
	var want []entry
	for _, e := range fx {
		if manual(e) {
			want = append(want, e)
		}
	}

	got, err := filterIDs(a, b, c)
	require.NoError(t, err)
	assert.Equal(t, ids(want), got)
	assert.Equal(t, []int{1, 4}, got)

	// Same criteria, different placement of the OR: ((C && A) || B).
	got, err = filterIDs(cAnd, crit("category", Equal, And, "Food"), bOr)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, got)
}

func TestBuildPredicate_UnknownField(t *testing.T) {
	_, err := filterIDs(crit("nope", Equal, And, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)

	var qe *Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "nope", qe.Field)
}

func TestBuildPredicate_FieldLookupIgnoresCaseAndAcceptsColumn(t *testing.T) {
	got, err := filterIDs(crit("BOOKEDAT", GreaterThan, And, "2024-03-04T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, got)

	got, err = filterIDs(crit("booked_at", LessThan, And, "2024-03-02T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestBuildPredicate_Ordering(t *testing.T) {
	cases := []struct {
		c    Criterion
		want []int
	}{
		{crit("amount", GreaterThan, And, "45.10"), []int{2, 4}},
		{crit("amount", GreaterThanOrEqual, And, "45.1"), []int{2, 4, 5}},
		{crit("count", LessThan, And, "3"), []int{1, 2}},
		{crit("count", LessThanOrEqual, And, "3"), []int{1, 2, 3}},
		{crit("ratio", Between, And, "0.25", "0.75"), []int{1, 2, 3}},
		{crit("delay", Between, And, "1h", "02:00:00"), []int{1, 2}},
		{crit("description", GreaterThan, And, "Rent"), []int{1, 2, 4}},
		{crit("bookedAt", Between, And, "2024-03-02T00:00:00Z", "2024-03-03T23:59:59Z"), []int{2, 3}},
	}
	for _, tc := range cases {
		got, err := filterIDs(tc.c)
		require.NoError(t, err, "%s %s", tc.c.Field, tc.c.Operator)
		assert.Equal(t, tc.want, got, "%s %s", tc.c.Field, tc.c.Operator)
	}
}

func TestBuildPredicate_StringOperators(t *testing.T) {
	cases := []struct {
		c    Criterion
		want []int
	}{
		{crit("description", StartsWith, And, "Re"), []int{2}},
		{crit("description", EndsWith, And, "ee"), []int{3}},
		{crit("description", Contains, And, "ar"), []int{2, 4}},
		{crit("description", Contains, And, "Coff", "Sal"), []int{3, 4}},
		{crit("description", NotContains, And, "Coff", "Sal"), []int{1, 2, 5}},
		{crit("description", In, And, "Coffee", "Salary"), []int{3, 4}},
		{crit("description", NotIn, And, "Coffee", "Salary"), []int{1, 2, 5}},
		{crit("note", IsNull, And), []int{4, 5}},
		{crit("note", IsNotNull, And), []int{1, 2, 3}},
		{crit("note", IsEmpty, And), []int{3}},
		{crit("note", IsNotEmpty, And), []int{1, 2, 4, 5}},
		{crit("note", IsNullOrWhiteSpace, And), []int{2, 3, 4, 5}},
		{crit("note", IsNotNullOrWhiteSpace, And), []int{1}},
		{crit("note", StartsWith, And, "lu"), []int{1}},
		{crit("note", NotEqual, And, "lunch"), []int{2, 3, 4, 5}},
	}
	for _, tc := range cases {
		got, err := filterIDs(tc.c)
		require.NoError(t, err, "%s %s", tc.c.Field, tc.c.Operator)
		assert.Equal(t, tc.want, got, "%s %s %v", tc.c.Field, tc.c.Operator, tc.c.Values())
	}
}

func TestBuildPredicate_NullableScalars(t *testing.T) {
	cases := []struct {
		c    Criterion
		want []int
	}{
		{crit("retries", Equal, And, "3"), []int{1}},
		{crit("retries", NotEqual, And, "3"), []int{2, 3, 4, 5}},
		{crit("retries", GreaterThan, And, "0"), []int{1}},
		{crit("limit", LessThan, And, "1000"), []int{1}},
		{crit("limit", NotIn, And, "100"), []int{2, 3, 4, 5}},
		{crit("rate", IsNull, And), []int{2, 3, 4, 5}},
		{crit("rate", GreaterThanOrEqual, And, "1.5"), []int{1}},
		{crit("verified", IsNotNull, And), []int{1, 3}},
		{crit("dueAt", GreaterThan, And, "2024-03-06"), []int{5}},
		// IsNull on a non-nullable field is never true.
		{crit("amount", IsNull, And), nil},
		{crit("amount", IsNotNull, And), []int{1, 2, 3, 4, 5}},
	}
	for _, tc := range cases {
		got, err := filterIDs(tc.c)
		require.NoError(t, err, "%s %s", tc.c.Field, tc.c.Operator)
		if tc.want == nil {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, tc.want, got, "%s %s", tc.c.Field, tc.c.Operator)
	}
}

func TestBuildPredicate_NonStringContainsIsMembership(t *testing.T) {
	got, err := filterIDs(crit("count", Contains, And, "2", "5"))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, got)

	got, err = filterIDs(crit("count", NotContains, And, "2", "5"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, got)
}

func TestBuildPredicate_UnsupportedOperator(t *testing.T) {
	cases := []Criterion{
		crit("amount", StartsWith, And, "1"),
		crit("active", GreaterThan, And, "true"),
		crit("id", Between, And, "00000000-0000-0000-0000-000000000001", "00000000-0000-0000-0000-000000000002"),
		crit("count", IsEmpty, And),
		crit("perms", EndsWith, And, "Read"),
		crit("tags", Equal, And, "weekly"),
		crit("bookedAt", IsNullOrWhiteSpace, And),
	}
	for _, c := range cases {
		_, err := filterIDs(c)
		assert.ErrorIs(t, err, ErrUnsupportedOperator, "%s %s", c.Field, c.Operator)
	}
}

func TestBuildPredicate_ValueParseError(t *testing.T) {
	cases := []Criterion{
		crit("amount", Equal, And, "twelve"),
		crit("count", Equal, And, "99999999999"),
		crit("active", Equal, And, "maybe"),
		crit("id", In, And, "00000000-0000-0000-0000-000000000001", "not-a-uuid"),
		crit("delay", Equal, And, "25:00:00"),
		crit("bookedAt", Equal, And, "2024-03-01"),
		crit("dueAt", Between, And, "2024-03-01", "soon"),
		crit("perms", In, And, "Admin"),
	}
	for _, c := range cases {
		_, err := filterIDs(c)
		require.Error(t, err, "%s %s", c.Field, c.Operator)
		assert.ErrorIs(t, err, ErrValueParse, "%s %s", c.Field, c.Operator)
		assert.Equal(t, ValueParseError, KindOf(err))
	}
}

func TestPredicate_Combinators(t *testing.T) {
	even := Predicate[int](func(n int) bool { return n%2 == 0 })
	big := Predicate[int](func(n int) bool { return n > 10 })

	assert.True(t, even.And(big)(12))
	assert.False(t, even.And(big)(8))
	assert.True(t, even.Or(big)(8))
	assert.False(t, even.Not()(8))
	assert.True(t, even.Combine(LogicUnset, big)(12))
	assert.True(t, even.Combine(Or, big)(11))
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "booked_at", columnName("bookedAt"))
	assert.Equal(t, "account_id", columnName("accountID"))
	assert.Equal(t, "id", columnName("ID"))
	assert.Equal(t, "http_status", columnName("HTTPStatus"))
	assert.Equal(t, "amount", columnName("amount"))
}
