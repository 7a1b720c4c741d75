package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var substationMerge = MergeSpec{
	Keys: []KeyColumn{
		{Primary: "Substation", Secondary: "instalacao"},
		{Primary: "Municipality", Secondary: "municipio"},
		{Primary: "District", Secondary: "distrito"},
	},
	Fallback: KeyColumn{Primary: "Substation", Secondary: "instalacao"},
	Targets: []TargetColumn{
		{Primary: "Capacity", Secondary: "capacidade"},
		{Primary: "Available", Secondary: "capacidade_disponivel"},
	},
}

func workbookTable(rows ...Record) *Table {
	t := NewTable("Substations", "Substation", "Municipality", "District", "Capacity", "Available", "Notes")
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func apiTable(rows ...Record) *Table {
	t := NewTable("api", "instalacao", "municipio", "distrito", "capacidade", "capacidade_disponivel")
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func TestMergeByKey_ExactMatch(t *testing.T) {
	primary := workbookTable(Record{
		"Substation": "Zamora (ES)", "Municipality": "Évora", "District": "Évora",
		"Capacity": 10.0, "Available": 2.0, "Notes": "keep me",
	})
	secondary := apiTable(Record{
		"instalacao": "ZAMORA", "municipio": "EVORA", "distrito": "evora",
		"capacidade": "12,5", "capacidade_disponivel": 3.0,
	})

	res := MergeByKey(primary, secondary, substationMerge)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, Match{Kind: MatchExact, SecondaryRow: 0}, res.Matches[0])
	row := res.Table.Rows[0]
	assert.Equal(t, 12.5, row["Capacity"])
	assert.Equal(t, 3.0, row["Available"])
	assert.Equal(t, "keep me", row["Notes"])
	assert.Equal(t, "Zamora (ES)", row["Substation"])
}

func TestMergeByKey_ExactNeverFallsBack(t *testing.T) {
	primary := workbookTable(Record{"Substation": "Sines", "Municipality": "Sines", "District": "Setúbal"})
	secondary := apiTable(
		// same name in another municipality, listed first: the fallback target
		Record{"instalacao": "Sines", "municipio": "Other", "distrito": "Other", "capacidade": 1.0},
		Record{"instalacao": "SINES", "municipio": "SINES", "distrito": "SETUBAL", "capacidade": 2.0},
	)

	res := MergeByKey(primary, secondary, substationMerge)

	assert.Equal(t, Match{Kind: MatchExact, SecondaryRow: 1}, res.Matches[0])
	assert.Equal(t, 2.0, res.Table.Rows[0]["Capacity"])
}

func TestMergeByKey_FallbackFirstOccurrence(t *testing.T) {
	primary := workbookTable(Record{"Substation": "Prelada", "Municipality": "Porto", "District": ""})
	secondary := apiTable(
		Record{"instalacao": "PRELADA", "municipio": "X", "distrito": "Y", "capacidade": 7.0},
		Record{"instalacao": "Prelada", "municipio": "Z", "distrito": "W", "capacidade": 9.0},
	)

	res := MergeByKey(primary, secondary, substationMerge)

	assert.Equal(t, Match{Kind: MatchFallback, SecondaryRow: 0}, res.Matches[0])
	assert.Equal(t, 7.0, res.Table.Rows[0]["Capacity"])
	assert.Equal(t, 1, res.Count(MatchFallback))
}

func TestMergeByKey_EmptyKeysNeverMatch(t *testing.T) {
	primary := workbookTable(
		Record{"Substation": "", "Municipality": "", "District": "", "Capacity": 1.0},
		Record{"Substation": "(n/a)", "Capacity": 2.0},
	)
	secondary := apiTable(Record{"instalacao": "", "municipio": "", "distrito": "", "capacidade": 99.0})

	res := MergeByKey(primary, secondary, substationMerge)

	assert.Equal(t, []int{0, 1}, res.Unmatched())
	assert.Equal(t, 1.0, res.Table.Rows[0]["Capacity"])
	assert.Equal(t, 2.0, res.Table.Rows[1]["Capacity"])
}

func TestMergeByKey_NullTargetKeepsPrimary(t *testing.T) {
	primary := workbookTable(Record{"Substation": "Vermoim", "Municipality": "Maia", "District": "Porto", "Capacity": 30.0, "Available": 4.0})
	secondary := apiTable(Record{"instalacao": "Vermoim", "municipio": "Maia", "distrito": "Porto", "capacidade": nil, "capacidade_disponivel": " "})

	res := MergeByKey(primary, secondary, substationMerge)

	assert.Equal(t, MatchExact, res.Matches[0].Kind)
	assert.Equal(t, 30.0, res.Table.Rows[0]["Capacity"])
	assert.Equal(t, 4.0, res.Table.Rows[0]["Available"])
}

func TestMergeByKey_NonNumericTargetStoredRaw(t *testing.T) {
	primary := workbookTable(Record{"Substation": "Vermoim", "Municipality": "Maia", "District": "Porto"})
	secondary := apiTable(Record{"instalacao": "Vermoim", "municipio": "Maia", "distrito": "Porto", "capacidade": "n/d"})

	res := MergeByKey(primary, secondary, substationMerge)

	assert.Equal(t, "n/d", res.Table.Rows[0]["Capacity"])
}

func TestMergeByKey_SecondaryOnlyRowsDropped(t *testing.T) {
	primary := workbookTable(Record{"Substation": "Vermoim", "Municipality": "Maia", "District": "Porto"})
	secondary := apiTable(
		Record{"instalacao": "Vermoim", "municipio": "Maia", "distrito": "Porto", "capacidade": 1.0},
		Record{"instalacao": "Extra", "municipio": "Maia", "distrito": "Porto", "capacidade": 2.0},
	)

	res := MergeByKey(primary, secondary, substationMerge)

	assert.Equal(t, 1, res.Table.Len())
}

func TestMergeByKey_InputsUnmodified(t *testing.T) {
	primary := workbookTable(Record{"Substation": "Vermoim", "Municipality": "Maia", "District": "Porto", "Capacity": 1.0})
	secondary := apiTable(Record{"instalacao": "Vermoim", "municipio": "Maia", "distrito": "Porto", "capacidade": 5.0, "capacidade_disponivel": 1.0})
	before := primary.Clone()
	secondaryBefore := secondary.Clone()

	res := MergeByKey(primary, secondary, substationMerge)

	if diff := cmp.Diff(before, primary); diff != "" {
		t.Errorf("primary modified (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(secondaryBefore, secondary); diff != "" {
		t.Errorf("secondary modified (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5.0, res.Table.Rows[0]["Capacity"])
}

func TestMergeByKey_TargetColumnAddedWhenMissing(t *testing.T) {
	primary := NewTable("Substations", "Substation", "Municipality", "District")
	primary.Append(Record{"Substation": "Vermoim", "Municipality": "Maia", "District": "Porto"})
	secondary := apiTable(Record{"instalacao": "Vermoim", "municipio": "Maia", "distrito": "Porto", "capacidade": 5.0})

	res := MergeByKey(primary, secondary, substationMerge)

	assert.True(t, res.Table.HasColumn("Capacity"))
	assert.False(t, primary.HasColumn("Capacity"))
}

func TestMergeByKey_Idempotent(t *testing.T) {
	primary := workbookTable(
		Record{"Substation": "Zamora (ES)", "Municipality": "Évora", "District": "Évora", "Capacity": 10.0, "Available": 2.0},
		Record{"Substation": "Prelada", "Municipality": "Porto", "District": "Porto", "Capacity": 5.0, "Available": 1.0},
		Record{"Substation": "Unknown", "Municipality": "Nowhere", "District": "Nowhere", "Capacity": 3.0},
	)
	secondary := apiTable(
		Record{"instalacao": "ZAMORA", "municipio": "EVORA", "distrito": "EVORA", "capacidade": "12,5", "capacidade_disponivel": "3"},
		Record{"instalacao": "PRELADA", "municipio": "MATOSINHOS", "distrito": "PORTO", "capacidade": 6.0, "capacidade_disponivel": 0.0},
	)

	first := MergeByKey(primary, secondary, substationMerge)
	second := MergeByKey(first.Table, secondary, substationMerge)

	for _, col := range []string{"Capacity", "Available"} {
		mask := ChangeMask(first.Table.Column(col), second.Table.Column(col))
		assert.Equal(t, []bool{false, false, false}, mask, col)
	}
	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, 1, first.Count(MatchExact))
	assert.Equal(t, 1, first.Count(MatchFallback))
	assert.Equal(t, []int{2}, first.Unmatched())
}

func TestMatchKind_String(t *testing.T) {
	assert.Equal(t, "none", MatchNone.String())
	assert.Equal(t, "exact", MatchExact.String())
	assert.Equal(t, "fallback", MatchFallback.String())
}
