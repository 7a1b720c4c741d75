package domain

import "strings"

// KeyColumn names the column holding one key component on each side of a merge.
// An empty name means the component is absent on that side.
type KeyColumn struct {
	Primary   string
	Secondary string
}

// TargetColumn names a column that receives the matched secondary value.
type TargetColumn struct {
	Primary   string
	Secondary string
}

// MergeSpec configures MergeByKey. Keys form the exact-match tuple, in order;
// Fallback is the single looser key tried when the tuple misses.
type MergeSpec struct {
	Keys     []KeyColumn
	Fallback KeyColumn
	Targets  []TargetColumn
}

// MatchKind records how a primary row was matched.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchFallback
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Match is the outcome for one primary row. SecondaryRow is -1 when unmatched.
type Match struct {
	Kind         MatchKind
	SecondaryRow int
}

// MergeResult holds the merged copy of the primary table and one Match per row.
type MergeResult struct {
	Table   *Table
	Matches []Match
}

// Count returns how many primary rows matched with kind.
func (r MergeResult) Count(kind MatchKind) int {
	n := 0
	for _, m := range r.Matches {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// Unmatched returns the indices of primary rows with no secondary match.
func (r MergeResult) Unmatched() []int {
	var out []int
	for i, m := range r.Matches {
		if m.Kind == MatchNone {
			out = append(out, i)
		}
	}
	return out
}

// keySep joins tuple components; canonical keys never contain it.
const keySep = "\x1f"

// MergeByKey left-joins secondary into a copy of primary. Each primary row is
// matched on the full Keys tuple first and, only if that misses, on the
// Fallback key. Secondary rows are deduplicated by first occurrence. On a match
// the Targets are overwritten with the secondary values; null secondary values
// leave the primary cell alone. Secondary rows without a primary row are
// dropped. Neither input is modified.
func MergeByKey(primary, secondary *Table, spec MergeSpec) MergeResult {
	out := primary.Clone()
	matches := make([]Match, out.Len())

	exact := make(map[string]int)
	loose := make(map[string]int)
	for j, r := range secondary.Rows {
		if k, ok := tupleKey(r, spec.Keys, false); ok {
			if _, seen := exact[k]; !seen {
				exact[k] = j
			}
		}
		if k := fallbackKey(r, spec.Fallback.Secondary); k != "" {
			if _, seen := loose[k]; !seen {
				loose[k] = j
			}
		}
	}

	for i, r := range out.Rows {
		matches[i] = Match{Kind: MatchNone, SecondaryRow: -1}

		if k, ok := tupleKey(r, spec.Keys, true); ok {
			if j, found := exact[k]; found {
				matches[i] = Match{Kind: MatchExact, SecondaryRow: j}
			}
		}
		if matches[i].Kind == MatchNone {
			if k := fallbackKey(r, spec.Fallback.Primary); k != "" {
				if j, found := loose[k]; found {
					matches[i] = Match{Kind: MatchFallback, SecondaryRow: j}
				}
			}
		}
		if matches[i].Kind == MatchNone {
			continue
		}

		src := secondary.Rows[matches[i].SecondaryRow]
		for _, t := range spec.Targets {
			v := src[t.Secondary]
			if IsNull(v) {
				continue
			}
			if f, ok := ParseNumeric(v); ok {
				v = f
			}
			out.Set(i, t.Primary, v)
		}
	}

	return MergeResult{Table: out, Matches: matches}
}

// tupleKey builds the exact-match key for a row. Any empty component makes the
// row ineligible for the exact join.
func tupleKey(r Record, keys []KeyColumn, primary bool) (string, bool) {
	if len(keys) == 0 {
		return "", false
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		col := k.Secondary
		if primary {
			col = k.Primary
		}
		if col == "" {
			return "", false
		}
		p := NormalizeName(r[col])
		if p == "" {
			return "", false
		}
		parts[i] = p
	}
	return strings.Join(parts, keySep), true
}

func fallbackKey(r Record, col string) string {
	if col == "" {
		return ""
	}
	return NormalizeName(r[col])
}
