package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ChangeEpsilon is the tolerance below which two numbers count as equal.
const ChangeEpsilon = 1e-9

// ChangeMask compares two snapshots of a column. Entry i is true when exactly
// one of before[i], after[i] is null, or both are numbers differing by more
// than ChangeEpsilon. Non-numeric values compare as text. A missing position
// in the shorter slice counts as null.
func ChangeMask(before, after []any) []bool {
	n := max(len(before), len(after))
	out := make([]bool, n)
	for i := range n {
		var b, a any
		if i < len(before) {
			b = before[i]
		}
		if i < len(after) {
			a = after[i]
		}
		out[i] = valueChanged(b, a)
	}
	return out
}

// AnyChanged ORs several masks of equal meaning into one.
func AnyChanged(masks ...[]bool) []bool {
	n := 0
	for _, m := range masks {
		n = max(n, len(m))
	}
	out := make([]bool, n)
	for _, m := range masks {
		for i, changed := range m {
			out[i] = out[i] || changed
		}
	}
	return out
}

func valueChanged(before, after any) bool {
	bn, an := IsNull(before), IsNull(after)
	if bn || an {
		return bn != an
	}
	fb, okb := ParseNumeric(before)
	fa, oka := ParseNumeric(after)
	if okb && oka {
		return math.Abs(fb-fa) > ChangeEpsilon
	}
	return strings.TrimSpace(toText(before)) != strings.TrimSpace(toText(after))
}

// FieldChange is one before/after pair in a ChangeEvent.
type FieldChange struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// ChangeEvent describes one workbook row whose capacity values moved.
type ChangeEvent struct {
	ID           string                 `json:"id"`
	RunID        string                 `json:"run_id"`
	Substation   string                 `json:"substation"`
	Municipality string                 `json:"municipality,omitempty"`
	District     string                 `json:"district,omitempty"`
	Match        string                 `json:"match"`
	Changes      map[string]FieldChange `json:"changes"`
	ProcessedAt  time.Time              `json:"processed_at"`
}

// NewChangeEvent stamps a change with the current time and a deterministic ID
// derived from the row's canonical key, so replays of the same row collapse.
func NewChangeEvent(runID, substation, municipality, district string, match MatchKind, changes map[string]FieldChange) ChangeEvent {
	return ChangeEvent{
		ID:           changeID(substation, municipality, district),
		RunID:        runID,
		Substation:   substation,
		Municipality: municipality,
		District:     district,
		Match:        match.String(),
		Changes:      changes,
		ProcessedAt:  clock.Now().UTC(),
	}
}

func changeID(substation, municipality, district string) string {
	input := fmt.Sprintf("%s|%s|%s", NormalizeName(substation), NormalizeName(municipality), NormalizeName(district))
	hash := sha256.Sum256([]byte(input))
	return "substation-" + hex.EncodeToString(hash[:8])
}

// Marshal serializes the event as JSON.
func (e ChangeEvent) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("serialize change event: %w", err)
	}
	return data, nil
}
