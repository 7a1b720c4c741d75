package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrColumnNotFound is returned when a required field has no matching column.
var ErrColumnNotFound = errors.New("column not found")

// Logical fields shared by the API and workbook alias sets.
const (
	FieldSubstation   = "substation"
	FieldMunicipality = "municipality"
	FieldDistrict     = "district"
	FieldCapacity     = "capacity"
	FieldAvailable    = "available_capacity"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
	FieldEasting      = "easting"
	FieldNorthing     = "northing"
)

// ColumnAlias lists, in priority order, the header names a field may appear
// under.
type ColumnAlias struct {
	Field      string   `yaml:"field"`
	Candidates []string `yaml:"candidates"`
	Required   bool     `yaml:"required"`
}

// ColumnMap maps a logical field to the resolved header name.
type ColumnMap map[string]string

// Get returns the column for field, or "" when it was not resolved.
func (m ColumnMap) Get(field string) string {
	return m[field]
}

// ResolveColumns picks a column for every alias. A case-insensitive exact
// match on any candidate wins; failing that, the first column containing a
// candidate as a substring. Missing required fields yield ErrColumnNotFound.
func ResolveColumns(columns []string, aliases []ColumnAlias) (ColumnMap, error) {
	out := make(ColumnMap, len(aliases))
	var missing []string
	for _, a := range aliases {
		if col := pickColumn(columns, a.Candidates); col != "" {
			out[a.Field] = col
			continue
		}
		if a.Required {
			missing = append(missing, a.Field)
		}
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("%w: %s (available: %s)", ErrColumnNotFound,
			strings.Join(missing, ", "), strings.Join(columns, ", "))
	}
	return out, nil
}

func pickColumn(columns, candidates []string) string {
	lower := make(map[string]string, len(columns))
	for _, c := range columns {
		k := strings.ToLower(c)
		if _, seen := lower[k]; !seen {
			lower[k] = c
		}
	}
	for _, cand := range candidates {
		if c, ok := lower[strings.ToLower(cand)]; ok {
			return c
		}
	}
	for _, cand := range candidates {
		lc := strings.ToLower(cand)
		for _, c := range columns {
			if strings.Contains(strings.ToLower(c), lc) {
				return c
			}
		}
	}
	return ""
}

// AliasSet holds the alias lists for both sides of the substation merge.
type AliasSet struct {
	API      []ColumnAlias `yaml:"api"`
	Workbook []ColumnAlias `yaml:"workbook"`
}

// DefaultAliases returns the aliases for the E-REDES capacity dataset and the
// substation workbook.
func DefaultAliases() AliasSet {
	return AliasSet{
		API: []ColumnAlias{
			{Field: FieldSubstation, Candidates: []string{"instalacao", "substation", "nome", "designacao", "station", "installation"}, Required: true},
			{Field: FieldMunicipality, Candidates: []string{"municipio", "municipality", "concelho"}},
			{Field: FieldDistrict, Candidates: []string{"distrito", "district"}},
			{Field: FieldCapacity, Candidates: []string{"capacity", "capacidade"}, Required: true},
			{Field: FieldAvailable, Candidates: []string{"available_capacity", "capacidade_disponivel", "capacidade disponivel", "available"}, Required: true},
		},
		Workbook: []ColumnAlias{
			{Field: FieldSubstation, Candidates: []string{"Substation", "Subestacao", "Subestação"}, Required: true},
			{Field: FieldMunicipality, Candidates: []string{"Municipality", "Municipio", "Município", "Concelho"}, Required: true},
			{Field: FieldDistrict, Candidates: []string{"District", "Distrito"}, Required: true},
			{Field: FieldCapacity, Candidates: []string{"Capacity", "Capacidade"}, Required: true},
			{Field: FieldAvailable, Candidates: []string{"Available Capacity", "Capacidade Disponivel", "Capacidade Disponível", "Available"}, Required: true},
			{Field: FieldLatitude, Candidates: []string{"Latitude", "Lat"}, Required: true},
			{Field: FieldLongitude, Candidates: []string{"Longitude", "Lon"}, Required: true},
			{Field: FieldEasting, Candidates: []string{"Easting", "UTM X", "Coord X"}},
			{Field: FieldNorthing, Candidates: []string{"Northing", "UTM Y", "Coord Y"}},
		},
	}
}

// Override replaces the candidates of every field named in o, keeping the
// defaults for the rest. Fields only present in o are appended.
func (s AliasSet) Override(o AliasSet) AliasSet {
	return AliasSet{
		API:      overrideAliases(s.API, o.API),
		Workbook: overrideAliases(s.Workbook, o.Workbook),
	}
}

func overrideAliases(base, over []ColumnAlias) []ColumnAlias {
	out := append([]ColumnAlias(nil), base...)
	for _, o := range over {
		replaced := false
		for i := range out {
			if out[i].Field == o.Field {
				out[i].Candidates = o.Candidates
				out[i].Required = out[i].Required || o.Required
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}
