package orm

import (
	"fmt"
	"regexp"
)

// JSONShape is the declared shape of a JSON column, used when a stored
// value cannot be decoded.
type JSONShape int

const (
	JSONObject JSONShape = iota
	JSONArray
)

// Default returns the empty value for the shape
func (s JSONShape) Default() interface{} {
	if s == JSONArray {
		return []interface{}{}
	}
	return map[string]interface{}{}
}

func (s JSONShape) String() string {
	if s == JSONArray {
		return "array"
	}
	return "object"
}

// Schema is the static metadata of one entity. Column names double as the
// field allow-list: nothing outside Columns, join aliases and computed
// aliases ever reaches SQL text.
type Schema struct {
	Table        string
	PrimaryKey   string
	Columns      []string
	JSONColumns  map[string]JSONShape
	Joins        []Join
	DefaultOrder []OrderTerm
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Validate checks the schema for internal consistency
func (s *Schema) Validate() error {
	if !isIdentifier(s.Table) {
		return fmt.Errorf("schema: invalid table name %q", s.Table)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema %s: no columns", s.Table)
	}

	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if !isIdentifier(col) {
			return fmt.Errorf("schema %s: invalid column name %q", s.Table, col)
		}
		if seen[col] {
			return fmt.Errorf("schema %s: duplicate column %q", s.Table, col)
		}
		seen[col] = true
	}

	if !seen[s.PrimaryKey] {
		return fmt.Errorf("schema %s: primary key %q is not a column", s.Table, s.PrimaryKey)
	}

	for col := range s.JSONColumns {
		if !seen[col] {
			return fmt.Errorf("schema %s: JSON column %q is not a column", s.Table, col)
		}
	}

	joinNames := make(map[string]bool, len(s.Joins))
	for _, j := range s.Joins {
		if err := j.validate(); err != nil {
			return fmt.Errorf("schema %s: %w", s.Table, err)
		}
		if joinNames[j.Name] {
			return fmt.Errorf("schema %s: duplicate join %q", s.Table, j.Name)
		}
		joinNames[j.Name] = true

		for _, col := range j.Columns {
			if seen[col.Alias] {
				return fmt.Errorf("schema %s: join %s alias %q collides with a column", s.Table, j.Name, col.Alias)
			}
			seen[col.Alias] = true
		}
	}

	for _, term := range s.DefaultOrder {
		if !seen[term.Column] {
			return fmt.Errorf("schema %s: default order column %q is not declared", s.Table, term.Column)
		}
		if term.Direction != Asc && term.Direction != Desc {
			return fmt.Errorf("schema %s: invalid default order direction %q", s.Table, term.Direction)
		}
	}

	return nil
}

// HasColumn reports whether column is a declared base column
func (s *Schema) HasColumn(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// IsJSON reports whether column holds JSON text
func (s *Schema) IsJSON(column string) bool {
	_, ok := s.JSONColumns[column]
	return ok
}

// column returns the SQL expression for a base column, qualified with
// the table name when joins are present.
func (s *Schema) column(name string, qualified bool) string {
	if qualified {
		return s.Table + "." + name
	}
	return name
}

// fields builds the allow-list used to resolve condition and order
// fields: base columns, aliases of the active joins, then computed
// aliases.
func (s *Schema) fields(joins []Join, computed []Computed) map[string]string {
	qualified := len(joins) > 0
	out := make(map[string]string, len(s.Columns))

	for _, col := range s.Columns {
		out[col] = s.column(col, qualified)
	}
	for _, j := range joins {
		for _, col := range j.Columns {
			if _, exists := out[col.Alias]; !exists {
				out[col.Alias] = col.Source
			}
		}
	}
	for _, c := range computed {
		if _, exists := out[c.Alias]; !exists {
			out[c.Alias] = c.Alias
		}
	}
	return out
}
