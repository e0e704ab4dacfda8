package orm

import (
	"fmt"
	"strings"
)

// JoinType represents different types of SQL joins
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
	RightJoin JoinType = "RIGHT JOIN"
)

// JoinColumn exposes one column of a joined table under Alias.
// Source is the qualified SQL expression, e.g. "owner.name".
type JoinColumn struct {
	Alias  string
	Source string
}

// Join is a static join declared on a schema. Required joins are always
// applied; optional ones only when named in QuerySpec.Include.
type Join struct {
	Name     string
	Type     JoinType
	Table    string
	Alias    string
	On       string
	Columns  []JoinColumn
	Optional bool
}

// ref is the name the joined table is addressed by in SQL
func (j Join) ref() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Table
}

// clause renders the join for squirrel's JoinClause
func (j Join) clause() string {
	joinType := j.Type
	if joinType == "" {
		joinType = InnerJoin
	}

	var sb strings.Builder
	sb.WriteString(string(joinType))
	sb.WriteString(" ")
	sb.WriteString(j.Table)
	if j.Alias != "" && j.Alias != j.Table {
		sb.WriteString(" AS ")
		sb.WriteString(j.Alias)
	}
	sb.WriteString(" ON ")
	sb.WriteString(j.On)
	return sb.String()
}

func (j Join) validate() error {
	if j.Name == "" {
		return fmt.Errorf("join on table %q has no name", j.Table)
	}
	if !isIdentifier(j.Table) {
		return fmt.Errorf("join %s: invalid table %q", j.Name, j.Table)
	}
	if j.Alias != "" && !isIdentifier(j.Alias) {
		return fmt.Errorf("join %s: invalid alias %q", j.Name, j.Alias)
	}
	if strings.TrimSpace(j.On) == "" {
		return fmt.Errorf("join %s: missing ON condition", j.Name)
	}
	switch j.Type {
	case "", InnerJoin, LeftJoin, RightJoin:
	default:
		return fmt.Errorf("join %s: unsupported join type %q", j.Name, j.Type)
	}
	for _, col := range j.Columns {
		if !isIdentifier(col.Alias) {
			return fmt.Errorf("join %s: invalid column alias %q", j.Name, col.Alias)
		}
		if strings.TrimSpace(col.Source) == "" {
			return fmt.Errorf("join %s: column %s has no source", j.Name, col.Alias)
		}
	}
	return nil
}

// activeJoins returns the required joins plus the optional joins named in
// include, in declaration order.
func (s *Schema) activeJoins(include []string) ([]Join, error) {
	requested := make(map[string]bool, len(include))
	for _, name := range include {
		if _, ok := s.join(name); !ok {
			return nil, &ValidationError{Table: s.Table, Field: "include", Message: fmt.Sprintf("unknown join %q", name)}
		}
		requested[name] = true
	}

	var active []Join
	for _, j := range s.Joins {
		if !j.Optional || requested[j.Name] {
			active = append(active, j)
		}
	}
	return active, nil
}

func (s *Schema) join(name string) (Join, bool) {
	for _, j := range s.Joins {
		if j.Name == name {
			return j, true
		}
	}
	return Join{}, false
}
