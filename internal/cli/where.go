package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eleven-am/dishdb/pkg/orm"
)

// ParseWhereFlags turns --where flags into conditions. Accepted forms:
//
//	field=value     equality
//	field=null      IS NULL
//	field:in=a,b    IN list
//	field:gte=4     operator (gte, lte, gt, lt, like, notLike)
//
// Values that parse as integers, floats or booleans are passed typed;
// wrap a value in double quotes to keep it a string.
func ParseWhereFlags(flags []string) (*orm.Where, error) {
	where := orm.NewWhere()
	for _, flag := range flags {
		field, expr, err := parseWhereFlag(flag)
		if err != nil {
			return nil, err
		}
		where.Add(field, expr)
	}
	return where, nil
}

func parseWhereFlag(flag string) (string, orm.ValueExpr, error) {
	key, raw, ok := strings.Cut(flag, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", orm.ValueExpr{}, fmt.Errorf("invalid where %q: expected field=value", flag)
	}

	field, op, hasOp := strings.Cut(strings.TrimSpace(key), ":")
	if field == "" {
		return "", orm.ValueExpr{}, fmt.Errorf("invalid where %q: missing field", flag)
	}
	if !hasOp {
		if strings.EqualFold(raw, "null") {
			return field, orm.Null(), nil
		}
		return field, orm.Lit(parseValue(raw)), nil
	}

	switch op {
	case "in":
		parts := strings.Split(raw, ",")
		values := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, parseValue(p))
			}
		}
		return field, orm.List(values...), nil
	case "eq":
		return field, orm.Lit(parseValue(raw)), nil
	case string(orm.OpGte), string(orm.OpLte), string(orm.OpGt), string(orm.OpLt),
		string(orm.OpLike), string(orm.OpNotLike):
		return field, orm.Op(orm.Operator(op), parseValue(raw)), nil
	default:
		return "", orm.ValueExpr{}, fmt.Errorf("invalid where %q: unknown operator %q", flag, op)
	}
}

func parseValue(raw string) interface{} {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	return raw
}
