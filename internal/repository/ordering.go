package repository

import (
	"strings"

	"gorm.io/gorm/clause"
)

// OrderSpec is a parsed ?ordering= value.
type OrderSpec struct {
	Field string
	Desc  bool
}

// ParseOrdering resolves raw ("-name", "created_at") against the allowed
// fields. Unknown fields fall back to def.
func ParseOrdering(raw string, allowed []string, def string) OrderSpec {
	if order, ok := parseOrdering(raw, allowed); ok {
		return order
	}
	order, _ := parseOrdering(def, nil)
	return order
}

func parseOrdering(raw string, allowed []string) (OrderSpec, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return OrderSpec{}, false
	}
	order := OrderSpec{Field: raw}
	if strings.HasPrefix(raw, "-") {
		order.Desc = true
		order.Field = raw[1:]
	}
	if allowed == nil {
		return order, order.Field != ""
	}
	for _, f := range allowed {
		if f == order.Field {
			return order, true
		}
	}
	return OrderSpec{}, false
}

func (o OrderSpec) clause() clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Desc}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
