package vm

import "github.com/emberlisp/ember/value"

// requote wraps v in one more quote level: a Quote gets its depth
// raised by one, anything else becomes a depth-1 Quote. It backs
// OpQuote, which package compiler does not emit (quote forms load
// their constant through OpConst).
func requote(v value.Value) value.Value {
	if q, ok := v.(value.Quote); ok {
		return value.Quote{Inner: q.Inner, Depth: q.Depth + 1}
	}
	return value.Quote{Inner: v, Depth: 1}
}

// reconstructQuasiquote rebuilds the structure compiler/quasiquote.go's
// lowerQuasiquote flattened: template is a copy of the quasiquoted tree
// with every depth-1 comma/comma-at replaced by a zero-depth sentinel
// (Comma{Inner: Unit{}, Depth: 0} or the CommaAt equivalent); subs holds
// the already-evaluated substitution values, in the same left-to-right
// order the sentinels appear in template. A comma sentinel substitutes
// its single value in place; a comma-at sentinel splices its value's
// list elements into the surrounding list, matching how ,@ is only ever
// meaningful as a direct list member (spec.md §4.4).
func reconstructQuasiquote(template value.Value, subs []value.Value) value.Value {
	next := 0
	return rebuild(template, subs, &next)
}

func rebuild(v value.Value, subs []value.Value, next *int) value.Value {
	switch node := v.(type) {
	case value.Comma:
		if node.Depth == 0 {
			sub := subs[*next]
			*next++
			return sub
		}
		return value.Comma{Inner: rebuild(node.Inner, subs, next), Depth: node.Depth}

	case value.CommaAt:
		if node.Depth == 0 {
			sub := subs[*next]
			*next++
			return sub
		}
		return value.CommaAt{Inner: rebuild(node.Inner, subs, next), Depth: node.Depth}

	case value.Quasiquote:
		return value.Quasiquote{Inner: rebuild(node.Inner, subs, next), Depth: node.Depth}

	case value.List:
		var items []value.Value
		for _, it := range node.Items {
			if ca, ok := it.(value.CommaAt); ok && ca.Depth == 0 {
				sub := subs[*next]
				*next++
				if l, ok := sub.(value.List); ok {
					items = append(items, l.Items...)
				} else {
					items = append(items, sub)
				}
				continue
			}
			items = append(items, rebuild(it, subs, next))
		}
		return value.List{Items: items, Pos: node.Pos}

	default:
		return v
	}
}
