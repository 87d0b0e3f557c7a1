package compiler

import (
	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/value"
)

// compileQuasiquoteTop compiles a `(quasiquote expr)` form (spec.md
// §4.4). lowerQuasiquote walks the wrapped tree once, producing a
// template value with every unquote at this quasiquote's own nesting
// level replaced by a zero-depth sentinel, plus the list of expressions
// those sentinels stand for, in the same left-to-right order the
// sentinels appear in the template. The template is loaded as a
// constant, each substitution expression is compiled in turn, and a
// single OpQuasiquote instruction reconstructs the final structure at
// runtime.
func (c *Compiler) compileQuasiquoteTop(qq value.Quasiquote) error {
	template, subs, err := lowerQuasiquote(qq.Inner, qq.Depth, false)
	if err != nil {
		return err
	}

	idx := c.addConstant(template)
	c.emit(code.Instr{Op: code.OpConst, A: idx})
	c.push()

	for _, s := range subs {
		if err := c.compileValue(s); err != nil {
			return err
		}
	}
	c.popN(len(subs) + 1) // template + every substitution, consumed by OpQuasiquote
	c.emit(code.Instr{Op: code.OpQuasiquote, A: len(subs)})
	c.push()
	return nil
}

// lowerQuasiquote returns a copy of v suitable for storing as a
// constant template, and the ordered list of substitution expressions
// a depth-matching comma/comma-at contributes. depth (d) is the number
// of enclosing quasiquotes still unresolved at v (starts at the
// quasiquote's own Depth). For a comma/comma-at of wrapper depth n
// (spec.md §4.4): n == d fires a substitution; n > d is an unbalanced
// comma; n < d keeps the node as literal data and recurses into its
// inner at d−n. inList marks whether v is being lowered as a direct
// list item — a depth-matching comma-at is only valid there.
func lowerQuasiquote(v value.Value, depth int, inList bool) (value.Value, []value.Value, error) {
	switch node := v.(type) {
	case value.Comma:
		n := node.Depth
		switch {
		case n > depth:
			return nil, nil, &CompileError{Kind: ErrUnbalancedComma}
		case n == depth:
			return value.Comma{Inner: value.Unit{}, Depth: 0}, []value.Value{node.Inner}, nil
		default:
			inner, subs, err := lowerQuasiquote(node.Inner, depth-n, false)
			if err != nil {
				return nil, nil, err
			}
			return value.Comma{Inner: inner, Depth: n}, subs, nil
		}

	case value.CommaAt:
		n := node.Depth
		switch {
		case n > depth:
			return nil, nil, &CompileError{Kind: ErrUnbalancedComma}
		case n == depth:
			if !inList {
				return nil, nil, &CompileError{Kind: ErrInvalidCommaAt}
			}
			return value.CommaAt{Inner: value.Unit{}, Depth: 0}, []value.Value{node.Inner}, nil
		default:
			inner, subs, err := lowerQuasiquote(node.Inner, depth-n, false)
			if err != nil {
				return nil, nil, err
			}
			return value.CommaAt{Inner: inner, Depth: n}, subs, nil
		}

	case value.Quasiquote:
		inner, subs, err := lowerQuasiquote(node.Inner, depth+node.Depth, false)
		if err != nil {
			return nil, nil, err
		}
		return value.Quasiquote{Inner: inner, Depth: node.Depth}, subs, nil

	case value.List:
		items := make([]value.Value, len(node.Items))
		var subs []value.Value
		for i, it := range node.Items {
			t, s, err := lowerQuasiquote(it, depth, true)
			if err != nil {
				return nil, nil, err
			}
			items[i] = t
			subs = append(subs, s...)
		}
		return value.List{Items: items, Pos: node.Pos}, subs, nil

	default:
		return v, nil, nil
	}
}
