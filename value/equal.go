package value

// Equal reports whether a and b are structurally identical, used by the
// constant pool (compiler/compiler.go's addConstant) to de-duplicate
// entries and by the VM's `eq`/`/=` and EqConst comparisons. Function,
// lambda and struct-definition values always compare unequal, even to
// themselves.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Unit:
		return true
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Ratio:
		bv := b.(Ratio)
		return av.Num == bv.Num && av.Den == bv.Den
	case Float:
		return av == b.(Float)
	case Char:
		return av == b.(Char)
	case String:
		return av == b.(String)
	case Keyword:
		return av == b.(Keyword)
	case NameVal:
		return av.Name == b.(NameVal).Name
	case List:
		bv := b.(List)
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case Quote:
		bv := b.(Quote)
		return av.Depth == bv.Depth && Equal(av.Inner, bv.Inner)
	case Quasiquote:
		bv := b.(Quasiquote)
		return av.Depth == bv.Depth && Equal(av.Inner, bv.Inner)
	case Comma:
		bv := b.(Comma)
		return av.Depth == bv.Depth && Equal(av.Inner, bv.Inner)
	case CommaAt:
		bv := b.(CommaAt)
		return av.Depth == bv.Depth && Equal(av.Inner, bv.Inner)
	default:
		return false
	}
}
