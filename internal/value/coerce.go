package value

import "strconv"

// Bool coerces e to bool per the §6.2 coercion table.
func Bool(e Expression) bool {
	switch v := e.(type) {
	case None:
		return false
	case I32:
		return v.Val != 0
	case F64:
		return v.Val != 0
	case Str:
		return v.Val != ""
	case Sym:
		return v.Name != ""
	case Data:
		return true
	case Func:
		return true
	case Table:
		return !IsEmpty(e)
	default:
		return false
	}
}

// Int coerces e to int32 per the §6.2 coercion table.
func Int(e Expression) int32 {
	switch v := e.(type) {
	case None:
		return 0
	case I32:
		return v.Val
	case F64:
		return int32(v.Val)
	case Str:
		n, err := strconv.ParseInt(v.Val, 10, 32)
		if err != nil {
			return 0
		}
		return int32(n)
	case Sym, Data, Func, Table:
		return 0
	default:
		return 0
	}
}

// Float coerces e to float64 per the §6.2 coercion table.
func Float(e Expression) float64 {
	switch v := e.(type) {
	case None:
		return 0
	case I32:
		return float64(v.Val)
	case F64:
		return v.Val
	case Str:
		f, err := strconv.ParseFloat(v.Val, 64)
		if err != nil {
			return 0
		}
		return f
	case Sym, Data, Func, Table:
		return 0
	default:
		return 0
	}
}

// String coerces e to string per the §6.2 coercion table.
func String(e Expression) string {
	switch v := e.(type) {
	case None:
		return "()"
	case I32:
		return strconv.FormatInt(int64(v.Val), 10)
	case F64:
		return formatFloat(v.Val)
	case Str:
		return v.Val
	case Sym:
		return v.Name
	case Data:
		if v.Handle == nil {
			return "()"
		}
		return v.Handle.TypeName()
	case Func:
		return "<func>"
	case Table:
		return Unparse(e)
	default:
		return ""
	}
}
