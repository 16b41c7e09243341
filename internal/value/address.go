package value

import "fmt"

// addrStep decodes one part of an address table: either an attr name
// (Str or Sym) or an index (I32).
func addrStep(part Expression) (name string, idx int, isIndex bool, err error) {
	switch v := part.(type) {
	case Str:
		return v.Val, 0, false, nil
	case Sym:
		return v.Name, 0, false, nil
	case I32:
		return "", int(v.Val), true, nil
	default:
		return "", 0, false, fmt.Errorf("value: address: step must be a string or int, got %s", KindName(part))
	}
}

func addrParts(addr Expression) ([]Expression, error) {
	t, ok := addr.(Table)
	if !ok {
		if IsEmpty(addr) {
			return nil, nil
		}
		return nil, fmt.Errorf("value: address: addr must be a Table")
	}
	return t.Parts.Slice(), nil
}

// Address resolves addr (a Table of attr-name/index steps) against e,
// applying each step left to right.
func Address(e Expression, addr Expression) (Expression, error) {
	steps, err := addrParts(addr)
	if err != nil {
		return nil, err
	}
	cur := e
	for _, step := range steps {
		name, idx, isIndex, err := addrStep(step)
		if err != nil {
			return nil, err
		}
		if isIndex {
			v, err := At(cur, idx)
			if err != nil {
				return nil, err
			}
			cur = v
		} else {
			cur = Attr(cur, name)
		}
	}
	return cur, nil
}

// With returns a copy of e with the value at addr replaced by v,
// creating intermediate Tables as needed.
func With(e Expression, addr Expression, v Expression) (Expression, error) {
	steps, err := addrParts(addr)
	if err != nil {
		return nil, err
	}
	return withSteps(e, steps, v)
}

func withSteps(e Expression, steps []Expression, v Expression) (Expression, error) {
	if len(steps) == 0 {
		return v, nil
	}
	name, idx, isIndex, err := addrStep(steps[0])
	if err != nil {
		return nil, err
	}
	if isIndex {
		child := Part(e, idx)
		newChild, err := withSteps(child, steps[1:], v)
		if err != nil {
			return nil, err
		}
		return WithPart(e, idx, newChild), nil
	}
	child := Attr(e, name)
	newChild, err := withSteps(child, steps[1:], v)
	if err != nil {
		return nil, err
	}
	return WithAttr(e, name, newChild), nil
}

// Without returns a copy of e with the value at addr removed.
func Without(e Expression, addr Expression) (Expression, error) {
	steps, err := addrParts(addr)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return e, nil
	}
	if len(steps) == 1 {
		name, idx, isIndex, err := addrStep(steps[0])
		if err != nil {
			return nil, err
		}
		if isIndex {
			return WithoutPart(e, idx), nil
		}
		return WithoutAttr(e, name), nil
	}
	name, idx, isIndex, err := addrStep(steps[0])
	if err != nil {
		return nil, err
	}
	if isIndex {
		child := Part(e, idx)
		newChild, err := Without(child, NewTable(steps[1:]...))
		if err != nil {
			return nil, err
		}
		return WithPart(e, idx, newChild), nil
	}
	child := Attr(e, name)
	newChild, err := Without(child, NewTable(steps[1:]...))
	if err != nil {
		return nil, err
	}
	return WithAttr(e, name, newChild), nil
}
