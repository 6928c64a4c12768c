package util

// Stack is a LIFO used for strictly nested state (loop targets, lowering contexts)
type Stack[A any] struct {
	items []A
}

func (s *Stack[A]) Push(v A) {
	s.items = append(s.items, v)
}

func (s *Stack[A]) Pop() (ret A, ok bool) {
	if len(s.items) <= 0 {
		return ret, false
	}
	lastIndex := len(s.items) - 1
	ret = s.items[lastIndex]
	s.items = s.items[:lastIndex]
	return ret, true
}

// Peek returns the top of the stack without removing it
func (s *Stack[A]) Peek() (ret A, ok bool) {
	if len(s.items) <= 0 {
		return ret, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack[A]) Len() int { return len(s.items) }

func (s *Stack[A]) PopAll() []A {
	defer func() {
		s.items = make([]A, 0)
	}()
	return s.items
}
