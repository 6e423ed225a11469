package kvschema

// ListType describes a list of elements of type T.
type ListType[T any] struct {
	d    desc
	elem Typed[T]
}

func List[T any](elem Typed[T]) ListType[T] {
	return ListType[T]{d: desc{kind: KindList, runtime: elem.RuntimeKind()}, elem: elem}
}

func (l ListType[T]) StoreKind() StoreKind     { return l.d.kind }
func (l ListType[T]) RuntimeKind() RuntimeKind { return l.d.runtime }
func (l ListType[T]) Info() Info               { return l.d.snapshot() }
func (l ListType[T]) core() *desc              { return &l.d }
func (l ListType[T]) Elem() Typed[T]           { return l.elem }

func (l ListType[T]) Key(pattern string) ListType[T] {
	l.d.info.Key = pattern
	return l
}

func (l ListType[T]) Optional() ListType[T] {
	l.d.info.Optional = true
	return l
}

func (l ListType[T]) TTL(seconds int) ListType[T] {
	l.d.info.TTL = ttlSeconds(seconds)
	return l
}

func (l ListType[T]) Describe(s string) ListType[T] {
	l.d.info.Description = s
	return l
}

// MinLength is recorded as metadata only.
func (l ListType[T]) MinLength(n int) ListType[T] {
	l.d.info.MinLength = n
	return l
}

// MaxLength bounds the list: every push trims it to the n most recently
// pushed elements.
func (l ListType[T]) MaxLength(n int) ListType[T] {
	l.d.info.MaxLength = max(n, 0)
	return l
}

// SetType describes an unordered set of elements of type T.
type SetType[T any] struct {
	d    desc
	elem Typed[T]
}

func Set[T any](elem Typed[T]) SetType[T] {
	return SetType[T]{d: desc{kind: KindSet, runtime: elem.RuntimeKind()}, elem: elem}
}

func (s SetType[T]) StoreKind() StoreKind     { return s.d.kind }
func (s SetType[T]) RuntimeKind() RuntimeKind { return s.d.runtime }
func (s SetType[T]) Info() Info               { return s.d.snapshot() }
func (s SetType[T]) core() *desc              { return &s.d }
func (s SetType[T]) Elem() Typed[T]           { return s.elem }

func (s SetType[T]) Key(pattern string) SetType[T] {
	s.d.info.Key = pattern
	return s
}

func (s SetType[T]) Optional() SetType[T] {
	s.d.info.Optional = true
	return s
}

func (s SetType[T]) TTL(seconds int) SetType[T] {
	s.d.info.TTL = ttlSeconds(seconds)
	return s
}

func (s SetType[T]) Describe(str string) SetType[T] {
	s.d.info.Description = str
	return s
}

// MaxSize bounds the set. Excess members are evicted with SPOP, so which
// members go is up to the store.
func (s SetType[T]) MaxSize(n int) SetType[T] {
	s.d.info.MaxSize = max(n, 0)
	return s
}

// SortedSetType describes a sorted set of elements of type T.
type SortedSetType[T any] struct {
	d    desc
	elem Typed[T]
}

func SortedSet[T any](elem Typed[T]) SortedSetType[T] {
	return SortedSetType[T]{d: desc{kind: KindSortedSet, runtime: elem.RuntimeKind()}, elem: elem}
}

func (z SortedSetType[T]) StoreKind() StoreKind     { return z.d.kind }
func (z SortedSetType[T]) RuntimeKind() RuntimeKind { return z.d.runtime }
func (z SortedSetType[T]) Info() Info               { return z.d.snapshot() }
func (z SortedSetType[T]) core() *desc              { return &z.d }
func (z SortedSetType[T]) Elem() Typed[T]           { return z.elem }

func (z SortedSetType[T]) Key(pattern string) SortedSetType[T] {
	z.d.info.Key = pattern
	return z
}

func (z SortedSetType[T]) Optional() SortedSetType[T] {
	z.d.info.Optional = true
	return z
}

func (z SortedSetType[T]) TTL(seconds int) SortedSetType[T] {
	z.d.info.TTL = ttlSeconds(seconds)
	return z
}

func (z SortedSetType[T]) Describe(s string) SortedSetType[T] {
	z.d.info.Description = s
	return z
}

// MaxSize bounds the sorted set; the lowest-ranked members are evicted first.
func (z SortedSetType[T]) MaxSize(n int) SortedSetType[T] {
	z.d.info.MaxSize = max(n, 0)
	return z
}
