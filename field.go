package kvschema

import (
	"maps"
	"slices"
	"sort"
)

// FieldDescriptor describes one field of a hash.
type FieldDescriptor interface {
	Descriptor
	field()
}

// Fields maps hash field names to their descriptors.
type Fields map[string]FieldDescriptor

// Field describes a hash field holding values of type T.
type Field[T any] struct {
	d desc
}

func HashString() Field[string] {
	return Field[string]{desc{kind: KindHashField, runtime: RuntimeString}}
}

func HashNumber() Field[float64] {
	return Field[float64]{desc{kind: KindHashField, runtime: RuntimeNumber}}
}

func HashBoolean() Field[bool] {
	return Field[bool]{desc{kind: KindHashField, runtime: RuntimeBoolean}}
}

// HashObject describes a field holding a JSON document decoded into T.
func HashObject[T any]() Field[T] {
	return Field[T]{desc{kind: KindHashField, runtime: RuntimeObject, decodeDoc: docDecoder[T]()}}
}

// HashAny describes a field whose value is kept as raw text.
func HashAny() Field[string] {
	return Field[string]{desc{kind: KindHashField, runtime: RuntimeUnknown}}
}

func (f Field[T]) StoreKind() StoreKind     { return f.d.kind }
func (f Field[T]) RuntimeKind() RuntimeKind { return f.d.runtime }
func (f Field[T]) Info() Info               { return f.d.snapshot() }
func (f Field[T]) core() *desc              { return &f.d }
func (f Field[T]) field()                   {}

func (f Field[T]) Optional() Field[T] {
	f.d.info.Optional = true
	return f
}

func (f Field[T]) Default(def T) Field[T] {
	f.d.setDefault(def)
	return f
}

func (f Field[T]) Describe(s string) Field[T] {
	f.d.info.Description = s
	return f
}

// HashType describes a hash with a fixed set of fields.
type HashType struct {
	d      desc
	fields Fields
}

// Hash describes a hash with the given fields. The map is copied.
func Hash(fields Fields) HashType {
	return HashType{
		d:      desc{kind: KindHash, runtime: RuntimeObject},
		fields: maps.Clone(fields),
	}
}

func (h HashType) StoreKind() StoreKind     { return h.d.kind }
func (h HashType) RuntimeKind() RuntimeKind { return h.d.runtime }
func (h HashType) Info() Info               { return h.d.snapshot() }
func (h HashType) core() *desc              { return &h.d }

// Fields returns a copy of the hash's field descriptors.
func (h HashType) Fields() Fields {
	return maps.Clone(h.fields)
}

func (h HashType) Field(name string) (FieldDescriptor, bool) {
	f, ok := h.fields[name]
	return f, ok
}

// FieldNames returns the declared field names, sorted.
func (h HashType) FieldNames() []string {
	names := make([]string, 0, len(h.fields))
	for name := range h.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Key records the literal key or key pattern this hash is stored under.
func (h HashType) Key(pattern string) HashType {
	h.d.info.Key = pattern
	return h
}

func (h HashType) Optional() HashType {
	h.d.info.Optional = true
	return h
}

func (h HashType) TTL(seconds int) HashType {
	h.d.info.TTL = ttlSeconds(seconds)
	return h
}

func (h HashType) Describe(s string) HashType {
	h.d.info.Description = s
	return h
}

// Index marks fields as indexed. This is advisory metadata; nothing
// maintains an index.
func (h HashType) Index(fields ...string) HashType {
	indexed := slices.Clone(h.d.info.Indexed)
	for _, f := range fields {
		if !slices.Contains(indexed, f) {
			indexed = append(indexed, f)
		}
	}
	h.d.info.Indexed = indexed
	return h
}
