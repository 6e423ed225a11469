package kvschema

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// StoreKind is the kind of store value a descriptor maps to.
type StoreKind int

const (
	KindString StoreKind = iota
	KindHash
	KindHashField
	KindList
	KindSet
	KindSortedSet
	KindJSON
)

func (k StoreKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindHash:
		return "hash"
	case KindHashField:
		return "hash-field"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindSortedSet:
		return "sorted-set"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("StoreKind(%d)", int(k))
	}
}

// RuntimeKind selects how the codec converts a value.
type RuntimeKind int

const (
	RuntimeString RuntimeKind = iota
	RuntimeNumber
	RuntimeBoolean
	RuntimeObject
	RuntimeUnknown
)

func (k RuntimeKind) String() string {
	switch k {
	case RuntimeString:
		return "string"
	case RuntimeNumber:
		return "number"
	case RuntimeBoolean:
		return "boolean"
	case RuntimeObject:
		return "object"
	case RuntimeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("RuntimeKind(%d)", int(k))
	}
}

// Info is a snapshot of a descriptor's constraints. Zero TTL, MinLength,
// MaxLength and MaxSize mean "not configured".
type Info struct {
	Optional    bool
	HasDefault  bool
	Default     any
	TTL         int
	Description string
	MinLength   int
	MaxLength   int
	MaxSize     int
	Key         string
	Indexed     []string
}

// Descriptor is an immutable description of one storable value. It is
// implemented only by the types in this package.
type Descriptor interface {
	StoreKind() StoreKind
	RuntimeKind() RuntimeKind
	Info() Info
	core() *desc
}

// Typed is a descriptor of values of Go type T. It is used as the element
// type of lists, sets and sorted sets.
type Typed[T any] interface {
	Descriptor
	zero() T
}

type desc struct {
	kind    StoreKind
	runtime RuntimeKind
	info    Info

	decodeDoc  func(raw []byte) (any, error)
	check      func(v any) bool
	defaultDoc []byte // JSON form of info.Default for document descriptors
}

func (d *desc) snapshot() Info {
	info := d.info
	info.Indexed = slices.Clone(info.Indexed)
	info.Default = d.defaultValue()
	return info
}

// setDefault records def. Document defaults are kept as JSON, and every
// read decodes a new copy, so callers never share the stored value.
func (d *desc) setDefault(def any) {
	d.info.HasDefault = true
	d.info.Default = def
	d.defaultDoc = nil
	if !d.usesJSON() {
		return
	}
	raw, err := json.Marshal(def)
	if err != nil {
		panic(&SerializationError{Value: def, Err: err})
	}
	v, err := d.decodeDoc(raw)
	if err != nil {
		panic(&DecodeError{Raw: string(raw), Err: err})
	}
	d.info.Default = v
	d.defaultDoc = raw
}

func (d *desc) defaultValue() any {
	if d.defaultDoc == nil {
		return d.info.Default
	}
	v, err := d.decodeDoc(d.defaultDoc)
	if err != nil {
		return d.info.Default
	}
	return v
}

func (d *desc) usesJSON() bool {
	return d.kind == KindJSON || (d.kind == KindHashField && d.runtime == RuntimeObject)
}

func docDecoder[T any]() func([]byte) (any, error) {
	return func(raw []byte) (any, error) {
		var v T
		err := json.Unmarshal(raw, &v)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func ttlSeconds(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return seconds
}

// Value describes a plain string key holding a scalar.
type Value[T any] struct {
	d desc
}

// String describes a string key.
func String() Value[string] {
	return Value[string]{desc{kind: KindString, runtime: RuntimeString}}
}

// Number describes a string key holding a number. Decode returns text that
// does not parse as a number unchanged, but a float64 cannot hold it, so
// ValueOps and collection bundles report such text as a decode failure and
// read it as absent. HGet and HGetAll return it as a string.
func Number() Value[float64] {
	return Value[float64]{desc{kind: KindString, runtime: RuntimeNumber}}
}

// Boolean describes a string key holding "true" or "false".
func Boolean() Value[bool] {
	return Value[bool]{desc{kind: KindString, runtime: RuntimeBoolean}}
}

func (v Value[T]) StoreKind() StoreKind     { return v.d.kind }
func (v Value[T]) RuntimeKind() RuntimeKind { return v.d.runtime }
func (v Value[T]) Info() Info               { return v.d.snapshot() }
func (v Value[T]) core() *desc              { return &v.d }
func (v Value[T]) zero() (z T)              { return }

func (v Value[T]) Optional() Value[T] {
	v.d.info.Optional = true
	return v
}

func (v Value[T]) Default(def T) Value[T] {
	v.d.setDefault(def)
	return v
}

// TTL sets the expiration applied on every write; seconds <= 0 clears it.
func (v Value[T]) TTL(seconds int) Value[T] {
	v.d.info.TTL = ttlSeconds(seconds)
	return v
}

func (v Value[T]) Describe(s string) Value[T] {
	v.d.info.Description = s
	return v
}

// MinLength is recorded as metadata only.
func (v Value[T]) MinLength(n int) Value[T] {
	v.d.info.MinLength = n
	return v
}

// MaxLength is recorded as metadata only.
func (v Value[T]) MaxLength(n int) Value[T] {
	v.d.info.MaxLength = n
	return v
}

// Doc describes a key holding a JSON document decoded into T.
type Doc[T any] struct {
	d desc
}

func JSON[T any]() Doc[T] {
	return Doc[T]{desc{kind: KindJSON, runtime: RuntimeObject, decodeDoc: docDecoder[T]()}}
}

func (v Doc[T]) StoreKind() StoreKind     { return v.d.kind }
func (v Doc[T]) RuntimeKind() RuntimeKind { return v.d.runtime }
func (v Doc[T]) Info() Info               { return v.d.snapshot() }
func (v Doc[T]) core() *desc              { return &v.d }
func (v Doc[T]) zero() (z T)              { return }

func (v Doc[T]) Optional() Doc[T] {
	v.d.info.Optional = true
	return v
}

// Default is returned for missing keys. def must survive a JSON round trip;
// Default panics otherwise.
func (v Doc[T]) Default(def T) Doc[T] {
	v.d.setDefault(def)
	return v
}

func (v Doc[T]) TTL(seconds int) Doc[T] {
	v.d.info.TTL = ttlSeconds(seconds)
	return v
}

func (v Doc[T]) Describe(s string) Doc[T] {
	v.d.info.Description = s
	return v
}

// Validate attaches a predicate over decoded documents. A document that fails
// it decodes as "no value".
func (v Doc[T]) Validate(fn func(T) bool) Doc[T] {
	if fn == nil {
		v.d.check = nil
		return v
	}
	v.d.check = func(x any) bool {
		t, ok := x.(T)
		return ok && fn(t)
	}
	return v
}
