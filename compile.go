package kvschema

import (
	"fmt"
	"sort"
)

// Schema maps entry names to descriptors.
type Schema map[string]Descriptor

// Bundle is the compiled set of operations for one schema entry. The concrete
// types are *ValueOps[T], *HashOps, *ListOps[T], *SetOps[T] and
// *SortedSetOps[T]; use ValueOf, HashOf, ListOf, SetOf and SortedSetOf to get
// them typed.
type Bundle interface {
	Name() string
	Descriptor() Descriptor
}

type bundler interface {
	newBundle(c *Client, name string) Bundle
}

type bundleFactory func(c *Client, name string, d Descriptor) (Bundle, error)

var bundleFactories = map[StoreKind]bundleFactory{
	KindString:    compileGeneric,
	KindJSON:      compileGeneric,
	KindHash:      compileHash,
	KindList:      compileGeneric,
	KindSet:       compileGeneric,
	KindSortedSet: compileGeneric,
}

func compileGeneric(c *Client, name string, d Descriptor) (Bundle, error) {
	b, ok := d.(bundler)
	if !ok {
		return nil, fmt.Errorf("kvschema: %s: %T cannot be compiled", name, d)
	}
	return b.newBundle(c, name), nil
}

func compileHash(c *Client, name string, d Descriptor) (Bundle, error) {
	h, ok := d.(HashType)
	if !ok {
		return nil, fmt.Errorf("kvschema: %s: %T is not a hash", name, d)
	}
	for field, fd := range h.fields {
		if fd == nil || fd.StoreKind() != KindHashField {
			return nil, fmt.Errorf("kvschema: %s: field %q is not a hash field descriptor", name, field)
		}
	}
	return &HashOps{c: c, name: name, h: h}, nil
}

// Compile builds one operation bundle per schema entry. It does not connect;
// the first operation does.
func Compile(backend Backend, scm Schema, opt Options) (*Client, error) {
	obs := opt.Observer
	if obs == nil {
		if opt.Logger != nil {
			obs = NewLogObserver(*opt.Logger)
		} else {
			obs = NopObserver{}
		}
	}

	c := &Client{
		backend: backend,
		conn:    conn{backend: backend},
		obs:     obs,
		bundles: make(map[string]Bundle, len(scm)),
	}

	for name, d := range scm {
		if d == nil {
			return nil, fmt.Errorf("kvschema: %s: nil descriptor", name)
		}
		kind := d.StoreKind()
		switch kind {
		case KindString, KindJSON, KindHash, KindList, KindSet, KindSortedSet:
		case KindHashField:
			return nil, fmt.Errorf("kvschema: %s: a hash field can only be used inside Hash", name)
		default:
			return nil, fmt.Errorf("kvschema: %s: unsupported store kind %v", name, kind)
		}
		b, err := bundleFactories[kind](c, name, d)
		if err != nil {
			return nil, err
		}
		c.bundles[name] = b
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(backend Backend, scm Schema, opt Options) *Client {
	c, err := Compile(backend, scm, opt)
	if err != nil {
		panic(err)
	}
	return c
}

func bundleAs[B Bundle](c *Client, name string) B {
	b := c.bundles[name]
	if b == nil {
		panic(fmt.Errorf("kvschema: no schema entry named %q", name))
	}
	typed, ok := b.(B)
	if !ok {
		panic(fmt.Errorf("kvschema: %s is %T, wanted %T", name, b, typed))
	}
	return typed
}

// ValueOf returns the bundle of a String, Number, Boolean or JSON entry.
// It panics if there is no such entry or its Go type is not T.
func ValueOf[T any](c *Client, name string) *ValueOps[T] {
	return bundleAs[*ValueOps[T]](c, name)
}

func HashOf(c *Client, name string) *HashOps {
	return bundleAs[*HashOps](c, name)
}

func ListOf[T any](c *Client, name string) *ListOps[T] {
	return bundleAs[*ListOps[T]](c, name)
}

func SetOf[T any](c *Client, name string) *SetOps[T] {
	return bundleAs[*SetOps[T]](c, name)
}

func SortedSetOf[T any](c *Client, name string) *SortedSetOps[T] {
	return bundleAs[*SortedSetOps[T]](c, name)
}
