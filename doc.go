/*
Package kvschema implements a declarative schema layer on top of a Redis-like
key-value store.

You declare a Schema, a mapping of names to type descriptors, and compile it
into a Client holding one typed operation bundle per name:

 1. Values: plain string keys (String, Number, Boolean) and JSON documents
    (JSON[T]), with Get, Set, Del and Exists.

 2. Hashes: a fixed set of typed fields (HashString, HashNumber, HashBoolean,
    HashObject[T], HashAny) with per-field defaults.

 3. Lists, sets and sorted sets of typed elements, optionally bounded by
    MaxLength / MaxSize.

Descriptors are immutable. Every constraint method returns a new descriptor,
so a base descriptor can be shared by several derived ones:

	var base = kvschema.String().TTL(3600)
	var scm = kvschema.Schema{
		"session": base.Default("guest"),
		"nonce":   base.TTL(60),
		"recent":  kvschema.List(kvschema.String()).MaxLength(100),
	}

	c, err := kvschema.Compile(kvschema.NewMemoryBackend(), scm, kvschema.Options{})
	name, found, err := kvschema.ValueOf[string](c, "session").Get(ctx, "session:42")

# Technical Details

**Codec.**
Scalars are stored in their natural text form (numbers as shortest decimal,
booleans as "true"/"false"). JSON documents and object hash fields are stored
as JSON text. A boolean decodes as true only if the text is exactly "true".
A number that fails to parse decodes as the original text.

Malformed JSON, or JSON rejected by a validator, decodes as "no value" and is
reported to the Observer; it is never returned as an error.

**Defaults.**
Defaults apply only when the store reports the key (or hash field) as absent.
HGetAll fills in defaults for configured fields missing from the stored hash,
but reports a missing hash as not found.

**TTL.**
Writes that create or refresh a key re-apply the descriptor's TTL. The
single-field HSet is the exception; HSetMap re-applies it.

**Bounded collections.**
Lists keep the most recently pushed MaxLength elements after every push.
Sets evict arbitrary members (SPOP) until they fit, so the evicted members
are unspecified. Sorted sets evict the lowest-ranked members. Trimming is a
separate call after the write: the write stays committed if trimming fails,
and a concurrent reader can briefly see an oversized collection.

**Connection.**
The client connects lazily on the first operation. Concurrent first calls
share a single connection attempt, which is not cancelled with any one
caller's context. A Quit during that attempt discards the new connection.
There are no retries.
*/
package kvschema
