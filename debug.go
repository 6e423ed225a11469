package kvschema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

const indentStep = "  "

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

// DescribeSchema renders scm for humans: one block per entry, sorted by name,
// listing kinds, constraints and hash fields.
func DescribeSchema(scm Schema) string {
	var buf strings.Builder
	for _, name := range slices.Sorted(maps.Keys(scm)) {
		d := scm[name]
		fmt.Fprintln(&buf, dumpSep1)
		if d == nil {
			fmt.Fprintf(&buf, "%s = <nil>\n", name)
			continue
		}
		dumpDescriptor(&buf, "", name, d)
		switch d := d.(type) {
		case HashType:
			if len(d.fields) > 0 {
				fmt.Fprintln(&buf, dumpSep2)
			}
			for _, field := range d.FieldNames() {
				if fd := d.fields[field]; fd != nil {
					dumpDescriptor(&buf, indentStep, name+"."+field, fd)
				}
			}
		case elemer:
			dumpDescriptor(&buf, indentStep, name+"[]", d.elemDescriptor())
		}
	}
	return buf.String()
}

type elemer interface {
	elemDescriptor() Descriptor
}

func (l ListType[T]) elemDescriptor() Descriptor      { return l.elem }
func (s SetType[T]) elemDescriptor() Descriptor       { return s.elem }
func (z SortedSetType[T]) elemDescriptor() Descriptor { return z.elem }

func dumpDescriptor(w *strings.Builder, prefix, name string, d Descriptor) {
	info := d.Info()
	fmt.Fprintf(w, "%s%s: %v/%v", prefix, name, d.StoreKind(), d.RuntimeKind())
	if info.Optional {
		w.WriteString(" optional")
	}
	if info.HasDefault {
		fmt.Fprintf(w, " default=%s", describeValue(info.Default))
	}
	if info.TTL > 0 {
		fmt.Fprintf(w, " ttl=%ds", info.TTL)
	}
	if info.MinLength > 0 {
		fmt.Fprintf(w, " min_length=%d", info.MinLength)
	}
	if info.MaxLength > 0 {
		fmt.Fprintf(w, " max_length=%d", info.MaxLength)
	}
	if info.MaxSize > 0 {
		fmt.Fprintf(w, " max_size=%d", info.MaxSize)
	}
	if info.Key != "" {
		fmt.Fprintf(w, " key=%q", info.Key)
	}
	if len(info.Indexed) > 0 {
		fmt.Fprintf(w, " indexed=%s", strings.Join(info.Indexed, ","))
	}
	w.WriteByte('\n')
	if info.Description != "" {
		fmt.Fprintf(w, "%s%s# %s\n", prefix, indentStep, info.Description)
	}
}

func describeValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
