package kvschema

import (
	"strings"
	"testing"
)

func TestDescribeSchema(t *testing.T) {
	s := DescribeSchema(Schema{
		"session": String().TTL(60).Default("guest").Describe("web sessions"),
		"user": Hash(Fields{
			"name":   HashString(),
			"visits": HashNumber().Default(0),
		}).Key("user:{id}").Index("name"),
		"recent": List(Number()).MaxLength(10),
	})

	for _, want := range []string{
		"recent: list/number max_length=10\n",
		"  recent[]: string/number\n",
		"session: string/string default=\"guest\" ttl=60s\n",
		"  # web sessions\n",
		"user: hash/object key=\"user:{id}\" indexed=name\n",
		"  user.name: hash-field/string\n",
		"  user.visits: hash-field/number default=0\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("** DescribeSchema output missing %q:\n%s", want, s)
		}
	}

	// entries are listed in name order
	if strings.Index(s, "recent:") > strings.Index(s, "session:") || strings.Index(s, "session:") > strings.Index(s, "user:") {
		t.Errorf("** entries out of order:\n%s", s)
	}
}
