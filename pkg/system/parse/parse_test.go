package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNLSV(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"trailing newline dropped", "a\nb\nc\n", []string{"a", "b", "c"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"single line", "42\n", []string{"42"}},
		{"empty input", "", nil},
		{"interior empty line kept", "a\n\nb\n", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NLSV(tt.in))
		})
	}
}

func TestOneNLSV(t *testing.T) {
	line, err := OneNLSV("max\n")
	require.NoError(t, err)
	assert.Equal(t, "max", line)

	_, err = OneNLSV("a\nb\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = OneNLSV("")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSpaceSep(t *testing.T) {
	assert.Equal(t, []string{"cpuset", "cpu", "io", "memory"}, SpaceSep("cpuset cpu io memory"))
	assert.Empty(t, SpaceSep(""))
	assert.Equal(t, []string{"one"}, SpaceSep("one"))
	// runs of spaces collapse, as with meminfo's aligned columns
	assert.Equal(t, []string{"MemTotal:", "16384", "kB"}, SpaceSep("MemTotal:       16384 kB"))
}

func TestFlatKeyed(t *testing.T) {
	kv, err := FlatKeyed("user_usec 10827674051")
	require.NoError(t, err)
	assert.Equal(t, KV{Key: "user_usec", Value: "10827674051"}, kv)

	_, err = FlatKeyed("three tokens here")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = FlatKeyed("lonely")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestNestedKeyed(t *testing.T) {
	pairs, err := NestedKeyed("253952 anon=0 file=12288 kernel=0")
	require.NoError(t, err)
	require.Len(t, pairs, 4)
	assert.Equal(t, KV{Key: "key", Value: "253952"}, pairs[0])
	assert.Equal(t, KV{Key: "anon", Value: "0"}, pairs[1])
	assert.Equal(t, KV{Key: "file", Value: "12288"}, pairs[2])
	assert.Equal(t, KV{Key: "kernel", Value: "0"}, pairs[3])
}

func TestNestedKeyedMalformed(t *testing.T) {
	_, err := NestedKeyed("8:16 rbps nodigit")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = NestedKeyed("8:16 rbps=")
	assert.ErrorIs(t, err, ErrFormat)

	// a second "=" in a token is not a value, it is a malformed pair
	_, err = NestedKeyed("8:16 rbps=1=2")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = NestedKeyed("")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestKeyEqualsQuotedValue(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		key   string
		value string
	}{
		{"simple", `cluster="test-cluster1"`, "cluster", "test-cluster1"},
		{"embedded equals preserved", `var="abc=123"`, "var", "abc=123"},
		{"newline escape", `multiline="multi\nline"`, "multiline", "multi\nline"},
		{"escaped quotes", `quoted="{\"quoted\":\"json\"}"`, "quoted", `{"quoted":"json"}`},
		{"tab escape", `tabbed="a\tb"`, "tabbed", "a\tb"},
		{"hex escape", `hex="\x41BC"`, "hex", "ABC"},
		{"unicode escape", `uni="\u2603"`, "uni", "☃"},
		{"long unicode escape", `uni="\U0001F600"`, "uni", "\U0001F600"},
		{"unknown escape drops backslash", `odd="a\qb"`, "odd", "aqb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := KeyEqualsQuotedValue(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.key, kv.Key)
			assert.Equal(t, tt.value, kv.Value)
		})
	}
}

func TestKeyEqualsQuotedValueMalformed(t *testing.T) {
	for _, line := range []string{
		`novalue`,
		`="noname"`,
		`hex="\x4"`,
		`uni="\u26"`,
		`uni="\U0001F6"`,
		`extra="value" trailing`,
	} {
		_, err := KeyEqualsQuotedValue(line)
		assert.ErrorIs(t, err, ErrFormat, "line %q", line)
	}
}
