package typeinfo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/actorbundle/internal/lang"
	"github.com/phobologic/actorbundle/internal/model"
)

func collect(t *testing.T, source string) *Result {
	t.Helper()
	res, err := Collect(context.Background(), lang.Languages["typescript"], []byte(source))
	require.NoError(t, err)
	return res
}

func TestEnumPreservesOrderAndTitles(t *testing.T) {
	t.Parallel()

	res := collect(t, "enum MODE {\n"+
		"  TEST = `TEST`, // @title: TEST mode (only few categories)\n"+
		"  FULL = \"FULL\",\n"+
		"  SINGLE = 'SINGLE'\n"+
		"}\n")

	require.Len(t, res.Enums, 1)
	e := res.Enums[0]
	assert.Equal(t, "MODE", e.Name)
	assert.Equal(t, []model.EnumMember{
		{Value: "TEST", Title: "TEST mode (only few categories)"},
		{Value: "FULL"},
		{Value: "SINGLE"},
	}, e.Members)
	assert.Empty(t, res.Diagnostics)
}

func TestEnumWithNonStringMemberIsDropped(t *testing.T) {
	t.Parallel()

	res := collect(t, "enum Mixed {\n  A = `A`,\n  B = 2,\n}\nenum Auto {\n  X,\n  Y,\n}\n")

	assert.Empty(t, res.Enums)
	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, "Mixed", res.Diagnostics[0].Subject)
	assert.Equal(t, "Auto", res.Diagnostics[1].Subject)
}

func TestEnumWithTemplateSubstitutionIsDropped(t *testing.T) {
	t.Parallel()

	res := collect(t, "const p = `x`\nenum E {\n  A = `${p}-a`,\n}\n")
	assert.Empty(t, res.Enums)
	assert.Len(t, res.Diagnostics, 1)
}

func TestInputKinds(t *testing.T) {
	t.Parallel()

	src := "enum MODE {\n  TEST = `TEST`,\n  FULL = `FULL`,\n}\n" +
		"type Input = {\n" +
		"  mode: MODE,\n" +
		"  debug: boolean,\n" +
		"  maxItems?: number, // e.g. 100\n" +
		"  country: string, // e.g. CZ\n" +
		"  proxyConfiguration: object,\n" +
		"  categories: string[],\n" +
		"  tags: Array<string>,\n" +
		"  urls: [string], // e.g. https://example.com\n" +
		"  flavor: 'A' | 'B' | 'C',\n" +
		"  mystery: Unknown,\n" +
		"};\n"
	res := collect(t, src)

	require.NotNil(t, res.Input)
	want := []struct {
		name     string
		tag      model.KindTag
		optional bool
	}{
		{"mode", model.EnumRef, false},
		{"debug", model.Boolean, false},
		{"maxItems", model.Number, true},
		{"country", model.String, false},
		{"proxyConfiguration", model.Object, false},
		{"categories", model.List, false},
		{"tags", model.List, false},
		{"urls", model.Array, false},
		{"flavor", model.String, false},
		{"mystery", model.Unresolved, false},
	}
	require.Len(t, res.Input.Fields, len(want))
	for i, w := range want {
		f := res.Input.Fields[i]
		assert.Equal(t, w.name, f.Name, "field %d", i)
		assert.Equal(t, w.tag, f.Kind.Tag, "field %s", w.name)
		assert.Equal(t, w.optional, f.Optional, "field %s", w.name)
	}

	mode := res.Input.Fields[0]
	require.NotNil(t, mode.Kind.Enum)
	assert.Equal(t, "MODE", mode.Kind.Enum.Name)

	maxItems, _ := res.Input.Lookup("maxItems")
	assert.True(t, maxItems.HasExample)
	assert.Equal(t, 100, maxItems.Example)

	country, _ := res.Input.Lookup("country")
	assert.Equal(t, "CZ", country.Example)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "Input.mystery", res.Diagnostics[0].Subject)
}

func TestEnumMustPrecedeReference(t *testing.T) {
	t.Parallel()

	res := collect(t, "type Input = {\n  mode: MODE,\n}\nenum MODE {\n  A = `A`,\n}\n")
	require.NotNil(t, res.Input)
	assert.False(t, res.Input.Fields[0].Kind.Resolved())
	require.Len(t, res.Enums, 1)
}

func TestOutputExamples(t *testing.T) {
	t.Parallel()

	src := "export type Output = {\n" +
		"  pid: string, // e.g. 6731144\n" +
		"  name: string, // e.g.\n" +
		"  inStock: boolean, // e.g. true\n" +
		"  currentPrice: number, // e.g. 19.95\n" +
		"  img: string, // e.g. null\n" +
		"}\n"
	res := collect(t, src)
	require.NotNil(t, res.Output)
	require.Len(t, res.Output.Fields, 5)

	f := res.Output.Fields
	assert.Equal(t, 6731144, f[0].Example)
	assert.False(t, f[1].HasExample)
	assert.Equal(t, true, f[2].Example)
	assert.Equal(t, "19.95", f[3].Example)
	assert.True(t, f[4].HasExample)
	assert.Nil(t, f[4].Example)
	assert.Nil(t, res.Input)
}

func TestInterfaceDeclaration(t *testing.T) {
	t.Parallel()

	res := collect(t, "interface Output {\n  itemId: string;\n  itemUrl?: string;\n}\n")
	require.NotNil(t, res.Output)
	require.Len(t, res.Output.Fields, 2)
	assert.Equal(t, "itemUrl", res.Output.Fields[1].Name)
	assert.True(t, res.Output.Fields[1].Optional)
}

func TestDuplicateFieldKeepsFirst(t *testing.T) {
	t.Parallel()

	res := collect(t, "type Output = {\n  pid: string,\n  pid: number,\n  url: string,\n}\n")
	require.NotNil(t, res.Output)
	require.Len(t, res.Output.Fields, 2)
	pid, ok := res.Output.Lookup("pid")
	require.True(t, ok)
	assert.Equal(t, model.String, pid.Kind.Tag)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "Output.pid", res.Diagnostics[0].Subject)
}

func TestOtherTypesIgnored(t *testing.T) {
	t.Parallel()

	res := collect(t, "type Category = { name: Foo }\nfunction f(a: Input): Output { return a }\n")
	assert.Nil(t, res.Input)
	assert.Nil(t, res.Output)
	assert.Empty(t, res.Diagnostics)
}

func TestEnumInsideFunctionCollected(t *testing.T) {
	t.Parallel()

	res := collect(t, "export function f() {\n  enum L { A = `A` }\n  return L.A\n}\n")
	require.Len(t, res.Enums, 1)
	assert.Equal(t, "L", res.Enums[0].Name)
}

func TestCoerceExample(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    any
		present bool
	}{
		{"12990", 12990, true},
		{"true", true, true},
		{"false", false, true},
		{"null", nil, true},
		{"undefined", nil, false},
		{"19.95", "19.95", true},
		{"CZK", "CZK", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, present := CoerceExample(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.present, present)
		})
	}
}

func TestExtractSmartComment(t *testing.T) {
	t.Parallel()

	src := []byte("a: string, // e.g. hello world\nb: x")
	sc := extractSmartComment(src, 9)
	assert.Equal(t, "hello world", sc.Example)
	assert.Empty(t, sc.Title)

	src = []byte("A = `A`, // @title: Nice A\n")
	sc = extractSmartComment(src, 7)
	assert.Equal(t, "Nice A", sc.Title)
}
