package datatree_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
)

// echo simulates an identity evaluation: every input tree comes back as an
// output with the same name under a single {0} branch.
func echo(t *testing.T, trees []datatree.Tree) *datatree.Result {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"values": trees})
	require.NoError(t, err)
	res, err := datatree.DecodeResult(body)
	require.NoError(t, err)
	return res
}

func TestEncode_ScalarEntries(t *testing.T) {
	t.Parallel()

	params := datatree.NewParams(
		datatree.Scalar("value", datatree.Int(1)),
		datatree.Scalar("name", datatree.String("tower")),
		datatree.Scalar("closed", datatree.Bool(true)),
	)

	trees := datatree.Encode(params)
	require.Len(t, trees, 3)

	want := []struct {
		name string
		val  datatree.Value
	}{
		{"value", datatree.Int(1)},
		{"name", datatree.String("tower")},
		{"closed", datatree.Bool(true)},
	}
	for i, w := range want {
		assert.Equal(t, w.name, trees[i].ParamName)
		require.Len(t, trees[i].Branches, 1)
		b, ok := trees[i].Branch(datatree.RootPath)
		require.True(t, ok)
		assert.Equal(t, []datatree.Value{w.val}, b.Values())
	}
}

func TestEncode_ListEntryKeepsOrder(t *testing.T) {
	t.Parallel()

	params := datatree.NewParams(datatree.List("pts",
		datatree.String("a"), datatree.String("b"), datatree.String("c")))

	trees := datatree.Encode(params)
	require.Len(t, trees, 1)
	b, ok := trees[0].Branch(datatree.Path{0})
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		b.Values()[0].Text(), b.Values()[1].Text(), b.Values()[2].Text(),
	})
}

func TestEncode_EmptyParams(t *testing.T) {
	t.Parallel()

	assert.Empty(t, datatree.Encode(nil))
	assert.Empty(t, datatree.Encode(datatree.NewParams()))
}

func TestEncode_WireFormat(t *testing.T) {
	t.Parallel()

	trees := datatree.Encode(datatree.NewParams(
		datatree.Scalar("floors", datatree.Int(5)),
		datatree.List("labels", datatree.String("x"), datatree.Bool(false)),
	))
	raw, err := json.Marshal(trees)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"ParamName":"floors","InnerTree":{"{0}":[{"type":"System.Double","data":5}]}},
		{"ParamName":"labels","InnerTree":{"{0}":[
			{"type":"System.String","data":"x"},
			{"type":"System.Boolean","data":false}]}}
	]`, string(raw))
}

func TestRoundTrip_EchoReproducesParams(t *testing.T) {
	t.Parallel()

	params := datatree.NewParams(
		datatree.Scalar("area", datatree.Number(1250.5)),
		datatree.List("heights", datatree.Int(3), datatree.Int(6), datatree.Int(9)),
		datatree.Scalar("label", datatree.String("A-1")),
		datatree.Scalar("enabled", datatree.Bool(true)),
	)

	parsed := datatree.ParseData(echo(t, datatree.Encode(params)))

	assert.Equal(t, []string{"area", "heights", "label", "enabled"}, parsed.Names())
	for _, e := range params.Entries() {
		got, ok := parsed.Get(e.Name)
		require.True(t, ok, e.Name)
		assert.Equal(t, e.Values, got, e.Name)
	}
}

func TestParseData_DuplicateNamesAppend(t *testing.T) {
	t.Parallel()

	res, err := datatree.DecodeResult([]byte(`{"values":[
		{"ParamName":"x","InnerTree":{"{0}":[{"data":1}]}},
		{"ParamName":"x","InnerTree":{"{0}":[{"data":2},{"data":3}]}}
	]}`))
	require.NoError(t, err)

	got, ok := datatree.ParseData(res).Get("x")
	require.True(t, ok)
	assert.Equal(t, []datatree.Value{datatree.Int(1), datatree.Int(2), datatree.Int(3)}, got)
}

func TestParseData_BranchOrderFollowsJSON(t *testing.T) {
	t.Parallel()

	res, err := datatree.DecodeResult([]byte(`{"values":[
		{"ParamName":"pts","InnerTree":{
			"{1}":[{"data":"b1"}],
			"{0}":[{"data":"a1"},{"data":"a2"}],
			"{0;1}":[{"data":"c1"}]
		}}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"b1", "a1", "a2", "c1"}, datatree.ParseData(res).Strings("pts"))
}

func TestParseData_EmptyOutputIsInitialized(t *testing.T) {
	t.Parallel()

	res, err := datatree.DecodeResult([]byte(`{"values":[
		{"ParamName":"empty","InnerTree":{}},
		{"ParamName":"nulltree","InnerTree":null}
	]}`))
	require.NoError(t, err)
	parsed := datatree.ParseData(res)

	for _, name := range []string{"empty", "nulltree"} {
		got, ok := parsed.Get(name)
		assert.True(t, ok, name)
		assert.NotNil(t, got, name)
		assert.Empty(t, got, name)
	}
	assert.False(t, parsed.Has("missing"))

	raw, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"empty":[],"nulltree":[]}`, string(raw))
}

func TestParseData_NoCoercion(t *testing.T) {
	t.Parallel()

	res, err := datatree.DecodeResult([]byte(`{"values":[
		{"ParamName":"geometry","InnerTree":{"{0}":[
			{"type":"Rhino.Geometry.Mesh","data":"{\"version\":10000,\"archive3dm\":70}"},
			{"data":{"nested":true}},
			{"data":"42"}
		]}}
	]}`))
	require.NoError(t, err)

	got, _ := datatree.ParseData(res).Get("geometry")
	require.Len(t, got, 3)
	for _, v := range got {
		assert.Equal(t, datatree.KindString, v.Kind())
	}
	s, _ := got[0].AsString()
	assert.Equal(t, `{"version":10000,"archive3dm":70}`, s)
	s, _ = got[1].AsString()
	assert.Equal(t, `{"nested":true}`, s)

	f, ok := got[2].Float()
	assert.True(t, ok)
	assert.Equal(t, 42.0, f)
}

func TestParseData_NumbersPassThroughUnchanged(t *testing.T) {
	t.Parallel()

	res, err := datatree.DecodeResult([]byte(`{"values":[
		{"ParamName":"id","InnerTree":{"{0}":[{"data":9007199254740993},{"data":1.10},{"data":1e400},{"data":-0}]}}
	]}`))
	require.NoError(t, err)
	parsed := datatree.ParseData(res)

	raw, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, `{"id":[9007199254740993,1.10,1e400,-0]}`, string(raw))

	got, _ := parsed.Get("id")
	assert.Equal(t, []string{"9007199254740993", "1.10", "1e400", "-0"}, parsed.Strings("id"))
	big, ok := got[2].AsNumber()
	assert.True(t, ok)
	assert.True(t, math.IsInf(big, 1), "conversion saturates, the literal does not")

	// Re-encoding for another evaluation keeps the literal as well.
	trees := datatree.Encode(datatree.NewParams(datatree.List("id", got...)))
	body, err := json.Marshal(trees)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":9007199254740993`)
	assert.Contains(t, string(body), `"data":1e400`)
}

func TestParseData_NilResult(t *testing.T) {
	t.Parallel()

	parsed := datatree.ParseData(nil)
	assert.Empty(t, parsed.Names())
}

func TestDecodeResult_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := datatree.DecodeResult([]byte(`{"values":[`))
	assert.Error(t, err)
}

func TestParsed_Float(t *testing.T) {
	t.Parallel()

	res, err := datatree.DecodeResult([]byte(`{"values":[
		{"ParamName":"max_wind_speed","InnerTree":{"{0}":[{"data":"\"5.4\""}]}},
		{"ParamName":"label","InnerTree":{"{0}":[{"data":"windy"}]}}
	]}`))
	require.NoError(t, err)
	parsed := datatree.ParseData(res)

	f, ok := parsed.Float("max_wind_speed")
	assert.True(t, ok)
	assert.InDelta(t, 5.4, f, 1e-9)

	_, ok = parsed.Float("label")
	assert.False(t, ok)
	_, ok = parsed.Float("absent")
	assert.False(t, ok)
}

//Personal.AI order the ending
