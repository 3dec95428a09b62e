package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Massing-Sim/pkg/errors"
)

func TestParseParamValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"3", json.Number("3")},
		{"2.5", json.Number("2.5")},
		{"9007199254740993", json.Number("9007199254740993")},
		{"true", true},
		{`"quoted"`, "quoted"},
		{"[1,2]", []interface{}{json.Number("1"), json.Number("2")}},
		{"1 2", "1 2"},
		{"plain text", "plain text"},
		{"null", "null"},
		{`{"a":1}`, `{"a":1}`},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseParamValue(tt.in))
		})
	}
}

func TestCollectParams(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"floors":3,"name":"tower"}`), 0o600))

	got, err := collectParams(file, []string{"floors=5", " label = a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"floors": json.Number("5"), "name": "tower", "label": " a=b"}, got)

	got, err = collectParams("", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCollectParams_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2]`), 0o600))

	_, err := collectParams(filepath.Join(dir, "missing.json"), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = collectParams(bad, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	for _, kv := range []string{"novalue", "=5"} {
		_, err = collectParams("", []string{kv})
		assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest), kv)
	}
}

func TestDecodeOutputs(t *testing.T) {
	got, err := decodeOutputs(json.RawMessage(`{"b":[9007199254740993],"a":["x","y"]}`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, []interface{}{"x", "y"}, got[0].Values)
	assert.Equal(t, []interface{}{json.Number("9007199254740993")}, got[1].Values)

	got, err = decodeOutputs(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = decodeOutputs(json.RawMessage(`[1]`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestEvaluateCmd_ThroughServer(t *testing.T) {
	srv := newMockServer(t, nil)

	out, _, err := executeCommand(t, "--server", srv.URL, "-o", "json", "evaluate", "wind", "-p", "n=2")
	require.NoError(t, err)

	var resp struct {
		Definition string                   `json:"definition"`
		Values     map[string][]interface{} `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "wind", resp.Definition)
	assert.Equal(t, []interface{}{2.0}, resp.Values["n"])

	out, _, err = executeCommand(t, "--server", srv.URL, "evaluate", "wind", "-p", "n=2")
	require.NoError(t, err)
	assert.Contains(t, out, "definition wind evaluated in")
	assert.Contains(t, out, "n: [2]")
}

func TestEvaluateCmd_InvalidParam(t *testing.T) {
	srv := newMockServer(t, nil)

	_, _, err := executeCommand(t, "--server", srv.URL, "evaluate", "wind", "-p", "broken")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

// fakeCompute answers POST /grasshopper by echoing the input trees.
func fakeCompute(t *testing.T, pointer *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grasshopper" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Pointer *string         `json:"pointer"`
			Values  json.RawMessage `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Pointer != nil {
			pointer.Store(*req.Pointer)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"values":` + string(req.Values) + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEvaluateCmd_Direct(t *testing.T) {
	var pointer atomic.Value
	compute := fakeCompute(t, &pointer)
	t.Setenv("MSIM_COMPUTE_URL", compute.URL)

	def := "https://defs.example.com/custom.gh"
	out, _, err := executeCommand(t, "-o", "json", "evaluate", def, "--direct", "-p", "height=12.5")
	require.NoError(t, err)

	assert.Equal(t, def, pointer.Load())
	var resp struct {
		Values map[string][]interface{} `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Values["height"], 1)
}

func TestEvaluateCmd_DirectComputeDown(t *testing.T) {
	compute := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad definition", http.StatusBadRequest)
	}))
	t.Cleanup(compute.Close)
	t.Setenv("MSIM_COMPUTE_URL", compute.URL)

	_, _, err := executeCommand(t, "evaluate", "https://defs.example.com/x.gh", "--direct")
	assert.Error(t, err)
}

const savedComputeResponse = `{"values":[
	{"ParamName":"RH_OUT:area","InnerTree":{"{0}":[{"type":"System.Double","data":"1250.5"}]}},
	{"ParamName":"RH_OUT:labels","InnerTree":{"{0}":[{"data":"north"},{"data":"south"}]}}
],"errors":[],"warnings":["mesh is coarse"]}`

func TestParseCmd_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "response.json")
	require.NoError(t, os.WriteFile(file, []byte(savedComputeResponse), 0o600))

	out, _, err := executeCommand(t, "parse", file)
	require.NoError(t, err)
	assert.Contains(t, out, "RH_OUT:area: [1250.5]")
	assert.Contains(t, out, "RH_OUT:labels: [north, south]")
	assert.Less(t, strings.Index(out, "RH_OUT:area"), strings.Index(out, "RH_OUT:labels"))

	out, _, err = executeCommand(t, "-o", "table", "parse", file)
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(out), "OUTPUT")
	assert.Contains(t, out, "north, south")
}

func TestParseCmd_Stdin(t *testing.T) {
	root := NewRootCommand()
	var out strings.Builder
	root.SetOut(&out)
	root.SetErr(&strings.Builder{})
	root.SetIn(strings.NewReader(savedComputeResponse))
	root.SetArgs([]string{"--no-color", "-o", "json", "parse", "-"})
	require.NoError(t, root.Execute())

	var got map[string][]interface{}
	require.NoError(t, json.Unmarshal([]byte(out.String()), &got))
	assert.Len(t, got["RH_OUT:labels"], 2)
}

func TestParseCmd_Errors(t *testing.T) {
	_, _, err := executeCommand(t, "parse", filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	file := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(file, []byte("not json"), 0o600))
	_, _, err = executeCommand(t, "parse", file)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidComputeResponse))
}

//Personal.AI order the ending
