package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/config"
	"github.com/zclconf/go-cty/cty"
)

const scenarioHCL = `
node "Source" "src" {
  params   = { n_frames = 2 }
  position = [10, 20]
}

node "ABSDiff" "diff" {
  label = "Frame difference"
}

node "Threshold" "thresh" {
  inputs = {
    "Threshold value" = max(5, 10)
    "Threshold Type"  = "Binary"
  }
}

connect {
  from = src.output[0]
  to   = diff.input[0]
}

connect {
  from = src.output[1]
  to   = diff.input["Image2"]
}

connect {
  from = diff.output.Diff
  to   = thresh.input[0]
}
`

func writeHCL(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestLoader_ParsesPipeline(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeHCL(t, dir, "main.hcl", scenarioHCL)

	// --- Act ---
	p, err := NewLoader().Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, p.Nodes, 3)
	require.Len(t, p.Connections, 3)

	src, ok := p.Node("src")
	require.True(t, ok)
	assert.Equal(t, "Source", src.TypeName)
	assert.True(t, src.Params.GetAttr("n_frames").Equals(cty.NumberIntVal(2)).True())
	require.NotNil(t, src.Position)
	assert.Equal(t, config.Position{X: 10, Y: 20}, *src.Position)
	assert.Contains(t, src.Range.Filename, "main.hcl")

	diff, _ := p.Node("diff")
	assert.Equal(t, "Frame difference", diff.Label)
	assert.True(t, diff.Params.IsNull())
	assert.Nil(t, diff.Position)

	thresh, _ := p.Node("thresh")
	require.Contains(t, thresh.Inputs, "Threshold value")
	assert.True(t, thresh.Inputs["Threshold value"].Equals(cty.NumberIntVal(10)).True(), "functions are available")
	assert.Equal(t, "Binary", thresh.Inputs["Threshold Type"].AsString())

	assert.Equal(t, config.SocketRef{Node: "src", Index: 0}, p.Connections[0].From)
	assert.Equal(t, config.SocketRef{Node: "diff", Name: "Image2"}, p.Connections[1].To)
	assert.Equal(t, config.SocketRef{Node: "diff", Name: "Diff"}, p.Connections[2].From)
}

func TestLoader_MergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "a.hcl", `node "InvertGray" "a" {}`)
	writeHCL(t, dir, "b.hcl", `node "InvertGray" "b" {}
connect {
  from = a.output[0]
  to   = b.input[0]
}`)
	writeHCL(t, dir, "notes.txt", `not hcl`)

	p, err := NewLoader().Load(context.Background(), dir, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 2)
	assert.Len(t, p.Connections, 1)

	t.Run("duplicate names across files", func(t *testing.T) {
		writeHCL(t, dir, "c.hcl", `node "InvertGray" "a" {}`)
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, `node "a" already declared`)
	})
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		src    string
		substr string
	}{
		{"syntax", `node "A" "a" {`, "failed to parse"},
		{"unknown block", `graph "x" {}`, "failed to decode"},
		{"missing name label", `node "A" {}`, "failed to decode"},
		{"params not an object", `node "A" "a" { params = 3 }`, "params must be an object"},
		{"bad position", `node "A" "a" { position = [1] }`, "position must be a list of two numbers"},
		{"connect from input", "connect {\n from = a.input[0]\n to = b.input[0]\n}", "expected a reference like node.output[0]"},
		{"connect to literal", "connect {\n from = a.output[0]\n to = 3\n}", "expected a reference like node.input[0]"},
		{"negative index", "connect {\n from = a.output[-1]\n to = b.input[0]\n}", "expected a reference"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().LoadBytes(context.Background(), "test.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.substr)
		})
	}
}
