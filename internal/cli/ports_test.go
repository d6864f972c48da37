package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbrun/internal/ports"
)

func TestPorts_Design(t *testing.T) {
	dir := t.TempDir()
	design := writeFile(t, dir, "adder.cue", adderCUE)

	out, _, err := execute(t, "ports", design)
	require.NoError(t, err)
	assert.Contains(t, out, "adder4: 2 input(s), 2 output(s)")
	assert.Regexp(t, `sum\s+out\s+4`, out)
	assert.Regexp(t, `cout\s+out\s+1`, out)
}

func TestPorts_Header(t *testing.T) {
	dir := t.TempDir()
	header := writeFile(t, dir, "Vtop.h", `
class Vtop {
  public:
    VL_IN8(&clk,0,0);
    VL_IN8(&d,0,0);
    VL_OUT16(&q,11,0);
};
`)

	out, _, err := execute(t, "--format", "json", "ports", "--header", header)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   PortsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []ports.PortInfo{
		{Name: "clk", Width: 1, IsInput: true},
		{Name: "d", Width: 1, IsInput: true},
		{Name: "q", Width: 12, IsInput: false},
	}, resp.Data.Ports)
}

func TestPorts_HeaderWithWidePort(t *testing.T) {
	dir := t.TempDir()
	header := writeFile(t, dir, "Vkeyed.h", "VL_IN8(&clk,0,0);\nVL_INW(&key,127,0,4);\nVL_OUT8(&q,0,0);\n")

	out, _, err := execute(t, "ports", "--header", header)
	require.NoError(t, err)
	assert.Contains(t, out, "2 input(s), 1 output(s)")
	assert.Regexp(t, `key\s+in\s+128`, out)
}

func TestPorts_NeedsOneSource(t *testing.T) {
	_, _, err := execute(t, "ports")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
