package threatgraph_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/threatgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreatWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := threatgraph.NewThreatWriter(buf)

	_, err := w.Write(&threatgraph.Threat{Name: "blue"})
	require.NoError(t, err)
	_, err = w.Write(&threatgraph.Threat{Name: "orange"})
	require.NoError(t, err)

	var names []string
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var threat threatgraph.Threat
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &threat))
		names = append(names, threat.Name)
	}
	assert.Equal(t, []string{"blue", "orange"}, names)
}

func TestRunRecord(t *testing.T) {
	run := &threatgraph.RunRecord{RunID: threatgraph.NewRunID(), CreatedAt: 1700000000}
	assert.True(t, run.Succeeded())
	assert.Equal(t, int64(1700000000), run.CreatedTime().Unix())

	run.Failed = append(run.Failed, "X")
	assert.False(t, run.Succeeded())
	assert.NotEqual(t, threatgraph.NewRunID(), threatgraph.NewRunID())
}
