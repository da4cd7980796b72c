package datasetcmd

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/myrjola/saferroad/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roadsPath = "../../../internal/dataset/testdata/roads.csv"

func TestCheck(t *testing.T) {
	var out bytes.Buffer
	Check.SetOut(&out)
	Check.SetArgs([]string{roadsPath})

	require.NoError(t, Check.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{"records", "3"}, strings.Fields(lines[0]))
	assert.Regexp(t, `Road Type\s+Highway\s+1`, out.String())
	assert.Regexp(t, `Weather\s+Foggy\s+1`, out.String())
	assert.Regexp(t, `Time of Day\s+Afternoon\s+1`, out.String())
	assert.Len(t, lines, 13, "records line and one line per label")
}

func TestCheck_missingFile(t *testing.T) {
	Check.SetOut(&bytes.Buffer{})
	Check.SetErr(&bytes.Buffer{})
	Check.SetArgs([]string{"does-not-exist.csv"})

	require.Error(t, Check.Execute())
}

func TestPrintRounds(t *testing.T) {
	table, err := dataset.Load(roadsPath)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printRounds(&out, table, rand.New(rand.NewPCG(1, 2)), 2))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1+2*3)
	assert.True(t, strings.HasPrefix(lines[0], "round"))
	assert.Contains(t, lines[3], "safer: ")
	assert.Contains(t, lines[6], "safer: ")
}
