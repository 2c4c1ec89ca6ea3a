package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"counter-desk/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	auth.Cost = bcrypt.MinCost
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReportNeverBoughtCSV(t *testing.T) {
	out, err := execute(t, "report", "market", "never-bought", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,name,price,quantity,ever_bought", lines[0])
	assert.Contains(t, lines[1], "Oil")
	assert.Contains(t, lines[2], "Rice")
	assert.Contains(t, lines[3], "Sugar")
}

func TestReportSummaryJSON(t *testing.T) {
	out, err := execute(t, "report", "market", "summary", "-f", "json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["customers"])
	assert.EqualValues(t, 0, rows[0]["total"])
}

func TestReportOnSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--store", "sqlite", "--data-dir", dir, "report", "library", "low-stock", "--format", "json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Empty(t, rows)
}

func TestStoreFlagOverridesEnv(t *testing.T) {
	t.Setenv("DESK_STORE", "bogus")
	_, err := execute(t, "report", "market", "summary")
	require.Error(t, err)

	_, err = execute(t, "--store", "sqlite", "--data-dir", t.TempDir(), "report", "market", "summary")
	require.NoError(t, err)
}

func TestReportRejectsUnknownKind(t *testing.T) {
	_, err := execute(t, "report", "library", "overdue")
	assert.Error(t, err)

	_, err = execute(t, "report", "library", "fines", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "Harry P...", truncateString("Harry Potter", 10))
	assert.Equal(t, "₹₹₹...", truncateString("₹₹₹₹₹₹₹", 6))
}
