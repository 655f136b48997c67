package csvutil

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/lepinkainen/bookfinder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name string
	City string
}

func parsePerson(row Row) (person, error) {
	if row.Get("name") == "" {
		return person{}, stderrors.New("name is required")
	}
	return person{Name: row.Get("Name"), City: row.Get("city")}, nil
}

func TestProcessCSVFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("test.csv", "\ufeffName,Age,City\nAlice,30,NYC\nBob,25, LA \nCharlie,35,Chicago\n")

	people, err := ProcessCSVFile(env.Path("test.csv"), parsePerson, ProcessorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []person{
		{"Alice", "NYC"},
		{"Bob", "LA"},
		{"Charlie", "Chicago"},
	}, people)
}

func TestProcessCSV_RaggedRowsAndMissingColumns(t *testing.T) {
	people, err := ProcessCSV(strings.NewReader("name,city\nAlice\nBob,LA,extra\n"), parsePerson, ProcessorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []person{{"Alice", ""}, {"Bob", "LA"}}, people)
}

func TestProcessCSV_RequiredColumns(t *testing.T) {
	_, err := ProcessCSV(strings.NewReader("name\nAlice\n"), parsePerson, ProcessorOptions{Required: []string{"Name", "City"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "City"`)
}

func TestProcessCSV_InvalidRecords(t *testing.T) {
	data := "name,city\nAlice,NYC\n,LA\nCharlie,Chicago\n"

	_, err := ProcessCSV(strings.NewReader(data), parsePerson, ProcessorOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")

	people, err := ProcessCSV(strings.NewReader(data), parsePerson, ProcessorOptions{SkipInvalid: true})
	require.NoError(t, err)
	assert.Len(t, people, 2)
}

func TestProcessCSV_Empty(t *testing.T) {
	_, err := ProcessCSV(strings.NewReader(""), parsePerson, ProcessorOptions{})
	require.Error(t, err)

	env := testutil.NewTestEnv(t)
	_, err = ProcessCSVFile(env.Path("missing.csv"), parsePerson, ProcessorOptions{})
	require.Error(t, err)
}

func TestProcessCSV_HeaderOnly(t *testing.T) {
	people, err := ProcessCSV(strings.NewReader("name,city\n"), parsePerson, ProcessorOptions{})
	require.NoError(t, err)
	assert.Empty(t, people)
}
