package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lei-enricher/internal/config"
	"github.com/ginjaninja78/lei-enricher/internal/types"
)

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Data.csv")
	content := "\ufefftrade_id,lei,notional,rate\n" +
		"T1,ABC123,1000,1.2\n" +
		"\n" +
		"T2, XYZ789 ,1000,1.25\n" +
		"T3,ABC123,500\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := Parse(path, config.CSVSettings{Delimiter: ","})
	require.NoError(t, err)

	assert.Equal(t, path, table.SourceFile)
	assert.Equal(t, []string{"trade_id", "lei", "notional", "rate"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, types.Row{"trade_id": "T1", "lei": "ABC123", "notional": "1000", "rate": "1.2"}, table.Rows[0])
	assert.Equal(t, " XYZ789 ", table.Rows[1]["lei"], "cells are kept as read")
	assert.Equal(t, "", table.Rows[2]["rate"])
}

func TestParseReader_Delimiters(t *testing.T) {
	for _, delim := range []string{";", "|", "tab"} {
		sep := delim
		if delim == "tab" {
			sep = "\t"
		}
		data := strings.Join([]string{"lei", "notional", "rate"}, sep) + "\n" +
			strings.Join([]string{"ABC123", "1000", "1.2"}, sep) + "\n"

		table, err := ParseReader(strings.NewReader(data), config.CSVSettings{Delimiter: delim})
		require.NoError(t, err, delim)
		require.Len(t, table.Rows, 1, delim)
		assert.Equal(t, "1.2", table.Rows[0]["rate"], delim)
	}
}

func TestParseReader_Empty(t *testing.T) {
	_, err := ParseReader(strings.NewReader(""), config.CSVSettings{})
	assert.Error(t, err)
}

func TestParseReader_HeaderOnly(t *testing.T) {
	table, err := ParseReader(strings.NewReader("lei,notional,rate\n"), config.CSVSettings{})
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestCleanHeaders(t *testing.T) {
	assert.Equal(t, []string{"lei", "Column_2", "rate"}, cleanHeaders([]string{" lei ", "", "rate"}))
}

func TestParseReader_KeepsPadding(t *testing.T) {
	data := "lei,notional,rate,comment\nDEF456, 1000,1.2,\"  padded  \"\n"

	table, err := ParseReader(strings.NewReader(data), config.CSVSettings{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "  padded  ", table.Rows[0]["comment"])
	assert.Equal(t, " 1000", table.Rows[0]["notional"])
}

func TestParseReader_DuplicateHeaders(t *testing.T) {
	data := "lei,note,notional,note,rate\nABC123,first,1000,second,1.2\n"

	table, err := ParseReader(strings.NewReader(data), config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, []string{"lei", "note", "notional", "note.1", "rate"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "first", table.Rows[0]["note"])
	assert.Equal(t, "second", table.Rows[0]["note.1"])
	assert.Equal(t, []string{"ABC123", "first", "1000", "second", "1.2"}, table.Values(table.Rows[0]))
}

func TestGetUniqueValues(t *testing.T) {
	table := &types.Table{Rows: []types.Row{
		{"lei": "B"}, {"lei": "A"}, {"lei": "B"}, {"lei": ""}, {"lei": " A "},
	}}
	assert.Equal(t, []string{"B", "A"}, GetUniqueValues(table, "lei"))
}

func TestDelimiter(t *testing.T) {
	assert.Equal(t, ',', Delimiter(config.CSVSettings{}))
	assert.Equal(t, '\t', Delimiter(config.CSVSettings{Delimiter: "tab"}))
	assert.Equal(t, '\t', Delimiter(config.CSVSettings{Delimiter: `\t`}))
	assert.Equal(t, '|', Delimiter(config.CSVSettings{Delimiter: "pipe"}))
	assert.Equal(t, ';', Delimiter(config.CSVSettings{Delimiter: ";"}))
}
