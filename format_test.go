package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintTable_AlignsColumns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printTable(&buf, []string{"WHEN", "WHAT"}, [][]string{
		{"Mon Jan  5 09:00", "Standup"},
		{"Tue Jan  6", "Trip"},
	})

	want := "WHEN              WHAT   \n" +
		"Mon Jan  5 09:00  Standup\n" +
		"Tue Jan  6        Trip   \n"
	assert.Equal(t, want, buf.String())
}

func TestPrintTable_HeaderWiderThanCells(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printTable(&buf, []string{"CALENDAR"}, [][]string{{"work"}})

	want := "CALENDAR\n" +
		"work    \n"
	assert.Equal(t, want, buf.String())
}

func TestPrintTable_NoRows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printTable(&buf, []string{"WHEN", "WHAT"}, nil)

	assert.Equal(t, "WHEN  WHAT\n", buf.String())
}
