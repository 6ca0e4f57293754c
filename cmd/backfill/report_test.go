package main

import (
	"bytes"
	"testing"

	"github.com/nimbuswolf/finance-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderReport_DryRun(t *testing.T) {
	var buf bytes.Buffer
	err := RenderReport(&buf, &service.BackfillReport{
		DryRun:  true,
		Scanned: 2,
		Resolved: []service.BackfillResolution{
			{AccountID: "acc-1", InstitutionID: "ins_1", InstitutionName: "First Bank"},
		},
		Failures: []service.BackfillFailure{
			{AccountID: "acc-2", Reason: "  "},
		},
	})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Institution backfill (dry run)")
	assert.Contains(t, out, "scanned: 2")
	assert.Contains(t, out, "updated: 0")
	assert.Contains(t, out, "failed:  1")
	assert.Contains(t, out, "Would resolve:")
	assert.Contains(t, out, `"First Bank"`)
	assert.Contains(t, out, "unknown")
}

func TestRenderReport_NothingToDo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, &service.BackfillReport{}))

	out := buf.String()
	assert.Contains(t, out, "scanned: 0")
	assert.NotContains(t, out, "Resolved:")
	assert.NotContains(t, out, "Failures:")
}
