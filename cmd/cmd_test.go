package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lei-enricher/internal/pipeline"
	"github.com/ginjaninja78/lei-enricher/internal/registry"
)

const registryBody = `{"data":[
	{"attributes":{"lei":"ABC123","bic":["AAAA","BBBB"],
		"entity":{"legalName":{"name":"Example Bank"},"legalAddress":{"country":"GB"}}}},
	{"attributes":{"lei":"DEF456","bic":[],
		"entity":{"legalName":{"name":"Beispiel AG"},"legalAddress":{"country":"DE"}}}}
]}`

// execute runs the root command with fresh flag state in a scratch directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeIn(t, t.TempDir(), args...)
}

// executeIn runs the root command from dir.
func executeIn(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	t.Chdir(dir)
	cfgFile = "config.yaml"
	verbose = false
	enrichOpts = enrichOptions{}
	lookupFormat = "table"
	mainConfig = nil

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	if args == nil {
		// nil makes cobra fall back to os.Args.
		args = []string{}
	}
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func registryServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprint(w, registryBody)
	}))
	t.Cleanup(server.Close)

	t.Setenv("ENRICHER_REGISTRY_BASE_URL", server.URL)
	t.Setenv("ENRICHER_REGISTRY_MAX_ATTEMPTS", "2")
	return server
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LEI Enricher")
	assert.Contains(t, out, "Version:    "+Version)
	assert.Contains(t, out, "Cost rules: GB, NL")
}

func TestLookupCommand_Table(t *testing.T) {
	registryServer(t, http.StatusOK)

	out, err := execute(t, "lookup", "ABC123", "DEF456", "ABC123", "NOPE00")
	require.NoError(t, err)
	assert.Contains(t, out, "Example Bank")
	assert.Contains(t, out, "AAAA, BBBB")
	assert.Contains(t, out, "unsupported")
	assert.Contains(t, out, "NOPE00")
	assert.Contains(t, out, "(not found)")
}

func TestLookupCommand_YAML(t *testing.T) {
	registryServer(t, http.StatusOK)

	out, err := execute(t, "lookup", "--format", "yaml", "ABC123")
	require.NoError(t, err)
	assert.Contains(t, out, "legal_name: Example Bank")
	assert.Contains(t, out, "country: GB")
}

func TestLookupCommand_RequiresArgs(t *testing.T) {
	_, err := execute(t, "lookup")
	assert.Error(t, err)
}

func TestEnrichCommand(t *testing.T) {
	registryServer(t, http.StatusOK)
	dir := t.TempDir()
	input := filepath.Join(dir, "trades.csv")
	output := filepath.Join(dir, "enriched.csv")
	require.NoError(t, os.WriteFile(input, []byte("lei,notional,rate\nABC123,1000,1.2\nDEF456,1,1\n"), 0644))

	out, err := execute(t, "enrich", "--input", input, "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Enriched:      1")
	assert.Contains(t, out, "Unsupported:   1")
	assert.Contains(t, out, "=== Enrichment Complete ===")
	assert.Contains(t, out, "Output:        "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ABC123,1000,1.2,Example Bank,\"AAAA, BBBB\",200.00,enriched,")
}

func TestEnrichCommand_RegistryDown(t *testing.T) {
	registryServer(t, http.StatusServiceUnavailable)
	dir := t.TempDir()
	input := filepath.Join(dir, "trades.csv")
	output := filepath.Join(dir, "enriched.csv")
	require.NoError(t, os.WriteFile(input, []byte("lei,notional,rate\nABC123,1000,1.2\n"), 0644))

	_, err := execute(t, "enrich", "--input", input, "--output", output)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrRetriesExhausted)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnrichCommand_AbortedOnRowFailure(t *testing.T) {
	registryServer(t, http.StatusOK)
	t.Setenv("ENRICHER_CONTINUE_ON_ERROR", "false")
	dir := t.TempDir()
	input := filepath.Join(dir, "trades.csv")
	output := filepath.Join(dir, "enriched.csv")
	require.NoError(t, os.WriteFile(input, []byte("lei,notional,rate\nABC123,1000,1.2\nNOPE00,1,1\n"), 0644))

	out, err := execute(t, "enrich", "--input", input, "--output", output)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrRowFailures)
	assert.Contains(t, out, "=== Enrichment Aborted ===")
	assert.NotContains(t, out, "Enrichment Complete")
	assert.Contains(t, out, "Failed:        1")
	assert.NotContains(t, out, "Output:")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnrichCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(input, []byte("lei,notional,rate\n,1000,x\n"), 0644))

	out, err := execute(t, "enrich", "--dry-run", "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry Run")
	assert.Contains(t, out, "Rows:    1")
	assert.Contains(t, out, "validation error(s)")
}

func TestEnrichCommand_DryRunMissingColumn(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(input, []byte("lei,notional\nABC123,1000\n"), 0644))

	_, err := execute(t, "enrich", "--dry-run", "--input", input)
	assert.Error(t, err)
}

func TestRootCommand_DefaultFiles(t *testing.T) {
	registryServer(t, http.StatusOK)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Data.csv"), []byte("lei,notional,rate\nABC123,1000,1.2\n"), 0644))

	out, err := executeIn(t, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Output:        Output.csv")

	data, err := os.ReadFile(filepath.Join(dir, "Output.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "200.00")
}
