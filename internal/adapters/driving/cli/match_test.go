package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdex-labs/jobdex-cli/internal/adapters/driven/config/file"
)

func TestMatchCmd_Use(t *testing.T) {
	assert.Equal(t, "match [vector-file]", matchCmd.Use)
}

func TestMatchCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"match"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestMatchCmd_HasLimitFlag(t *testing.T) {
	flag := matchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestMatchCmd_HasFilterFlags(t *testing.T) {
	for _, name := range []string{
		"company", "department", "location",
		"workplace", "experience", "employment", "min-similarity",
	} {
		flag := matchCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "flag %s should exist", name)
	}
}

func TestMatchCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", "[1, 0, 0]")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"match", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Matches:")
	assert.Contains(t, buf.String(), "Senior Go Engineer")
	assert.Contains(t, buf.String(), "1.000")
	assert.Contains(t, buf.String(), "https://acme.example/jobs/1")
}

func TestMatchCmd_ReadsVectorFromStdin(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("[1, 0, 0]"))
	rootCmd.SetArgs([]string{"match", "-"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Senior Go Engineer")
}

func TestMatchCmd_WrappedVectorObject(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", `{"vector": [1, 0, 0]}`)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"match", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Senior Go Engineer")
}

func TestMatchCmd_LimitFromConfig(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	// Scores 0.707 against the query, above the default threshold, so
	// only the configured limit keeps it out of the results.
	require.NoError(t, postingStore.SetEmbedding(context.Background(), "hash-pending", []float32{1, 1, 0}))

	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("match.limit", 1))
	oldConfig := config
	config = store
	defer func() {
		config = oldConfig
	}()

	path := writeTempFile(t, "vector.json", "[1, 0, 0]")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"match", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err = rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[1]")
	assert.NotContains(t, buf.String(), "[2]")
}

func TestMatchCmd_CompanyFilter(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", "[1, 0, 0]")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"match", "--company", "ACME", path})
	defer func() {
		rootCmd.SetArgs(nil)
		matchCompany = ""
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Senior Go Engineer")
}

func TestMatchCmd_UnknownCompany(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", "[1, 0, 0]")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"match", "--company", "Globex", path})
	defer func() {
		rootCmd.SetArgs(nil)
		matchCompany = ""
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `no canonical company matches "Globex"`)
}

func TestMatchCmd_WorkplaceFilterExcludes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", "[1, 0, 0]")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"match", "--workplace", "remote", path})
	defer func() {
		rootCmd.SetArgs(nil)
		matchWorkplace = ""
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No matches found")
}

func TestMatchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", "[1, 0, 0]")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"match", "--json", path})
	defer func() {
		rootCmd.SetArgs(nil)
		matchJSON = false // Reset flag
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"Score\"")
	assert.Contains(t, buf.String(), "Senior Go Engineer")
}

func TestMatchCmd_DimensionMismatch(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", "[1, 0]")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"match", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "match failed")
}

func TestMatchCmd_BadVectorFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", "not a vector")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"match", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing query vector")
}

func TestMatchCmd_EmptyVector(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "vector.json", "[]")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"match", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "query vector is empty")
}

func TestMatchCmd_ServiceNotConfigured(t *testing.T) {
	oldService := matchService
	oldWired := servicesWired
	matchService = nil
	servicesWired = true
	defer func() {
		matchService = oldService
		servicesWired = oldWired
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"match", "vector.json"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "match service not configured")
}
