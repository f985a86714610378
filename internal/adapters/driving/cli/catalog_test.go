package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCmd_Use(t *testing.T) {
	assert.Equal(t, "catalog", catalogCmd.Use)
}

func TestCatalogCmd_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range catalogCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"list", "add-entity", "add-synonym", "import", "unresolved"} {
		assert.True(t, names[want], "expected subcommand %s", want)
	}
}

func TestCatalogCmd_DefaultsToList(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Companies (1):")
}

func TestCatalogListCmd_AllKinds(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Companies (1):")
	assert.Contains(t, out, "[1] ACME Corp, 1 synonyms")
	assert.Contains(t, out, "Departments (0):")
	assert.Contains(t, out, "Locations (1):")
	assert.Contains(t, out, "[2] Tel Aviv (Israel), 0 synonyms")
}

func TestCatalogListCmd_SingleKind(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "list", "location"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Locations (1):")
	assert.NotContains(t, buf.String(), "Companies")
}

func TestCatalogListCmd_UnknownKind(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"catalog", "list", "robots"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity kind")
}

func TestCatalogAddEntityCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "add-entity", "company", "Globex"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Added company [3] Globex")
}

func TestCatalogAddEntityCmd_LocationAttributes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{
		"catalog", "add-entity", "location", "Berlin",
		"--country", "Germany", "--region", "Berlin",
	})
	defer func() {
		rootCmd.SetArgs(nil)
		catalogEntityCountry = ""
		catalogEntityRegion = ""
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Added location")
}

func TestCatalogAddEntityCmd_AttributeKindMismatch(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{
		"catalog", "add-entity", "company", "Globex", "--category", "engineering",
	})
	defer func() {
		rootCmd.SetArgs(nil)
		catalogEntityCategory = ""
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--category applies to departments only")
}

func TestCatalogAddEntityCmd_Duplicate(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"catalog", "add-entity", "company", "ACME corp"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCatalogAddSynonymCmd_ByName(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "add-synonym", "company", "ACME-Inc", "ACME Corp"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `Registered company synonym "ACME-Inc" for entity [1]`)
}

func TestCatalogAddSynonymCmd_ByID(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "add-synonym", "location", "TLV", "2"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `Registered location synonym "TLV" for entity [2]`)
}

func TestCatalogAddSynonymCmd_UnknownEntity(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"catalog", "add-synonym", "company", "Globex GmbH", "Globex"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `no canonical company matches "Globex"`)
}

func TestCatalogImportCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "import.json", `[
		{"kind": "company", "canonical_name": "Globex", "synonyms": ["Globex GmbH", "GLOBEX"]}
	]`)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "import", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Imported 1 entities and 2 synonyms.")
}

func TestCatalogImportCmd_Repeatable(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "import.json", `[
		{"kind": "company", "canonical_name": "Globex", "synonyms": ["Globex GmbH"]}
	]`)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"catalog", "import", path})
	require.NoError(t, rootCmd.Execute())

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "import", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Imported 0 entities and 0 synonyms.")
}

func TestCatalogImportCmd_BadFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "import.json", "{not json")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"catalog", "import", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing import file")
}

func TestCatalogUnresolvedCmd_Empty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "unresolved"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Unresolved queue is empty.")
}

func TestCatalogUnresolvedCmd_AfterIngest(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	batch := writeTempFile(t, "batch.json", `{
		"scope": "acme-careers",
		"complete": false,
		"postings": [
			{"url": "https://acme.example/jobs/9", "title": "Platform Engineer", "company_raw": "Globex GmbH"}
		]
	}`)
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"ingest", batch})
	require.NoError(t, rootCmd.Execute())

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"catalog", "unresolved", "company"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `company "Globex GmbH" seen 1x`)
}

func TestCatalogCmd_ServiceNotConfigured(t *testing.T) {
	oldService := catalogService
	oldWired := servicesWired
	catalogService = nil
	servicesWired = true
	defer func() {
		catalogService = oldService
		servicesWired = oldWired
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"catalog", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "catalog service not configured")
}
