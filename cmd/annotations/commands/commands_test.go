package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/andressep95/annotations/cmd/annotations/output"
	"github.com/andressep95/annotations/internal/describe"
	"github.com/andressep95/annotations/internal/models"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	stdout := output.Stdout
	output.Stdout = &buf
	t.Cleanup(func() { output.Stdout = stdout })
	return &buf
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Cleanup(func() {
		ddlAll, ddlDown = false, false
		describeFormat = "table"
	})
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestSelectCatalogs(t *testing.T) {
	all, err := selectCatalogs(nil, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := selectCatalogs([]string{"academic"}, false)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "academic", one[0].Name())

	_, err = selectCatalogs([]string{"academic"}, true)
	assert.Error(t, err)
	_, err = selectCatalogs(nil, false)
	assert.ErrorContains(t, err, "academic, commerce, identity")
	_, err = selectCatalogs([]string{"billing"}, false)
	assert.ErrorContains(t, err, "unknown catalog")
}

func TestSummarize(t *testing.T) {
	catalogs, err := models.Catalogs()
	require.NoError(t, err)
	summaries, err := summarize(catalogs)
	require.NoError(t, err)

	require.Len(t, summaries, 3)
	assert.Equal(t, "commerce", summaries[1].Name)
	assert.Equal(t, []string{"products", "users", "user_products"}, summaries[1].Tables)
}

func TestCatalogDDL(t *testing.T) {
	catalog, err := models.Lookup("identity")
	require.NoError(t, err)

	up, err := catalogDDL(catalog, false)
	require.NoError(t, err)
	assert.Contains(t, up, "-- catalog identity (namespace identity)")
	assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS identity.user_profiles (")

	down, err := catalogDDL(catalog, true)
	require.NoError(t, err)
	assert.Contains(t, down, "DROP TABLE IF EXISTS identity.user_profiles;")
	assert.NotContains(t, down, "CREATE TABLE")
}

func TestWriteDocument(t *testing.T) {
	catalog, err := models.Lookup("academic")
	require.NoError(t, err)
	doc, err := describe.Describe(catalog)
	require.NoError(t, err)

	var js bytes.Buffer
	require.NoError(t, writeDocument(&js, doc, "json"))
	var fromJSON describe.Catalog
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	assert.Equal(t, "students", fromJSON.Tables[1].Name)

	var ym bytes.Buffer
	require.NoError(t, writeDocument(&ym, doc, "yaml"))
	var fromYAML describe.Catalog
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, *doc, fromYAML)

	assert.Error(t, writeDocument(&bytes.Buffer{}, doc, "xml"))
}

func TestDDLCommand(t *testing.T) {
	buf := capture(t)
	require.NoError(t, run(t, "ddl", "commerce"))
	assert.Contains(t, buf.String(), "CONSTRAINT fk_userproduct_product FOREIGN KEY (product_id) REFERENCES commerce.products (id) ON DELETE RESTRICT")
}

func TestDDLCommandAll(t *testing.T) {
	buf := capture(t)
	require.NoError(t, run(t, "ddl", "--all", "--down"))
	for _, table := range []string{"academic.students", "commerce.user_products", "identity.user_profiles"} {
		assert.Contains(t, buf.String(), "DROP TABLE IF EXISTS "+table+";")
	}
	assert.NotContains(t, buf.String(), "CREATE TABLE")
}

func TestDescribeCommand(t *testing.T) {
	buf := capture(t)
	require.NoError(t, run(t, "describe", "commerce"))
	out := buf.String()
	assert.Contains(t, out, "Catalog commerce (namespace commerce)")
	assert.Contains(t, out, "uk_user_email")
	assert.Contains(t, out, "users M-N products (user_id) via user_products")
}

func TestInvalidLogLevel(t *testing.T) {
	err := run(t, "--log-level", "loud", "catalogs")
	t.Cleanup(func() { logLevel = "info" })
	assert.ErrorContains(t, err, "invalid config")
}
