package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gowningSOP = `Gowning Procedure
Doc No: QA-SOP-012

1.0 Purpose
This procedure defines the gowning sequence for entering the cleanroom.

2.0 Scope
Applies to all personnel entering Grade B areas.

4.0 Procedure
4.1 Don sterile gloves before entering the airlock.
4.2 Replace gloves every two hours or when visibly soiled.
`

const cleaningSOP = `Cleaning Validation
Doc No: QA-SOP-031

1.0 Purpose
This procedure defines cleaning validation for process vessels.

3.0 Procedure
3.1 Rinse vessels with purified water after each batch.
3.2 Swab sample points listed in the validation protocol.
`

// writeSOP drops a versioned SOP file into dir.
func writeSOP(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestIngestCmd_FileThenQuery(t *testing.T) {
	t.Setenv("SOPINDEX_EMBEDDINGS_PROVIDER", "static")
	dataDir := t.TempDir()
	sopDir := t.TempDir()

	path := writeSOP(t, sopDir, "Gowning_Procedure_v06.txt", gowningSOP)

	out, err := runCommand(t, "ingest", path, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Gowning Procedure")
	assert.Contains(t, out, "v06")

	out, err = runCommand(t, "query", "how often must gloves be replaced", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Gowning Procedure")
	assert.Contains(t, out, "gloves")
}

func TestIngestCmd_DirectoryThenStatus(t *testing.T) {
	t.Setenv("SOPINDEX_EMBEDDINGS_PROVIDER", "static")
	dataDir := t.TempDir()
	sopDir := t.TempDir()

	writeSOP(t, sopDir, "Gowning_Procedure_v06.txt", gowningSOP)
	writeSOP(t, sopDir, "Cleaning_Validation_v03.txt", cleaningSOP)

	out, err := runCommand(t, "ingest", sopDir, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "ingested: 2")

	out, err = runCommand(t, "status", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Gowning Procedure")
	assert.Contains(t, out, "Cleaning Validation")
	assert.Contains(t, out, "Active")
}

func TestIngestCmd_NewVersionRetiresOld(t *testing.T) {
	t.Setenv("SOPINDEX_EMBEDDINGS_PROVIDER", "static")
	dataDir := t.TempDir()
	sopDir := t.TempDir()

	v5 := writeSOP(t, sopDir, "Gowning_Procedure_v05.txt", gowningSOP)
	v6 := writeSOP(t, sopDir, "Gowning_Procedure_v06.txt", gowningSOP)

	_, err := runCommand(t, "ingest", v5, "--data-dir", dataDir)
	require.NoError(t, err)
	_, err = runCommand(t, "ingest", v6, "--data-dir", dataDir)
	require.NoError(t, err)

	out, err := runCommand(t, "status", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Active")
	assert.Contains(t, out, "Inactive")
}

func TestRemoveCmd_RemovesAllRevisions(t *testing.T) {
	t.Setenv("SOPINDEX_EMBEDDINGS_PROVIDER", "static")
	dataDir := t.TempDir()
	sopDir := t.TempDir()

	path := writeSOP(t, sopDir, "Gowning_Procedure_v06.txt", gowningSOP)
	_, err := runCommand(t, "ingest", path, "--data-dir", dataDir)
	require.NoError(t, err)

	out, err := runCommand(t, "remove", "Gowning Procedure", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed")

	out, err = runCommand(t, "remove", "Gowning Procedure", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "no passages found")
}

func TestDiscoverCmd_GroupsByDocument(t *testing.T) {
	t.Setenv("SOPINDEX_EMBEDDINGS_PROVIDER", "static")
	dataDir := t.TempDir()
	sopDir := t.TempDir()

	writeSOP(t, sopDir, "Cleaning_Validation_v03.txt", cleaningSOP)
	_, err := runCommand(t, "ingest", sopDir, "--data-dir", dataDir)
	require.NoError(t, err)

	out, err := runCommand(t, "discover", "purified water", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleaning Validation")
	assert.Contains(t, out, "purified water")
}
