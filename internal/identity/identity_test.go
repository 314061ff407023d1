package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_ExplicitVersionMarkers(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		filename    string
		wantTitle   string
		wantRaw     string
		wantNumeric float64
	}{
		{"SOP_Cleaning_Validation_v2.pdf", "SOP Cleaning Validation", "2", 2.0},
		{"SOP_Cleaning_Validation_v2.5.pdf", "SOP Cleaning Validation", "2.5", 2.5},
		{"SOP_X_Rev06.pdf", "SOP X", "06", 6.0},
		{"SOP_X_Rev07.pdf", "SOP X", "07", 7.0},
		{"Gowning Procedure version 1.2.pdf", "Gowning Procedure", "1.2", 1.2},
		{"Deviation_Handling_ver3.pdf", "Deviation Handling", "3", 3.0},
		{"Equipment-Log-V10.pdf", "Equipment-Log", "10", 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			id := r.Resolve(tt.filename, "")
			assert.Equal(t, normalizeTitle(tt.wantTitle), id.Title)
			assert.Equal(t, tt.wantRaw, id.VersionRaw)
			assert.Equal(t, tt.wantNumeric, id.VersionNumeric)
			assert.Equal(t, tt.filename, id.SourceFilename)
		})
	}
}

func TestResolve_VersionOrdering(t *testing.T) {
	r := NewResolver(nil)

	rev06 := r.Resolve("SOP_X_Rev06.pdf", "")
	rev07 := r.Resolve("SOP_X_Rev07.pdf", "")
	v10 := r.Resolve("SOP_Y_v1.0.pdf", "")
	v25 := r.Resolve("SOP_Y_v2.5.pdf", "")

	assert.Greater(t, rev07.VersionNumeric, rev06.VersionNumeric)
	assert.Greater(t, v25.VersionNumeric, v10.VersionNumeric)
	assert.Equal(t, rev06.Title, rev07.Title)
}

func TestResolve_ImplicitTrailingDigits(t *testing.T) {
	r := NewResolver(nil)

	id := r.Resolve("QA_Line_Clearance_017.pdf", "")
	assert.Equal(t, "QA Line Clearance", id.Title)
	assert.Equal(t, "017", id.VersionRaw)
	assert.Equal(t, 17.0, id.VersionNumeric)

	// Single trailing digit is not an implicit version
	id = r.Resolve("Cleanroom_Zone_1.pdf", "")
	assert.Equal(t, "1.0", id.VersionRaw)
	assert.Equal(t, "Cleanroom Zone 1", id.Title)
}

func TestResolve_DefaultVersion(t *testing.T) {
	r := NewResolver(nil)

	id := r.Resolve("Visitor_Entry_Procedure.pdf", "")
	assert.Equal(t, "Visitor Entry Procedure", id.Title)
	assert.Equal(t, "1.0", id.VersionRaw)
	assert.Equal(t, 1.0, id.VersionNumeric)
}

func TestResolve_StripsExportTimestamp(t *testing.T) {
	r := NewResolver(nil)

	id := r.Resolve("SOP_Water_System_v3_Jan0520240931442.pdf", "")
	assert.Equal(t, "SOP Water System", id.Title)
	assert.Equal(t, "3", id.VersionRaw)
}

func TestResolve_StripsDuplicateMarker(t *testing.T) {
	r := NewResolver(nil)

	id := r.Resolve("SOP_Water_System_v3 (2).pdf", "")
	assert.Equal(t, "SOP Water System", id.Title)
	assert.Equal(t, "3", id.VersionRaw)

	// Same document downloaded twice resolves identically
	plain := r.Resolve("SOP_Water_System_v3.pdf", "")
	assert.Equal(t, plain.Title, id.Title)
	assert.Equal(t, plain.VersionRaw, id.VersionRaw)
}

func TestResolve_UnparseableVersionDefaultsToZero(t *testing.T) {
	r := NewResolver(nil)

	// Dotted triple does not parse as a float
	id := r.Resolve("SOP_X_v2.5.1.pdf", "")
	assert.Equal(t, "2.5.1", id.VersionRaw)
	assert.Equal(t, 0.0, id.VersionNumeric)
}

func TestResolve_DocNumberFromFirstPage(t *testing.T) {
	r := NewResolver(nil)

	firstPage := "Standard Operating Procedure\nDocument No: QA-SOP-017\nEffective Date: 2024-01-05"
	id := r.Resolve("SOP_Line_Clearance_v2.pdf", firstPage)

	assert.Equal(t, "QA-SOP-017", id.DocNumber)
}

func TestResolve_DocNumberVariants(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		name      string
		firstPage string
		want      string
	}{
		{"doc number", "Doc Number: qa-sop-01", "QA-SOP-01"},
		{"doc. no", "Doc. No. MFG/SOP/112", "MFG/SOP/112"},
		{"absent", "Standard Operating Procedure", ""},
		{"empty page", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := r.Resolve("SOP_X_v1.pdf", tt.firstPage)
			assert.Equal(t, tt.want, id.DocNumber)
		})
	}
}

func TestResolve_TitleNeverEmpty(t *testing.T) {
	r := NewResolver(nil)

	id := r.Resolve("v2.pdf", "")
	assert.NotEmpty(t, id.Title)
}

func TestResolve_UsesBaseName(t *testing.T) {
	r := NewResolver(nil)

	id := r.Resolve("/uploads/2024/SOP_X_Rev06.pdf", "")
	assert.Equal(t, "SOP X", id.Title)
	assert.Equal(t, "SOP_X_Rev06.pdf", id.SourceFilename)
}
