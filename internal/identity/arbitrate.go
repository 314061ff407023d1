package identity

import "log/slog"

// Status is the visibility flag stamped on every passage of a revision.
type Status string

const (
	// StatusActive marks the authoritative revision, visible to retrieval.
	StatusActive Status = "Active"
	// StatusInactive marks superseded or late-arriving revisions.
	StatusInactive Status = "Inactive"
)

// ActiveVersion describes the currently Active revision for an
// arbitration key, as read from the store.
type ActiveVersion struct {
	VersionRaw     string
	VersionNumeric float64
}

// RetireFilter selects passages of the same document whose version_raw
// differs from KeepVersion, to be flipped to Inactive. It is a
// metadata-only update: no re-embedding, no deletion.
type RetireFilter struct {
	Title       string
	DocNumber   string
	KeepVersion string
}

// Decision is the outcome of version arbitration for one incoming batch.
type Decision struct {
	Status Status
	Retire *RetireFilter
}

// Arbitrate decides the visibility of an incoming revision against the
// currently Active one. existing is nil when no Active passages exist for
// the arbitration key.
//
// The rules:
//   - no Active revision: incoming becomes Active
//   - incoming > existing: incoming becomes Active, existing is retired
//   - incoming < existing: incoming becomes Inactive (a late arrival never
//     displaces a newer revision)
//   - incoming == existing: incoming becomes Active (re-upload refresh);
//     a retire filter is still emitted so stray rows from other revisions
//     are swept
func Arbitrate(incoming Identity, existing *ActiveVersion, logger *slog.Logger) Decision {
	if logger == nil {
		logger = slog.Default()
	}

	retire := &RetireFilter{
		Title:       incoming.Title,
		DocNumber:   incoming.DocNumber,
		KeepVersion: incoming.VersionRaw,
	}

	if existing == nil {
		return Decision{Status: StatusActive}
	}

	switch {
	case incoming.VersionNumeric > existing.VersionNumeric:
		logger.Info("newer revision supersedes active version",
			slog.String("title", incoming.Title),
			slog.String("incoming", incoming.VersionRaw),
			slog.String("existing", existing.VersionRaw))
		return Decision{Status: StatusActive, Retire: retire}

	case incoming.VersionNumeric < existing.VersionNumeric:
		// Policy decision, not an error. Logged so an operator can spot an
		// unintended downgrade and re-upload.
		logger.Warn("version_downgrade: incoming revision is older than active, marking Inactive",
			slog.String("title", incoming.Title),
			slog.String("incoming", incoming.VersionRaw),
			slog.String("existing", existing.VersionRaw))
		return Decision{Status: StatusInactive}

	default:
		logger.Info("re-upload of active revision, refreshing",
			slog.String("title", incoming.Title),
			slog.String("version", incoming.VersionRaw))
		return Decision{Status: StatusActive, Retire: retire}
	}
}
