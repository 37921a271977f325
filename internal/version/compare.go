package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// CheckSchemaCompatibility checks whether a serialized graph's schema version
// can be loaded by an engine speaking the given schema version.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.0.0 loads 1.0.5)
func CheckSchemaCompatibility(engineSchema, graphSchema string) error {
	engineSchema = strings.TrimPrefix(engineSchema, "v")
	graphSchema = strings.TrimPrefix(graphSchema, "v")

	// Skip version check for "main" (development builds)
	if engineSchema == "main" || graphSchema == "main" {
		return nil
	}

	engineVersion, err := semver.NewVersion(engineSchema)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid engine schema version %q", engineSchema)
	}

	graphVersion, err := semver.NewVersion(graphSchema)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid graph schema version %q", graphSchema)
	}

	if engineVersion.Major() != graphVersion.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major schema version mismatch: engine speaks %d.x.x but graph was saved with %d.x.x",
			engineVersion.Major(), graphVersion.Major())
	}

	if engineVersion.Minor() != graphVersion.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor schema version mismatch: engine speaks %d.%d.x but graph was saved with %d.%d.x",
			engineVersion.Major(), engineVersion.Minor(),
			graphVersion.Major(), graphVersion.Minor())
	}

	return nil
}
