package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
)

// CheckArchiveCompatibility reports whether an archive written by archiveVersion can be opened by
// binaryVersion.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckArchiveCompatibility(binaryVersion, archiveVersion string) error {
	binaryVersion = strings.TrimPrefix(binaryVersion, "v")
	archiveVersion = strings.TrimPrefix(archiveVersion, "v")

	if binaryVersion == "main" || archiveVersion == "main" {
		return nil
	}

	binarySemver, err := semver.NewVersion(binaryVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeArchiveIncompatible, err, "invalid binary version '%s'", binaryVersion)
	}

	archiveSemver, err := semver.NewVersion(archiveVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeArchiveIncompatible, err, "invalid archive version '%s'", archiveVersion)
	}

	if binarySemver.Major() != archiveSemver.Major() {
		return errors.Newf(errors.ErrCodeArchiveIncompatible,
			"major version mismatch: binary is %d.x.x but the archive was written by %d.x.x",
			binarySemver.Major(), archiveSemver.Major())
	}

	if binarySemver.Minor() != archiveSemver.Minor() {
		return errors.Newf(errors.ErrCodeArchiveIncompatible,
			"minor version mismatch: binary is %d.%d.x but the archive was written by %d.%d.x",
			binarySemver.Major(), binarySemver.Minor(),
			archiveSemver.Major(), archiveSemver.Minor())
	}

	return nil
}
