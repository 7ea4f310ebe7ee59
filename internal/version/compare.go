package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

const devBuild = "main"

// ConfigConstraint turns the version a config declares into the range of
// engine versions that can run it. A plain version such as "v1.2.0" pins the
// major and minor version and accepts any patch; anything else is parsed as a
// semver constraint, e.g. ">= 1.1, < 1.4".
func ConfigConstraint(declared string) (*semver.Constraints, error) {
	declared = strings.TrimSpace(declared)

	if v, err := semver.NewVersion(declared); err == nil {
		return semver.NewConstraint(pinMinor(v))
	}

	constraint, err := semver.NewConstraint(declared)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid config version %q", declared)
	}

	return constraint, nil
}

// CheckConfigVersion returns nil when engineVersion can run a config that
// declares the given version.
func CheckConfigVersion(engineVersion, declared string) error {
	if engineVersion == devBuild {
		return nil
	}

	engine, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version %q", engineVersion)
	}

	constraint, err := ConfigConstraint(declared)
	if err != nil {
		return err
	}

	if ok, reasons := constraint.Validate(engine); !ok {
		messages := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			messages = append(messages, reason.Error())
		}

		return errors.Newf(errors.ErrCodeInvalidVersion,
			"engine %s cannot run a config written for %s: %s", engine.Original(), declared, strings.Join(messages, "; "))
	}

	return nil
}

func pinMinor(v *semver.Version) string {
	return "~" + semver.New(v.Major(), v.Minor(), 0, "", "").String()
}
