package interp

import (
	"regexp"

	"pkt.systems/loquax/schema"
)

var (
	zcodePattern    = regexp.MustCompile(`\.z(ode|[1-9])$`)
	level9Pattern   = regexp.MustCompile(`\.l9$`)
	magneticPattern = regexp.MustCompile(`\.mag$`)
	mockPattern     = regexp.MustCompile(`\.mock$`)
)

// DetectFormat classifies a game file by its extension.
func DetectFormat(name string) schema.GameFormat {
	switch {
	case zcodePattern.MatchString(name):
		return schema.FormatZcode
	case level9Pattern.MatchString(name):
		return schema.FormatLevel9
	case magneticPattern.MatchString(name):
		return schema.FormatMagnetic
	case mockPattern.MatchString(name):
		return schema.FormatMock
	}
	return schema.FormatUnknown
}
