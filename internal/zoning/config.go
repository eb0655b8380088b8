package zoning

import (
	"fmt"
	"strings"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

// RestMode selects how objects outside the zones are reported.
type RestMode int

const (
	// RestPerZone adds an object to rest once for every zone it is outside.
	RestPerZone RestMode = iota
	// RestGlobal adds an object to rest once, and only if it is outside every zone.
	RestGlobal
)

func (m RestMode) String() string {
	switch m {
	case RestPerZone:
		return "per_zone"
	case RestGlobal:
		return "global"
	default:
		return fmt.Sprintf("RestMode(%d)", int(m))
	}
}

// ParseRestMode parses "per_zone" (the default for "") or "global".
func ParseRestMode(s string) (RestMode, error) {
	switch strings.ToLower(s) {
	case "", "per_zone", "per-zone", "perzone":
		return RestPerZone, nil
	case "global":
		return RestGlobal, nil
	default:
		return RestPerZone, configErrorf("unknown rest mode %q", s)
	}
}

// Config is the zoning stage configuration. New copies it, so later changes
// to the caller's slices have no effect on a built Engine.
type Config struct {
	Zones          [][]types.Point
	RemoveAreas    [][]types.Point
	ClassNames     []string
	FilterClassIDs []int
	RestMode       RestMode
	// BlurSigma is the Gaussian blur radius for remove-areas. Zero selects
	// the mask package default.
	BlurSigma float64
}

// Output keys of the zoning tree.
const (
	KeyEntered = "objects_entered"
	KeyExited  = "objects_exited"
	KeyRest    = "rest"
)

// ZoneID returns the output key of the i-th configured zone.
func ZoneID(i int) string {
	return fmt.Sprintf("zone_%d", i)
}

var reservedKeys = map[string]bool{KeyEntered: true, KeyExited: true}

func (c Config) validate() error {
	if len(c.Zones) == 0 && len(c.RemoveAreas) == 0 {
		return configErrorf("neither zones nor remove areas are configured")
	}
	if c.BlurSigma < 0 {
		return configErrorf("blur sigma %g is negative", c.BlurSigma)
	}
	if c.RestMode != RestPerZone && c.RestMode != RestGlobal {
		return configErrorf("unknown rest mode %d", int(c.RestMode))
	}
	for _, name := range c.ClassNames {
		if reservedKeys[name] || strings.HasSuffix(name, countSuffix) || strings.HasSuffix(name, idsSuffix) {
			return configErrorf("class name %q collides with an output key", name)
		}
	}
	return nil
}
