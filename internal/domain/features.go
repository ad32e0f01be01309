package domain

// FeatureFlag identifies one independently toggleable policy rule.
type FeatureFlag int

const (
	// FeatureUnknown is the explicit no-op variant: toggling it changes
	// nothing but still produces a toggle notification, matching the
	// historical name-keyed behavior.
	FeatureUnknown FeatureFlag = iota
	FeatureReflection
	FeatureAntiWhale
	FeatureAutoLiquidity
	FeatureCooldown
	FeatureBlacklist
	FeatureAutoBurn
)

var featureNames = map[FeatureFlag]string{
	FeatureUnknown:       "unknown",
	FeatureReflection:    "reflection",
	FeatureAntiWhale:     "anti_whale",
	FeatureAutoLiquidity: "auto_liquidity",
	FeatureCooldown:      "cooldown",
	FeatureBlacklist:     "blacklist",
	FeatureAutoBurn:      "auto_burn",
}

// ParseFeatureFlag maps a flag name to its identifier. Unrecognized names
// map to FeatureUnknown rather than erroring.
func ParseFeatureFlag(name string) FeatureFlag {
	for f, n := range featureNames {
		if n == name && f != FeatureUnknown {
			return f
		}
	}
	return FeatureUnknown
}

func (f FeatureFlag) String() string {
	if n, ok := featureNames[f]; ok {
		return n
	}
	return "unknown"
}

// FeatureSet holds the current value of every policy toggle. Read on every
// transfer, mutated only through the policy registry.
type FeatureSet struct {
	Reflection    bool `json:"reflection" yaml:"reflection"`
	AntiWhale     bool `json:"anti_whale" yaml:"anti_whale"`
	AutoLiquidity bool `json:"auto_liquidity" yaml:"auto_liquidity"`
	Cooldown      bool `json:"cooldown" yaml:"cooldown"`
	Blacklist     bool `json:"blacklist" yaml:"blacklist"`
	AutoBurn      bool `json:"auto_burn" yaml:"auto_burn"`
}

// Enabled reports the value of a single flag. FeatureUnknown is always false.
func (s FeatureSet) Enabled(f FeatureFlag) bool {
	switch f {
	case FeatureReflection:
		return s.Reflection
	case FeatureAntiWhale:
		return s.AntiWhale
	case FeatureAutoLiquidity:
		return s.AutoLiquidity
	case FeatureCooldown:
		return s.Cooldown
	case FeatureBlacklist:
		return s.Blacklist
	case FeatureAutoBurn:
		return s.AutoBurn
	default:
		return false
	}
}

// With returns a copy with one flag set. Setting FeatureUnknown returns the
// set unchanged and reports applied=false.
func (s FeatureSet) With(f FeatureFlag, enabled bool) (out FeatureSet, applied bool) {
	out = s
	applied = true
	switch f {
	case FeatureReflection:
		out.Reflection = enabled
	case FeatureAntiWhale:
		out.AntiWhale = enabled
	case FeatureAutoLiquidity:
		out.AutoLiquidity = enabled
	case FeatureCooldown:
		out.Cooldown = enabled
	case FeatureBlacklist:
		out.Blacklist = enabled
	case FeatureAutoBurn:
		out.AutoBurn = enabled
	default:
		applied = false
	}
	return out, applied
}
