package dcf77

// Version information for the dcf77 module.
const (
	// Version is the current version of the dcf77 module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)
