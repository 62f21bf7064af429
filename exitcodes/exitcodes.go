// Package exitcodes defines the standard exit codes used by guide-acceptor.
package exitcodes

// Exit code constants used by guide-acceptor
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when provisioning, installs and the guide suite all succeed
// * GuideFailure (1): Used when the guide script exits non-zero
// * RuntimeErr (2): Used for runtime errors such as provisioning or install failures
const (
	Success      = 0 // Guides ran and passed
	GuideFailure = 1 // Guide script reported failure
	RuntimeErr   = 2 // Provisioning, install or internal errors
)
