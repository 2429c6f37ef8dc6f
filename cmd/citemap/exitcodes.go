package main

// Exit codes
const (
	ExitSuccess       = 0 // Success, or an audit with no findings
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (missing citemap.yml, unknown document, missing index)
	ExitDataError     = 3 // Data error (unreadable source, missing stores) / audit found errors
	ExitAuditWarnings = 4 // Audit found warnings but no errors
)
