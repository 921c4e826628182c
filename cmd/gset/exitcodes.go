package main

// Exit codes shared by all commands.
const (
	ExitSuccess        = 0 // Success
	ExitError          = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError    = 2 // Configuration error (bad config file or values)
	ExitDataError      = 3 // Data error (malformed graph file, cache drift)
	ExitNetworkError   = 4 // Network error (catalog or archive unreachable)
	ExitUnknownDataset = 5 // Dataset name not present in the catalog
)
