package config

const (
	LogErrorColor = "\033[31m"
	LogInfoColor  = "\033[32m"
	LogWarnColor  = "\033[33m"
	LogDebugColor = "\033[90m"
	LogColorReset = "\033[0m"
)

// Color constants for component prefixes
const (
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorReset   = "\033[0m"
)
