package i

// Logger writes preformatted messages at a fixed level.
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
	Debug(msg string)
}
