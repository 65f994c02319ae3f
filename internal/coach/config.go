package coach

// Config holds coach generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64

	// MaxFindings caps how many findings are sent in one request.
	MaxFindings int
}

// DefaultConfig returns the settings the app uses.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   768,
		Temperature: 0.3,
		MaxFindings: 12,
	}
}
