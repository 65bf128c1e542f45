package storage

// Config holds storage configuration
type Config struct {
	Type          string `yaml:"type"`            // "local"
	Dir           string `yaml:"dir"`             // Root directory for local storage
	MaxImageBytes int64  `yaml:"max_image_bytes"` // Upper bound for one captured image
}
