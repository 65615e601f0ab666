package instance

import "os"

// GetID returns the client instance identifier or a default value.
func GetID() string {
	if id := os.Getenv("PACKTRACK_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "packtrack-0"
}
