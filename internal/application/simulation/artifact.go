package simulation

import (
	"encoding/base64"
	"os"

	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
)

// PlaceholderPNG is a 1x1 PNG returned by the mock mode.
const PlaceholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

// EncodeFileBase64 returns the standard base64 encoding of the file at path.
// A file that cannot be read is logged and yields "".
func EncodeFileBase64(path string, logger logging.Logger) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if logger != nil {
			logger.Warn("artifact not readable", logging.String("path", path), logging.Err(err))
		}
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

//Personal.AI order the ending
