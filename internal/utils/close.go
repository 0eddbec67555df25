package utils

import (
	"io"

	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
)

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	if c == nil {
		return
	}
	_ = c.Close()
}

// CloseLogged closes c and logs a failure at warn level under what.
func CloseLogged(c io.Closer, log logger.Logger, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("Failed to close", logger.String("resource", what), logger.Error(err))
	}
}
