package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CommandKey is the gin context key under which bridge handlers record the
// device command a request exchanged.
const CommandKey = "cdm.command"

// SetCommand tags the request with the device command it is about to run.
func SetCommand(c *gin.Context, command string) {
	c.Set(CommandKey, command)
}

func commandOf(c *gin.Context) string {
	if command := c.GetString(CommandKey); command != "" {
		return command
	}
	return "none"
}

// RequestLogger logs one line per bridge request; device exchanges that
// fail surface as 5xx and log at error level.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.Last().Error())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("command", commandOf(c)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("bridge_request")
	}
}

// RequestMetricsMiddleware records every bridge request against its route
// template and device command. Requests rejected before reaching the device
// (bad body, missing token) are labelled command "none".
func RequestMetricsMiddleware(bridge string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RecordHTTPRequest(bridge, c.Request.Method, route, commandOf(c), c.Writer.Status(), time.Since(start))
	}
}
