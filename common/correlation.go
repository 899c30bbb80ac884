package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	HeaderCorrelationID = "X-Request-Id"
	KeyCorrelationID    = "correlationId"
)

// Correlation reuses an inbound X-Request-Id or mints one, and echoes it on the response.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderCorrelationID)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set(KeyCorrelationID, id)
		c.Header(HeaderCorrelationID, id)
		c.Next()
	}
}

func CorrelationID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(KeyCorrelationID)
}

func LogEntry(c *gin.Context) *logrus.Entry {
	entry := logrus.NewEntry(logrus.StandardLogger())
	if id := CorrelationID(c); id != "" {
		entry = entry.WithField(KeyCorrelationID, id)
	}
	return entry
}
