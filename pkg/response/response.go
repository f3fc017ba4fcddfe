// Package response emits the webhook's response envelopes. Every helper
// takes an ack flag: when set, the HTTP status is forced to 200 regardless
// of outcome (the body still reports it) so the alerting tool never
// retries a failed signal into a duplicate order.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Placed is the success envelope for an executed order.
type Placed struct {
	Status  string `json:"status"`
	Action  string `json:"action"`
	Details any    `json:"details,omitempty"`
}

// Failure is the envelope for validation and internal failures.
type Failure struct {
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
	Details any    `json:"details,omitempty"`
}

// OrderPlaced answers a successfully executed signal.
func OrderPlaced(c *gin.Context, action string, details any) {
	c.JSON(http.StatusOK, Placed{Status: "order placed", Action: action, Details: details})
}

// AlertReceived answers an informational alert payload.
func AlertReceived(c *gin.Context, action string) {
	c.JSON(http.StatusOK, Placed{Status: "alert received", Action: action})
}

// Invalid answers a payload or validation failure (4xx class).
func Invalid(c *gin.Context, ack bool, message, hint string) {
	c.JSON(status(ack, http.StatusBadRequest), Failure{Error: message, Hint: hint})
}

// Rejected answers an order the exchange refused (4xx class, with the
// exchange's response attached).
func Rejected(c *gin.Context, ack bool, message string, details any) {
	c.JSON(status(ack, http.StatusBadRequest), Failure{Error: message, Details: details})
}

// Internal answers an operational failure (5xx class).
func Internal(c *gin.Context, ack bool, message string, details any) {
	c.JSON(status(ack, http.StatusInternalServerError), Failure{Error: message, Details: details})
}

func status(ack bool, code int) int {
	if ack {
		return http.StatusOK
	}
	return code
}
