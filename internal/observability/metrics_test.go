package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordMessageSent("server-a", "data", 31)
	RecordMessageReceived("server-a", "data")
	RecordDecodeError("server-a")
	SetPeerCount("server-a", 2)
	RecordBroadcastFailure("server-a")
	RecordHTTPRequest("server-a", "GET", "/health", 200, 12*time.Millisecond)
}
