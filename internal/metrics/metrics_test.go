package metrics

import "testing"

func TestRecordHelpersBeforeInitDoNotPanic(t *testing.T) {
	// Collectors are nil until Init; the helpers must be safe no-ops.
	RecordCycle()
	RecordDiscovered("example")
	RecordQueued("example")
	RecordClassified("example")
	RecordEmailSent("notification")
	RecordError("Crawler.example")
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	RecordCycle()
	RecordDiscovered("example")
	RecordQueued("example")
	RecordClassified("example")
	RecordEmailSent("error_digest")
	RecordError("Mailer")
}
