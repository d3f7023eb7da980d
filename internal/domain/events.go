package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
)

const (
	EventEscrowCreated              = "escrow.created"
	EventEscrowFunded               = "escrow.funded"
	EventEscrowVerificationRecorded = "escrow.verification_recorded"
	EventEscrowReleased             = "escrow.released"
	EventEscrowRefunded             = "escrow.refunded"
	EventSettlementCompleted        = "escrow.settlement_completed"
	EventSettlementFailed           = "escrow.settlement_failed"

	EventVerificationRequested = "escrow.verification_requested"
)

func IsCanonicalInputEvent(eventType string) bool {
	return eventType == EventVerificationRequested
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventEscrowCreated, EventEscrowFunded, EventEscrowReleased, EventEscrowRefunded,
		EventSettlementCompleted, EventSettlementFailed, EventVerificationRequested:
		return CanonicalEventClassDomain
	case EventEscrowVerificationRecorded:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	if CanonicalEventClass(eventType) != "" {
		return "data.escrow_id"
	}
	return ""
}
