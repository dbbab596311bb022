package models

// UserRole controls access: admins operate the whole portal, staff are
// read-mostly operators.
type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleStaff UserRole = "STAFF"
)

// PaymentRequestStatus is the lifecycle of a withdrawal request.
type PaymentRequestStatus string

const (
	PaymentRequestStatusPending  PaymentRequestStatus = "PENDING"
	PaymentRequestStatusApproved PaymentRequestStatus = "APPROVED"
	PaymentRequestStatusDeclined PaymentRequestStatus = "DECLINED"
	PaymentRequestStatusPaid     PaymentRequestStatus = "PAID"
)

// EventAction is the change type carried on a portal event.
type EventAction string

const (
	EventActionCreate EventAction = "C"
	EventActionUpdate EventAction = "U"
	EventActionDelete EventAction = "D"
)

// EventReferenceType names the entity an event refers to.
type EventReferenceType string

const (
	EventRefArtist         EventReferenceType = "AR"
	EventRefTrack          EventReferenceType = "TR"
	EventRefRoyaltyImport  EventReferenceType = "RI"
	EventRefPaymentRequest EventReferenceType = "PR"
	EventRefInvoice        EventReferenceType = "IN"
)

// Outbox publish statuses for EventRecord.PublishStatus. Kept as plain
// strings since they are stored directly in the DB.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
