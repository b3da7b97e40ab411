package models

// Field names shared between portal adapters and canonicalization. Adapters
// may set additional portal-specific fields; those flow into the audit
// description blob untouched.
const (
	FieldNumber      = "solicitationNumber"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldType        = "type"
	FieldCategory    = "category"
	FieldDepartment  = "department"
	FieldBuyerName   = "buyerName"
	FieldBuyerEmail  = "buyerEmail"
	FieldBuyerPhone  = "buyerPhone"
	FieldCloseDate   = "closeDate"
	FieldDetailURL   = "detailUrl"
	FieldStatus      = "status"
	FieldAlternateID = "alternateId"
)
