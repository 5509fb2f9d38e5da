package trade

import (
	"github.com/erp/tradedesk/internal/domain/shared"
)

// Severity of a validation issue. Only errors block submission.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes
const (
	IssueSourceRequired       = "SOURCE_REQUIRED"
	IssueTargetRequired       = "TARGET_REQUIRED"
	IssueDateRequired         = "DATE_REQUIRED"
	IssueLinesRequired        = "LINES_REQUIRED"
	IssueProductRequired      = "PRODUCT_REQUIRED"
	IssueProductNotFound      = "PRODUCT_NOT_FOUND"
	IssueProductNotStocked    = "PRODUCT_NOT_STOCKED"
	IssueSpecNotFound         = "SPEC_NOT_FOUND"
	IssueQuantityRequired     = "QUANTITY_REQUIRED"
	IssueInvalidPrice         = "INVALID_PRICE"
	IssueUnitCountRequired    = "UNIT_COUNT_REQUIRED"
	IssueFormulaReview        = "FORMULA_REVIEW"
	IssueBatchRequired        = "BATCH_REQUIRED"
	IssueBatchNotFound        = "BATCH_NOT_FOUND"
	IssueBatchNotInPool       = "BATCH_NOT_IN_POOL"
	IssueBatchExceeded        = "BATCH_QUANTITY_EXCEEDED"
	IssueBatchOverallocated   = "BATCH_OVERALLOCATED"
	IssueAllocationMismatch   = "ALLOCATION_MISMATCH"
	IssueOriginalRequired     = "ORIGINAL_ORDER_REQUIRED"
	IssueOriginalLineRequired = "ORIGINAL_LINE_REQUIRED"
	IssueReturnExceeded       = "RETURN_QUANTITY_EXCEEDED"
	IssueReturnEmpty          = "RETURN_QUANTITY_EMPTY"
	IssueShipBeforeReceipt    = "SHIP_BEFORE_RECEIPT"
	IssueUnloadBeforeLoad     = "UNLOAD_BEFORE_LOAD"
	IssueReturnBeforeOriginal = "RETURN_BEFORE_ORIGINAL"
)

// NoSlot marks an issue that belongs to the whole order
const NoSlot = 0

// ValidationIssue is one field-level or order-level problem found while
// composing an order
type ValidationIssue struct {
	Code     string   `json:"code"`
	Field    string   `json:"field,omitempty"`
	Slot     int      `json:"slot,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Blocking returns true if the issue prevents submission
func (i ValidationIssue) Blocking() bool {
	return i.Severity == SeverityError
}

// Issues is an ordered list of validation issues
type Issues []ValidationIssue

func (is *Issues) add(severity Severity, slot int, code, field, message string) {
	*is = append(*is, ValidationIssue{
		Code:     code,
		Field:    field,
		Slot:     slot,
		Message:  message,
		Severity: severity,
	})
}

// Error records a blocking issue
func (is *Issues) Error(slot int, code, field, message string) {
	is.add(SeverityError, slot, code, field, message)
}

// Warn records a non-blocking issue
func (is *Issues) Warn(slot int, code, field, message string) {
	is.add(SeverityWarning, slot, code, field, message)
}

// HasBlocking returns true if any issue blocks submission
func (is Issues) HasBlocking() bool {
	for _, i := range is {
		if i.Blocking() {
			return true
		}
	}
	return false
}

// Blocking returns the blocking issues
func (is Issues) Blocking() Issues {
	return is.filter(SeverityError)
}

// Warnings returns the non-blocking issues
func (is Issues) Warnings() Issues {
	return is.filter(SeverityWarning)
}

func (is Issues) filter(s Severity) Issues {
	out := make(Issues, 0, len(is))
	for _, i := range is {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Err converts the blocking issues into a ValidationFailedError, or nil
func (is Issues) Err() error {
	blocking := is.Blocking()
	if len(blocking) == 0 {
		return nil
	}
	v := make([]shared.FieldViolation, 0, len(blocking))
	for _, i := range blocking {
		v = append(v, shared.FieldViolation{Code: i.Code, Field: i.Field, Message: i.Message})
	}
	return &shared.ValidationFailedError{Violations: v}
}
