package auth

// Permission codes used across the dashboard. Domain handlers combine
// these with an Action when calling the gate.
const (
	PermPatientRecord    = "patient.record"
	PermReservation      = "reservation.book"
	PermPayment          = "payment.transaction"
	PermPaymentRefund    = "payment.refund"
	PermInventory        = "inventory.stock"
	PermServiceCatalog   = "service.catalog"
	PermConsentForm      = "consent.form"
	PermMessageTemplate  = "message.template"
	PermDashboard        = "dashboard.home"
	PermEmployeeAccount  = "employee.account"
	PermRoleManagement   = "security.role"
	PermIPWhitelist      = "security.ip_whitelist"
	PermLoginLog         = "security.login_log"
)

// Named convenience predicates: thin wrappers over the permission gate,
// nothing more.

func (p Principal) CanViewPatient() bool   { return p.Allows(PermPatientRecord, ActionRead) }
func (p Principal) CanEditPatient() bool   { return p.Allows(PermPatientRecord, ActionUpdate) }
func (p Principal) CanExportPatients() bool {
	return p.Allows(PermPatientRecord, ActionExport)
}
func (p Principal) CanBookReservation() bool { return p.Allows(PermReservation, ActionCreate) }
func (p Principal) CanCancelReservation() bool {
	return p.Allows(PermReservation, ActionDelete)
}
func (p Principal) CanViewPayments() bool   { return p.Allows(PermPayment, ActionRead) }
func (p Principal) CanRefundPayment() bool  { return p.Allows(PermPaymentRefund, ActionUpdate) }
func (p Principal) CanAdjustInventory() bool {
	return p.Allows(PermInventory, ActionUpdate)
}
func (p Principal) CanBulkEditInventory() bool {
	return p.Allows(PermInventory, ActionBulkEdit)
}
func (p Principal) CanManageConsents() bool { return p.Allows(PermConsentForm, ActionUpdate) }
func (p Principal) CanEditTemplates() bool  { return p.Allows(PermMessageTemplate, ActionUpdate) }
func (p Principal) CanManageRoles() bool    { return p.Allows(PermRoleManagement, ActionUpdate) }
func (p Principal) CanManageWhitelist() bool {
	return p.Allows(PermIPWhitelist, ActionUpdate)
}
func (p Principal) CanViewLoginLog() bool { return p.Allows(PermLoginLog, ActionRead) }
