package domain

import "strings"

// Transaction statuses. success, failed and refund are terminal; refund is
// reachable only through manual admin action, never from provider signals.
const (
	TrxStatusPending = "pending"
	TrxStatusProcess = "process"
	TrxStatusSuccess = "success"
	TrxStatusFailed  = "failed"
	TrxStatusRefund  = "refund"
)

// Deposit statuses. success and cancelled are terminal.
const (
	DepositStatusPending   = "pending"
	DepositStatusSuccess   = "success"
	DepositStatusCancelled = "cancelled"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var trxTransitions = map[string]map[string]struct{}{
	TrxStatusPending: {
		TrxStatusProcess: {},
		TrxStatusSuccess: {},
		TrxStatusFailed:  {},
	},
	TrxStatusProcess: {
		TrxStatusSuccess: {},
		TrxStatusFailed:  {},
	},
	TrxStatusSuccess: {},
	TrxStatusFailed: {
		TrxStatusRefund: {},
	},
	TrxStatusRefund: {},
}

var depositTransitions = map[string]map[string]struct{}{
	DepositStatusPending: {
		DepositStatusSuccess:   {},
		DepositStatusCancelled: {},
	},
	DepositStatusSuccess:   {},
	DepositStatusCancelled: {},
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// TrxCanTransition reports whether a purchase transaction may move from
// current to next.
func TrxCanTransition(current, next string) bool {
	nextStates, ok := trxTransitions[normalizeStatus(current)]
	if !ok {
		return false
	}
	_, ok = nextStates[normalizeStatus(next)]
	return ok
}

// TrxIsTerminal reports whether a transaction status admits no further
// provider-driven updates.
func TrxIsTerminal(status string) bool {
	switch normalizeStatus(status) {
	case TrxStatusSuccess, TrxStatusFailed, TrxStatusRefund:
		return true
	}
	return false
}

// DepositCanTransition reports whether a deposit may move from current to next.
func DepositCanTransition(current, next string) bool {
	nextStates, ok := depositTransitions[normalizeStatus(current)]
	if !ok {
		return false
	}
	_, ok = nextStates[normalizeStatus(next)]
	return ok
}

// DepositIsTerminal reports whether a deposit status is final.
func DepositIsTerminal(status string) bool {
	switch normalizeStatus(status) {
	case DepositStatusSuccess, DepositStatusCancelled:
		return true
	}
	return false
}
