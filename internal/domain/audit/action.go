package audit

import (
	"fmt"
	"sort"

	"viberate/internal/domain"
)

type Action string

const (
	ActionLogin          Action = "auth.login"
	ActionLogout         Action = "auth.logout"
	ActionRegister       Action = "auth.register"
	ActionPasswordChange Action = "auth.password_change"

	ActionTaskCreate    Action = "task.create"
	ActionTaskClaim     Action = "task.claim"
	ActionTaskAccept    Action = "task.accept"
	ActionTaskStart     Action = "task.start"
	ActionTaskSubmit    Action = "task.submit"
	ActionTaskApprove   Action = "task.approve"
	ActionTaskReject    Action = "task.reject"
	ActionTaskCancel    Action = "task.cancel"
	ActionTaskSync      Action = "task.sync"
	ActionTaskPublish   Action = "task.publish"
	ActionTaskUnpublish Action = "task.unpublish"
	ActionTaskBudget    Action = "task.budget_update"

	ActionPaymentInitiated Action = "payment.initiated"
	ActionPaymentCompleted Action = "payment.completed"
	ActionPaymentFailed    Action = "payment.failed"
	ActionPaymentRefund    Action = "payment.refund"
	ActionPaymentRetry     Action = "payment.retry"

	ActionWalletConnected    Action = "wallet.connected"
	ActionWalletUpdated      Action = "wallet.updated"
	ActionWalletDisconnected Action = "wallet.disconnected"

	ActionAdminUserUpdate   Action = "admin.user_update"
	ActionAdminTaskOverride Action = "admin.task_override"

	ActionSuspiciousActivity Action = "security.suspicious_activity"
	ActionRateLimit          Action = "security.rate_limit"
)

var taxonomy = map[Action]struct{}{
	ActionLogin: {}, ActionLogout: {}, ActionRegister: {}, ActionPasswordChange: {},
	ActionTaskCreate: {}, ActionTaskClaim: {}, ActionTaskAccept: {}, ActionTaskStart: {},
	ActionTaskSubmit: {}, ActionTaskApprove: {}, ActionTaskReject: {}, ActionTaskCancel: {},
	ActionTaskSync: {}, ActionTaskPublish: {}, ActionTaskUnpublish: {}, ActionTaskBudget: {},
	ActionPaymentInitiated: {}, ActionPaymentCompleted: {}, ActionPaymentFailed: {},
	ActionPaymentRefund: {}, ActionPaymentRetry: {},
	ActionWalletConnected: {}, ActionWalletUpdated: {}, ActionWalletDisconnected: {},
	ActionAdminUserUpdate: {}, ActionAdminTaskOverride: {},
	ActionSuspiciousActivity: {}, ActionRateLimit: {},
}

var ErrUnknownAction = fmt.Errorf("%w: unknown audit action", domain.ErrValidation)

func (a Action) Valid() bool {
	_, ok := taxonomy[a]
	return ok
}

func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
	return a, nil
}

// Actions lists the taxonomy in lexical order.
func Actions() []Action {
	out := make([]Action, 0, len(taxonomy))
	for a := range taxonomy {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
