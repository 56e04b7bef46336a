// Package authorize centralizes role capability checks. Instead of role
// string comparisons scattered across handlers, every gate is a
// (role, action) lookup against one casbin policy.
package authorize

import (
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

var ErrForbidden = errors.New("forbidden")

// Action names a capability a role may hold.
type Action string

const (
	ActionFileUpload          Action = "file.upload"
	ActionFileConfirm         Action = "file.confirm"
	ActionFileServe           Action = "file.serve"
	ActionFileRestore         Action = "file.restore"
	ActionFileRequestDownload Action = "file.request_download"
	ActionFileDiscardDraft    Action = "file.discard_draft"

	// Deletion workflow transitions.
	ActionFileDeleteImmediate Action = "file.delete_immediate"
	ActionFileRequestDelete   Action = "file.request_delete"
	ActionFileApproveDelete   Action = "file.approve_delete"
	ActionFileHospitalApprove Action = "file.hospital_approve"
	ActionFileRejectDelete    Action = "file.reject_delete"

	ActionPatientWrite  Action = "patient.write"
	ActionInvoiceWrite  Action = "invoice.write"
	ActionInvoiceDelete Action = "invoice.delete"
	ActionLedgerRead    Action = "ledger.read"

	ActionHospitalManage Action = "hospital.manage"
	ActionUserManage     Action = "user.manage"
)

// modelText is the request model: plain (role, action) matching.
const modelText = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

type Authorizer struct {
	enforcer *casbin.Enforcer
}

// NewFromFiles loads the capability table from a casbin model and CSV
// policy on disk.
func NewFromFiles(modelPath, policyPath string) (*Authorizer, error) {
	e, err := casbin.NewEnforcer(modelPath, policyPath)
	if err != nil {
		return nil, fmt.Errorf("authorize: load enforcer: %w", err)
	}
	return &Authorizer{enforcer: e}, nil
}

// NewFromRules builds an in-memory authorizer from explicit rules,
// used by tests and by the default policy seed.
func NewFromRules(rules [][2]string) (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authorize: parse model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authorize: new enforcer: %w", err)
	}
	for _, r := range rules {
		if _, err := e.AddPolicy(r[0], r[1]); err != nil {
			return nil, fmt.Errorf("authorize: add policy %v: %w", r, err)
		}
	}
	return &Authorizer{enforcer: e}, nil
}

// Can reports whether role holds the capability.
func (a *Authorizer) Can(role string, action Action) bool {
	ok, err := a.enforcer.Enforce(role, string(action))
	return err == nil && ok
}

// MustEnforce returns ErrForbidden when the role lacks the capability.
func (a *Authorizer) MustEnforce(role string, action Action) error {
	if !a.Can(role, action) {
		return ErrForbidden
	}
	return nil
}
