package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const allowQuery = "data.festival.transfer.authz.allow"

// DefaultPolicy allows admins the admin-only transfer actions and lets a device
// request a code only for itself.
const DefaultPolicy = `package festival.transfer.authz

default allow := false

admin_actions := {"transfer.create_on_behalf", "transfer.list_codes", "transfer.cleanup"}

allow if {
	input.subject.role == "admin"
	input.subject.id != ""
	admin_actions[input.action]
}

allow if {
	input.action == "transfer.create_self"
	input.subject.role == "device"
	input.subject.id == input.device_handle
}
`

// OPAEvaluator evaluates authorization with an in-process OPA Rego policy.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

var _ Authorizer = (*OPAEvaluator)(nil)

// NewOPAEvaluator compiles policy (DefaultPolicy when empty) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// NewOPAEvaluatorFromFile reads the Rego module at path; an empty path uses DefaultPolicy.
func NewOPAEvaluatorFromFile(ctx context.Context, path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b))
}

// Allow evaluates the policy for in. An undefined result is a deny.
func (e *OPAEvaluator) Allow(ctx context.Context, in Input) (bool, error) {
	doc, err := toDocument(in)
	if err != nil {
		return false, fmt.Errorf("build input: %w", err)
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}

// HealthCheck verifies that the prepared policy evaluates a minimal input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{
		"subject": map[string]any{"id": "", "role": ""},
		"action":  "",
	}))
	if err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// toDocument round-trips in through JSON so the policy sees the json tag names.
func toDocument(in Input) (map[string]any, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
