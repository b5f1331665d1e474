package memory

import (
	"github.com/viant/gatekeeper/service/approval"
	"github.com/viant/gatekeeper/service/dao"
)

type Option func(*service)

// WithDAO replaces the default in-memory store, e.g. with a durable
// filesystem store so approvals survive restarts.
func WithDAO(store dao.Service[string, approval.Approval]) Option {
	return func(s *service) { s.dao = store }
}

// WithEscalationFactor sets the multiplier applied to the original timeout
// when a request does not carry an explicit escalation timeout.
func WithEscalationFactor(factor int) Option {
	return func(s *service) {
		if factor > 0 {
			s.factor = factor
		}
	}
}
