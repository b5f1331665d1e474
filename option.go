package gatekeeper

import (
	"github.com/viant/x"

	"github.com/viant/gatekeeper/service/approval"
	"github.com/viant/gatekeeper/service/catalog"
	"github.com/viant/gatekeeper/service/dao"
	"github.com/viant/gatekeeper/service/event"
	"github.com/viant/gatekeeper/service/messaging"
	"github.com/viant/gatekeeper/service/sla"
	"github.com/viant/gatekeeper/service/sla/breach"
	"github.com/viant/gatekeeper/service/sweeper"
	"github.com/viant/gatekeeper/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the gatekeeper service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithSweeperConfig overrides the sweeper configuration only.
func WithSweeperConfig(config sweeper.Config) Option {
	return func(s *Service) {
		if s.config == nil {
			s.config = DefaultConfig()
		}
		s.config.Sweeper = config
	}
}

// WithEventBackend injects a delivery backend, bypassing the configured
// backend selection.
func WithEventBackend(backend event.Backend) Option {
	return func(s *Service) { s.backend = backend }
}

// WithEventQueue sets the queue used by the queue delivery backend.
func WithEventQueue(queue messaging.Queue[event.Event]) Option {
	return func(s *Service) { s.eventQueue = queue }
}

// WithStoreBaseURL makes approvals, SLA definitions and breaches durable
// under the supplied afs URL.
func WithStoreBaseURL(baseURL string) Option {
	return func(s *Service) {
		if s.config == nil {
			s.config = DefaultConfig()
		}
		s.config.Store.BaseURL = baseURL
	}
}

// WithApprovalDAO sets the approval store.
func WithApprovalDAO(service dao.Service[string, approval.Approval]) Option {
	return func(s *Service) { s.approvalDAO = service }
}

// WithDefinitionDAO sets the SLA definition store.
func WithDefinitionDAO(service dao.Service[string, sla.Definition]) Option {
	return func(s *Service) { s.definitionDAO = service }
}

// WithBreachDAO sets the breach store.
func WithBreachDAO(service dao.Service[string, breach.Breach]) Option {
	return func(s *Service) { s.breachDAO = service }
}

// WithCatalog sets the action metadata catalog.
func WithCatalog(service *catalog.Service) Option {
	return func(s *Service) { s.catalog = service }
}

// WithExtensionTypes registers payload types for notifier decoding.
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) {
		s.extensionTypes = types
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If
// outputFile is empty the stdout exporter is used; otherwise traces are
// written to the supplied file path. The function is safe to call multiple
// times; the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter. This enables integrations with exporters other than the
// built-in stdout exporter, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
