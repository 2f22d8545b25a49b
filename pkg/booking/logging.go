package booking

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing booking or ledger operation.
type OperationLog struct {
	Operation string
	TenantID  TenantID
	StudentID StudentID
	BookingID *BookingID
	PaymentID *PaymentID
	Amount    Amount
	Status    string
	Detail    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithBalanceCache replaces the store-backed balance counter with an external cache.
func WithBalanceCache(cache BalanceCache) ServiceOption {
	return func(service *Service) {
		service.cache = cache
	}
}

// WithEventPublisher wires a publisher notified after committed operations.
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(service *Service) {
		service.publisher = publisher
	}
}

// WithIDGenerator overrides the identifier source for new bookings and payments.
func WithIDGenerator(generate func() string) ServiceOption {
	return func(service *Service) {
		if generate != nil {
			service.newID = generate
		}
	}
}

// WithDriftEpsilon sets the tolerated difference between cached and computed balances.
func WithDriftEpsilon(epsilon Amount) ServiceOption {
	return func(service *Service) {
		if epsilon >= 0 {
			service.driftEpsilon = epsilon
		}
	}
}
