package testfixtures

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/events"
	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/persistence/memory"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// FacadeDeps captures dependencies for constructing a facade. Zero fields fall
// back to an in-memory store and the factory clock and identifiers.
type FacadeDeps struct {
	Store      persistence.Store
	Scheduling application.SchedulingPolicy
	Assignment application.AssignmentPolicy
	Publisher  events.Publisher
	Logger     *slog.Logger
}

// NewFacade builds an application facade using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewFacade(deps FacadeDeps) *application.Facade {
	store := deps.Store
	if store == nil {
		store = memory.New()
	}
	return application.NewFacade(application.FacadeConfig{
		Store:       store,
		Scheduling:  deps.Scheduling,
		Assignment:  deps.Assignment,
		IDGenerator: f.IDGenerator.NextFunc(),
		Now:         f.Clock.NowFunc(),
		Logger:      deps.Logger,
		Publisher:   deps.Publisher,
	})
}

// RecordingPublisher captures published events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

// Publish records event and returns Err.
func (p *RecordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

// Events returns a copy of the recorded events.
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the names of the recorded events in publish order.
func (p *RecordingPublisher) Names() []string {
	recorded := p.Events()
	names := make([]string, len(recorded))
	for i, event := range recorded {
		names[i] = event.Name
	}
	return names
}
