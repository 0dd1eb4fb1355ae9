package component

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/wildparky/pflow/errors"
)

// Component type categories
const (
	TypeInput     = "input"
	TypeProcessor = "processor"
	TypeOutput    = "output"
	TypeGraph     = "graph"
)

// MaxNameLength bounds component and factory names
const MaxNameLength = 128

// Factory creates a node from its instance name and free-form configuration.
// Factories decode their own config (see DecodeConfig) and must not do I/O;
// I/O belongs in the component's Run.
type Factory func(name string, cfg map[string]any, deps Dependencies) (Node, error)

// Registration holds factory and metadata for a component type
type Registration struct {
	Name        string  `json:"name"`        // Factory name (e.g., "Repeat")
	Type        string  `json:"type"`        // input/processor/output/graph
	Description string  `json:"description"` // Human-readable description
	Version     string  `json:"version"`     // Component version
	Factory     Factory `json:"-"`           // Factory function (not serializable)
}

// RegistrationConfig provides a clean API for component registration.
// It maps 1:1 to Registration struct fields.
type RegistrationConfig struct {
	Name        string
	Factory     Factory
	Type        string
	Description string
	Version     string
}

// Registry manages component factories by type name. It is safe for
// concurrent use.
type Registry struct {
	factories map[string]*Registration
	mu        sync.RWMutex
}

// NewRegistry creates a new empty component registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Registration),
	}
}

// RegisterFactory registers a component factory with the given name.
// Returns an error if a factory with the same name is already registered.
func (r *Registry) RegisterFactory(name string, registration *Registration) error {
	if err := ValidateComponentName(name); err != nil {
		return errors.Wrap(err, "Registry", "RegisterFactory", "factory name validation")
	}
	if registration == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "registration validation")
	}
	if registration.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory function validation")
	}
	switch registration.Type {
	case TypeInput, TypeProcessor, TypeOutput, TypeGraph:
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown component type %q", errors.ErrInvalidConfig, registration.Type),
			"Registry", "RegisterFactory", "component type validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		msg := fmt.Errorf("factory '%s' is already registered", name)
		return errors.WrapInvalid(msg, "Registry", "RegisterFactory", "duplicate factory check")
	}

	r.factories[name] = registration
	return nil
}

// RegisterWithConfig registers a component using a configuration struct.
//
// Example usage:
//
//	registry.RegisterWithConfig(component.RegistrationConfig{
//		Name:        "Repeat",
//		Factory:     NewRepeatFactory,
//		Type:        component.TypeProcessor,
//		Description: "Forwards every input packet unchanged",
//		Version:     "1.0.0",
//	})
func (r *Registry) RegisterWithConfig(config RegistrationConfig) error {
	return r.RegisterFactory(config.Name, &Registration{
		Name:        config.Name,
		Type:        config.Type,
		Description: config.Description,
		Version:     config.Version,
		Factory:     config.Factory,
	})
}

// Create builds a node of the named type. The node is not yet initialized;
// adding it to a graph initializes it.
func (r *Registry) Create(typeName, instanceName string, cfg map[string]any, deps Dependencies) (Node, error) {
	if err := ValidateComponentName(instanceName); err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", "instance name validation")
	}

	factory, ok := r.GetFactory(typeName)
	if !ok {
		msg := fmt.Errorf("unknown component factory '%s'", typeName)
		return nil, errors.WrapInvalid(msg, "Registry", "Create", "factory lookup")
	}

	node, err := factory(instanceName, cfg, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", fmt.Sprintf("factory %s execution", typeName))
	}
	if node == nil || node.Core() == nil {
		return nil, errors.WrapFatal(fmt.Errorf("factory %s returned no node", typeName), "Registry", "Create", "factory result")
	}
	return node, nil
}

// GetFactory returns a specific factory by name
func (r *Registry) GetFactory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return registration.Factory, true
}

// ListFactories returns a copy of all registrations keyed by name
func (r *Registry) ListFactories() map[string]*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Registration, len(r.factories))
	maps.Copy(result, r.factories)
	return result
}

// ListComponentTypes returns the registered factory names, sorted
func (r *Registry) ListComponentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.factories))
}

// Describe returns metadata about a component type, including its ports
// when an instance can be built from an empty configuration.
func (r *Registry) Describe(name string) (Info, error) {
	r.mu.RLock()
	registration, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return Info{}, errors.WrapInvalid(
			fmt.Errorf("component type %q not found", name), "Registry", "Describe", "factory lookup")
	}

	info := Info{
		Name:        registration.Name,
		Type:        registration.Type,
		Description: registration.Description,
		Version:     registration.Version,
	}

	node, err := registration.Factory("describe", nil, Dependencies{})
	if err != nil || node == nil {
		return info, nil
	}
	if err := InitializeNode(node); err != nil {
		return info, nil
	}
	info.Inputs, info.Outputs = DescribePorts(node)
	return info, nil
}

// ListAvailable returns information about every registered type, sorted by name
func (r *Registry) ListAvailable() []Info {
	names := r.ListComponentTypes()
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		if info, err := r.Describe(name); err == nil {
			infos = append(infos, info)
		}
	}
	return infos
}

// ValidateComponentName validates component and factory names. Letters,
// digits, dash and underscore are allowed; dots and slashes are reserved
// for port references and paths.
func ValidateComponentName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName", "empty name")
	}
	if len(name) > MaxNameLength {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName", "name too long")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_') {
			return errors.WrapInvalid(
				errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName",
				"invalid name characters")
		}
	}
	return nil
}

// DecodeConfig decodes a free-form component configuration into target,
// a pointer to a struct with mapstructure tags. Strings convert to numbers
// and durations where needed; unknown keys are rejected.
func DecodeConfig(cfg map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.WrapFatal(err, "Config", "Decode", "create decoder")
	}
	if cfg == nil {
		return nil
	}
	if err := decoder.Decode(cfg); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err), "Config", "Decode", "decode component config")
	}
	return nil
}
