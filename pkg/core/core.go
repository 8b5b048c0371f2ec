package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/croftlabs/croft/pkg/auth"
	"github.com/croftlabs/croft/pkg/config"
	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/log"
	"github.com/croftlabs/croft/pkg/metrics"
	"github.com/croftlabs/croft/pkg/namespace"
	"github.com/croftlabs/croft/pkg/node"
	"github.com/croftlabs/croft/pkg/registry"
	"github.com/croftlabs/croft/pkg/scheduler"
	"github.com/croftlabs/croft/pkg/secrets"
	"github.com/croftlabs/croft/pkg/security"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/store"
	"github.com/croftlabs/croft/pkg/types"
)

// collectorInterval is how often the inventory gauges are refreshed.
const collectorInterval = 15 * time.Second

// Core assembles the control plane: shared cluster state, the event broker,
// and every manager wired to it. Construct with New, then Start; Stop tears
// everything down in reverse order and waits for background loops to exit.
type Core struct {
	cfg *config.Config

	state      *state.State
	broker     *events.Broker
	registry   *registry.Registry
	nodes      *node.Manager
	namespaces *namespace.Manager
	secrets    *secrets.Manager
	scheduler  *scheduler.Scheduler
	auth       *auth.Service
	collector  *metrics.Collector
	store      store.StateStore

	authProvider auth.Provider
	uploadURL    registry.UploadURLFunc
	logger       zerolog.Logger

	mu      sync.Mutex
	running bool
}

// Option customizes a Core.
type Option func(*Core)

// WithAuthProvider supplies the identity backend. Without one the auth
// service is absent and Auth returns nil.
func WithAuthProvider(p auth.Provider) Option {
	return func(c *Core) { c.authProvider = p }
}

// WithUploadURLFunc overrides the pack upload URL generator.
func WithUploadURLFunc(fn registry.UploadURLFunc) Option {
	return func(c *Core) { c.uploadURL = fn }
}

// WithStore attaches a snapshot store. Start restores the last snapshot,
// Stop saves one; without a store the cluster lives in memory only.
func WithStore(s store.StateStore) Option {
	return func(c *Core) { c.store = s }
}

// New builds the control plane from configuration. Nothing runs yet; the
// broker, liveness monitor, session refresh, and metrics collector all wait
// for Start.
func New(cfg *config.Config, opts ...Option) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Core{
		cfg:    cfg,
		logger: log.WithComponent("core"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Secrets.MasterKey == "" {
		c.logger.Warn().Msg("no master key configured, secrets use an ephemeral cipher and are unrecoverable after restart")
	}
	cipher, err := newCipher(cfg.Secrets.MasterKey)
	if err != nil {
		return nil, err
	}

	c.state = state.New()
	c.broker = events.NewBroker()
	c.namespaces = namespace.New(c.state, c.broker, cfg.Namespace.InitializeDefaults)
	c.secrets = secrets.New(c.state, cipher, c.broker, cfg.Secrets.DefaultNamespace)
	c.scheduler = scheduler.New(c.state, c.namespaces, c.broker, cfg.Scheduler)

	var registryOpts []registry.Option
	if c.uploadURL != nil {
		registryOpts = append(registryOpts, registry.WithUploadURLFunc(c.uploadURL))
	}
	c.registry = registry.New(c.state, c.broker, registryOpts...)

	c.nodes = node.New(c.state, c.broker, node.Config{
		HeartbeatTimeout: cfg.Node.HeartbeatTimeout(),
		CheckInterval:    cfg.Node.HeartbeatCheckInterval(),
		EnableMonitoring: cfg.Node.EnableHeartbeatMonitoring,
		OnUnhealthy:      c.handleNodeUnhealthy,
		OnCapacityAdded:  func() { c.scheduler.SchedulePending() },
	})

	if c.authProvider != nil {
		c.auth = auth.New(c.authProvider, c.broker, cfg.Auth)
	}
	if cfg.Metrics.Enabled {
		c.collector = metrics.NewCollector(c.state, collectorInterval)
	}

	c.seedPriorityClasses()
	return c, nil
}

func newCipher(masterKey string) (*security.Cipher, error) {
	if masterKey == "" {
		return security.NewEphemeralCipher()
	}
	return security.NewCipherFromPassphrase(masterKey)
}

// seedPriorityClasses installs the configured priority classes. Existing
// classes with the same name are overwritten so a config change takes
// effect on restart.
func (c *Core) seedPriorityClasses() {
	if len(c.cfg.PriorityClasses) == 0 {
		return
	}
	_ = c.state.Update(func(d *state.Data) error {
		for _, pc := range c.cfg.PriorityClasses {
			d.PriorityClasses[pc.Name] = &types.PriorityClass{
				Name:             pc.Name,
				Value:            pc.Value,
				PreemptionPolicy: pc.PreemptionPolicy,
			}
		}
		return nil
	})
}

// handleNodeUnhealthy is the liveness monitor's hook: every pod on a node
// that missed its heartbeat deadline fails over.
func (c *Core) handleNodeUnhealthy(nodeID, nodeName string) error {
	failed, err := c.scheduler.FailPodsOnNode(nodeID,
		fmt.Sprintf("node %s became unhealthy", nodeName))
	if err != nil {
		return fmt.Errorf("fail pods on node %s: %w", nodeName, err)
	}
	if failed > 0 {
		c.logger.Warn().Str("node", nodeName).Int("pods", failed).
			Msg("pods failed over from unhealthy node")
	}
	return nil
}

// Start brings the control plane up: restores the last snapshot when a
// store is attached, then launches the broker, liveness monitor, session
// auto-refresh, and metrics collector. Idempotent.
func (c *Core) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	critical := []string{"core", "events"}
	if c.store != nil {
		critical = append(critical, "store")
	}
	metrics.SetCriticalComponents(critical...)

	c.broker.Start()
	metrics.RegisterComponent("events", true, "")

	if c.store != nil {
		snap, err := c.store.Load()
		if err != nil {
			metrics.RegisterComponent("store", false, err.Error())
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snap != nil {
			c.state.Restore(snap)
			c.logger.Info().Time("taken_at", snap.TakenAt).Msg("cluster state restored from snapshot")
		}
		metrics.RegisterComponent("store", true, "")
	}

	c.nodes.StartMonitor()
	if c.auth != nil {
		c.auth.StartAutoRefresh()
	}
	if c.collector != nil {
		c.collector.Start()
	}

	// Restored pending pods should not wait for the next capacity event.
	c.scheduler.SchedulePending()

	metrics.RegisterComponent("core", true, "")
	c.running = true
	c.logger.Info().Msg("control plane started")
	return nil
}

// Stop shuts the control plane down, saving a final snapshot when a store
// is attached. Background loops are fully drained before Stop returns.
// Idempotent.
func (c *Core) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false

	if c.collector != nil {
		c.collector.Stop()
	}
	if c.auth != nil {
		c.auth.StopAutoRefresh()
	}
	c.nodes.StopMonitor()
	c.broker.Stop()

	var err error
	if c.store != nil {
		if saveErr := c.store.Save(c.state.Snapshot()); saveErr != nil {
			err = fmt.Errorf("save snapshot: %w", saveErr)
		}
		if closeErr := c.store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close store: %w", closeErr)
		}
	}

	metrics.UpdateComponent("core", false, "stopped")
	c.logger.Info().Msg("control plane stopped")
	return err
}

// Save writes a snapshot of the current cluster state to the attached
// store. Callers without a store get a validation error.
func (c *Core) Save() error {
	if c.store == nil {
		return types.NewError(types.CodeValidation, "no snapshot store attached")
	}
	return c.store.Save(c.state.Snapshot())
}

// Snapshot returns a point-in-time copy of the cluster state.
func (c *Core) Snapshot() *types.ClusterSnapshot {
	return c.state.Snapshot()
}

// Restore replaces the cluster state with the snapshot contents.
func (c *Core) Restore(snap *types.ClusterSnapshot) {
	c.state.Restore(snap)
}

// State exposes the shared cluster state.
func (c *Core) State() *state.State { return c.state }

// Broker exposes the event broker for subscriptions.
func (c *Core) Broker() *events.Broker { return c.broker }

// Registry exposes the pack registry.
func (c *Core) Registry() *registry.Registry { return c.registry }

// Nodes exposes the node manager.
func (c *Core) Nodes() *node.Manager { return c.nodes }

// Namespaces exposes the namespace manager.
func (c *Core) Namespaces() *namespace.Manager { return c.namespaces }

// Secrets exposes the secret manager.
func (c *Core) Secrets() *secrets.Manager { return c.secrets }

// Scheduler exposes the pod scheduler.
func (c *Core) Scheduler() *scheduler.Scheduler { return c.scheduler }

// Auth exposes the auth service, or nil when no provider was configured.
func (c *Core) Auth() *auth.Service { return c.auth }
