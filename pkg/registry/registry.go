package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/log"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// maxNameLength caps pack names.
const maxNameLength = 100

// namePattern matches lowercase DNS-label-like pack names.
var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)

// UploadURLFunc generates the opaque upload URL returned alongside a newly
// registered pack. The default generator is local; deployments point this at
// their artifact store.
type UploadURLFunc func(pack *types.Pack) (string, error)

// Registry is the immutable, versioned pack catalogue. A pack body never
// changes after registration; owners may update description and metadata
// only.
type Registry struct {
	state     *state.State
	broker    *events.Broker
	uploadURL UploadURLFunc
	logger    zerolog.Logger
}

// Option customizes a Registry.
type Option func(*Registry)

// WithUploadURLFunc overrides the upload URL generator.
func WithUploadURLFunc(fn UploadURLFunc) Option {
	return func(r *Registry) {
		if fn != nil {
			r.uploadURL = fn
		}
	}
}

// New creates a pack registry over the given cluster state.
func New(st *state.State, broker *events.Broker, opts ...Option) *Registry {
	r := &Registry{
		state:     st,
		broker:    broker,
		uploadURL: defaultUploadURL,
		logger:    log.WithComponent("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultUploadURL(pack *types.Pack) (string, error) {
	return "uploads/" + uuid.New().String(), nil
}

// RegisterInput is the request to register a new pack version.
type RegisterInput struct {
	Name         string
	Version      string
	Runtime      types.RuntimeTag
	Description  string
	Metadata     map[string]string
	BundleFormat string
}

// Register adds a new pack version owned by userID and returns the pack
// together with an upload URL for the bundle.
func (r *Registry) Register(input RegisterInput, userID string) (*types.Pack, string, error) {
	if userID == "" {
		return nil, "", types.NewError(types.CodeValidation, "a registering user is required")
	}
	if err := validateName(input.Name); err != nil {
		return nil, "", err
	}
	if !input.Runtime.Valid() {
		return nil, "", types.Errorf(types.CodeValidation, "unknown runtime tag %q", input.Runtime)
	}
	version, err := parseVersion(input.Version)
	if err != nil {
		return nil, "", err
	}

	format := input.BundleFormat
	if format == "" {
		format = "tgz"
	}

	now := time.Now()
	pack := &types.Pack{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Version:     input.Version,
		RuntimeTag:  input.Runtime,
		OwnerID:     userID,
		BundlePath:  fmt.Sprintf("packs/%s/%s/bundle.%s", input.Name, input.Version, format),
		Description: input.Description,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The URL hook is the one fallible I/O point, so it runs before the
	// state write: a hook failure must not leave the pack registered.
	uploadURL, err := r.uploadURL(pack)
	if err != nil {
		r.logger.Error().Err(err).Str("pack", pack.Name).Msg("upload URL generation failed")
		return nil, "", fmt.Errorf("generate upload URL: %w", err)
	}

	err = r.state.Update(func(d *state.Data) error {
		for _, existing := range d.Packs {
			if existing.Name == pack.Name && sameVersion(existing.Version, version) {
				return types.Errorf(types.CodeVersionExists,
					"pack %s@%s is already registered", pack.Name, pack.Version)
			}
		}
		d.Packs[pack.ID] = pack.Clone()
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	r.logger.Info().Str("pack", pack.Name).Str("version", pack.Version).Msg("pack registered")
	r.publish(events.New(events.EventPackRegistered, "pack registered",
		"pack_id", pack.ID, "name", pack.Name, "version", pack.Version))
	return pack, uploadURL, nil
}

// Get returns a pack by ID.
func (r *Registry) Get(id string) (*types.Pack, error) {
	var pack *types.Pack
	err := r.state.View(func(d *state.Data) error {
		p, ok := d.Packs[id]
		if !ok {
			return types.Errorf(types.CodePackNotFound, "pack %s not found", id)
		}
		pack = p.Clone()
		return nil
	})
	return pack, err
}

// GetByNameVersion returns the pack with the given name and version.
// Versions are compared numerically, so "1.0" finds a pack stored as "1.0.0".
func (r *Registry) GetByNameVersion(name, version string) (*types.Pack, error) {
	v, err := parseVersion(version)
	if err != nil {
		return nil, err
	}
	var pack *types.Pack
	err = r.state.View(func(d *state.Data) error {
		for _, p := range d.Packs {
			if p.Name == name && sameVersion(p.Version, v) {
				pack = p.Clone()
				return nil
			}
		}
		return types.Errorf(types.CodeVersionNotFound, "pack %s@%s not found", name, version)
	})
	return pack, err
}

// UpdateInput patches the mutable fields of a pack. Nil fields are left
// unchanged.
type UpdateInput struct {
	Description *string
	Metadata    map[string]string
}

// Update patches a pack's description and metadata. Only the owner may
// update.
func (r *Registry) Update(id string, patch UpdateInput, requesterID string) (*types.Pack, error) {
	var updated *types.Pack
	err := r.state.Update(func(d *state.Data) error {
		pack, ok := d.Packs[id]
		if !ok {
			return types.Errorf(types.CodePackNotFound, "pack %s not found", id)
		}
		if pack.OwnerID != requesterID {
			return types.Errorf(types.CodeForbidden, "pack %s is not owned by the requester", id)
		}
		if patch.Description != nil {
			pack.Description = *patch.Description
		}
		if patch.Metadata != nil {
			pack.Metadata = patch.Metadata
		}
		pack.UpdatedAt = time.Now()
		updated = pack.Clone()
		return nil
	})
	return updated, err
}

// Delete removes one pack version. Only the owner may delete.
func (r *Registry) Delete(id, requesterID string) error {
	var name, version string
	err := r.state.Update(func(d *state.Data) error {
		pack, ok := d.Packs[id]
		if !ok {
			return types.Errorf(types.CodePackNotFound, "pack %s not found", id)
		}
		if pack.OwnerID != requesterID {
			return types.Errorf(types.CodeForbidden, "pack %s is not owned by the requester", id)
		}
		name, version = pack.Name, pack.Version
		delete(d.Packs, id)
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info().Str("pack", name).Str("version", version).Msg("pack deleted")
	r.publish(events.New(events.EventPackDeleted, "pack deleted",
		"pack_id", id, "name", name, "version", version))
	return nil
}

// DeleteAllVersions removes every version of the named pack. The requester
// must own every version; otherwise nothing is deleted.
func (r *Registry) DeleteAllVersions(name, requesterID string) (int, error) {
	var deleted int
	err := r.state.Update(func(d *state.Data) error {
		var ids []string
		for id, pack := range d.Packs {
			if pack.Name != name {
				continue
			}
			if pack.OwnerID != requesterID {
				return types.Errorf(types.CodeForbidden,
					"pack %s@%s is not owned by the requester", name, pack.Version)
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return types.Errorf(types.CodePackNotFound, "pack %s not found", name)
		}
		for _, id := range ids {
			delete(d.Packs, id)
		}
		deleted = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info().Str("pack", name).Int("versions", deleted).Msg("all pack versions deleted")
	r.publish(events.New(events.EventPackDeleted, "all pack versions deleted", "name", name))
	return deleted, nil
}

// Summary is one row of a pack listing: the latest version of a name plus
// how many versions exist under that name.
type Summary struct {
	Pack         *types.Pack
	VersionCount int
}

// List returns the latest version of every pack name, sorted by name.
func (r *Registry) List() []Summary {
	var summaries []Summary
	_ = r.state.View(func(d *state.Data) error {
		summaries = summarize(lo.Values(d.Packs))
		return nil
	})
	return summaries
}

// Search returns the latest version of every pack whose name contains the
// query, case-insensitively.
func (r *Registry) Search(query string) []Summary {
	needle := strings.ToLower(query)
	var summaries []Summary
	_ = r.state.View(func(d *state.Data) error {
		matched := lo.Filter(lo.Values(d.Packs), func(p *types.Pack, _ int) bool {
			return strings.Contains(strings.ToLower(p.Name), needle)
		})
		summaries = summarize(matched)
		return nil
	})
	return summaries
}

// LatestVersion returns the highest version registered under name.
func (r *Registry) LatestVersion(name string) (*types.Pack, error) {
	var latest *types.Pack
	err := r.state.View(func(d *state.Data) error {
		for _, p := range d.Packs {
			if p.Name != name {
				continue
			}
			if latest == nil || CompareVersions(p.Version, latest.Version) > 0 {
				latest = p
			}
		}
		if latest == nil {
			return types.Errorf(types.CodePackNotFound, "pack %s not found", name)
		}
		latest = latest.Clone()
		return nil
	})
	return latest, err
}

func summarize(packs []*types.Pack) []Summary {
	byName := lo.GroupBy(packs, func(p *types.Pack) string { return p.Name })
	summaries := make([]Summary, 0, len(byName))
	for _, versions := range byName {
		latest := lo.MaxBy(versions, func(a, b *types.Pack) bool {
			return CompareVersions(a.Version, b.Version) > 0
		})
		summaries = append(summaries, Summary{
			Pack:         latest.Clone(),
			VersionCount: len(versions),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Pack.Name < summaries[j].Pack.Name
	})
	return summaries
}

func (r *Registry) publish(event *events.Event) {
	if r.broker != nil {
		r.broker.Publish(event)
	}
}

func validateName(name string) error {
	if name == "" {
		return types.NewError(types.CodeValidation, "pack name is required")
	}
	if len(name) > maxNameLength {
		return types.Errorf(types.CodeValidation,
			"pack name exceeds %d characters", maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return types.Errorf(types.CodeValidation,
			"pack name %q must be lowercase alphanumeric with . _ - separators", name)
	}
	return nil
}

func parseVersion(raw string) (*semver.Version, error) {
	if raw == "" {
		return nil, types.NewError(types.CodeValidation, "pack version is required")
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, types.Errorf(types.CodeValidation, "invalid semver %q", raw)
	}
	return v, nil
}

// CompareVersions orders two version strings by their numeric dot-segments,
// with missing segments treated as zero. Pre-release and build metadata are
// ignored: 1.0.0-rc1 equals 1.0.0 for catalogue ordering. Unparseable
// versions sort lowest.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		if errA == nil {
			return 1
		}
		if errB == nil {
			return -1
		}
		return 0
	}
	return compareCore(va, vb)
}

func compareCore(a, b *semver.Version) int {
	if c := compareUint(a.Major(), b.Major()); c != 0 {
		return c
	}
	if c := compareUint(a.Minor(), b.Minor()); c != 0 {
		return c
	}
	return compareUint(a.Patch(), b.Patch())
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sameVersion(stored string, v *semver.Version) bool {
	sv, err := semver.NewVersion(stored)
	if err != nil {
		return false
	}
	return compareCore(sv, v) == 0
}
