package adapter

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/trackable"
)

var (
	ErrInvalidImage   = errors.New("adapter: invalid reference image")
	ErrImageCollision = errors.New("adapter: image server id collision")
)

// ReferenceImage is an image the client asks the host to track.
type ReferenceImage struct {
	Name        string
	JPEG        []byte
	Type        custom.ImageType
	WidthMeters float32
}

// ImageServerID derives the wire id of a reference image from its name.
// The same name always maps to the same non-negative id.
func ImageServerID(name string) int32 {
	return int32(xxhash.Sum64String(name) & 0x7fffffff)
}

// Images correlates host image events with locally declared reference
// images. The host echoes the server id, so declared images are the only
// source of identity.
type Images struct {
	link
	registry *trackable.Registry

	mu       sync.RWMutex
	declared map[int32]ReferenceImage
}

func NewImages(reg *trackable.Registry, sender protocol.Sender) *Images {
	return &Images{
		link:     newLink(sender),
		registry: reg,
		declared: make(map[int32]ReferenceImage),
	}
}

func (a *Images) Register(d *dispatch.Custom) {
	d.Handle(custom.TypeImageAdded, a.HandleMessage)
	d.Handle(custom.TypeImageUpdated, a.HandleMessage)
	d.Handle(custom.TypeImageRemoved, a.HandleMessage)
}

// Declare adds img to the reference set and returns its server id. The
// image is sent immediately when connected and again on every reconnect.
func (a *Images) Declare(img ReferenceImage) (int32, error) {
	if img.Name == "" || len(img.JPEG) == 0 || img.WidthMeters <= 0 {
		return 0, fmt.Errorf("%w: name=%q bytes=%d width=%v", ErrInvalidImage, img.Name, len(img.JPEG), img.WidthMeters)
	}
	id := ImageServerID(img.Name)

	a.mu.Lock()
	if prev, ok := a.declared[id]; ok && prev.Name != img.Name {
		a.mu.Unlock()
		return 0, fmt.Errorf("%w: %q and %q both map to %d", ErrImageCollision, prev.Name, img.Name, id)
	}
	a.declared[id] = img
	a.mu.Unlock()

	if a.connected() {
		if err := a.sendImage(id, img); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Declared returns the reference images ordered by server id.
func (a *Images) Declared() []ReferenceImage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]int32, 0, len(a.declared))
	for id := range a.declared {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ReferenceImage, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.declared[id])
	}
	return out
}

func (a *Images) reference(id int32) (ReferenceImage, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	img, ok := a.declared[id]
	return img, ok
}

func (a *Images) sendImage(id int32, img ReferenceImage) error {
	return a.send(custom.ImageToTrack{
		ServerID:  id,
		ImageType: img.Type,
		Width:     img.WidthMeters,
		JPEG:      img.JPEG,
	})
}

func (a *Images) HandleMessage(msg custom.Message) {
	m, ok := msg.(custom.ImageEvent)
	if !ok {
		return
	}
	pose := coords.FlipPose(m.Pose)
	size := coords.Vector2{X: m.Width, Y: m.Height}

	switch m.Kind {
	case custom.TypeImageAdded:
		a.added(m.ImageID, pose, size)
	case custom.TypeImageUpdated:
		img, ok := trackable.Lookup[*trackable.Image](a.registry, m.ImageID)
		if !ok {
			return
		}
		img.Modify(func(d trackable.ImageData) trackable.ImageData {
			d.Pose = pose
			d.Size = size
			d.TrackingState = custom.TrackingTracking
			return d
		})
	case custom.TypeImageRemoved:
		img, ok := trackable.Lookup[*trackable.Image](a.registry, m.ImageID)
		if !ok {
			return
		}
		img.MarkRemoved()
	}
}

func (a *Images) added(id int32, pose coords.Pose, size coords.Vector2) {
	ref, ok := a.reference(id)
	if !ok {
		log.Debug().Int32("server_id", id).Msg("adapter.Images added for undeclared image dropped")
		return
	}
	if existing, ok := trackable.Lookup[*trackable.Image](a.registry, id); ok {
		// a removed entity waits for acknowledgement; late adds are dropped
		existing.Modify(func(d trackable.ImageData) trackable.ImageData {
			d.Pose = pose
			d.Size = size
			d.TrackingState = custom.TrackingTracking
			return d
		})
		return
	}
	img := trackable.NewImage(id, trackable.ImageData{
		Name:          ref.Name,
		ServerID:      id,
		Pose:          pose,
		Size:          size,
		TrackingState: custom.TrackingTracking,
	})
	if err := a.registry.Add(img); err != nil {
		// server ids share the registry key space with host plane ids
		log.Warn().Err(err).Int32("server_id", id).Str("image", ref.Name).Msg("adapter.Images add rejected")
	}
}

// Changes returns pending image transitions and purges acknowledged
// removals.
func (a *Images) Changes() Changes[trackable.ImageData] {
	return pollChanges[trackable.ImageData](a.registry)
}

// OnConnectionStateChanged resends every reference image on Connected and
// removes all tracked images otherwise.
func (a *Images) OnConnectionStateChanged(s protocol.ConnectionState) {
	a.setState(s)
	if !s.Connected() {
		if n := markAllRemoved[trackable.ImageData](a.registry); n > 0 {
			log.Info().Int("removed", n).Str("state", s.String()).Msg("adapter.Images tracked images removed")
		}
		return
	}
	for _, img := range a.Declared() {
		id := ImageServerID(img.Name)
		if err := a.sendImage(id, img); err != nil {
			log.Warn().Err(err).Str("image", img.Name).Msg("adapter.Images send failed")
		}
	}
}
