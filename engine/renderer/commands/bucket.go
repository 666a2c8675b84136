package commands

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/google/uuid"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
	"github.com/spaghettifunk/renderqueue/engine/renderer/keys"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

// CommandBucket groups the packets of one render pass by bucket key.
//
// Submitting, Swap and Clear belong to the producer. Flush belongs to the
// consumer and only touches the packets captured by the last Swap.
type CommandBucket struct {
	ID   uuid.UUID
	Name string

	config    PacketConfig
	codec     *keys.Codec
	submitter *Submitter

	packets map[keys.BucketKey]*CommandPacket
	// Packets in ascending bucket key order.
	order []*CommandPacket
	// Packets captured by the last Swap.
	flushing []*CommandPacket
}

func NewCommandBucket(name string, config PacketConfig, codec *keys.Codec) (*CommandBucket, error) {
	if err := config.Validate(); err != nil {
		core.LogError("NewCommandBucket - %s", err)
		return nil, err
	}
	return &CommandBucket{
		ID:        uuid.New(),
		Name:      name,
		config:    config,
		codec:     codec,
		submitter: NewSubmitter(codec.Registry(), config.Policy),
		packets:   make(map[keys.BucketKey]*CommandPacket),
	}, nil
}

func (b *CommandBucket) Config() PacketConfig {
	return b.config
}

// Packet returns the packet of key, nil if nothing was submitted under it.
func (b *CommandBucket) Packet(key keys.BucketKey) *CommandPacket {
	return b.packets[key]
}

func (b *CommandBucket) PacketCount() int {
	return len(b.order)
}

func (b *CommandBucket) GetOrCreatePacket(key keys.BucketKey) (*CommandPacket, error) {
	if p, ok := b.packets[key]; ok {
		return p, nil
	}
	p, err := NewCommandPacket(key, b.config)
	if err != nil {
		return nil, err
	}
	b.packets[key] = p
	i := sort.Search(len(b.order), func(i int) bool { return b.order[i].key >= key })
	b.order = append(b.order, nil)
	copy(b.order[i+1:], b.order[i:])
	b.order[i] = p
	core.LogDebug("bucket %s: created packet %#x", b.Name, uint64(key))
	return p, nil
}

// CreateCommand records a command of type T in the packet of bucketKey.
func CreateCommand[T any, PT commandPtr[T]](b *CommandBucket, bucketKey keys.BucketKey, sortKey keys.SortKey) (*T, error) {
	p, err := b.GetOrCreatePacket(bucketKey)
	if err != nil {
		return nil, err
	}
	return SubmitCommand[T, PT](p, sortKey)
}

// CreateDrawCommand encodes the sort key from the resources the command is drawn with.
func CreateDrawCommand[T any, PT commandPtr[T]](b *CommandBucket, bucketKey keys.BucketKey, priority uint8, renderTarget, shader, vertexSource, material resources.Handle) (*T, error) {
	key, err := b.codec.Encode(priority, renderTarget, shader, vertexSource, material)
	if err != nil {
		return nil, b.config.Policy.Fail(fmt.Errorf("bucket %s: %w", b.Name, err))
	}
	return CreateCommand[T, PT](b, bucketKey, key)
}

// CreateStateCommand picks the bucket key from the material's render state and
// shader, so blended materials land in packets after the opaque ones.
func CreateStateCommand[T any, PT commandPtr[T]](b *CommandBucket, priority uint8, renderTarget, vertexSource, material resources.Handle) (*T, error) {
	registry := b.codec.Registry()
	m, err := resources.Get[resources.Material](registry, material)
	if err != nil {
		return nil, b.config.Policy.Fail(fmt.Errorf("bucket %s: %w", b.Name, err))
	}
	shader, err := registry.CompressID(resources.CategoryShader, m.Shader)
	if err != nil {
		return nil, b.config.Policy.Fail(fmt.Errorf("bucket %s: material %q: %w", b.Name, m.Name, err))
	}
	return CreateDrawCommand[T, PT](b, keys.StateBucketKey(m.State, shader), priority, renderTarget, m.Shader, vertexSource, material)
}

// ChainCommand appends a command after parent, a payload created by this
// bucket since the last Swap. See AppendCommand.
func ChainCommand[T any, PT commandPtr[T], P any](b *CommandBucket, parent *P) (*T, error) {
	for _, p := range b.order {
		if p.owns(unsafe.Pointer(parent)) {
			return AppendCommand[T, PT](p, parent)
		}
	}
	return nil, b.config.Policy.Fail(fmt.Errorf("%w: bucket %s", core.ErrInvalidCommand, b.Name))
}

// Swap swaps every packet and captures them for the next Flush.
func (b *CommandBucket) Swap() {
	for _, p := range b.order {
		p.SwapBuffer()
	}
	b.flushing = append(b.flushing[:0], b.order...)
}

// Flush sorts and submits every packet captured by the last Swap.
func (b *CommandBucket) Flush(backend renderer.Backend) Stats {
	var stats Stats
	for _, p := range b.flushing {
		if p.FlushLen() == 0 {
			continue
		}
		p.SortRecords()
		stats.Add(b.submitter.Submit(backend, p))
	}
	return stats
}

// End swaps and flushes on the calling goroutine.
func (b *CommandBucket) End(backend renderer.Backend) Stats {
	b.Swap()
	return b.Flush(backend)
}

// Clear drops every packet. Packets captured by the last Swap stay valid for Flush.
func (b *CommandBucket) Clear() {
	b.reset()
}

// reset forgets the packets but leaves the last captured ones to the consumer.
func (b *CommandBucket) reset() {
	clear(b.packets)
	b.order = nil
}

// Reconfigure applies config to packets created from now on and drops the
// current ones. The packets captured by the last Swap stay valid for Flush.
func (b *CommandBucket) Reconfigure(config PacketConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	b.config = config
	b.submitter.policy = config.Policy
	b.reset()
	return nil
}
