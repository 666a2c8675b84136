package commands

import (
	"cmp"
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/memory"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
	"github.com/spaghettifunk/renderqueue/engine/renderer/keys"
)

const (
	DEFAULT_MAX_ELEMENTS = 2048
	DEFAULT_COMMAND_SIZE = 128
)

/** @brief Sizing of the command packets created by a bucket. */
type PacketConfig struct {
	/** @brief The maximum number of records per buffer region. */
	Capacity int
	/** @brief Arena bytes reserved per record, payload and aux data included. */
	CommandSize int
	/** @brief What happens when a command cannot be recorded. */
	Policy core.FailurePolicy
}

func DefaultPacketConfig() PacketConfig {
	return PacketConfig{
		Capacity:    DEFAULT_MAX_ELEMENTS,
		CommandSize: DEFAULT_COMMAND_SIZE,
		Policy:      core.FailurePolicyReport,
	}
}

func (c PacketConfig) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("packet capacity must be greater than 0, have %d", c.Capacity)
	}
	if c.CommandSize < headerSize+8 {
		return fmt.Errorf("packet command size must be at least %d bytes, have %d", headerSize+8, c.CommandSize)
	}
	return nil
}

// Record pairs a sort key with a command stored in the packet's arena.
type Record struct {
	Key  keys.SortKey
	slot int32
}

type slot struct {
	// Payload offset in the arena.
	offset   int32
	dispatch DispatchFunc
	// Next chained command, -1 when none.
	next int32
	// Last command of the chain that starts here.
	tail int32
}

type region struct {
	base    int
	end     int
	records []Record
	slots   []slot
	readers atomic.Int32
}

func (r *region) reset() {
	r.records = r.records[:0]
	r.slots = r.slots[:0]
}

// CommandPacket stores sortable command records for one bucket key. Its arena
// is split in two regions: commands are written into one while the other is
// sorted and flushed.
type CommandPacket struct {
	key     keys.BucketKey
	config  PacketConfig
	arena   *memory.LinearAllocator
	regions [2]region
	write   atomic.Uint32
}

func NewCommandPacket(key keys.BucketKey, config PacketConfig) (*CommandPacket, error) {
	if err := config.Validate(); err != nil {
		core.LogError("NewCommandPacket - %s", err)
		return nil, err
	}
	regionSize := config.Capacity * config.CommandSize
	p := &CommandPacket{
		key:    key,
		config: config,
		arena:  memory.NewLinearAllocator(2 * regionSize),
	}
	for i := range p.regions {
		r := &p.regions[i]
		r.base = i * regionSize
		r.end = r.base + regionSize
		r.records = make([]Record, 0, config.Capacity)
		r.slots = make([]slot, 0, config.Capacity)
	}
	p.arena.SetWindow(p.regions[0].base, p.regions[0].end)
	return p, nil
}

func (p *CommandPacket) Key() keys.BucketKey {
	return p.key
}

func (p *CommandPacket) Capacity() int {
	return p.config.Capacity
}

func (p *CommandPacket) writeRegion() *region {
	return &p.regions[p.write.Load()]
}

func (p *CommandPacket) readRegion() *region {
	return &p.regions[1-p.write.Load()]
}

// Len is the number of records in the write region.
func (p *CommandPacket) Len() int {
	return len(p.writeRegion().records)
}

// FlushLen is the number of records in the flush region.
func (p *CommandPacket) FlushLen() int {
	return len(p.readRegion().records)
}

// Records returns the flush region's records. The slice must not be modified.
func (p *CommandPacket) Records() []Record {
	return p.readRegion().records
}

// allocate reserves header, payload and aux bytes in the write region and
// registers a slot for them.
func (p *CommandPacket) allocate(layout payloadLayout, auxSize int, dispatch DispatchFunc) (int32, unsafe.Pointer, []byte, error) {
	if layout.err != nil {
		return -1, nil, nil, p.config.Policy.Fail(layout.err)
	}
	if auxSize < 0 {
		return -1, nil, nil, p.config.Policy.Fail(fmt.Errorf("negative aux size %d", auxSize))
	}
	align := max(layout.align, int(unsafe.Alignof(commandHeader{})))
	payloadStart := alignUp(headerSize, align)
	size := payloadStart + layout.size + auxSize

	off, err := p.arena.AllocateOffset(size, align)
	if err != nil {
		return -1, nil, nil, p.config.Policy.Fail(fmt.Errorf("packet %#x: %w", uint64(p.key), err))
	}

	r := p.writeRegion()
	idx := int32(len(r.slots))
	payloadOffset := off + payloadStart
	header := (*commandHeader)(p.arena.Pointer(payloadOffset - headerSize))
	header.slot = idx
	header.auxSize = uint32(auxSize)
	r.slots = append(r.slots, slot{
		offset:   int32(payloadOffset),
		dispatch: dispatch,
		next:     -1,
		tail:     idx,
	})

	var aux []byte
	if auxSize > 0 {
		aux = p.arena.Bytes(payloadOffset+layout.size, auxSize)
		clear(aux)
	}
	return idx, p.arena.Pointer(payloadOffset), aux, nil
}

func submitCommand[T any, PT commandPtr[T]](p *CommandPacket, key keys.SortKey, auxSize int) (*T, []byte, error) {
	r := p.writeRegion()
	if len(r.records) >= p.config.Capacity {
		return nil, nil, p.config.Policy.Fail(fmt.Errorf("%w: packet %#x holds %d records", core.ErrPacketFull, uint64(p.key), p.config.Capacity))
	}
	idx, payload, aux, err := p.allocate(layoutOf[T](), auxSize, dispatchCommand[T, PT])
	if err != nil {
		return nil, nil, err
	}
	r.records = append(r.records, Record{Key: key, slot: idx})

	cmd := (*T)(payload)
	var zero T
	*cmd = zero
	return cmd, aux, nil
}

// SubmitCommand records a command of type T under key and returns its payload
// for the caller to fill in. The result is nil when the packet is full or its
// region is out of space.
func SubmitCommand[T any, PT commandPtr[T]](p *CommandPacket, key keys.SortKey) (*T, error) {
	cmd, _, err := submitCommand[T, PT](p, key, 0)
	return cmd, err
}

// SubmitCommandAux is SubmitCommand with auxSize extra bytes stored after the payload.
func SubmitCommandAux[T any, PT commandPtr[T]](p *CommandPacket, key keys.SortKey, auxSize int) (*T, []byte, error) {
	return submitCommand[T, PT](p, key, auxSize)
}

// AppendCommand chains a command after parent, a payload returned by this
// packet in the current write region. Chained commands share the parent's
// record and are dispatched right after it, they do not count toward capacity.
func AppendCommand[T any, PT commandPtr[T], P any](p *CommandPacket, parent *P) (*T, error) {
	r := p.writeRegion()
	off, ok := p.arena.OffsetOf(unsafe.Pointer(parent))
	if !ok || off-headerSize < r.base {
		return nil, p.config.Policy.Fail(fmt.Errorf("%w: packet %#x", core.ErrInvalidCommand, uint64(p.key)))
	}
	header := (*commandHeader)(p.arena.Pointer(off - headerSize))
	if header.slot < 0 || int(header.slot) >= len(r.slots) || r.slots[header.slot].offset != int32(off) {
		return nil, p.config.Policy.Fail(fmt.Errorf("%w: packet %#x", core.ErrInvalidCommand, uint64(p.key)))
	}

	idx, payload, _, err := p.allocate(layoutOf[T](), 0, dispatchCommand[T, PT])
	if err != nil {
		return nil, err
	}
	head := &r.slots[header.slot]
	r.slots[head.tail].next = idx
	head.tail = idx

	cmd := (*T)(payload)
	var zero T
	*cmd = zero
	return cmd, nil
}

// owns reports whether ptr points into the write region.
func (p *CommandPacket) owns(ptr unsafe.Pointer) bool {
	_, ok := p.arena.OffsetOf(ptr)
	return ok
}

// SwapBuffer makes the flush region the new write region and resets it. The
// records written so far become the flush region.
// Swapping while the reclaimed region is being flushed is a logic error and panics.
func (p *CommandPacket) SwapBuffer() {
	next := 1 - p.write.Load()
	r := &p.regions[next]
	if r.readers.Load() > 0 {
		err := fmt.Errorf("%w: packet %#x", core.ErrSwapWhileReading, uint64(p.key))
		core.LogError("%s", err)
		panic(err)
	}
	r.reset()
	p.arena.SetWindow(r.base, r.end)
	p.write.Store(next)
}

// SortRecords orders the flush region by ascending key. Equal keys keep their
// submission order, so sorting again changes nothing.
func (p *CommandPacket) SortRecords() {
	slices.SortStableFunc(p.readRegion().records, func(a, b Record) int {
		return cmp.Compare(a.Key, b.Key)
	})
}

// Flush dispatches every command of the flush region in record order,
// without binding any state.
func (p *CommandPacket) Flush(backend renderer.Backend) int {
	n := 0
	p.read(func(r *region) {
		for _, rec := range r.records {
			n += p.dispatch(r, backend, rec)
		}
	})
	return n
}

// read marks the flush region as in use for the duration of fn.
func (p *CommandPacket) read(fn func(r *region)) {
	r := p.readRegion()
	r.readers.Add(1)
	defer r.readers.Add(-1)
	fn(r)
}

// dispatch runs a record's command and its chain, returning how many ran.
func (p *CommandPacket) dispatch(r *region, backend renderer.Backend, rec Record) int {
	n := 0
	for i := rec.slot; i >= 0; i = r.slots[i].next {
		s := r.slots[i]
		s.dispatch(backend, p.arena.Pointer(int(s.offset)))
		n++
	}
	return n
}

// CommandAt returns the payload of the i-th record in the write region. T must
// be the type the record was submitted with.
func CommandAt[T any](p *CommandPacket, i int) (*T, error) {
	r := p.writeRegion()
	if i < 0 || i >= len(r.records) {
		return nil, fmt.Errorf("command index %d out of range [0, %d)", i, len(r.records))
	}
	return (*T)(p.arena.Pointer(int(r.slots[r.records[i].slot].offset))), nil
}
