package transport

// Partition maps an instrument id to its owning partition. instrumentId is
// carried on the wire as an unsigned integer, so unlike the Java reference
// (whose instrumentId is a signed int and needs Math.abs to guard against a
// negative % result) there is no sign to correct for here.
func Partition(instrumentID uint32, numPartitions int) int {
	return int(instrumentID % uint32(numPartitions))
}

// Bus owns the fixed set of P inbound and outbound streams, one pair per
// partition. Both are allocated eagerly at construction: gateway ingress
// handles a fresh goroutine per connection (cmd/flashomsd's
// `go ingress.HandleConnection(conn)`), and a lazily-allocated inbound slot
// would be a check-then-set race between two connections routing to the same
// previously-untouched partition for the first time.
type Bus struct {
	numPartitions int
	streamCap     int

	inbound  []*Stream
	outbound []*Stream
}

// NewBus creates a Bus with all inbound and outbound streams allocated
// up front, each of streamCapacity (a power of 2).
func NewBus(numPartitions, streamCapacity int) *Bus {
	inbound := make([]*Stream, numPartitions)
	outbound := make([]*Stream, numPartitions)
	for i := range outbound {
		inbound[i] = NewStream(streamCapacity)
		outbound[i] = NewStream(streamCapacity)
	}
	return &Bus{
		numPartitions: numPartitions,
		streamCap:     streamCapacity,
		inbound:       inbound,
		outbound:      outbound,
	}
}

// Inbound returns the inbound stream for partition. It always exists.
func (b *Bus) Inbound(partition int) *Stream {
	return b.inbound[partition]
}

// Outbound returns the outbound stream for partition. It always exists.
func (b *Bus) Outbound(partition int) *Stream {
	return b.outbound[partition]
}

// NumPartitions reports P.
func (b *Bus) NumPartitions() int {
	return b.numPartitions
}
