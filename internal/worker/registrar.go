package worker

// ChannelRegistrar is the production SyncRegistrar: registrations land on
// a channel drained by the bootstrap loop, which dispatches the matching
// sync event once the worker is free. A registration arriving while one
// for the same tag is already pending is coalesced.
type ChannelRegistrar struct {
	requests chan SyncTag
}

// NewChannelRegistrar creates the registrar.
func NewChannelRegistrar() *ChannelRegistrar {
	return &ChannelRegistrar{
		requests: make(chan SyncTag, 8),
	}
}

// Register queues a sync request. Never blocks; when the buffer is full
// the pending requests already cover the work.
func (r *ChannelRegistrar) Register(tag SyncTag) error {
	select {
	case r.requests <- tag:
	default:
	}
	return nil
}

// Requests exposes the pending sync registrations.
func (r *ChannelRegistrar) Requests() <-chan SyncTag {
	return r.requests
}
