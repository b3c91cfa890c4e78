package media

import "sync/atomic"

// Uid is a process-wide unique identifier, handed out in increasing order.
// Frames use a Uid to let callers cheaply tell whether two Frame values
// originated from the same underlying data (e.g. Producer.RecycleFrame
// checking that the caller is recycling the frame it was just given).
type Uid uint64

var nextUid atomic.Uint64

// NewUid returns a Uid that has never been returned before by this process.
func NewUid() Uid {
	return Uid(nextUid.Add(1))
}
