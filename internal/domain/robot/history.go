package robot

// HistoryCapacity is how many stream commands History retains.
const HistoryCapacity = 20

// History is a fixed-capacity FIFO of recent stream commands.
// It is not safe for concurrent use; the owning actor serializes access.
type History struct {
	buf   [HistoryCapacity]StreamCommand
	start int
	size  int
}

// Push appends cmd, dropping the oldest entry when full.
func (h *History) Push(cmd StreamCommand) {
	if h.size < HistoryCapacity {
		h.buf[(h.start+h.size)%HistoryCapacity] = cmd
		h.size++

		return
	}

	h.buf[h.start] = cmd
	h.start = (h.start + 1) % HistoryCapacity
}

// Len returns the number of retained commands.
func (h *History) Len() int {
	return h.size
}

// Snapshot returns the retained commands oldest-first in a new slice.
func (h *History) Snapshot() []StreamCommand {
	out := make([]StreamCommand, h.size)
	for i := range h.size {
		out[i] = h.buf[(h.start+i)%HistoryCapacity]
	}

	return out
}

// Reset drops every retained command.
func (h *History) Reset() {
	*h = History{}
}

// Restore replaces the contents with cmds, keeping the newest entries when
// cmds is longer than the capacity.
func (h *History) Restore(cmds []StreamCommand) {
	h.Reset()

	if len(cmds) > HistoryCapacity {
		cmds = cmds[len(cmds)-HistoryCapacity:]
	}

	for _, cmd := range cmds {
		h.Push(cmd)
	}
}
