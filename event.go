package simline

// actionKind orders events that fall at the same simulation time. Lower
// values run first; this encodes the protocol's "release capacity before
// the next thing tries to claim it" discipline (e.g. put_part must run
// before request_part so a machine that just finished is eligible to pull
// its next part in the same tick).
type actionKind int

const (
	actionGenerateArrival actionKind = iota
	actionRequestSpace
	actionPutPart
	actionRestore
	actionMaintainPlannedFailure
	actionDegrade
	actionEnterQueue
	actionFail
	actionInspect
	actionMaintain
	actionRequestPart
	actionGetPart
	actionTerminate
)

func (k actionKind) String() string {
	switch k {
	case actionGetPart:
		return "get_part"
	case actionPutPart:
		return "put_part"
	case actionGenerateArrival:
		return "generate_arrival"
	case actionRequestSpace:
		return "request_space"
	case actionRestore:
		return "restore"
	case actionDegrade:
		return "degrade"
	case actionEnterQueue:
		return "enter_queue"
	case actionFail:
		return "fail"
	case actionMaintain:
		return "maintain"
	case actionMaintainPlannedFailure:
		return "maintain_planned_failure"
	case actionInspect:
		return "inspect"
	case actionRequestPart:
		return "request_part"
	case actionTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// node identifies anything that can be the location of an event: a Source,
// Buffer, Sink, Machine, or the Maintainer.
type node interface {
	Name() string
}

// Event is one entry in the Environment's priority queue. Events are never
// removed from the queue once scheduled; cancellation flips canceled and the
// run loop skips it when popped.
type Event struct {
	time     int
	kind     actionKind
	location node
	run      func()
	source   string
	priority int
	tiebreak float64
	index    uint64
	canceled bool
	heapIdx  int
}

// Time reports the simulation time the event is scheduled to run at.
func (e *Event) Time() int { return e.time }

// Kind reports the action this event will run.
func (e *Event) Kind() actionKind { return e.kind }

// Location reports the node the event acts on.
func (e *Event) Location() node { return e.location }

// Index reports the event's monotonic creation order, used as the final
// ordering tiebreak and exported in traces for reproducibility.
func (e *Event) Index() uint64 { return e.index }

// Canceled reports whether Environment.Cancel was called on this event.
func (e *Event) Canceled() bool { return e.canceled }

// eventHeap implements container/heap.Interface, ordering by
// (time, actionKind, priority, tiebreak, index).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.time != b.time {
		return a.time < b.time
	}
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if a.tiebreak != b.tiebreak {
		return a.tiebreak < b.tiebreak
	}
	return a.index < b.index
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.heapIdx = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.heapIdx = -1
	*h = old[:n-1]
	return e
}

// TraceRow is one line of the execution trace (see Environment.Trace).
type TraceRow struct {
	Time          int
	Location      string
	Action        string
	Source        string
	Priority      int
	Status        string
	Index         uint64
	CorrelationID string
}
