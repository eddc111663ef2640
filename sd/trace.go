package sd

type EventKind int

const (
	EventTokenProduced EventKind = iota
	EventStatementAttempted
	EventStatementCompleted
	EventStatementSuppressed
)

func (k EventKind) String() string {
	switch k {
	case EventTokenProduced:
		return "token"
	case EventStatementAttempted:
		return "attempt"
	case EventStatementCompleted:
		return "complete"
	case EventStatementSuppressed:
		return "suppress"
	default:
		return "unknown"
	}
}

// Event is a trace record. Token is set for TokenProduced, Tokens for the
// statement events; Value carries the statement result and Err the
// suppressed failure.
type Event struct {
	Kind   EventKind
	Token  Token
	Tokens []Token
	Value  Value
	Err    *RuntimeError
	Line   int
	Depth  int
}

// Tracer observes lexing and execution. Implementations must not retain
// Tokens beyond the call.
type Tracer interface {
	Trace(Event)
}

type TracerFunc func(Event)

func (f TracerFunc) Trace(e Event) {
	f(e)
}
