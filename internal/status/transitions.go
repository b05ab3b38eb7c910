package status

// Intent is a lifecycle request an operator can make.
type Intent string

const (
	IntentCreate    Intent = "create"
	IntentStart     Intent = "start"
	IntentPause     Intent = "pause"
	IntentResume    Intent = "resume"
	IntentHibernate Intent = "hibernate"
	IntentForceStop Intent = "force-stop"
	IntentDestroy   Intent = "destroy"
)

type transition struct {
	from DomainState
	to   DomainState
}

// Observed transitions. A request outside this table is still sent; the
// table only says what the next poll is expected to show.
var transitions = map[Intent][]transition{
	IntentCreate:    {{NotFound, ShutOff}},
	IntentStart:     {{ShutOff, Running}, {Saved, Running}},
	IntentPause:     {{Running, Paused}},
	IntentResume:    {{Paused, Running}},
	IntentHibernate: {{Running, Saved}},
	IntentForceStop: {{Running, ShutOff}, {Paused, ShutOff}, {Saved, ShutOff}},
}

// Expect returns the state the next poll should show after intent is
// requested from state from. ok is false when the request is not expected
// to change anything.
func Expect(intent Intent, from DomainState) (to DomainState, ok bool) {
	if intent == IntentDestroy {
		return NotFound, from != NotFound
	}
	for _, t := range transitions[intent] {
		if t.from == from {
			return t.to, true
		}
	}
	return from, false
}
