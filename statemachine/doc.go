// Package statemachine provides a generic finite state machine engine.
//
// A Machine is parameterized by a state type S (any comparable type with a
// String method, usually an integer enum) and a context type C (a pointer to
// whatever the workflow operates on). The caller declares which transitions
// are allowed, attaches enter/exit hooks and guards per state, and then
// requests transitions:
//
//	machine, err := statemachine.New(AllStates(), Pending, job)
//	if err != nil {
//		return err
//	}
//
//	machine.
//		Configure(Pending, func(cfg *statemachine.StateConfig[JobState, *Job]) {
//			cfg.GuardFunc(func(_ JobState, job *Job) bool { return job.Ready })
//		}).
//		Configure(Done, func(cfg *statemachine.StateConfig[JobState, *Job]) {
//			cfg.OnEnterFunc(func(job *Job) { job.Completed = true })
//		}).
//		AllowTransition(Pending, Active).
//		AllowTransition(Active, Done)
//
//	result := machine.TransitionTo(ctx, Active)
//	if !result.Success {
//		return result.Err
//	}
//
// Transitions on one machine are serialized: hooks of one transition always
// finish before the hooks of the next begin. Failures, including errors and
// panics inside hooks, are reported through TransitionResult and roll the
// state back; they never propagate to the caller.
package statemachine
