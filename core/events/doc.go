// Package events defines the typed drill-cycle event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - cycle.*
//   - phase.*
//   - audio.*
//
// Every event carries a timestamp and the phase that was active when it was
// emitted. Events are one-shot: the orchestrator never stores them, so
// consumers that need history must collect it themselves.
//
// cycle events
//
//   - ItemStarted (cycle.item_started): a new item's cycle began; carries the
//     item, its index, and the cycle id.
//   - ItemCompleted (cycle.item_completed): all phases of one item finished;
//     carries the item and the prompt/voice phase timestamps.
//   - CycleStopped (cycle.stopped): the caller stopped the cycle explicitly.
//   - CycleError (cycle.error): a clip failed to load or play; the cycle
//     advanced past the phase anyway.
//
// phase events
//
//   - PhaseChanged (phase.changed): a new phase was entered; carries the
//     previous phase.
//   - PauseStarted (phase.pause_started): the recall pause began; carries the
//     computed pause duration.
//
// audio events
//
//   - AudioStarted (audio.started): a phase's clip started playing; tagged
//     with the semantic audio kind (known, target_voice1, target_voice2).
//   - AudioCompleted (audio.completed): a phase's clip reached its natural
//     end. Skips and stops do not emit it.
//
// Text visibility is part of this contract: [Phase.ShowsKnownText] and
// [Phase.ShowsTargetText] are the only functions UI consumers should use to
// decide what to render, keeping displayed text synchronized with phase
// transitions rather than with audio progress.
package events
