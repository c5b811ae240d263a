// Package domain models seismic events under human review.
//
// # Events
//
// A [SeismicEvent] is created fully formed by an external detection source:
// occurrence and end time, epicenter and hypocenter, an optional magnitude,
// and three classification tags (classification, generation origin, scope).
// It owns its recorded [TimeSeries] by value; each series owns its samples and
// each sample its typed details. Stations and seismographs are shared by
// pointer, since one station records many series.
//
// Event IDs are deterministic SHA-256 hashes of occurrence|epicenter lat|lon,
// so an event keeps its identity across reloads from any storage. See
// [NewEventID].
//
// # States
//
// The workflow states are a fixed catalog embedded in the binary
// (states.yaml) and loaded once by [LoadCatalog]:
//
//	autoDetectado        registered automatically, awaiting review
//	bloqueadoEnRevision  locked while an operator reviews it
//	pendienteRevision    referred to an expert
//	confirmado           confirmed (terminal)
//	rechazado            rejected (terminal)
//	derivado             derived manually
//
// # History
//
// Every event carries an append-only list of [StateChange] records. Exactly
// one of them is open (End == nil) and that one is the current state. The
// current state is never cached elsewhere, so it cannot disagree with the
// history.
//
// [Transition] is the only way to change state. It closes the open change and
// appends a new one; it does not decide which transitions are legal. The
// review coordinator owns those rules because each command has its own
// preconditions.
package domain
