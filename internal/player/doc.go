// Package player serializes every playback transition through a single [Controller].
//
// A [Session] is either Single mode, holding exactly one track, or Queue mode, holding the
// playable subset of a track list with a current index. Each play request replaces the session
// wholesale; the previous [Engine] is paused and closed before the new one starts.
//
// Observers receive [Event] values over channels returned by [Controller.Subscribe]. The
// controller only keeps the channels, so a view that goes away just unsubscribes. Sends never
// block: a subscriber whose buffer is full misses the event.
//
// The audio itself is produced by an [Engine] obtained from an [EngineFactory]. Engines report
// the natural end of an item through the onEnd callback, which the controller uses to auto-advance
// queues.
package player
