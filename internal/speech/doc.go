// Package speech defines the text-to-speech backend abstraction used by the
// narration pipeline: the Backend capability interface, the fallback policy
// that orders backend attempts for an utterance, and the adaptive rate
// controller. Concrete backends live in the engines subpackage.
package speech
