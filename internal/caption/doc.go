// Package caption turns a stream of raw caption snapshots into speakable
// utterances.
//
// A snapshot is the full text currently rendered in a player's caption
// region. Snapshots pass through a Filter that rejects UI chrome and markup,
// then ExtractDelta isolates the part not yet narrated, and IsDuplicate
// suppresses text that was already spoken recently. Processor chains the
// three; Coalescer debounces bursty snapshot notifications before they reach
// it.
package caption
