// Package classifier asks a vision model whether a sampled frame opens a new
// poker hand.
//
// ClassifyFrame returns an Analysis parsed from the first JSON object in the
// model's reply, validated against a strict schema. Malformed replies surface
// as *ParseError and are re-asked with backoff before giving up. HandNumber is
// a narrower best-effort call that reads the hand-number overlay and never
// fails its caller.
package classifier
