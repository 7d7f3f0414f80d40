// Package gateway routes encounter intents to the single authoritative
// writer.
//
// A relay gateway forwards intents over the messaging channel and returns
// at once. The authority's Receiver verifies the participant token, maps the
// intent to a command through one dispatch table and executes it. Rejections
// come back as warning notifications addressed to the intent id.
package gateway
