// Package nfc decodes NFC tag payloads into game requests.
//
// The preferred payload is the fixed 32-byte NFC1 record: magic, core name,
// game identifier, tag type and reserved padding. Tags written by other tools
// fall back to ROM path sniffing and finally to treating the text as a title.
package nfc
