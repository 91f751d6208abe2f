// Package notifications delivers arbitration events to the player.
//
// Every event is rendered once into a Message and fanned out to the on-screen
// display line writer and, when a topic is configured, to ntfy. The OSD path
// is wrapped in a token-bucket limiter so a storm of rejected requests never
// floods the display. Delivery is best effort: callers log failures and move
// on.
package notifications
