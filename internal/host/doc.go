// package host defines the narrow capability interfaces the discovery core
// needs from the media library host (batch track lookup, playlist commands,
// play-queue access) and provides a SQLite-backed implementation for
// standalone use.
package host
