package types

// MaxNameLength bounds a name's length in bytes, matching the DNS-label
// convention the auction engine assumes for human-readable names.
const MaxNameLength = 63
