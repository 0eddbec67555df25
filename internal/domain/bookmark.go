package domain

// Bookmark is one entry of the caller's bookmark list, as returned by the
// upstream instance. All text fields are untrusted.
type Bookmark struct {
	// ─────────────────────────────
	// Required
	// ─────────────────────────────

	// URL is the canonical URL of the bookmarked status.
	// Example: https://mastodon.social/@user/109000000000000000
	URL string

	// CreatedAt is the raw RFC 3339 timestamp. It is validated at render time,
	// not at decode time.
	CreatedAt string

	// Content is the status body (HTML).
	Content string

	// ─────────────────────────────
	// Optional
	// ─────────────────────────────

	// ID is the status ID local to the caller's instance (empty when absent).
	ID string

	// Card is the link preview attached to the status, nil when absent.
	Card *LinkCard

	// Account is the author of the status, nil when absent.
	Account *Account
}

// LinkCard is a link preview. Missing fields decode to "".
type LinkCard struct {
	Title       string
	URL         string
	Description string
}

// Account identifies the author. Missing fields decode to "".
type Account struct {
	// Username is the local part, without the leading @.
	Username string

	// Acct is username for local accounts and username@domain for remote ones.
	Acct string
}
