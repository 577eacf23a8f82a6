package redis

const (
	// KeyPrefixLink is the prefix for link hashes
	KeyPrefixLink = "snl:link:"
	// KeyPrefixOwner is the prefix for per-owner indexes
	KeyPrefixOwner = "snl:owner:"
	// KeyPrefixQuote is the prefix for cached quotes
	KeyPrefixQuote = "snl:quote:"

	// link hash fields
	fieldData   = "data"
	fieldClicks = "click_count"
)

// LinkKey returns the Redis key for a link hash by ID
func LinkKey(id string) string {
	return KeyPrefixLink + id
}

// OwnerLinksKey returns the sorted set of an owner's link IDs scored by sort order
func OwnerLinksKey(owner string) string {
	return KeyPrefixOwner + owner + ":links"
}

// OwnerURLsKey returns the hash mapping an owner's urls to link IDs
func OwnerURLsKey(owner string) string {
	return KeyPrefixOwner + owner + ":urls"
}

// QuoteKey returns the Redis key for a cached quote payload
func QuoteKey(name string) string {
	return KeyPrefixQuote + name
}
