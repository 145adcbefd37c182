package anthropic

// CachedSystemBlocks returns a single system block marked for prompt
// caching with the given TTL ("5m" or "1h").
func CachedSystemBlocks(text, ttl string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: ttl},
		},
	}
}
