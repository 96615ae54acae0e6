package image

// placeholderMap holds one static illustration per genre, substituted when
// real image generation is unavailable or fails.
var placeholderMap = map[string]string{
	"fantasy":    "https://images.unsplash.com/photo-1518709268805-4e9042af9f23?auto=format&fit=crop&w=1684&q=80",
	"sci-fi":     "https://images.unsplash.com/photo-1534447677768-be436bb09401?auto=format&fit=crop&w=1471&q=80",
	"mystery":    "https://images.unsplash.com/photo-1580982327559-c1202864eb05?auto=format&fit=crop&w=1471&q=80",
	"romance":    "https://images.unsplash.com/photo-1515166306582-9677cd204acb?auto=format&fit=crop&w=1528&q=80",
	"horror":     "https://images.unsplash.com/photo-1565299624946-b28f40a0ae38?auto=format&fit=crop&w=1528&q=80",
	"adventure":  "https://images.unsplash.com/photo-1566936737687-8f392a237b8b?auto=format&fit=crop&w=1374&q=80",
	"historical": "https://images.unsplash.com/photo-1461360370896-922624d12aa1?auto=format&fit=crop&w=1374&q=80",
	"fairy-tale": "https://images.unsplash.com/photo-1534447677768-be436bb09401?auto=format&fit=crop&w=1471&q=80",
}

// Placeholder returns the static illustration for a genre. The lookup is
// total: any unrecognized genre maps to the fantasy placeholder.
func Placeholder(genre string) string {
	if url, ok := placeholderMap[genre]; ok {
		return url
	}
	return placeholderMap["fantasy"]
}

// IsPlaceholder reports whether a reference points at a stock placeholder
// rather than a generated illustration.
func IsPlaceholder(ref string) bool {
	for _, url := range placeholderMap {
		if ref == url {
			return true
		}
	}
	return false
}
