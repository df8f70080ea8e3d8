package domain

// GifResult is a single entry returned by the GIF-search proxy.
type GifResult struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Dims []int  `json:"dims,omitempty"`
}

// GifSearchResponse wraps proxy results for the API.
type GifSearchResponse struct {
	Results []GifResult `json:"results"`
}
