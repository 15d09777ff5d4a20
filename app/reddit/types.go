package reddit

// Wire types for the Reddit JSON listing API.

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"` // "t3" = post, "t1" = comment, "more" = collapsed stub
			Data thing  `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// thing covers the post and comment fields this client reads.
type thing struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Body        string  `json:"body"`
	Depth       int     `json:"depth"`
}

type aboutResponse struct {
	Data struct {
		CreatedUTC float64 `json:"created_utc"`
	} `json:"data"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
