package model

// Token is a styled text fragment extracted from report markup.
type Token struct {
	Text       string `json:"text"`
	Emphasized bool   `json:"emphasized"`
}
