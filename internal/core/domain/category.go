package domain

// Category identifies the source platform of a raw input.
type Category string

const (
	CategoryUnknown     Category = "unknown"
	CategoryYouTube     Category = "youtube"
	CategoryInstagram   Category = "instagram"
	CategoryFacebook    Category = "facebook"
	CategoryTikTok      Category = "tiktok"
	CategoryTwitter     Category = "twitter"
	CategoryLinkedIn    Category = "linkedin"
	CategoryPinterest   Category = "pinterest"
	CategorySoundCloud  Category = "soundcloud"
	CategoryVimeo       Category = "vimeo"
	CategoryDailymotion Category = "dailymotion"
	CategoryReddit      Category = "reddit"
	Category9GAG        Category = "9gag"
)

// IsKnown reports whether the category is anything other than unknown.
func (c Category) IsKnown() bool {
	return c != "" && c != CategoryUnknown
}
