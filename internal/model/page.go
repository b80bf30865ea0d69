package model

// PageType represents a classified satellite page category.
type PageType string

const (
	PageTypeHomepage PageType = "homepage"
	PageTypeAbout    PageType = "about"
	PageTypeServices PageType = "services"
	PageTypeProducts PageType = "products"
	PageTypeBlog     PageType = "blog"
	PageTypeNews     PageType = "news"
	PageTypeOther    PageType = "other"
)

// AllPageTypes returns all defined page types.
func AllPageTypes() []PageType {
	return []PageType{
		PageTypeHomepage,
		PageTypeAbout,
		PageTypeServices,
		PageTypeProducts,
		PageTypeBlog,
		PageTypeNews,
		PageTypeOther,
	}
}

// AdditionalPage is a satellite page that was fetched successfully.
type AdditionalPage struct {
	URL  string   `json:"url"`
	Type PageType `json:"type"`
}

// SatellitePage carries the fetched text of an additional page alongside
// its classification. Text is not part of the response payload.
type SatellitePage struct {
	AdditionalPage
	Title string `json:"-"`
	Text  string `json:"-"`
}
