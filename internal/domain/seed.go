package domain

// SeedPages returns the document a brand-new room starts with: a decorated
// cover plus one blank spread. The fixed ids survive from the original
// journal so bookmarked rooms keep addressing the cover.
func SeedPages() []Page {
	return []Page{
		{
			ID:         "cover",
			Background: BackgroundMangaLines,
			Elements: []Element{
				{
					ID:         "title",
					Type:       ElementText,
					Content:    "我的漫画手账\nJOURNAL",
					X:          50,
					Y:          150,
					Width:      300,
					Height:     200,
					Rotation:   -5,
					ZIndex:     1,
					StyleType:  "normal",
					FontFamily: "hand",
					FontSize:   48,
					FontWeight: "bold",
					TextAlign:  "center",
					Color:      "#000000",
				},
			},
		},
		{ID: "p1", Background: BackgroundWhite, Elements: []Element{}},
		{ID: "p2", Background: BackgroundDots, Elements: []Element{}},
	}
}
