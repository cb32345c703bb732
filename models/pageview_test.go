package models

import "testing"

func TestDeterminePageType(t *testing.T) {
	cases := []struct {
		path string
		want PageType
	}{
		{"", PageHome},
		{"/", PageHome},
		{"es", PageHome},
		{"/es", PageHome},
		{"/es/", PageHome},
		{"/services", PageServices},
		{"/es/servicios/web", PageServices},
		{"/SERVICES/web-design", PageServices},
		{"/portfolio", PagePortfolio},
		{"/portafolio/cliente", PagePortfolio},
		{"/our-work", PagePortfolio},
		{"/projects/acme", PagePortfolio},
		{"/about", PageAbout},
		{"/es/nosotros", PageAbout},
		{"/contact", PageContact},
		{"/es/contacto", PageContact},
		{"/blog/some-post", PageBlog},
		{"/pricing", PagePricing},
		{"/es/precios", PagePricing},
		{"/industries/healthcare", PageIndustries},
		{"/privacy", PagePrivacy},
		{"/es/privacidad", PagePrivacy},
		{"/random-page", PageOther},
		{"/404", PageOther},
	}
	for _, tc := range cases {
		if got := DeterminePageType(tc.path); got != tc.want {
			t.Errorf("DeterminePageType(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestDeterminePageTypeFirstMatchWins(t *testing.T) {
	// Ordered keyword scan: services outranks portfolio when a path
	// happens to contain keywords from both.
	if got := DeterminePageType("/services/portfolio-design"); got != PageServices {
		t.Fatalf("DeterminePageType = %q, want services (first match)", got)
	}
}

func TestDeterminePageTypeIdempotentAndTotal(t *testing.T) {
	inputs := []string{"", "es", "/x", "///", "  /services  ", "Ünïcode/path", "/a/b/c/d/e"}
	known := map[PageType]bool{
		PageHome: true, PageServices: true, PagePortfolio: true, PageAbout: true,
		PageContact: true, PageBlog: true, PagePricing: true, PageIndustries: true,
		PagePrivacy: true, PageOther: true,
	}
	for _, in := range inputs {
		first := DeterminePageType(in)
		second := DeterminePageType(in)
		if first != second {
			t.Errorf("DeterminePageType(%q) not deterministic: %q vs %q", in, first, second)
		}
		if !known[first] {
			t.Errorf("DeterminePageType(%q) = %q, not a fixed category", in, first)
		}
	}
}
