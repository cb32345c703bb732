package models

import "testing"

func TestClassifyReferrer(t *testing.T) {
	cases := []struct {
		referrer  string
		utmMedium string
		want      ReferrerType
	}{
		{"", "", ReferrerDirect},
		{"   ", "", ReferrerDirect},
		{"https://www.google.com/search?q=web+agency", "", ReferrerOrganic},
		{"https://duckduckgo.com/", "", ReferrerOrganic},
		{"https://www.facebook.com/some/post", "", ReferrerSocial},
		{"https://t.co/abc123", "", ReferrerSocial},
		{"https://www.linkedin.com/feed/", "", ReferrerSocial},
		{"https://partner-blog.example.com/review", "", ReferrerReferral},
		{"https://www.google.com/", "cpc", ReferrerPaid},
		{"", "ppc", ReferrerPaid},
		{"https://mail.example.com/", "email", ReferrerEmail},
		{"", "newsletter", ReferrerEmail},
		{"not a url", "", ReferrerDirect},
	}
	for _, tc := range cases {
		if got := ClassifyReferrer(tc.referrer, tc.utmMedium); got != tc.want {
			t.Errorf("ClassifyReferrer(%q, %q) = %q, want %q", tc.referrer, tc.utmMedium, got, tc.want)
		}
	}
}

func TestReferrerDomainOf(t *testing.T) {
	cases := []struct {
		referrer string
		want     string
	}{
		{"https://www.google.com/search", "google.com"},
		{"http://example.com:8080/path", "example.com"},
		{"https://sub.partner.io", "sub.partner.io"},
		{"", ""},
		{"/relative/path", ""},
	}
	for _, tc := range cases {
		if got := ReferrerDomainOf(tc.referrer); got != tc.want {
			t.Errorf("ReferrerDomainOf(%q) = %q, want %q", tc.referrer, got, tc.want)
		}
	}
}
